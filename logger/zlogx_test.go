package logger

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muhoed/odooExternalApiConnector/domain"
)

func newTestLogger(t *testing.T) (*ZLogXAdapter, *bytes.Buffer) {
	t.Helper()

	var buf bytes.Buffer
	log, err := New(&Config{
		Level:   "debug",
		Colored: false,
		Out:     &buf,
	})
	require.NoError(t, err)

	return &ZLogXAdapter{ZLogX: log}, &buf
}

func TestNewRejectsInvalidLevel(t *testing.T) {
	_, err := New(&Config{Level: "loud"})
	require.Error(t, err)
}

func TestNewDefaultsConfig(t *testing.T) {
	log, err := New(nil)
	require.NoError(t, err)
	require.NotNil(t, log)
}

func TestAdapterLogsWithFields(t *testing.T) {
	adapter, buf := newTestLogger(t)

	// Exercised through the interface the connector consumes.
	var logger domain.Logger = adapter
	logger.WithField("model", "res.partner").Info("authenticated")

	out := buf.String()
	assert.Contains(t, out, "authenticated")
	assert.Contains(t, out, "res.partner")
	assert.Contains(t, out, "INF")
}

func TestAdapterWithErrorKeepsConfig(t *testing.T) {
	adapter, buf := newTestLogger(t)

	adapter.WithError(errors.New("boom")).Error("remote call failed")

	out := buf.String()
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "ERR")
}

func TestRPCLevelSelection(t *testing.T) {
	adapter, buf := newTestLogger(t)
	var obs domain.Observability = adapter

	obs.RPC("/xmlrpc/2/object", "search", "res.partner", 5*time.Millisecond, nil)
	out := buf.String()
	assert.Contains(t, out, "DBG")
	assert.Contains(t, out, "search")
	assert.Contains(t, out, "res.partner")

	buf.Reset()
	obs.RPC("/xmlrpc/2/object", "unlink", "res.partner", 5*time.Millisecond, errors.New("access denied"))
	out = buf.String()
	assert.Contains(t, out, "ERR")
	assert.Contains(t, out, "access denied")
}

func TestSuccessAndFailure(t *testing.T) {
	adapter, buf := newTestLogger(t)

	adapter.Success("model created")
	assert.Contains(t, buf.String(), "model created")

	buf.Reset()
	adapter.Failure("model rejected")
	out := buf.String()
	assert.Contains(t, out, "model rejected")
	assert.Contains(t, out, "ERR")
}

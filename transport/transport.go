package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/kolo/xmlrpc"
)

// Odoo external API endpoint paths.
const (
	CommonEndpoint   = "/xmlrpc/2/common"
	ObjectEndpoint   = "/xmlrpc/2/object"
	DatabaseEndpoint = "/xmlrpc/db"
)

var (
	ErrEmptyServerURL  = errors.New("server url cannot be empty")
	ErrAuthRejected    = errors.New("authentication rejected by the server")
	ErrInvalidResponse = errors.New("invalid response format")
)

// Transporter is the remote call surface the connector depends on.
// Implementations may call a real Odoo server or provide fakes for tests.
type Transporter interface {
	// Version probes the common endpoint and returns server version info.
	Version(ctx context.Context) (map[string]any, error)

	// Authenticate logs in against the given database and returns the
	// user identifier for subsequent object calls.
	Authenticate(ctx context.Context, database, username, password string) (int64, error)

	// ExecuteKw performs a generic object call on the given model.
	ExecuteKw(ctx context.Context, database string, uid int64, password, model, method string, args []any, kwargs map[string]any) (any, error)

	// ListDatabases returns the names of databases existing on the server.
	ListDatabases(ctx context.Context) ([]string, error)

	Close() error
}

// XMLRPCTransport talks to the three XML-RPC endpoints of an Odoo server.
type XMLRPCTransport struct {
	serverURL string
	common    *xmlrpc.Client
	object    *xmlrpc.Client
	database  *xmlrpc.Client
}

var _ Transporter = (*XMLRPCTransport)(nil)

// NewTransport creates a transport for the given server address. No remote
// call is made yet; the first call is issued by the connector.
func NewTransport(serverURL string) (*XMLRPCTransport, error) {
	if serverURL == "" {
		return nil, ErrEmptyServerURL
	}

	common, err := xmlrpc.NewClient(serverURL+CommonEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create common endpoint client: %w", err)
	}

	object, err := xmlrpc.NewClient(serverURL+ObjectEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create object endpoint client: %w", err)
	}

	database, err := xmlrpc.NewClient(serverURL+DatabaseEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create database endpoint client: %w", err)
	}

	return &XMLRPCTransport{
		serverURL: serverURL,
		common:    common,
		object:    object,
		database:  database,
	}, nil
}

// call issues one blocking XML-RPC call with context support for
// cancellation. Timeout semantics are inherited from the underlying client.
func (t *XMLRPCTransport) call(ctx context.Context, client *xmlrpc.Client, method string, args []any, reply any) error {
	done := make(chan error, 1)

	go func() {
		done <- client.Call(method, args, reply)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("remote call cancelled: %w", ctx.Err())
	}
}

// Version implements Transporter.
func (t *XMLRPCTransport) Version(ctx context.Context) (map[string]any, error) {
	var reply any
	if err := t.call(ctx, t.common, "version", nil, &reply); err != nil {
		return nil, fmt.Errorf("version call failed: %w", err)
	}

	info, ok := reply.(map[string]any)
	if !ok {
		return nil, ErrInvalidResponse
	}

	return info, nil
}

// Authenticate implements Transporter. Odoo answers boolean false instead
// of a fault when the credentials are invalid.
func (t *XMLRPCTransport) Authenticate(ctx context.Context, database, username, password string) (int64, error) {
	var reply any
	args := []any{database, username, password, map[string]any{}}

	if err := t.call(ctx, t.common, "authenticate", args, &reply); err != nil {
		return 0, fmt.Errorf("authenticate call failed: %w", err)
	}

	if uid, ok := reply.(int64); ok && uid > 0 {
		return uid, nil
	}

	return 0, ErrAuthRejected
}

// ExecuteKw implements Transporter.
func (t *XMLRPCTransport) ExecuteKw(ctx context.Context, database string, uid int64, password, model, method string, args []any, kwargs map[string]any) (any, error) {
	if args == nil {
		args = []any{}
	}

	params := []any{database, uid, password, model, method, args}
	if kwargs != nil {
		params = append(params, kwargs)
	}

	var reply any
	if err := t.call(ctx, t.object, "execute_kw", params, &reply); err != nil {
		return nil, fmt.Errorf("%s call on model %s failed: %w", method, model, err)
	}

	return reply, nil
}

// ListDatabases implements Transporter.
func (t *XMLRPCTransport) ListDatabases(ctx context.Context) ([]string, error) {
	var reply []string
	if err := t.call(ctx, t.database, "list", nil, &reply); err != nil {
		return nil, fmt.Errorf("database list call failed: %w", err)
	}

	return reply, nil
}

// Close closes the underlying endpoint clients.
func (t *XMLRPCTransport) Close() error {
	var errs []error

	for _, client := range []*xmlrpc.Client{t.common, t.object, t.database} {
		if err := client.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// ServerURL returns the server address the transport was created for.
func (t *XMLRPCTransport) ServerURL() string {
	return t.serverURL
}

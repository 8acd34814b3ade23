package connector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/gookit/event"

	"github.com/muhoed/odooExternalApiConnector/config"
	"github.com/muhoed/odooExternalApiConnector/domain"
	"github.com/muhoed/odooExternalApiConnector/transport"
)

const (
	// Model registries used by CreateModel.
	modelRegistry = "ir.model"
	fieldRegistry = "ir.model.fields"

	// Access scopes checked before each operation.
	scopeRead   = "read"
	scopeCreate = "create"
	scopeWrite  = "write"
	scopeUnlink = "unlink"
)

// Lifecycle events fired on the attached event manager.
const (
	EventAuthenticated = "connector.authenticated"
	EventCallFailed    = "connector.call.failed"
)

var (
	ErrModelNameRequired  = errors.New("model name is required")
	ErrCredentialsMissing = errors.New("username and password are required")
	ErrNoDatabase         = errors.New("no database exists on the server")
	ErrNoRecordsToUpdate  = errors.New("no records to update")
	ErrNoRecordsToDelete  = errors.New("no records to delete")
	ErrInvalidResult      = errors.New("unexpected result from the server")
)

var defaultFieldAttributes = []string{"string", "help", "type"}

// session is the authenticated context reused across calls.
type session struct {
	database string
	uid      int64
}

// Connector exposes a uniform interface over the external API of an Odoo
// server. Authentication is lazy: the constructor performs no remote call,
// the first operation establishes the session and caches it for the
// connector lifetime. A Connector is safe for concurrent use.
type Connector struct {
	database    string
	username    string
	password    string
	transporter transport.Transporter
	logger      domain.Logger
	events      *event.Manager

	mtx  sync.Mutex
	sess *session
}

type Option func(*Connector)

// WithEvents attaches an event manager; the connector fires
// EventAuthenticated and EventCallFailed on it.
func WithEvents(manager *event.Manager) Option {
	return func(c *Connector) {
		c.events = manager
	}
}

// New creates a new connector instance. A nil logger is replaced with a
// no-op implementation.
func New(cfg config.Config, transporter transport.Transporter, logger domain.Logger, opts ...Option) *Connector {
	if logger == nil {
		logger = domain.NopLogger{}
	}

	connector := &Connector{
		database:    cfg.Database,
		username:    cfg.Username,
		password:    cfg.Password,
		transporter: transporter,
		logger:      logger,
	}

	for _, opt := range opts {
		opt(connector)
	}

	return connector
}

// Authenticate eagerly establishes the session. Calling it is optional;
// every operation authenticates lazily on first use.
func (c *Connector) Authenticate(ctx context.Context) error {
	_, err := c.ensureSession(ctx)
	return err
}

// Reset drops the cached session so the next operation authenticates again.
func (c *Connector) Reset() {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	c.sess = nil
}

// Database returns the catalog the connector is (or will be) bound to. It
// is empty until an omitted database has been resolved on first use.
func (c *Connector) Database() string {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return c.database
}

// Close releases the underlying transport.
func (c *Connector) Close() error {
	return c.transporter.Close()
}

// GetIDs returns the identifiers of records matching the query.
func (c *Connector) GetIDs(ctx context.Context, modelName string, query Query) IDsEnvelope {
	result, err := c.execute(ctx, modelName, "search", []string{scopeRead}, []any{query.domain()}, query.kwargs())
	if err != nil {
		return IDsEnvelope{Error: err.Error()}
	}

	ids, err := toIDList(result)
	if err != nil {
		return IDsEnvelope{Error: err.Error()}
	}

	return IDsEnvelope{IDs: ids}
}

// GetRecords returns matching records with the given field selection. An
// empty fields list falls back to all fields of the model.
func (c *Connector) GetRecords(ctx context.Context, modelName string, query Query, fields []string) RecordsEnvelope {
	kwargs := query.kwargs()
	if len(fields) > 0 {
		kwargs["fields"] = fields
	}

	result, err := c.execute(ctx, modelName, "search_read", []string{scopeRead}, []any{query.domain()}, kwargs)
	if err != nil {
		return RecordsEnvelope{Error: err.Error()}
	}

	records, err := toRecords(result)
	if err != nil {
		return RecordsEnvelope{Error: err.Error()}
	}

	return RecordsEnvelope{Records: records}
}

// GetCount returns the number of records matching the query filter.
func (c *Connector) GetCount(ctx context.Context, modelName string, query Query) CountEnvelope {
	result, err := c.execute(ctx, modelName, "search_count", []string{scopeRead}, []any{query.domain()}, nil)
	if err != nil {
		return CountEnvelope{Error: err.Error()}
	}

	count, err := toCount(result)
	if err != nil {
		return CountEnvelope{Error: err.Error()}
	}

	return CountEnvelope{Count: count}
}

// GetFields introspects the model schema, returning field metadata filtered
// to the requested attributes ("string", "help" and "type" when empty).
func (c *Connector) GetFields(ctx context.Context, modelName string, attributes []string) FieldsEnvelope {
	if len(attributes) == 0 {
		attributes = defaultFieldAttributes
	}

	result, err := c.execute(ctx, modelName, "fields_get", []string{scopeRead}, []any{}, map[string]any{"attributes": attributes})
	if err != nil {
		return FieldsEnvelope{Error: err.Error()}
	}

	schema, err := toFieldSchema(result)
	if err != nil {
		return FieldsEnvelope{Error: err.Error()}
	}

	return FieldsEnvelope{Fields: schema}
}

// CreateRecord creates one record with the given field values. Empty values
// fall back to a generated name so the record remains identifiable.
func (c *Connector) CreateRecord(ctx context.Context, modelName string, values map[string]any) IDEnvelope {
	if len(values) == 0 && strings.TrimSpace(modelName) != "" {
		values = map[string]any{"name": defaultRecordName(modelName)}
	}

	result, err := c.execute(ctx, modelName, "create", []string{scopeRead, scopeCreate}, []any{values}, nil)
	if err != nil {
		return IDEnvelope{Error: err.Error()}
	}

	id, err := toID(result)
	if err != nil {
		return IDEnvelope{Error: err.Error()}
	}

	return IDEnvelope{ID: &id}
}

// UpdateRecord applies the field values to all given identifiers. All
// records receive the same values; the call is all-or-nothing. Empty values
// are a no-op reported as success.
func (c *Connector) UpdateRecord(ctx context.Context, modelName string, ids []int64, values map[string]any) UpdateEnvelope {
	if strings.TrimSpace(modelName) == "" {
		return UpdateEnvelope{Error: ErrModelNameRequired.Error()}
	}
	if len(ids) == 0 {
		return UpdateEnvelope{Error: ErrNoRecordsToUpdate.Error()}
	}
	if len(values) == 0 {
		return UpdateEnvelope{Updated: len(ids)}
	}

	if _, err := c.execute(ctx, modelName, "write", []string{scopeRead, scopeWrite}, []any{ids, values}, nil); err != nil {
		return UpdateEnvelope{Error: err.Error()}
	}

	return UpdateEnvelope{Updated: len(ids)}
}

// DeleteRecord removes the given identifiers.
func (c *Connector) DeleteRecord(ctx context.Context, modelName string, ids []int64) DeleteEnvelope {
	if strings.TrimSpace(modelName) == "" {
		return DeleteEnvelope{Error: ErrModelNameRequired.Error()}
	}
	if len(ids) == 0 {
		return DeleteEnvelope{Error: ErrNoRecordsToDelete.Error()}
	}

	if _, err := c.execute(ctx, modelName, "unlink", []string{scopeRead, scopeUnlink}, []any{ids}, nil); err != nil {
		return DeleteEnvelope{Error: err.Error()}
	}

	return DeleteEnvelope{Deleted: len(ids)}
}

// CreateModel defines a new model with the given field specifications. The
// technical name is derived from the display name ("My Model" becomes
// "x_my_model"). When creating any of the fields fails the model itself is
// removed again so no half-defined model is left behind.
func (c *Connector) CreateModel(ctx context.Context, modelName string, fields []FieldSpec) ModelEnvelope {
	if strings.TrimSpace(modelName) == "" {
		return ModelEnvelope{Error: ErrModelNameRequired.Error()}
	}

	technical := technicalName(modelName)

	sess, err := c.ensureSession(ctx)
	if err != nil {
		return ModelEnvelope{Error: err.Error()}
	}

	if err := c.checkAccess(ctx, sess, modelRegistry, scopeRead, scopeCreate, scopeUnlink); err != nil {
		return ModelEnvelope{Error: err.Error()}
	}

	definition := map[string]any{
		"name":  modelName,
		"model": technical,
		"state": "manual",
	}

	result, err := c.call(ctx, sess, modelRegistry, "create", []any{definition}, nil)
	if err != nil {
		return ModelEnvelope{Error: err.Error()}
	}

	modelID, err := toID(result)
	if err != nil {
		return ModelEnvelope{Error: err.Error()}
	}

	if len(fields) > 0 {
		specs := make([]any, len(fields))
		for i, field := range fields {
			specs[i] = fieldDefinition(technical, modelID, i, field)
		}

		if _, err := c.call(ctx, sess, fieldRegistry, "create", []any{specs}, nil); err != nil {
			// Roll the model back so a failed field definition does not
			// leave a partially created model on the server.
			if _, unlinkErr := c.call(ctx, sess, modelRegistry, "unlink", []any{[]int64{modelID}}, nil); unlinkErr != nil {
				c.logger.WithError(unlinkErr).WithField("model", technical).Error("failed to roll back model creation")
			}
			return ModelEnvelope{Error: err.Error()}
		}
	}

	return ModelEnvelope{Model: &technical, ID: &modelID}
}

// execute runs one public operation end to end: model name validation,
// session establishment, access pre-flight and the remote call itself.
func (c *Connector) execute(ctx context.Context, modelName, method string, scopes []string, args []any, kwargs map[string]any) (any, error) {
	if strings.TrimSpace(modelName) == "" {
		return nil, ErrModelNameRequired
	}

	sess, err := c.ensureSession(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.checkAccess(ctx, sess, modelName, scopes...); err != nil {
		return nil, err
	}

	return c.call(ctx, sess, modelName, method, args, kwargs)
}

// call issues one object call, with logging and failure events.
func (c *Connector) call(ctx context.Context, sess *session, modelName, method string, args []any, kwargs map[string]any) (any, error) {
	start := time.Now()

	result, err := c.transporter.ExecuteKw(ctx, sess.database, sess.uid, c.password, modelName, method, args, kwargs)
	c.logRPC(modelName, method, time.Since(start), err)

	if err != nil {
		c.fire(EventCallFailed, event.M{"model": modelName, "method": method, "error": err.Error()})
		return nil, err
	}

	return result, nil
}

// logRPC reports one remote call outcome. Observability-aware loggers get
// the dedicated RPC hook; plain loggers get structured fields.
func (c *Connector) logRPC(modelName, method string, duration time.Duration, err error) {
	if obs, ok := c.logger.(domain.Observability); ok {
		obs.RPC(transport.ObjectEndpoint, method, modelName, duration, err)
		return
	}

	if err != nil {
		c.logger.WithError(err).WithFields(map[string]any{
			"model":  modelName,
			"method": method,
		}).Error("Remote call failed")
		return
	}

	c.logger.WithFields(map[string]any{
		"model":    modelName,
		"method":   method,
		"duration": duration.Round(time.Millisecond).String(),
	}).Debug("Remote call completed")
}

// checkAccess verifies that the credentials hold every requested scope on
// the model before the actual call is issued.
func (c *Connector) checkAccess(ctx context.Context, sess *session, modelName string, scopes ...string) error {
	for _, scope := range scopes {
		result, err := c.call(ctx, sess, modelName, "check_access_rights",
			[]any{scope}, map[string]any{"raise_exception": false})
		if err != nil {
			return fmt.Errorf("access check on model %s failed: %w", modelName, err)
		}

		if allowed, ok := result.(bool); !ok || !allowed {
			return fmt.Errorf("the model %s does not exist or you do not have a permission to %s it", modelName, scope)
		}
	}

	return nil
}

// ensureSession authenticates on first use and caches the session for the
// connector lifetime. The mutex guarantees database resolution and login
// happen at most once even under concurrent first calls.
func (c *Connector) ensureSession(ctx context.Context) (*session, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if c.sess != nil {
		return c.sess, nil
	}

	if c.username == "" || c.password == "" {
		return nil, ErrCredentialsMissing
	}

	if _, err := c.transporter.Version(ctx); err != nil {
		return nil, fmt.Errorf("can't connect to the server: %w", err)
	}

	sess, err := c.login(ctx)
	if err != nil {
		return nil, err
	}

	c.sess = sess
	c.fire(EventAuthenticated, event.M{"database": sess.database, "uid": sess.uid})
	c.logger.WithFields(map[string]any{
		"database": sess.database,
		"uid":      sess.uid,
	}).Debug("Authenticated on the server")

	return sess, nil
}

// login authenticates against the configured database, or resolves an
// omitted database to the first one on the server accepting the
// credentials. The resolved name is cached on the connector.
func (c *Connector) login(ctx context.Context) (*session, error) {
	if c.database != "" {
		uid, err := c.transporter.Authenticate(ctx, c.database, c.username, c.password)
		if err != nil {
			return nil, fmt.Errorf("can't connect to the database using credentials provided: %w", err)
		}
		return &session{database: c.database, uid: uid}, nil
	}

	databases, err := c.transporter.ListDatabases(ctx)
	if err != nil {
		return nil, fmt.Errorf("can't list databases on the server: %w", err)
	}
	if len(databases) == 0 {
		return nil, ErrNoDatabase
	}

	var lastErr error
	for _, database := range databases {
		uid, err := c.transporter.Authenticate(ctx, database, c.username, c.password)
		if err != nil {
			lastErr = err
			continue
		}

		c.database = database
		return &session{database: database, uid: uid}, nil
	}

	return nil, fmt.Errorf("can't connect to any database using credentials provided: %w", lastErr)
}

func (c *Connector) fire(name string, payload event.M) {
	if c.events == nil {
		return
	}

	if err, _ := c.events.Fire(name, payload); err != nil {
		c.logger.WithError(err).WithField("event", name).Warn("Event listener failed")
	}
}

// defaultRecordName derives a placeholder name from the model name, e.g.
// "res.partner" becomes "New Res".
func defaultRecordName(modelName string) string {
	name, _, _ := strings.Cut(modelName, ".")
	return "New " + capitalize(name)
}

// technicalName normalizes a display name into the technical model name:
// lowercase, spaces to underscores, "x_" prefix.
func technicalName(modelName string) string {
	name := strings.ReplaceAll(strings.ToLower(modelName), " ", "_")
	if !strings.HasPrefix(name, "x_") {
		name = "x_" + name
	}
	return name
}

// fieldDefinition merges a caller field spec over the required defaults.
func fieldDefinition(technical string, modelID int64, index int, field FieldSpec) map[string]any {
	definition := map[string]any{
		"model_id": modelID,
		"state":    "manual",
		"ttype":    "char",
		"name":     fmt.Sprintf("%s_field_%d", technical, index),
	}

	for key, value := range field {
		definition[key] = value
	}

	if name, ok := definition["name"].(string); ok && !strings.HasPrefix(name, "x_") {
		definition["name"] = "x_" + name
	}

	return definition
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

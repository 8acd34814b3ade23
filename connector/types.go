package connector

// Every public operation returns an envelope with the same contract: a
// non-empty Error means failure and the success key is left null (for
// object-valued keys) or zero (for count-like keys); otherwise Error is
// absent and the success key is populated. Callers can destructure the
// envelope uniformly regardless of outcome.

// IDsEnvelope is returned by GetIDs.
type IDsEnvelope struct {
	Error string  `json:"error,omitempty"`
	IDs   []int64 `json:"ids"`
}

// RecordsEnvelope is returned by GetRecords.
type RecordsEnvelope struct {
	Error   string           `json:"error,omitempty"`
	Records []map[string]any `json:"records"`
}

// CountEnvelope is returned by GetCount.
type CountEnvelope struct {
	Error string `json:"error,omitempty"`
	Count int    `json:"count"`
}

// FieldsEnvelope is returned by GetFields. Fields maps field names to the
// requested attribute values.
type FieldsEnvelope struct {
	Error  string                    `json:"error,omitempty"`
	Fields map[string]map[string]any `json:"fields"`
}

// IDEnvelope is returned by CreateRecord.
type IDEnvelope struct {
	Error string `json:"error,omitempty"`
	ID    *int64 `json:"id"`
}

// UpdateEnvelope is returned by UpdateRecord. Updated carries the number of
// identifiers the write was applied to; the remote call is all-or-nothing.
type UpdateEnvelope struct {
	Error   string `json:"error,omitempty"`
	Updated int    `json:"updated"`
}

// DeleteEnvelope is returned by DeleteRecord.
type DeleteEnvelope struct {
	Error   string `json:"error,omitempty"`
	Deleted int    `json:"deleted"`
}

// ModelEnvelope is returned by CreateModel. Model is the technical name of
// the created model (the handle for subsequent operations); ID is its
// registry identifier.
type ModelEnvelope struct {
	Error string  `json:"error,omitempty"`
	Model *string `json:"model"`
	ID    *int64  `json:"id"`
}

// Query selects which records of a model an operation works on. An empty
// Filter matches all records. Zero Offset/Limit mean no pagination
// restriction and are omitted from the remote call.
type Query struct {
	Filter []any
	Offset int
	Limit  int
}

// domain returns the filter in the shape the remote search expects.
func (q Query) domain() []any {
	if q.Filter == nil {
		return []any{}
	}
	return q.Filter
}

func (q Query) kwargs() map[string]any {
	kw := map[string]any{}
	if q.Offset > 0 {
		kw["offset"] = q.Offset
	}
	if q.Limit > 0 {
		kw["limit"] = q.Limit
	}
	return kw
}

// Condition builds a single domain triple, e.g. Condition("name", "=", "x").
func Condition(field, operator string, value any) []any {
	return []any{field, operator, value}
}

// FieldSpec describes one field of a model being created.
type FieldSpec map[string]any

package connector_test

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/muhoed/odooExternalApiConnector/transport"
)

// fakeTransporter is an in-memory stand-in for the XML-RPC transport. It
// mimics the wire types the real transport decodes (int64 identifiers,
// []any lists, map[string]any structs) and keeps call counters so tests can
// verify how often the connector touched each entry point.
type fakeTransporter struct {
	databases   []string
	credentials map[string]int64 // database -> uid accepted for the valid credentials
	username    string
	password    string

	versionErr error
	listCalls  int
	authCalls  int

	denied   map[string]bool  // "model:scope" -> access denied
	failures map[string]error // "model.method" -> forced failure

	models  map[string]*fakeModel
	schemas map[string]map[string]map[string]any

	modelRows      []map[string]any // rows created in ir.model
	fieldRows      []map[string]any // rows created in ir.model.fields
	unlinkedModels []int64
}

type fakeModel struct {
	nextID  int64
	order   []int64
	records map[int64]map[string]any
}

var _ transport.Transporter = (*fakeTransporter)(nil)

func newFakeTransporter() *fakeTransporter {
	return &fakeTransporter{
		databases:   []string{"production"},
		credentials: map[string]int64{"production": 2},
		username:    "admin",
		password:    "secret",
		denied:      map[string]bool{},
		failures:    map[string]error{},
		models: map[string]*fakeModel{
			"res.partner": {nextID: 1, records: map[int64]map[string]any{}},
		},
		schemas: map[string]map[string]map[string]any{
			"res.partner": {
				"name":  {"string": "Name", "help": "Contact name", "type": "char"},
				"email": {"string": "Email", "help": "Contact email", "type": "char"},
			},
		},
	}
}

func (f *fakeTransporter) Version(ctx context.Context) (map[string]any, error) {
	if f.versionErr != nil {
		return nil, f.versionErr
	}
	return map[string]any{"server_version": "14.0"}, nil
}

func (f *fakeTransporter) Authenticate(ctx context.Context, database, username, password string) (int64, error) {
	f.authCalls++

	uid, known := f.credentials[database]
	if !known || username != f.username || password != f.password {
		return 0, transport.ErrAuthRejected
	}

	return uid, nil
}

func (f *fakeTransporter) ListDatabases(ctx context.Context) ([]string, error) {
	f.listCalls++
	return f.databases, nil
}

func (f *fakeTransporter) Close() error {
	return nil
}

func (f *fakeTransporter) ExecuteKw(ctx context.Context, database string, uid int64, password, model, method string, args []any, kwargs map[string]any) (any, error) {
	if err, ok := f.failures[model+"."+method]; ok {
		return nil, err
	}

	if method == "check_access_rights" {
		scope, _ := args[0].(string)
		return !f.denied[model+":"+scope], nil
	}

	switch model {
	case "ir.model":
		return f.modelRegistryCall(method, args)
	case "ir.model.fields":
		return f.fieldRegistryCall(method, args)
	}

	m, ok := f.models[model]
	if !ok {
		return nil, fmt.Errorf("model %s does not exist", model)
	}

	switch method {
	case "search":
		ids := paginate(m.match(domainArg(args)), kwargs)
		return toAnyList(ids), nil

	case "search_count":
		return int64(len(m.match(domainArg(args)))), nil

	case "search_read":
		ids := paginate(m.match(domainArg(args)), kwargs)
		fields, _ := kwargs["fields"].([]string)
		records := make([]any, 0, len(ids))
		for _, id := range ids {
			records = append(records, m.read(id, fields))
		}
		return records, nil

	case "fields_get":
		attributes, _ := kwargs["attributes"].([]string)
		return f.schema(model, attributes), nil

	case "create":
		values, _ := args[0].(map[string]any)
		return m.insert(values), nil

	case "write":
		ids, _ := args[0].([]int64)
		values, _ := args[1].(map[string]any)
		for _, id := range ids {
			record, ok := m.records[id]
			if !ok {
				return nil, fmt.Errorf("record %d does not exist", id)
			}
			for key, value := range values {
				record[key] = value
			}
		}
		return true, nil

	case "unlink":
		ids, _ := args[0].([]int64)
		for _, id := range ids {
			delete(m.records, id)
		}
		return true, nil
	}

	return nil, fmt.Errorf("method %s is not supported", method)
}

func (f *fakeTransporter) modelRegistryCall(method string, args []any) (any, error) {
	switch method {
	case "create":
		values, _ := args[0].(map[string]any)
		f.modelRows = append(f.modelRows, values)
		return int64(len(f.modelRows)), nil
	case "unlink":
		ids, _ := args[0].([]int64)
		f.unlinkedModels = append(f.unlinkedModels, ids...)
		return true, nil
	}
	return nil, errors.New("unsupported registry call")
}

func (f *fakeTransporter) fieldRegistryCall(method string, args []any) (any, error) {
	if method != "create" {
		return nil, errors.New("unsupported registry call")
	}

	specs, _ := args[0].([]any)
	for _, spec := range specs {
		values, _ := spec.(map[string]any)
		f.fieldRows = append(f.fieldRows, values)
	}
	return int64(len(f.fieldRows)), nil
}

func (f *fakeTransporter) schema(model string, attributes []string) map[string]any {
	fields := map[string]any{}
	for name, attrs := range f.schemas[model] {
		selected := map[string]any{}
		for _, attribute := range attributes {
			if value, ok := attrs[attribute]; ok {
				selected[attribute] = value
			}
		}
		fields[name] = selected
	}
	return fields
}

func (m *fakeModel) insert(values map[string]any) int64 {
	id := m.nextID
	m.nextID++

	record := map[string]any{"id": id}
	for key, value := range values {
		record[key] = value
	}

	m.records[id] = record
	m.order = append(m.order, id)
	return id
}

func (m *fakeModel) match(domain []any) []int64 {
	var ids []int64
	for _, id := range m.order {
		record, ok := m.records[id]
		if !ok {
			continue
		}
		if matchesDomain(record, domain) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (m *fakeModel) read(id int64, fields []string) map[string]any {
	record := m.records[id]
	if len(fields) == 0 {
		copied := map[string]any{}
		for key, value := range record {
			copied[key] = value
		}
		return copied
	}

	selected := map[string]any{"id": id}
	for _, field := range fields {
		if value, ok := record[field]; ok {
			selected[field] = value
		}
	}
	return selected
}

// matchesDomain supports equality triples, enough for the exercised calls.
func matchesDomain(record map[string]any, domain []any) bool {
	for _, condition := range domain {
		triple, ok := condition.([]any)
		if !ok || len(triple) != 3 {
			return false
		}

		field, _ := triple[0].(string)
		operator, _ := triple[1].(string)
		if operator != "=" || record[field] != triple[2] {
			return false
		}
	}
	return true
}

func domainArg(args []any) []any {
	if len(args) == 0 {
		return nil
	}
	domain, _ := args[0].([]any)
	return domain
}

func paginate(ids []int64, kwargs map[string]any) []int64 {
	offset := intKwarg(kwargs, "offset")
	limit := intKwarg(kwargs, "limit")

	if offset > 0 {
		if offset >= len(ids) {
			return nil
		}
		ids = ids[offset:]
	}
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	return ids
}

func intKwarg(kwargs map[string]any, key string) int {
	if kwargs == nil {
		return 0
	}
	value, _ := kwargs[key].(int)
	return value
}

func toAnyList(ids []int64) []any {
	list := make([]any, 0, len(ids))
	for _, id := range ids {
		list = append(list, id)
	}
	return list
}

package connector

import (
	"fmt"
)

// Conversions from the loosely typed XML-RPC replies into the envelope
// shapes. The transport decodes integers as int64 and structs as
// map[string]any; alternative Transporter implementations may hand back
// native Go values, so both forms are accepted.

func toID(value any) (int64, error) {
	switch id := value.(type) {
	case int64:
		return id, nil
	case int:
		return int64(id), nil
	}
	return 0, fmt.Errorf("%w: expected an identifier, got %T", ErrInvalidResult, value)
}

func toCount(value any) (int, error) {
	switch count := value.(type) {
	case int64:
		return int(count), nil
	case int:
		return count, nil
	}
	return 0, fmt.Errorf("%w: expected a count, got %T", ErrInvalidResult, value)
}

func toIDList(value any) ([]int64, error) {
	switch list := value.(type) {
	case []int64:
		return list, nil
	case []any:
		ids := make([]int64, 0, len(list))
		for _, item := range list {
			id, err := toID(item)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, nil
	}
	return nil, fmt.Errorf("%w: expected a list of identifiers, got %T", ErrInvalidResult, value)
}

func toRecords(value any) ([]map[string]any, error) {
	switch list := value.(type) {
	case []map[string]any:
		return list, nil
	case []any:
		records := make([]map[string]any, 0, len(list))
		for _, item := range list {
			record, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: expected a record mapping, got %T", ErrInvalidResult, item)
			}
			records = append(records, record)
		}
		return records, nil
	}
	return nil, fmt.Errorf("%w: expected a list of records, got %T", ErrInvalidResult, value)
}

func toFieldSchema(value any) (map[string]map[string]any, error) {
	switch schema := value.(type) {
	case map[string]map[string]any:
		return schema, nil
	case map[string]any:
		fields := make(map[string]map[string]any, len(schema))
		for name, attrs := range schema {
			attributes, ok := attrs.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: expected attributes for field %s, got %T", ErrInvalidResult, name, attrs)
			}
			fields[name] = attributes
		}
		return fields, nil
	}
	return nil, fmt.Errorf("%w: expected a field schema, got %T", ErrInvalidResult, value)
}

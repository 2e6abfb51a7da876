package domain

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

// Fields is a set of record fields keyed by their JSON name
type Fields map[string]any

// ID returns the record id, accepting both "id" and "_id"
func (f Fields) ID() string {
	for _, k := range []string{"id", "_id"} {
		if v, ok := f[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

// Keys returns the field names in sorted order
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Pick returns the subset of f named by keys. Missing keys are left out.
func (f Fields) Pick(keys ...string) Fields {
	out := make(Fields, len(keys))
	for _, k := range keys {
		if v, ok := f[k]; ok {
			out[k] = v
		}
	}
	return out
}

// Merge returns a copy of f with every field of changes applied on top
func (f Fields) Merge(changes Fields) Fields {
	out := f.Clone()
	for k, v := range changes {
		out[k] = v
	}
	return out
}

// Same reports whether both sets hold equal values for key
func (f Fields) Same(other Fields, key string) bool {
	a, okA := f[key]
	b, okB := other[key]
	if okA != okB {
		return false
	}
	return reflect.DeepEqual(normalize(a), normalize(b))
}

// FieldsOf converts a record into its field form
func FieldsOf(v any) (Fields, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	var f Fields
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record fields: %w", err)
	}
	return f, nil
}

// ApplyTo writes the fields onto the record pointed to by dst
func (f Fields) ApplyTo(dst any) error {
	current, err := FieldsOf(dst)
	if err != nil {
		return err
	}
	data, err := marshalFields(current.Merge(f))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to apply fields: %w", err)
	}
	return nil
}

func marshalFields(f Fields) ([]byte, error) {
	data, err := json.Marshal(map[string]any(f))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal fields: %w", err)
	}
	return data, nil
}

// normalize round-trips a value through JSON so typed and decoded forms compare equal
func normalize(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

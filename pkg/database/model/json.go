// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONBag is an arbitrary JSON object column (jsonb in postgres). The opaque
// runtime and definition snapshots, property maps, and run parameter bags are
// all stored through it.
type JSONBag map[string]interface{}

// Value implements driver.Valuer.
func (e JSONBag) Value() (driver.Value, error) {
	if e == nil {
		return nil, nil
	}
	return json.Marshal(e)
}

// Scan implements sql.Scanner.
func (e *JSONBag) Scan(value interface{}) error {
	if value == nil {
		*e = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, e)
	case string:
		return json.Unmarshal([]byte(v), e)
	default:
		return fmt.Errorf("unsupported type for JSONBag: %T", value)
	}
}

// GetString reads a string member, "" when absent or not a string.
func (e JSONBag) GetString(key string) string {
	if v, ok := e[key].(string); ok {
		return v
	}
	return ""
}

// GetInt reads a numeric member as int. JSON numbers decode as float64;
// integral values stored by Go code may also appear as int or int64.
func (e JSONBag) GetInt(key string) (int, bool) {
	switch v := e[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i), true
		}
	}
	return 0, false
}

// GetBag reads a nested object member.
func (e JSONBag) GetBag(key string) (JSONBag, bool) {
	if v, ok := e[key].(map[string]interface{}); ok {
		return JSONBag(v), true
	}
	return nil, false
}

// Clone returns a shallow copy, safe for callers that patch members before a
// partial update.
func (e JSONBag) Clone() JSONBag {
	if e == nil {
		return nil
	}
	out := make(JSONBag, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// StringList is a JSON array of strings column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported type for StringList: %T", value)
	}
}

// Contains reports membership.
func (l StringList) Contains(s string) bool {
	for _, v := range l {
		if v == s {
			return true
		}
	}
	return false
}

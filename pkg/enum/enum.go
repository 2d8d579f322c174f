// Package enum holds helpers for closed uint8 enums that are persisted and
// serialized as their string names.
package enum

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Names maps an enum ordinal to its wire name. Index 0 is reserved for the
// invalid zero value and must be empty.
type Names []string

func (n Names) Name(v uint8) string {
	if int(v) >= len(n) {
		return ""
	}
	return n[v]
}

// Parse resolves a wire name, case-insensitively, to its ordinal.
func (n Names) Parse(raw string) (uint8, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	for i, name := range n {
		if i == 0 {
			continue
		}
		if strings.EqualFold(name, raw) {
			return uint8(i), true
		}
	}
	return 0, false
}

// Value renders v for the database. The zero value is stored as NULL.
func (n Names) Value(v uint8) (driver.Value, error) {
	if v == 0 {
		return nil, nil
	}
	name := n.Name(v)
	if name == "" {
		return nil, fmt.Errorf("enum: ordinal %d out of range", v)
	}
	return name, nil
}

// Scan reads a stored name back into its ordinal.
func (n Names) Scan(src any) (uint8, error) {
	var raw string
	switch value := src.(type) {
	case nil:
		return 0, nil
	case string:
		raw = value
	case []byte:
		raw = string(value)
	default:
		return 0, fmt.Errorf("enum: unsupported scan type %T", src)
	}
	parsed, ok := n.Parse(raw)
	if !ok {
		return 0, fmt.Errorf("enum: unknown value %q", raw)
	}
	return parsed, nil
}

package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/srithedesigner/credmatrix-backend/pkg/enum"
)

// Field names a mutable report column.
type Field uint8

const (
	FieldStatus Field = iota + 1
	FieldAgentID
	FieldTargetEntityName
	FieldTargetEntityPAN
	FieldPendingDocuments
	FieldCancellationReason
)

var fieldNames = enum.Names{
	"",
	"status",
	"agent_id",
	"target_entity_name",
	"target_entity_pan",
	"pending_documents",
	"cancellation_reason",
}

const (
	maxTargetNameLength = 255
	maxPANLength        = 20
	maxReasonLength     = 1000
)

// fieldSpec binds a field to its typed accessors. decode parses the wire
// form, get renders the snapshot form and set applies a decoded value.
type fieldSpec struct {
	decode func(raw json.RawMessage) (any, error)
	get    func(r *Report) any
	set    func(r *Report, value any) bool
}

var fieldSpecs = map[Field]fieldSpec{
	FieldStatus: {
		decode: func(raw json.RawMessage) (any, error) {
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return nil, err
			}
			return ParseStatus(s)
		},
		get: func(r *Report) any { return r.Status.String() },
		set: func(r *Report, value any) bool {
			status, ok := value.(Status)
			if !ok || !status.Valid() {
				return false
			}
			r.Status = status
			return true
		},
	},
	FieldAgentID: {
		decode: func(raw json.RawMessage) (any, error) {
			if isNull(raw) {
				return (*snowflake.ID)(nil), nil
			}
			var id json.Number
			dec := json.NewDecoder(bytes.NewReader(unquote(raw)))
			dec.UseNumber()
			if err := dec.Decode(&id); err != nil {
				return nil, err
			}
			parsed, err := snowflake.ParseString(id.String())
			if err != nil || parsed <= 0 {
				return nil, fmt.Errorf("invalid agent id %q", id.String())
			}
			return &parsed, nil
		},
		get: func(r *Report) any {
			if r.AgentID == nil {
				return nil
			}
			return r.AgentID.String()
		},
		set: func(r *Report, value any) bool {
			id, ok := value.(*snowflake.ID)
			if !ok {
				return false
			}
			r.AgentID = id
			return true
		},
	},
	FieldTargetEntityName: {
		decode: func(raw json.RawMessage) (any, error) {
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return nil, err
			}
			return NormalizeTargetName(s)
		},
		get: func(r *Report) any { return r.TargetEntityName },
		set: func(r *Report, value any) bool {
			name, ok := value.(string)
			if !ok {
				return false
			}
			r.TargetEntityName = name
			return true
		},
	},
	FieldTargetEntityPAN: {
		decode: func(raw json.RawMessage) (any, error) {
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return nil, err
			}
			return NormalizePAN(s)
		},
		get: func(r *Report) any { return r.TargetEntityPAN },
		set: func(r *Report, value any) bool {
			pan, ok := value.(string)
			if !ok {
				return false
			}
			r.TargetEntityPAN = pan
			return true
		},
	},
	FieldPendingDocuments: {
		decode: func(raw json.RawMessage) (any, error) {
			var items []string
			if err := json.Unmarshal(raw, &items); err != nil {
				return nil, err
			}
			out := make([]string, 0, len(items))
			for _, item := range items {
				item = strings.TrimSpace(item)
				if item == "" {
					return nil, fmt.Errorf("empty pending document")
				}
				out = append(out, item)
			}
			return out, nil
		},
		get: func(r *Report) any {
			out := make([]string, len(r.PendingDocuments))
			copy(out, r.PendingDocuments)
			return out
		},
		set: func(r *Report, value any) bool {
			items, ok := value.([]string)
			if !ok {
				return false
			}
			r.PendingDocuments = append(r.PendingDocuments[:0:0], items...)
			return true
		},
	},
	FieldCancellationReason: {
		decode: func(raw json.RawMessage) (any, error) {
			if isNull(raw) {
				return (*string)(nil), nil
			}
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return nil, err
			}
			return NormalizeReason(s)
		},
		get: func(r *Report) any {
			if r.CancellationReason == nil {
				return nil
			}
			return *r.CancellationReason
		},
		set: func(r *Report, value any) bool {
			reason, ok := value.(*string)
			if !ok {
				return false
			}
			r.CancellationReason = reason
			return true
		},
	},
}

func ParseField(raw string) (Field, error) {
	v, ok := fieldNames.Parse(raw)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrFieldNotMutable, strings.TrimSpace(raw))
	}
	return Field(v), nil
}

func (f Field) String() string { return fieldNames.Name(uint8(f)) }

// Changes maps each requested field to its decoded value.
type Changes map[Field]any

// DecodeChanges parses a partial update keyed by wire field names.
func DecodeChanges(raw map[string]json.RawMessage) (Changes, error) {
	if len(raw) == 0 {
		return nil, ErrNoChanges
	}
	changes := make(Changes, len(raw))
	for name, value := range raw {
		field, err := ParseField(name)
		if err != nil {
			return nil, err
		}
		decoded, err := fieldSpecs[field].decode(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFieldValue, field, err)
		}
		changes[field] = decoded
	}
	return changes, nil
}

// Fields returns the requested fields in declaration order.
func (c Changes) Fields() []Field {
	fields := make([]Field, 0, len(c))
	for field := range c {
		fields = append(fields, field)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}

// Apply writes every change onto r.
func (c Changes) Apply(r *Report) error {
	for _, field := range c.Fields() {
		spec, ok := fieldSpecs[field]
		if !ok {
			return fmt.Errorf("%w: %d", ErrFieldNotMutable, field)
		}
		if !spec.set(r, c[field]) {
			return fmt.Errorf("%w: %s", ErrInvalidFieldValue, field)
		}
	}
	return nil
}

// Snapshot holds the boundary values of a set of fields at one instant.
type Snapshot map[Field]any

func TakeSnapshot(r *Report, fields []Field) Snapshot {
	snap := make(Snapshot, len(fields))
	for _, field := range fields {
		if spec, ok := fieldSpecs[field]; ok {
			snap[field] = spec.get(r)
		}
	}
	return snap
}

// Map keys the snapshot by wire field name.
func (s Snapshot) Map() map[string]any {
	out := make(map[string]any, len(s))
	for field, value := range s {
		out[field.String()] = value
	}
	return out
}

func NormalizeTargetName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" || !utf8.ValidString(name) || utf8.RuneCountInString(name) > maxTargetNameLength {
		return "", ErrInvalidTargetName
	}
	return name, nil
}

// NormalizePAN upper-cases a tax id and requires it to be alphanumeric.
func NormalizePAN(raw string) (string, error) {
	pan := strings.ToUpper(strings.TrimSpace(raw))
	if pan == "" || len(pan) > maxPANLength {
		return "", ErrInvalidPAN
	}
	for _, r := range pan {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", ErrInvalidPAN
		}
	}
	return pan, nil
}

// NormalizeReason trims a cancellation reason; blank becomes nil. Reasons
// longer than maxReasonLength characters are rejected, not cut.
func NormalizeReason(raw string) (*string, error) {
	reason := strings.TrimSpace(raw)
	if reason == "" {
		return nil, nil
	}
	if !utf8.ValidString(reason) || utf8.RuneCountInString(reason) > maxReasonLength {
		return nil, ErrInvalidCancellationReason
	}
	return &reason, nil
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func unquote(raw json.RawMessage) []byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) >= 2 && trimmed[0] == '"' && trimmed[len(trimmed)-1] == '"' {
		return trimmed[1 : len(trimmed)-1]
	}
	return trimmed
}

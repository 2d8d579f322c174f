package domain

import (
	"database/sql/driver"

	"github.com/srithedesigner/credmatrix-backend/pkg/enum"
)

// Status is the lifecycle state of a report.
type Status uint8

const (
	StatusDraft Status = iota + 1
	StatusRequestRaised
	StatusUnderAssessment
	StatusDocPending
	StatusCompleted
	StatusCancelled
)

// The misspelled UNDER_ASSESMENT is the stored and wire name.
var statusNames = enum.Names{
	"",
	"DRAFT",
	"REQUEST_RAISED",
	"UNDER_ASSESMENT",
	"DOC_PENDING",
	"COMPLETED",
	"CANCELLED",
}

var transitions = map[Status][]Status{
	StatusDraft:           {StatusRequestRaised, StatusCancelled},
	StatusRequestRaised:   {StatusUnderAssessment, StatusDocPending, StatusCancelled},
	StatusUnderAssessment: {StatusDocPending, StatusCompleted, StatusCancelled},
	StatusDocPending:      {StatusUnderAssessment, StatusCancelled},
}

func ParseStatus(raw string) (Status, error) {
	v, ok := statusNames.Parse(raw)
	if !ok {
		return 0, ErrInvalidStatus
	}
	return Status(v), nil
}

func (s Status) Valid() bool    { return s >= StatusDraft && s <= StatusCancelled }
func (s Status) String() string { return statusNames.Name(uint8(s)) }

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// CanTransitionTo consults the transition table. Staying in the same
// status is not a transition and is never allowed here.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s Status) Value() (driver.Value, error) { return statusNames.Value(uint8(s)) }

func (s *Status) Scan(src any) error {
	v, err := statusNames.Scan(src)
	*s = Status(v)
	return err
}

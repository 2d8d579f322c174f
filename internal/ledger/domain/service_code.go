package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
	"github.com/srithedesigner/credmatrix-backend/pkg/enum"
)

// ServiceCode is a billable report service.
type ServiceCode uint8

const (
	ServiceFinancialInfo ServiceCode = iota + 1
	ServiceComprehensiveReportWithScores
	ServiceBureauReport
	ServiceBankRefCheck
)

var serviceCodeNames = enum.Names{
	"",
	"FINANCIAL_INFO",
	"COMPREHENSIVE_REPORT_WITH_SCORES",
	"BUREAU_REPORT",
	"BANK_REF_CHECK",
}

// serviceCosts is the single source of credit pricing.
var serviceCosts = map[ServiceCode]int64{
	ServiceFinancialInfo:                 5,
	ServiceBureauReport:                  5,
	ServiceBankRefCheck:                  10,
	ServiceComprehensiveReportWithScores: 20,
}

func ParseServiceCode(raw string) (ServiceCode, error) {
	v, ok := serviceCodeNames.Parse(raw)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidServiceCode, raw)
	}
	return ServiceCode(v), nil
}

func (c ServiceCode) String() string { return serviceCodeNames.Name(uint8(c)) }

// Cost returns the credit price of the service, zero for unknown codes.
func (c ServiceCode) Cost() int64 { return serviceCosts[c] }

func (c ServiceCode) MarshalText() ([]byte, error) {
	if c.String() == "" {
		return nil, ErrInvalidServiceCode
	}
	return []byte(c.String()), nil
}

func (c *ServiceCode) UnmarshalText(text []byte) error {
	parsed, err := ParseServiceCode(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ServiceCodes is an ordered set of services. It is stored as a text array.
type ServiceCodes []ServiceCode

// ParseServiceCodes parses and de-duplicates codes, keeping first-seen order.
func ParseServiceCodes(raw []string) (ServiceCodes, error) {
	out := make(ServiceCodes, 0, len(raw))
	for _, item := range raw {
		code, err := ParseServiceCode(item)
		if err != nil {
			return nil, err
		}
		out = append(out, code)
	}
	return out.Normalize(), nil
}

// Normalize drops duplicates, keeping first-seen order.
func (codes ServiceCodes) Normalize() ServiceCodes {
	seen := make(map[ServiceCode]struct{}, len(codes))
	out := make(ServiceCodes, 0, len(codes))
	for _, code := range codes {
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}

func (codes ServiceCodes) Strings() []string {
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		out = append(out, code.String())
	}
	return out
}

func (codes ServiceCodes) MarshalJSON() ([]byte, error) {
	return json.Marshal(codes.Strings())
}

func (codes *ServiceCodes) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseServiceCodes(raw)
	if err != nil {
		return err
	}
	*codes = parsed
	return nil
}

func (codes ServiceCodes) Value() (driver.Value, error) {
	return pq.StringArray(codes.Strings()).Value()
}

func (codes *ServiceCodes) Scan(src any) error {
	var raw pq.StringArray
	if err := raw.Scan(src); err != nil {
		return err
	}
	parsed, err := ParseServiceCodes(raw)
	if err != nil {
		return err
	}
	*codes = parsed
	return nil
}

// RequiredCredits prices a set of services. Duplicates are charged once.
func RequiredCredits(codes ServiceCodes) (int64, error) {
	if len(codes) == 0 {
		return 0, ErrEmptyServices
	}
	var total int64
	for _, code := range codes.Normalize() {
		cost, ok := serviceCosts[code]
		if !ok {
			return 0, ErrInvalidServiceCode
		}
		total += cost
	}
	return total, nil
}

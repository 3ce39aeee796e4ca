package credits

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// PlanID identifies a subscription tier. The zero value is "no plan" (pay-as-you-go).
type PlanID string

const (
	PlanNone  PlanID = ""
	PlanTier1 PlanID = "tier1"
	PlanTier2 PlanID = "tier2"
	PlanTier3 PlanID = "tier3"
	PlanTier4 PlanID = "tier4"
)

var monthlyAllowances = map[PlanID]int64{
	PlanNone:  0,
	PlanTier1: 8000,
	PlanTier2: 13000,
	PlanTier3: 18000,
	PlanTier4: 29000,
}

// ParsePlan validates a plan identifier. "" and "none" both mean no plan.
func ParsePlan(s string) (PlanID, error) {
	if s == "none" {
		return PlanNone, nil
	}
	p := PlanID(s)
	if _, ok := monthlyAllowances[p]; !ok {
		return PlanNone, fmt.Errorf("%w: %q", ErrUnknownPlan, s)
	}
	return p, nil
}

// MonthlyAllowance returns the credits granted per billing cycle.
// Unknown identifiers grant nothing.
func (p PlanID) MonthlyAllowance() int64 {
	return monthlyAllowances[p]
}

// IsNone reports whether p is the pay-as-you-go plan.
func (p PlanID) IsNone() bool {
	return p == PlanNone
}

// MarshalJSON encodes the none plan as null.
func (p PlanID) MarshalJSON() ([]byte, error) {
	if p.IsNone() {
		return []byte("null"), nil
	}
	return json.Marshal(string(p))
}

// UnmarshalJSON accepts null or a plan string.
func (p *PlanID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = PlanNone
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePlan(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Value implements driver.Valuer.
func (p PlanID) Value() (driver.Value, error) {
	return string(p), nil
}

// Scan implements sql.Scanner.
func (p *PlanID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*p = PlanNone
	case string:
		*p = PlanID(v)
	case []byte:
		*p = PlanID(v)
	default:
		return fmt.Errorf("scan plan id: unsupported type %T", src)
	}
	return nil
}

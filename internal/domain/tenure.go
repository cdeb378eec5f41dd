package domain

import (
	"fmt"
	"strings"
)

// Tenure is the ordinal experience level of an agent, derived from months active.
type Tenure int

const (
	TenureNew Tenure = iota
	TenureJunior
	TenureMid
	TenureSenior
	TenureExpert
)

func (t Tenure) String() string {
	switch t {
	case TenureNew:
		return "New"
	case TenureJunior:
		return "Junior"
	case TenureMid:
		return "Mid"
	case TenureSenior:
		return "Senior"
	case TenureExpert:
		return "Expert"
	}
	return fmt.Sprintf("Tenure(%d)", int(t))
}

func ParseTenure(s string) (Tenure, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "new":
		return TenureNew, nil
	case "junior":
		return TenureJunior, nil
	case "mid":
		return TenureMid, nil
	case "senior":
		return TenureSenior, nil
	case "expert":
		return TenureExpert, nil
	}
	return TenureMid, fmt.Errorf("%w: %q", ErrUnknownTenure, s)
}

// TenureFromMonths buckets months of activity into a tenure category.
func TenureFromMonths(months int) Tenure {
	switch {
	case months < 3:
		return TenureNew
	case months < 6:
		return TenureJunior
	case months < 24:
		return TenureMid
	case months < 48:
		return TenureSenior
	default:
		return TenureExpert
	}
}

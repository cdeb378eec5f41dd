package domain

import (
	"fmt"
	"strings"
)

type AccountID string
type AgentID string

// Health is the three-level risk classification of an account.
type Health int

const (
	HealthRed Health = iota
	HealthYellow
	HealthGreen
)

func (h Health) String() string {
	switch h {
	case HealthRed:
		return "Red"
	case HealthYellow:
		return "Yellow"
	case HealthGreen:
		return "Green"
	}
	return fmt.Sprintf("Health(%d)", int(h))
}

func ParseHealth(s string) (Health, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "red":
		return HealthRed, nil
	case "yellow":
		return HealthYellow, nil
	case "green":
		return HealthGreen, nil
	}
	return HealthYellow, fmt.Errorf("%w: %q", ErrUnknownHealth, s)
}

// Account is an immutable work item awaiting placement. All scoring inputs
// (neediness, revenue, priority) are computed upstream.
type Account struct {
	ID        AccountID
	Name      string
	Health    Health
	Neediness float64
	Revenue   float64
	Priority  float64
	Segment   string
	Level     string
}

// SegmentKey returns the capacity-limit lookup key for the account,
// e.g. segment "Residential" + level "Corporate" -> "residential_corporate".
func (a Account) SegmentKey() string {
	segment := strings.ToLower(strings.TrimSpace(a.Segment))
	segment = strings.ReplaceAll(segment, " & construction", "")
	segment = strings.ReplaceAll(segment, " ", "_")
	level := strings.ToLower(strings.TrimSpace(a.Level))
	if segment == "" || level == "" {
		return ""
	}
	return segment + "_" + level
}

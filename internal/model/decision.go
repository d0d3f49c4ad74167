package model

import "fmt"

// Decision is the classified swipe gesture.
type Decision string

const (
	DecisionLike      Decision = "like"
	DecisionPass      Decision = "pass"
	DecisionSuperLike Decision = "super_like"
)

// ParseDecision converts a raw string to a Decision. Matching is case-sensitive.
func ParseDecision(s string) (Decision, error) {
	d := Decision(s)
	switch d {
	case DecisionLike, DecisionPass, DecisionSuperLike:
		return d, nil
	}
	return "", fmt.Errorf("unknown swipe decision %q", s)
}

// IsPositive is true for like and super_like.
func (d Decision) IsPositive() bool {
	return d == DecisionLike || d == DecisionSuperLike
}

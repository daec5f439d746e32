package model

import (
	"fmt"
	"strings"
)

// Priority is one of low, medium, high.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority accepts the three names case-insensitively.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	}
	return "", fmt.Errorf("unknown priority %q (want low, medium or high)", s)
}

// ParsePriorityOr is ParsePriority with a fallback instead of an error.
func ParsePriorityOr(s string, def Priority) Priority {
	p, err := ParsePriority(s)
	if err != nil {
		return def
	}
	return p
}

// Ptr is a convenience for building patches.
func (p Priority) Ptr() *Priority { return &p }

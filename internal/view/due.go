package view

import (
	"fmt"
	"math"
	"time"
)

type DueClass uint8

const (
	DueNeutral DueClass = iota
	DueOverdue
	DueNow
	DueSoon
	DueLater
)

func (c DueClass) String() string {
	switch c {
	case DueOverdue:
		return "overdue"
	case DueNow:
		return "due-now"
	case DueSoon:
		return "due-soon"
	case DueLater:
		return "due-later"
	}
	return "neutral"
}

func (c DueClass) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *DueClass) UnmarshalText(b []byte) error {
	for _, v := range []DueClass{DueNeutral, DueOverdue, DueNow, DueSoon, DueLater} {
		if v.String() == string(b) {
			*c = v
			return nil
		}
	}
	return fmt.Errorf("unknown due class %q", b)
}

// ClassifyDue buckets a due date relative to now. Completed tasks are always neutral.
func ClassifyDue(due time.Time, completed bool, now time.Time) DueClass {
	if completed {
		return DueNeutral
	}
	until := due.Sub(now)
	switch {
	case until < 0:
		return DueOverdue
	case until < time.Hour:
		return DueNow
	case until < 24*time.Hour:
		return DueSoon
	default:
		return DueLater
	}
}

// DueLabel renders the short human text shown next to a due date.
func DueLabel(due time.Time, now time.Time) string {
	until := due.Sub(now)
	if until < 0 {
		return "Overdue"
	}
	if until < time.Hour {
		return "Due now"
	}
	hours := int(math.Ceil(until.Hours()))
	if until < 24*time.Hour {
		return fmt.Sprintf("Due in %dh", hours)
	}
	return fmt.Sprintf("Due in %dd", int(math.Ceil(float64(hours)/24)))
}

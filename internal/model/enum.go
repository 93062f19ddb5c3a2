package model

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownPriority = errors.New("unknown priority")
	ErrUnknownCategory = errors.New("unknown category")
)

type Priority uint8

const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityHigh
	PriorityUrgent
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	}
	return fmt.Sprintf("Priority(%d)", uint8(p))
}

func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityUrgent
}

func ParsePriority(s string) (Priority, error) {
	for _, p := range Priorities {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPriority, s)
}

func (p Priority) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPriority, uint8(p))
	}
	return []byte(p.String()), nil
}

func (p *Priority) UnmarshalText(b []byte) error {
	v, err := ParsePriority(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

type Category uint8

const (
	CategoryPersonal Category = iota + 1
	CategoryWork
	CategoryHealth
	CategoryFinance
	CategoryLearning
	CategoryShopping
)

var Categories = []Category{
	CategoryPersonal,
	CategoryWork,
	CategoryHealth,
	CategoryFinance,
	CategoryLearning,
	CategoryShopping,
}

func (c Category) String() string {
	switch c {
	case CategoryPersonal:
		return "personal"
	case CategoryWork:
		return "work"
	case CategoryHealth:
		return "health"
	case CategoryFinance:
		return "finance"
	case CategoryLearning:
		return "learning"
	case CategoryShopping:
		return "shopping"
	}
	return fmt.Sprintf("Category(%d)", uint8(c))
}

func (c Category) Valid() bool {
	return c >= CategoryPersonal && c <= CategoryShopping
}

func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCategory, uint8(c))
	}
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	v, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

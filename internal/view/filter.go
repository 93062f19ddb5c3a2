// Package view computes what a user currently sees from a task snapshot:
// the filtered list, the aggregate statistics and due-date classification.
// Everything here is pure and safe to call on every read.
package view

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/BuzzLyutic/taskboard/internal/model"
)

type Tab uint8

const (
	TabAll Tab = iota
	TabPending
	TabCompleted
	TabUrgent
)

func (t Tab) String() string {
	switch t {
	case TabAll:
		return "all"
	case TabPending:
		return "pending"
	case TabCompleted:
		return "completed"
	case TabUrgent:
		return "urgent"
	}
	return fmt.Sprintf("Tab(%d)", uint8(t))
}

func ParseTab(s string) (Tab, error) {
	switch s {
	case "", "all":
		return TabAll, nil
	case "pending":
		return TabPending, nil
	case "completed":
		return TabCompleted, nil
	case "urgent":
		return TabUrgent, nil
	}
	return 0, fmt.Errorf("unknown tab %q", s)
}

// Criteria is the current filter state. Nil Priority or Category means "all".
type Criteria struct {
	Search   string
	Priority *model.Priority
	Category *model.Category
	Tab      Tab
}

// Filter returns the tasks matching c in their original order.
func Filter(tasks []model.Task, c Criteria) []model.Task {
	fold := cases.Fold()
	needle := fold.String(c.Search)

	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if !matchesSearch(fold, t, needle) {
			continue
		}
		if c.Priority != nil && t.Priority != *c.Priority {
			continue
		}
		if c.Category != nil && t.Category != *c.Category {
			continue
		}
		if !c.Tab.Matches(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (t Tab) Matches(task model.Task) bool {
	switch t {
	case TabPending:
		return !task.Completed
	case TabCompleted:
		return task.Completed
	case TabUrgent:
		return task.Priority == model.PriorityUrgent && !task.Completed
	}
	return true
}

func matchesSearch(fold cases.Caser, t model.Task, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(fold.String(t.Title), needle) ||
		strings.Contains(fold.String(t.Description), needle)
}

package model

import (
	"time"

	"github.com/google/uuid"
)

type Task struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	DueDate     *time.Time `json:"due_date"`
	Priority    Priority   `json:"priority"`
	Category    Category   `json:"category"`
	CreatedAt   time.Time  `json:"created_at"`
	UserID      uuid.UUID  `json:"user_id"`
}

type User struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// Draft is the input form for a new task.
type Draft struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`
	Priority    Priority   `json:"priority"`
	Category    Category   `json:"category"`
}

func NewDraft() Draft {
	return Draft{
		Priority: PriorityMedium,
		Category: CategoryPersonal,
	}
}

// Patch carries a subset of mutable fields. Nil fields are left untouched.
// ClearDueDate wins over DueDate.
type Patch struct {
	Title        *string
	Description  *string
	Completed    *bool
	DueDate      *time.Time
	ClearDueDate bool
	Priority     *Priority
	Category     *Category
}

func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil &&
		p.DueDate == nil && !p.ClearDueDate && p.Priority == nil && p.Category == nil
}

func (p Patch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.ClearDueDate {
		t.DueDate = nil
	} else if p.DueDate != nil {
		due := *p.DueDate
		t.DueDate = &due
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
}

// Edit is a full replacement of the user-editable fields.
type Edit struct {
	Title       string
	Description string
	DueDate     *time.Time
	Priority    Priority
	Category    Category
}

func (e Edit) Patch() Patch {
	title, description := e.Title, e.Description
	priority, category := e.Priority, e.Category
	return Patch{
		Title:        &title,
		Description:  &description,
		DueDate:      e.DueDate,
		ClearDueDate: e.DueDate == nil,
		Priority:     &priority,
		Category:     &category,
	}
}

func EditOf(t Task) Edit {
	return Edit{
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		Priority:    t.Priority,
		Category:    t.Category,
	}
}

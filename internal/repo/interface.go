package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/BuzzLyutic/taskboard/internal/model"
)

var (
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("conflict")
	ErrorInvalid  = errors.New("invalid task")
)

// TaskRepository is the backend of record. Every call is scoped to one user:
// tasks owned by someone else behave as if they did not exist.
type TaskRepository interface {
	// List returns all of the user's tasks, newest first.
	List(ctx context.Context, userID uuid.UUID) ([]model.Task, error)
	Get(ctx context.Context, userID, id uuid.UUID) (model.Task, error)
	Create(ctx context.Context, userID uuid.UUID, d model.Draft) (model.Task, error)
	Update(ctx context.Context, userID, id uuid.UUID, p model.Patch) (model.Task, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

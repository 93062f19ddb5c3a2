// Package gateway submits task writes to the backend and reports every
// outcome to the user as a transient notice.
package gateway

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskboard/internal/model"
	"github.com/BuzzLyutic/taskboard/internal/realtime"
	"github.com/BuzzLyutic/taskboard/internal/repo"
)

var (
	ErrEmptyTitle      = errors.New("title is required")
	ErrUnauthenticated = errors.New("not authenticated")
	ErrNothingStaged   = errors.New("no task staged for editing")
)

const (
	msgAdded        = "Task added successfully!"
	msgAddFailed    = "Failed to add task"
	msgLoginToAdd   = "You must be logged in to add tasks"
	msgUpdated      = "Task updated successfully"
	msgUpdateFailed = "Failed to update task"
	msgDeleted      = "Task deleted successfully"
	msgDeleteFailed = "Failed to delete task"
)

type Notice struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Destructive bool   `json:"destructive"`
}

func success(msg string) Notice {
	return Notice{Title: "Success", Description: msg}
}

func failure(msg string) Notice {
	return Notice{Title: "Error", Description: msg, Destructive: true}
}

type Reporter interface {
	Report(n Notice)
}

type ReporterFunc func(Notice)

func (f ReporterFunc) Report(n Notice) { f(n) }

// Identity resolves the authenticated user behind a request.
type Identity func(ctx context.Context) (model.User, bool)

type Gateway struct {
	repo      repo.TaskRepository
	publisher realtime.Publisher
	identity  Identity
	reporter  Reporter
	logger    *zap.Logger
}

func New(r repo.TaskRepository, p realtime.Publisher, identity Identity, reporter Reporter, logger *zap.Logger) *Gateway {
	if p == nil {
		p = realtime.Nop{}
	}
	return &Gateway{
		repo:      r,
		publisher: p,
		identity:  identity,
		reporter:  reporter,
		logger:    logger,
	}
}

// Create inserts the draft for the current user. On success the draft is
// reset to its defaults.
func (g *Gateway) Create(ctx context.Context, d *model.Draft) (model.Task, error) {
	if strings.TrimSpace(d.Title) == "" {
		return model.Task{}, ErrEmptyTitle
	}

	user, ok := g.identity(ctx)
	if !ok {
		g.reporter.Report(failure(msgLoginToAdd))
		return model.Task{}, ErrUnauthenticated
	}

	task, err := g.repo.Create(ctx, user.ID, *d)
	if err != nil {
		g.logger.Warn("create task failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		msg := err.Error()
		if msg == "" {
			msg = msgAddFailed
		}
		g.reporter.Report(failure(msg))
		return model.Task{}, err
	}

	*d = model.NewDraft()
	g.reporter.Report(success(msgAdded))
	g.publish(ctx, realtime.OpInsert, task)
	return task, nil
}

// Update applies a partial change, such as a completion toggle.
func (g *Gateway) Update(ctx context.Context, id uuid.UUID, p model.Patch) (model.Task, error) {
	user, ok := g.identity(ctx)
	if !ok {
		g.reporter.Report(failure(msgUpdateFailed))
		return model.Task{}, ErrUnauthenticated
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		g.reporter.Report(failure(msgUpdateFailed))
		return model.Task{}, ErrEmptyTitle
	}

	task, err := g.repo.Update(ctx, user.ID, id, p)
	if err != nil {
		g.logger.Warn("update task failed", zap.String("task_id", id.String()), zap.Error(err))
		g.reporter.Report(failure(msgUpdateFailed))
		return model.Task{}, err
	}

	g.publish(ctx, realtime.OpUpdate, task)
	return task, nil
}

func (g *Gateway) Delete(ctx context.Context, id uuid.UUID) error {
	user, ok := g.identity(ctx)
	if !ok {
		g.reporter.Report(failure(msgDeleteFailed))
		return ErrUnauthenticated
	}

	if err := g.repo.Delete(ctx, user.ID, id); err != nil {
		g.logger.Warn("delete task failed", zap.String("task_id", id.String()), zap.Error(err))
		g.reporter.Report(failure(msgDeleteFailed))
		return err
	}

	g.reporter.Report(success(msgDeleted))
	g.publish(ctx, realtime.OpDelete, model.Task{ID: id, UserID: user.ID})
	return nil
}

func (g *Gateway) publish(ctx context.Context, op string, t model.Task) {
	c := realtime.Change{Op: op, TaskID: t.ID, UserID: t.UserID}
	if err := g.publisher.Publish(ctx, c); err != nil {
		g.logger.Warn("publish change failed", zap.String("op", op), zap.String("task_id", t.ID.String()), zap.Error(err))
	}
}

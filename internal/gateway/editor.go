package gateway

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskboard/internal/model"
	"github.com/BuzzLyutic/taskboard/internal/realtime"
)

// Editor holds at most one task staged for a full edit.
type Editor struct {
	g *Gateway

	mu     sync.Mutex
	staged *model.Task
}

func NewEditor(g *Gateway) *Editor {
	return &Editor{g: g}
}

// Stage replaces whatever was staged before and returns the task's current
// fields as the starting point of the edit.
func (e *Editor) Stage(t model.Task) model.Edit {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.staged = &t
	return model.EditOf(t)
}

func (e *Editor) Staged() (model.Task, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.staged == nil {
		return model.Task{}, false
	}
	return *e.staged, true
}

// Cancel drops the staged task if it is still id. A task staged since then
// by another caller is left alone.
func (e *Editor) Cancel(id uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.staged != nil && e.staged.ID == id {
		e.staged = nil
	}
}

// Submit writes every editable field of the staged task. The staged task is
// cleared only on success.
func (e *Editor) Submit(ctx context.Context, edit model.Edit) (model.Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.submit(ctx, edit)
}

// Replace stages t and submits edit for it in one step, so concurrent
// callers never write one request's fields to another request's task.
func (e *Editor) Replace(ctx context.Context, t model.Task, edit model.Edit) (model.Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.staged = &t
	return e.submit(ctx, edit)
}

func (e *Editor) submit(ctx context.Context, edit model.Edit) (model.Task, error) {
	if e.staged == nil {
		return model.Task{}, ErrNothingStaged
	}
	if strings.TrimSpace(edit.Title) == "" {
		return model.Task{}, ErrEmptyTitle
	}

	g := e.g
	user, ok := g.identity(ctx)
	if !ok {
		g.reporter.Report(failure(msgUpdateFailed))
		return model.Task{}, ErrUnauthenticated
	}

	id := e.staged.ID
	task, err := g.repo.Update(ctx, user.ID, id, edit.Patch())
	if err != nil {
		g.logger.Warn("edit task failed", zap.String("task_id", id.String()), zap.Error(err))
		g.reporter.Report(failure(msgUpdateFailed))
		return model.Task{}, err
	}

	e.staged = nil
	g.reporter.Report(success(msgUpdated))
	g.publish(ctx, realtime.OpUpdate, task)
	return task, nil
}

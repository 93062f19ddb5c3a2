package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskboard/internal/model"
	"github.com/BuzzLyutic/taskboard/internal/realtime"
	"github.com/BuzzLyutic/taskboard/internal/repo"
)

type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) List(ctx context.Context, userID uuid.UUID) ([]model.Task, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.Task), args.Error(1)
}

func (m *MockTaskRepository) Get(ctx context.Context, userID, id uuid.UUID) (model.Task, error) {
	args := m.Called(ctx, userID, id)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) Create(ctx context.Context, userID uuid.UUID, d model.Draft) (model.Task, error) {
	args := m.Called(ctx, userID, d)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) Update(ctx context.Context, userID, id uuid.UUID, p model.Patch) (model.Task, error) {
	args := m.Called(ctx, userID, id, p)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

type recorder struct {
	notices []Notice
	changes []realtime.Change
}

func (r *recorder) Report(n Notice) { r.notices = append(r.notices, n) }

func (r *recorder) Publish(_ context.Context, c realtime.Change) error {
	r.changes = append(r.changes, c)
	return nil
}

var user = model.User{ID: uuid.MustParse("5b3f1f0e-8a53-4c2e-9d2a-0d6f3c7e9b11"), Email: "ann@example.com"}

func signedIn(context.Context) (model.User, bool)  { return user, true }
func signedOut(context.Context) (model.User, bool) { return model.User{}, false }

func setup(identity Identity) (*Gateway, *MockTaskRepository, *recorder) {
	m := &MockTaskRepository{}
	rec := &recorder{}
	return New(m, rec, identity, rec, zap.NewNop()), m, rec
}

func TestGateway_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("blank title never reaches the backend", func(t *testing.T) {
		for _, title := range []string{"", "   ", "\t\n"} {
			g, m, rec := setup(signedIn)
			d := model.NewDraft()
			d.Title = title

			_, err := g.Create(ctx, &d)
			assert.ErrorIs(t, err, ErrEmptyTitle)
			m.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
			assert.Empty(t, rec.changes)
		}
	})

	t.Run("requires a signed in user", func(t *testing.T) {
		g, m, rec := setup(signedOut)
		d := model.NewDraft()
		d.Title = "Buy milk"

		_, err := g.Create(ctx, &d)
		assert.ErrorIs(t, err, ErrUnauthenticated)
		m.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
		assert.Equal(t, []Notice{{Title: "Error", Description: "You must be logged in to add tasks", Destructive: true}}, rec.notices)
		assert.Equal(t, "Buy milk", d.Title, "draft is kept for another try")
	})

	t.Run("success resets the draft and publishes", func(t *testing.T) {
		g, m, rec := setup(signedIn)
		due := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
		d := model.Draft{Title: "Buy milk", Description: "2l", DueDate: &due, Priority: model.PriorityHigh, Category: model.CategoryShopping}
		created := model.Task{ID: uuid.New(), UserID: user.ID, Title: "Buy milk", Priority: model.PriorityHigh, Category: model.CategoryShopping}
		m.On("Create", mock.Anything, user.ID, d).Return(created, nil)

		got, err := g.Create(ctx, &d)
		require.NoError(t, err)
		assert.Equal(t, created, got)
		assert.Equal(t, model.NewDraft(), d)
		assert.Equal(t, []Notice{{Title: "Success", Description: "Task added successfully!"}}, rec.notices)
		assert.Equal(t, []realtime.Change{{Op: realtime.OpInsert, TaskID: created.ID, UserID: user.ID}}, rec.changes)
		m.AssertExpectations(t)
	})

	t.Run("backend error is reported verbatim", func(t *testing.T) {
		g, m, rec := setup(signedIn)
		d := model.NewDraft()
		d.Title = "Buy milk"
		m.On("Create", mock.Anything, user.ID, mock.Anything).Return(model.Task{}, errors.New("permission denied for table tasks"))

		_, err := g.Create(ctx, &d)
		require.Error(t, err)
		assert.Equal(t, "permission denied for table tasks", rec.notices[0].Description)
		assert.True(t, rec.notices[0].Destructive)
		assert.Equal(t, "Buy milk", d.Title)
		assert.Empty(t, rec.changes)
	})
}

func TestGateway_Update(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	done := true

	t.Run("toggle completion", func(t *testing.T) {
		g, m, rec := setup(signedIn)
		p := model.Patch{Completed: &done}
		m.On("Update", mock.Anything, user.ID, id, p).Return(model.Task{ID: id, UserID: user.ID, Completed: true}, nil)

		got, err := g.Update(ctx, id, p)
		require.NoError(t, err)
		assert.True(t, got.Completed)
		assert.Empty(t, rec.notices)
		assert.Equal(t, realtime.OpUpdate, rec.changes[0].Op)
	})

	t.Run("failure reports a generic message", func(t *testing.T) {
		g, m, rec := setup(signedIn)
		m.On("Update", mock.Anything, user.ID, id, mock.Anything).Return(model.Task{}, repo.ErrorNotFound)

		_, err := g.Update(ctx, id, model.Patch{Completed: &done})
		assert.ErrorIs(t, err, repo.ErrorNotFound)
		assert.Equal(t, []Notice{{Title: "Error", Description: "Failed to update task", Destructive: true}}, rec.notices)
		assert.Empty(t, rec.changes)
	})

	t.Run("blank title is rejected locally", func(t *testing.T) {
		g, m, _ := setup(signedIn)
		blank := " "
		_, err := g.Update(ctx, id, model.Patch{Title: &blank})
		assert.ErrorIs(t, err, ErrEmptyTitle)
		m.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestGateway_Delete(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("success", func(t *testing.T) {
		g, m, rec := setup(signedIn)
		m.On("Delete", mock.Anything, user.ID, id).Return(nil)

		require.NoError(t, g.Delete(ctx, id))
		assert.Equal(t, "Task deleted successfully", rec.notices[0].Description)
		assert.Equal(t, []realtime.Change{{Op: realtime.OpDelete, TaskID: id, UserID: user.ID}}, rec.changes)
	})

	t.Run("failure", func(t *testing.T) {
		g, m, rec := setup(signedIn)
		m.On("Delete", mock.Anything, user.ID, id).Return(errors.New("timeout"))

		require.Error(t, g.Delete(ctx, id))
		assert.Equal(t, "Failed to delete task", rec.notices[0].Description)
		assert.True(t, rec.notices[0].Destructive)
	})
}

func TestEditor(t *testing.T) {
	ctx := context.Background()
	task := model.Task{ID: uuid.New(), UserID: user.ID, Title: "Old", Priority: model.PriorityLow, Category: model.CategoryWork}

	t.Run("nothing staged", func(t *testing.T) {
		g, m, _ := setup(signedIn)
		_, err := NewEditor(g).Submit(ctx, model.Edit{Title: "New"})
		assert.ErrorIs(t, err, ErrNothingStaged)
		m.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("submit replaces every field and clears the stage", func(t *testing.T) {
		g, m, rec := setup(signedIn)
		e := NewEditor(g)

		edit := e.Stage(task)
		assert.Equal(t, "Old", edit.Title)

		edit.Title = "New"
		edit.Priority = model.PriorityUrgent
		m.On("Update", mock.Anything, user.ID, task.ID, mock.MatchedBy(func(p model.Patch) bool {
			return *p.Title == "New" && *p.Description == "" && p.ClearDueDate &&
				*p.Priority == model.PriorityUrgent && *p.Category == model.CategoryWork && p.Completed == nil
		})).Return(model.Task{ID: task.ID, UserID: user.ID, Title: "New"}, nil)

		got, err := e.Submit(ctx, edit)
		require.NoError(t, err)
		assert.Equal(t, "New", got.Title)
		_, staged := e.Staged()
		assert.False(t, staged)
		assert.Equal(t, "Task updated successfully", rec.notices[0].Description)
		m.AssertExpectations(t)
	})

	t.Run("failure keeps the task staged", func(t *testing.T) {
		g, m, rec := setup(signedIn)
		e := NewEditor(g)
		edit := e.Stage(task)
		m.On("Update", mock.Anything, user.ID, task.ID, mock.Anything).Return(model.Task{}, errors.New("boom"))

		_, err := e.Submit(ctx, edit)
		require.Error(t, err)
		_, staged := e.Staged()
		assert.True(t, staged)
		assert.Equal(t, "Failed to update task", rec.notices[0].Description)
	})

	t.Run("blank title", func(t *testing.T) {
		g, _, _ := setup(signedIn)
		e := NewEditor(g)
		e.Stage(task)
		_, err := e.Submit(ctx, model.Edit{Title: "  "})
		assert.ErrorIs(t, err, ErrEmptyTitle)

		e.Cancel(uuid.New())
		_, staged := e.Staged()
		assert.True(t, staged, "cancel of another task keeps the stage")

		e.Cancel(task.ID)
		_, staged = e.Staged()
		assert.False(t, staged)
	})

	t.Run("submit writes to the task staged last", func(t *testing.T) {
		g, m, _ := setup(signedIn)
		e := NewEditor(g)
		other := model.Task{ID: uuid.New(), UserID: user.ID, Title: "Other"}
		m.On("Update", mock.Anything, user.ID, other.ID, mock.Anything).Return(other, nil)

		e.Stage(task)
		e.Stage(other)
		got, err := e.Submit(ctx, model.Edit{Title: "for-other"})
		require.NoError(t, err)
		assert.Equal(t, other.ID, got.ID)
		m.AssertNotCalled(t, "Update", mock.Anything, user.ID, task.ID, mock.Anything)
	})
}

func TestEditor_ReplaceConcurrent(t *testing.T) {
	ctx := context.Background()
	g, m, _ := setup(signedIn)
	e := NewEditor(g)

	const n = 20
	tasks := make([]model.Task, n)
	for i := range tasks {
		tasks[i] = model.Task{ID: uuid.New(), UserID: user.ID, Title: fmt.Sprintf("task-%d", i)}
		title := fmt.Sprintf("edit-%d", i)
		m.On("Update", mock.Anything, user.ID, tasks[i].ID, mock.MatchedBy(func(p model.Patch) bool {
			return p.Title != nil && *p.Title == title
		})).Return(model.Task{ID: tasks[i].ID, UserID: user.ID, Title: title}, nil)
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := e.Replace(ctx, tasks[i], model.Edit{Title: fmt.Sprintf("edit-%d", i)})
			if err != nil {
				errs <- err
				return
			}
			if got.ID != tasks[i].ID {
				errs <- fmt.Errorf("edit %d written to %s", i, got.ID)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	m.AssertNumberOfCalls(t, "Update", n)
	_, staged := e.Staged()
	assert.False(t, staged)
}

// Package dashboard ties one user's task snapshot to everything that keeps
// it fresh: the refresh loop, the realtime subscription and the reminder
// timer. All of them live and die with the Dashboard.
package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskboard/internal/gateway"
	"github.com/BuzzLyutic/taskboard/internal/model"
	"github.com/BuzzLyutic/taskboard/internal/notify"
	"github.com/BuzzLyutic/taskboard/internal/realtime"
	"github.com/BuzzLyutic/taskboard/internal/reminder"
	"github.com/BuzzLyutic/taskboard/internal/repo"
	"github.com/BuzzLyutic/taskboard/internal/store"
	"github.com/BuzzLyutic/taskboard/internal/view"
	"github.com/BuzzLyutic/taskboard/internal/worker"
)

var ErrClosed = errors.New("dashboard closed")

const msgFetchFailed = "Failed to fetch tasks"

const DefaultNoticeLimit = 20

type Config struct {
	Reminder    reminder.Config
	NoticeLimit int
}

// Deps are shared by every user's dashboard.
type Deps struct {
	Repo       repo.TaskRepository
	Feed       realtime.Feed
	Publisher  realtime.Publisher
	Identity   gateway.Identity
	Sink       notify.Sink
	Permission notify.Permission
}

type Notice struct {
	gateway.Notice
	At time.Time `json:"at"`
}

// Item is a task as the list shows it.
type Item struct {
	model.Task
	DueClass view.DueClass `json:"due_class"`
	DueLabel string        `json:"due_label,omitempty"`
}

type Dashboard struct {
	user   model.User
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	repo      repo.TaskRepository
	store     *store.Store
	loop      *worker.Loop
	reminders *reminder.Scheduler
	gateway   *gateway.Gateway
	editor    *gateway.Editor

	cancel     context.CancelFunc
	cancelFeed func()
	closeOnce  sync.Once

	mu      sync.Mutex
	notices []Notice
}

// Open subscribes to the user's changes, loads their tasks and starts the loop
// and the reminder timer. A failed initial load is reported as a notice, not
// an error.
func Open(ctx context.Context, user model.User, deps Deps, cfg Config, logger *zap.Logger) (*Dashboard, error) {
	if cfg.NoticeLimit <= 0 {
		cfg.NoticeLimit = DefaultNoticeLimit
	}
	logger = logger.With(zap.String("user_id", user.ID.String()))

	ctx, cancel := context.WithCancel(ctx)
	d := &Dashboard{
		user:   user,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		cancel: cancel,
		repo:   deps.Repo,
	}

	d.store = store.New(func(ctx context.Context) ([]model.Task, error) {
		return deps.Repo.List(ctx, user.ID)
	}, logger)
	d.loop = worker.NewLoop("dashboard:"+user.ID.String(), logger, 0)

	identity := func(ctx context.Context) (model.User, bool) {
		u, ok := deps.Identity(ctx)
		return u, ok && u.ID == user.ID
	}
	d.gateway = gateway.New(deps.Repo, deps.Publisher, identity, d, logger)
	d.editor = gateway.NewEditor(d.gateway)

	// Changes landing during the initial load queue a refresh on the loop.
	cancelFeed, err := deps.Feed.Subscribe(user.ID, d.onChange)
	if err != nil {
		cancel()
		return nil, err
	}
	d.cancelFeed = cancelFeed

	d.refresh(ctx)
	d.loop.Start(ctx)

	notifier := notify.New(deps.Sink, deps.Permission, logger)
	d.reminders = reminder.New(d.store.Tasks, notifier, cfg.Reminder, logger, reminder.WithSubmitter(d.loop.Submit))
	if err := d.reminders.Start(ctx); err != nil {
		cancelFeed()
		d.loop.Stop()
		cancel()
		return nil, err
	}

	logger.Info("dashboard opened", zap.Int("tasks", len(d.store.Tasks())), zap.Bool("loaded", d.store.Loaded()))
	return d, nil
}

// Close releases the timer, the subscription and the loop together. Safe to
// call more than once.
func (d *Dashboard) Close() {
	d.closeOnce.Do(func() {
		d.reminders.Stop()
		d.cancelFeed()
		d.loop.Stop()
		d.cancel()
		d.logger.Info("dashboard closed")
	})
}

func (d *Dashboard) User() model.User { return d.user }

func (d *Dashboard) Gateway() *gateway.Gateway { return d.gateway }

func (d *Dashboard) Editor() *gateway.Editor { return d.editor }

// Loaded reports whether the initial load has completed.
func (d *Dashboard) Loaded() bool { return d.store.Loaded() }

func (d *Dashboard) Tasks() []model.Task { return d.store.Tasks() }

// Task looks id up in the snapshot and falls back to the backend when the
// snapshot has not caught up with a recent write.
func (d *Dashboard) Task(ctx context.Context, id uuid.UUID) (model.Task, error) {
	for _, t := range d.store.Tasks() {
		if t.ID == id {
			return t, nil
		}
	}
	return d.repo.Get(ctx, d.user.ID, id)
}

// View filters the current snapshot and annotates each task with its due
// classification.
func (d *Dashboard) View(c view.Criteria) []Item {
	now := d.now()
	tasks := view.Filter(d.store.Tasks(), c)

	items := make([]Item, 0, len(tasks))
	for _, t := range tasks {
		item := Item{Task: t}
		if t.DueDate != nil {
			item.DueClass = view.ClassifyDue(*t.DueDate, t.Completed, now)
			item.DueLabel = view.DueLabel(*t.DueDate, now)
		}
		items = append(items, item)
	}
	return items
}

func (d *Dashboard) Stats() view.Stats {
	return view.ComputeStats(d.store.Tasks(), d.now())
}

// Refresh runs a full reload on the loop and waits for it.
func (d *Dashboard) Refresh(ctx context.Context) error {
	errc := make(chan error, 1)
	if !d.loop.Submit(func(ctx context.Context) { errc <- d.refresh(ctx) }) {
		return ErrClosed
	}
	select {
	case err := <-errc:
		return err
	case <-d.loop.Done():
		select {
		case err := <-errc:
			return err
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Report implements gateway.Reporter.
func (d *Dashboard) Report(n gateway.Notice) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.notices = append(d.notices, Notice{Notice: n, At: d.now()})
	if over := len(d.notices) - d.cfg.NoticeLimit; over > 0 {
		d.notices = append([]Notice(nil), d.notices[over:]...)
	}
}

// TakeNotices returns pending notices, oldest first, and forgets them.
func (d *Dashboard) TakeNotices() []Notice {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := d.notices
	d.notices = nil
	if out == nil {
		out = []Notice{}
	}
	return out
}

func (d *Dashboard) onChange(c realtime.Change) {
	d.logger.Debug("task change received", zap.String("op", c.Op), zap.String("task_id", c.TaskID.String()))
	if !d.loop.Submit(func(ctx context.Context) { d.refresh(ctx) }) {
		d.logger.Debug("refresh not queued")
	}
}

func (d *Dashboard) refresh(ctx context.Context) error {
	if err := d.store.Refresh(ctx); err != nil {
		d.Report(gateway.Notice{Title: "Error", Description: msgFetchFailed, Destructive: true})
		return err
	}
	return nil
}

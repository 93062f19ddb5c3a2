package reminder

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskboard/internal/model"
	"github.com/BuzzLyutic/taskboard/internal/notify"
	"github.com/BuzzLyutic/taskboard/internal/worker"
)

const (
	DefaultInterval = time.Minute
	DefaultHorizon  = 15 * time.Minute

	NotificationTitle = "Task Reminder"
	NotificationIcon  = "/favicon.ico"
)

type Notifier interface {
	Permission() notify.Permission
	RequestPermission(ctx context.Context) (notify.Permission, error)
	Show(ctx context.Context, n notify.Notification)
}

// Source returns the current task snapshot.
type Source func() []model.Task

type Config struct {
	Interval time.Duration
	Horizon  time.Duration
	// Dedupe suppresses repeat reminders for the same task and due date.
	// Off by default: a task inside the window is reminded on every tick.
	Dedupe bool
}

type Option func(*Scheduler)

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// WithSubmitter routes ticks through submit instead of running them on the
// timer goroutine.
func WithSubmitter(submit func(worker.Job) bool) Option {
	return func(s *Scheduler) {
		s.submit = submit
	}
}

type Scheduler struct {
	source   Source
	notifier Notifier
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
	submit   func(worker.Job) bool

	notified map[dedupeKey]struct{} // tick-only state

	mu   sync.Mutex
	cron *gocron.Scheduler
}

type dedupeKey struct {
	id  uuid.UUID
	due int64
}

func New(source Source, notifier Notifier, cfg Config, logger *zap.Logger, opts ...Option) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Horizon <= 0 {
		cfg.Horizon = DefaultHorizon
	}

	s := &Scheduler{
		source:   source,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		notified: make(map[dedupeKey]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start asks for notification permission if it was never asked, then
// begins ticking every Interval. The first tick happens one Interval in.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return nil
	}

	if s.notifier.Permission() == notify.PermissionDefault {
		p, err := s.notifier.RequestPermission(ctx)
		if err != nil {
			s.logger.Debug("notification permission request failed", zap.Error(err))
		} else {
			s.logger.Debug("notification permission", zap.Stringer("permission", p))
		}
	}

	cron := gocron.NewScheduler(time.UTC)
	cron.SingletonModeAll()
	if _, err := cron.Every(s.cfg.Interval).WaitForSchedule().Do(func() { s.fire(ctx) }); err != nil {
		return fmt.Errorf("schedule reminders: %w", err)
	}
	cron.StartAsync()
	s.cron = cron

	s.logger.Debug("reminder scheduler started",
		zap.Duration("interval", s.cfg.Interval),
		zap.Duration("horizon", s.cfg.Horizon),
	)
	return nil
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return
	}
	s.cron.Stop()
	s.cron = nil
	s.logger.Debug("reminder scheduler stopped")
}

func (s *Scheduler) fire(ctx context.Context) {
	if s.submit == nil {
		s.Tick(ctx)
		return
	}
	if !s.submit(func(ctx context.Context) { s.Tick(ctx) }) {
		s.logger.Debug("reminder tick skipped")
	}
}

// Tick scans the current snapshot once and shows a reminder for every task
// in the window. It returns how many reminders were shown.
func (s *Scheduler) Tick(ctx context.Context) int {
	now := s.now()
	due := Due(s.source(), now, s.cfg.Horizon)

	if s.notifier.Permission() != notify.PermissionGranted {
		return 0
	}

	shown := 0
	seen := make(map[dedupeKey]struct{}, len(due))
	for _, t := range due {
		key := dedupeKey{id: t.ID, due: t.DueDate.UnixNano()}
		seen[key] = struct{}{}
		if s.cfg.Dedupe {
			if _, ok := s.notified[key]; ok {
				continue
			}
		}

		s.notifier.Show(ctx, Notification(t))
		shown++
	}
	s.notified = seen

	if shown > 0 {
		s.logger.Debug("reminders shown", zap.Int("count", shown), zap.Time("at", now))
	}
	return shown
}

// Due returns the incomplete tasks with now < due_date <= now+horizon.
func Due(tasks []model.Task, now time.Time, horizon time.Duration) []model.Task {
	limit := now.Add(horizon)

	var out []model.Task
	for _, t := range tasks {
		if t.Completed || t.DueDate == nil {
			continue
		}
		if t.DueDate.After(now) && !t.DueDate.After(limit) {
			out = append(out, t)
		}
	}
	return out
}

func Notification(t model.Task) notify.Notification {
	return notify.Notification{
		UserID: t.UserID,
		TaskID: t.ID,
		Title:  NotificationTitle,
		Body:   fmt.Sprintf(`"%s" is due soon! Priority: %s`, t.Title, strings.ToUpper(t.Priority.String())),
		Icon:   NotificationIcon,
	}
}

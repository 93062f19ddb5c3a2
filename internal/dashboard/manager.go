package dashboard

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskboard/internal/model"
)

// Manager keeps at most one open Dashboard per user. Dashboards for
// different users open concurrently.
type Manager struct {
	ctx    context.Context
	deps   Deps
	cfg    Config
	logger *zap.Logger

	mu     sync.Mutex
	boards map[uuid.UUID]*entry
	closed bool
}

// entry is a dashboard that may still be opening; ready is closed once d and
// err are set.
type entry struct {
	ready chan struct{}
	d     *Dashboard
	err   error
}

func (e *entry) wait() (*Dashboard, error) {
	<-e.ready
	return e.d, e.err
}

// NewManager opens dashboards under ctx. Cancelling it stops their loops.
func NewManager(ctx context.Context, deps Deps, cfg Config, logger *zap.Logger) *Manager {
	return &Manager{
		ctx:    ctx,
		deps:   deps,
		cfg:    cfg,
		logger: logger,
		boards: make(map[uuid.UUID]*entry),
	}
}

// Get returns the user's dashboard, opening it on first use. Concurrent
// first calls for one user share a single Open.
func (m *Manager) Get(user model.User) (*Dashboard, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	if e, ok := m.boards[user.ID]; ok {
		m.mu.Unlock()
		return e.wait()
	}
	e := &entry{ready: make(chan struct{})}
	m.boards[user.ID] = e
	m.mu.Unlock()

	e.d, e.err = Open(m.ctx, user, m.deps, m.cfg, m.logger)
	close(e.ready)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.boards[user.ID] != e {
		// Closed while opening; whoever removed the entry closes the dashboard.
		if e.err != nil {
			return nil, e.err
		}
		return nil, ErrClosed
	}
	if e.err != nil {
		delete(m.boards, user.ID)
		return nil, e.err
	}
	return e.d, nil
}

func (m *Manager) Close(userID uuid.UUID) {
	m.mu.Lock()
	e, ok := m.boards[userID]
	delete(m.boards, userID)
	m.mu.Unlock()

	if ok {
		if d, err := e.wait(); err == nil {
			d.Close()
		}
	}
}

func (m *Manager) CloseAll() {
	m.mu.Lock()
	boards := m.boards
	m.boards = make(map[uuid.UUID]*entry)
	m.closed = true
	m.mu.Unlock()

	for _, e := range boards {
		if d, err := e.wait(); err == nil {
			d.Close()
		}
	}
	m.logger.Info("all dashboards closed", zap.Int("count", len(boards)))
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.boards)
}

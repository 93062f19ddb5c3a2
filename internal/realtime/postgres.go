package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Channel matches the pg_notify channel used by the tasks trigger.
const Channel = "task_changes"

// PGListener turns PostgreSQL NOTIFY events into Changes. A single pooled
// connection LISTENs for the whole process and fans out through a Hub.
type PGListener struct {
	pool    *pgxpool.Pool
	hub     *Hub
	logger  *zap.Logger
	backoff time.Duration

	ready     chan struct{}
	readyOnce sync.Once
}

func NewPGListener(pool *pgxpool.Pool, logger *zap.Logger) *PGListener {
	return &PGListener{
		pool:    pool,
		hub:     NewHub(),
		logger:  logger,
		backoff: time.Second,
		ready:   make(chan struct{}),
	}
}

// Ready is closed once the first LISTEN has been issued.
func (l *PGListener) Ready() <-chan struct{} {
	return l.ready
}

func (l *PGListener) Subscribe(userID uuid.UUID, h Handler) (func(), error) {
	return l.hub.Subscribe(userID, h)
}

// Run listens until ctx is done, reconnecting after connection loss.
func (l *PGListener) Run(ctx context.Context) {
	l.logger.Info("realtime listener started", zap.String("channel", Channel))

	first := true
	for {
		if !first {
			// events may have been lost while disconnected
			l.hub.Broadcast(Change{Op: OpResync})
		}
		first = false

		err := l.listen(ctx)
		if ctx.Err() != nil {
			l.logger.Info("realtime listener stopped")
			return
		}
		l.logger.Warn("realtime listener disconnected", zap.Error(err), zap.Duration("retry_in", l.backoff))

		select {
		case <-ctx.Done():
			return
		case <-time.After(l.backoff):
		}
	}
}

func (l *PGListener) listen(ctx context.Context) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	l.readyOnce.Do(func() { close(l.ready) })

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		c, err := decodeChange([]byte(n.Payload))
		if err != nil {
			l.logger.Warn("malformed change notification", zap.String("payload", n.Payload), zap.Error(err))
			continue
		}
		l.hub.Publish(ctx, c)
	}
}

func decodeChange(data []byte) (Change, error) {
	var c Change
	if err := json.Unmarshal(data, &c); err != nil {
		return c, err
	}
	if c.UserID == uuid.Nil {
		return c, fmt.Errorf("change without user_id")
	}
	return c, nil
}

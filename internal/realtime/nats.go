package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const SubjectPrefix = "tasks.changes"

// NATS carries change events over core NATS subjects, one per user.
type NATS struct {
	conn   *nats.Conn
	logger *zap.Logger
}

func NewNATS(conn *nats.Conn, logger *zap.Logger) *NATS {
	return &NATS{conn: conn, logger: logger}
}

func Subject(userID uuid.UUID) string {
	return SubjectPrefix + "." + userID.String()
}

func (n *NATS) Publish(_ context.Context, c Change) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}
	if err := n.conn.Publish(Subject(c.UserID), data); err != nil {
		return fmt.Errorf("publish change: %w", err)
	}
	return nil
}

func (n *NATS) Subscribe(userID uuid.UUID, h Handler) (func(), error) {
	sub, err := n.conn.Subscribe(Subject(userID), func(msg *nats.Msg) {
		n.handleMessage(msg, h)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", Subject(userID), err)
	}

	return func() {
		if err := sub.Unsubscribe(); err != nil && err != nats.ErrConnectionClosed && err != nats.ErrBadSubscription {
			n.logger.Warn("unsubscribe failed", zap.String("subject", sub.Subject), zap.Error(err))
		}
	}, nil
}

func (n *NATS) handleMessage(msg *nats.Msg, h Handler) {
	c, err := decodeChange(msg.Data)
	if err != nil {
		n.logger.Warn("malformed change message", zap.String("subject", msg.Subject), zap.Error(err))
		return
	}
	h(c)
}

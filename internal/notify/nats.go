package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const SubjectPrefix = "notifications"

// NATSSink publishes notifications to notifications.<user id> for whatever
// client is displaying them.
type NATSSink struct {
	conn *nats.Conn
}

func NewNATSSink(conn *nats.Conn) *NATSSink {
	return &NATSSink{conn: conn}
}

func Subject(userID uuid.UUID) string {
	return SubjectPrefix + "." + userID.String()
}

func (s *NATSSink) Available() bool {
	return s.conn != nil && s.conn.IsConnected()
}

func (s *NATSSink) Show(_ context.Context, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	return s.conn.Publish(Subject(n.UserID), data)
}

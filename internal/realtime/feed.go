// Package realtime delivers "the user's tasks changed" events. Events carry
// no task data: receivers are expected to refetch the full collection.
package realtime

import (
	"context"

	"github.com/google/uuid"
)

const (
	OpInsert = "INSERT"
	OpUpdate = "UPDATE"
	OpDelete = "DELETE"
	// OpResync is emitted after a transport reconnect, when events may have been missed.
	OpResync = "RESYNC"
)

type Change struct {
	Op     string    `json:"op"`
	TaskID uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`
}

type Handler func(Change)

type Feed interface {
	// Subscribe registers h for changes to userID's tasks. The returned
	// cancel func is safe to call more than once.
	Subscribe(userID uuid.UUID, h Handler) (cancel func(), err error)
}

type Publisher interface {
	Publish(ctx context.Context, c Change) error
}

// Nop is the publisher for backends that emit change events on their own.
type Nop struct{}

func (Nop) Publish(context.Context, Change) error { return nil }

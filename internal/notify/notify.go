// Package notify shows reminders to a user. A Notifier tracks the user's
// permission and drops everything silently unless permission was granted.
package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Permission uint8

const (
	PermissionDefault Permission = iota
	PermissionGranted
	PermissionDenied
)

func (p Permission) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	}
	return "default"
}

func ParsePermission(s string) (Permission, error) {
	switch s {
	case "", "default":
		return PermissionDefault, nil
	case "granted":
		return PermissionGranted, nil
	case "denied":
		return PermissionDenied, nil
	}
	return 0, fmt.Errorf("unknown notification permission %q", s)
}

type Notification struct {
	UserID uuid.UUID `json:"user_id"`
	TaskID uuid.UUID `json:"task_id"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	Icon   string    `json:"icon"`
}

// Sink is the display transport.
type Sink interface {
	Show(ctx context.Context, n Notification) error
	Available() bool
}

type Notifier struct {
	sink   Sink
	logger *zap.Logger

	mu         sync.Mutex
	permission Permission
}

func New(sink Sink, initial Permission, logger *zap.Logger) *Notifier {
	return &Notifier{
		sink:       sink,
		logger:     logger,
		permission: initial,
	}
}

func (n *Notifier) Permission() Permission {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.permission
}

// RequestPermission resolves a default permission: granted when the sink
// can deliver, denied otherwise. A decided permission is returned unchanged.
func (n *Notifier) RequestPermission(ctx context.Context) (Permission, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.permission != PermissionDefault {
		return n.permission, nil
	}
	if ctx.Err() != nil {
		return n.permission, ctx.Err()
	}

	if n.sink != nil && n.sink.Available() {
		n.permission = PermissionGranted
	} else {
		n.permission = PermissionDenied
	}
	n.logger.Debug("notification permission resolved", zap.Stringer("permission", n.permission))
	return n.permission, nil
}

// Show is best-effort: without permission or on sink failure it does nothing.
func (n *Notifier) Show(ctx context.Context, note Notification) {
	if n.Permission() != PermissionGranted || n.sink == nil {
		return
	}
	if err := n.sink.Show(ctx, note); err != nil {
		n.logger.Debug("notification dropped", zap.String("task_id", note.TaskID.String()), zap.Error(err))
	}
}

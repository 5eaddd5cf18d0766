// Package channel implements the delivery surfaces a notification can reach
// a user through. Senders are opaque to the dispatcher: each takes a target
// and a notification and reports success or failure. Failures are recorded
// by the caller, never propagated to API clients.
package channel

import (
	"context"

	"github.com/sayaka/teamboard/internal/domain"
)

// Target identifies the recipient on a concrete delivery surface.
type Target struct {
	UserID      int64
	Email       string
	DisplayName string
}

// Sender delivers one notification over one surface.
type Sender interface {
	// Name identifies the channel in logs.
	Name() string
	// Send attempts delivery. The context carries the per-send timeout.
	Send(ctx context.Context, target Target, n *domain.Notification) error
}

// AppSender is the in-app surface. The persisted notification row is the
// delivery itself, so sending always succeeds without I/O.
type AppSender struct{}

// NewAppSender creates the in-app sender.
func NewAppSender() *AppSender {
	return &AppSender{}
}

// Name implements Sender.
func (*AppSender) Name() string { return "app" }

// Send implements Sender.
func (*AppSender) Send(context.Context, Target, *domain.Notification) error {
	return nil
}

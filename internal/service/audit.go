package service

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sayaka/teamboard/internal/domain"
)

// AuditStore defines the audit data access interface consumed by AuditRecorder.
type AuditStore interface {
	Insert(ctx context.Context, e domain.AuditEntry) error
}

// AuditRecorder writes audit entries as a fire-and-forget side effect. A
// failed write is logged and dropped; it never reaches the caller.
type AuditRecorder struct {
	store   AuditStore
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewAuditRecorder creates a new AuditRecorder.
func NewAuditRecorder(store AuditStore) *AuditRecorder {
	return &AuditRecorder{store: store, timeout: 5 * time.Second}
}

// Record queues one audit entry for writing. Safe to call on a nil recorder.
// ActorID 0 means the system itself acted.
func (a *AuditRecorder) Record(orgID, actorID int64, action, entityType string, entityID int64, detail domain.JSONMap) {
	if a == nil {
		return
	}

	entry := domain.AuditEntry{
		ID:         uuid.NewString(),
		OrgID:      orgID,
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   strconv.FormatInt(entityID, 10),
		Detail:     detail,
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		// Detached from the request context: the request must not wait for
		// the audit write, and a finished request must not cancel it.
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()

		if err := a.store.Insert(ctx, entry); err != nil {
			slog.Warn("audit write dropped",
				"action", action,
				"org_id", orgID,
				"actor_id", actorID,
				"error", err,
			)
		}
	}()
}

// Wait blocks until all queued audit writes have finished. Called on
// shutdown so in-flight entries are not lost with the process.
func (a *AuditRecorder) Wait() {
	if a == nil {
		return
	}
	a.wg.Wait()
}

package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sayaka/teamboard/internal/channel"
	"github.com/sayaka/teamboard/internal/domain"
)

// NotificationStore defines the notification data access interface consumed
// by NotificationService.
type NotificationStore interface {
	Create(ctx context.Context, n domain.Notification) (*domain.Notification, error)
	FindByID(ctx context.Context, id int64) (*domain.Notification, error)
	List(ctx context.Context, recipientID int64, filter domain.NotificationFilter, limit, offset int) ([]domain.Notification, int, error)
	CountUnread(ctx context.Context, recipientID int64) (int, error)
	MarkRead(ctx context.Context, id int64, readAt time.Time) error
	MarkManyRead(ctx context.Context, ids []int64, recipientID int64, readAt time.Time) error
	MarkAllRead(ctx context.Context, recipientID int64, readAt time.Time) (int64, error)
	RecordDelivery(ctx context.Context, id int64, ch domain.Channels, deliveredAt time.Time) error
	ListDue(ctx context.Context, now, retryCutoff time.Time, limit int) ([]domain.Notification, error)
	Delete(ctx context.Context, id, recipientID int64) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time, readOnly bool) (int64, error)
}

// RecipientStore resolves recipient addresses for the email and push
// channels.
type RecipientStore interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
}

// PreferenceSource loads (and lazily creates) a recipient's preferences.
type PreferenceSource interface {
	Get(ctx context.Context, userID, orgID int64) (*domain.Preference, error)
}

// DispatcherConfig bounds the dispatcher's delivery behavior.
type DispatcherConfig struct {
	// SendTimeout caps each individual channel-sender call.
	SendTimeout time.Duration
	// BulkConcurrency caps how many recipients are processed at once in
	// CreateBulk, so fan-out does not overwhelm the email/push transports.
	BulkConcurrency int
	// CleanupReadOnly restricts retention cleanup to already-read rows.
	CleanupReadOnly bool
	// RetryAge is how old an unscheduled pending row must be before the
	// sweep retries it; it keeps the sweep off rows whose immediate
	// delivery is still in flight.
	RetryAge time.Duration
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.SendTimeout <= 0 {
		c.SendTimeout = 10 * time.Second
	}
	if c.BulkConcurrency <= 0 {
		c.BulkConcurrency = 8
	}
	if c.RetryAge <= 0 {
		c.RetryAge = 5 * time.Minute
	}
	return c
}

// NotificationService is the dispatcher and read-state tracker: it creates
// notification records, resolves preferences into channel sets, drives the
// channel senders, and mutates read/unread state.
type NotificationService struct {
	store NotificationStore
	prefs PreferenceSource
	users RecipientStore

	app   channel.Sender
	email channel.Sender
	push  channel.Sender

	audit *AuditRecorder
	cfg   DispatcherConfig
	now   func() time.Time
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(
	store NotificationStore,
	prefs PreferenceSource,
	users RecipientStore,
	app, email, push channel.Sender,
	audit *AuditRecorder,
	cfg DispatcherConfig,
) *NotificationService {
	return &NotificationService{
		store: store,
		prefs: prefs,
		users: users,
		app:   app,
		email: email,
		push:  push,
		audit: audit,
		cfg:   cfg.withDefaults(),
		now:   time.Now,
	}
}

// CreateInput is the caller-supplied content of a notification.
type CreateInput struct {
	Type     domain.NotificationType     `json:"type"`
	Category domain.NotificationCategory `json:"category"`
	Priority domain.NotificationPriority `json:"priority"`
	Title    string                      `json:"title"`
	Message  string                      `json:"message"`
	Payload  domain.JSONMap              `json:"payload"`

	EntityType   *string    `json:"entity_type,omitempty"`
	EntityID     *int64     `json:"entity_id,omitempty"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
}

func (in *CreateInput) validate() error {
	if in.Title == "" {
		return &domain.ValidationError{Field: "title", Message: "is required"}
	}
	if !in.Category.Valid() {
		return &domain.ValidationError{Field: "category", Message: "unknown category"}
	}
	if in.Priority == "" {
		in.Priority = domain.PriorityMedium
	}
	if !in.Priority.Valid() {
		return &domain.ValidationError{Field: "priority", Message: "unknown priority"}
	}
	return nil
}

// Create persists one notification and, when sendNow is set and no future
// schedule applies, runs the delivery step immediately. A channel-sender
// failure never fails the caller; only invalid input or a store failure can.
func (s *NotificationService) Create(ctx context.Context, recipientID, orgID int64, in CreateInput, sendNow bool) (*domain.Notification, error) {
	if recipientID <= 0 {
		return nil, &domain.ValidationError{Field: "recipient_id", Message: "is required"}
	}
	if orgID <= 0 {
		return nil, &domain.ValidationError{Field: "org_id", Message: "is required"}
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	created, err := s.store.Create(ctx, domain.Notification{
		RecipientID:  recipientID,
		OrgID:        orgID,
		Type:         in.Type,
		Category:     in.Category,
		Priority:     in.Priority,
		Title:        in.Title,
		Message:      in.Message,
		Payload:      in.Payload,
		EntityType:   in.EntityType,
		EntityID:     in.EntityID,
		ScheduledFor: in.ScheduledFor,
	})
	if err != nil {
		return nil, err
	}

	if sendNow && (in.ScheduledFor == nil || !in.ScheduledFor.After(s.now())) {
		s.deliver(ctx, created)
	}
	return created, nil
}

// CreateBulk creates one notification per recipient, each processed
// independently under the configured concurrency bound. Partial success is
// the normal completion mode: the returned ids are the notifications that
// were created; failures for other recipients are logged and skipped.
func (s *NotificationService) CreateBulk(ctx context.Context, recipientIDs []int64, orgID int64, in CreateInput, sendNow bool) ([]int64, error) {
	if len(recipientIDs) == 0 {
		return nil, &domain.ValidationError{Field: "recipient_ids", Message: "must not be empty"}
	}
	if orgID <= 0 {
		return nil, &domain.ValidationError{Field: "org_id", Message: "is required"}
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(recipientIDs))
	recipients := make([]int64, 0, len(recipientIDs))
	for _, id := range recipientIDs {
		if id <= 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		recipients = append(recipients, id)
	}
	if len(recipients) == 0 {
		return nil, &domain.ValidationError{Field: "recipient_ids", Message: "must contain at least one valid id"}
	}

	var (
		mu  sync.Mutex
		ids []int64
	)

	g := new(errgroup.Group)
	g.SetLimit(s.cfg.BulkConcurrency)
	for _, recipientID := range recipients {
		recipientID := recipientID
		g.Go(func() error {
			created, err := s.Create(ctx, recipientID, orgID, in, sendNow)
			if err != nil {
				slog.Error("bulk notification skipped",
					"recipient_id", recipientID,
					"org_id", orgID,
					"type", in.Type,
					"error", err,
				)
				return nil
			}
			mu.Lock()
			ids = append(ids, created.ID)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	s.audit.Record(orgID, 0, "notifications.bulk_created", "notification", 0, domain.JSONMap{
		"type":      string(in.Type),
		"requested": len(recipients),
		"created":   len(ids),
	})
	return ids, nil
}

// deliver resolves the recipient's preferences into a channel set, drives
// each enabled sender under the send timeout, and records the outcome.
// Every failure here is absorbed: a sender error becomes a false delivered
// flag, and a store error leaves the row pending for the sweep.
func (s *NotificationService) deliver(ctx context.Context, n *domain.Notification) {
	pref, err := s.prefs.Get(ctx, n.RecipientID, n.OrgID)
	if err != nil {
		slog.Error("delivery skipped: load preferences",
			"notification_id", n.ID, "recipient_id", n.RecipientID, "error", err)
		return
	}

	enabled := ResolveChannels(pref, n.Category, n.Priority, s.now())

	target := channel.Target{UserID: n.RecipientID}
	if enabled.Email || enabled.Push {
		user, err := s.users.FindByID(ctx, n.RecipientID)
		if err != nil {
			slog.Warn("delivery without recipient profile",
				"notification_id", n.ID, "recipient_id", n.RecipientID, "error", err)
		} else {
			target.Email = user.Email
			target.DisplayName = user.DisplayName
		}
	}

	var outcome domain.Channels
	if enabled.App {
		outcome.App = s.attempt(ctx, s.app, target, n)
	}
	if enabled.Email {
		outcome.Email = s.attempt(ctx, s.email, target, n)
	}
	if enabled.Push {
		outcome.Push = s.attempt(ctx, s.push, target, n)
	}

	// A silent (all channels off) notification is stamped too, so the
	// sweep does not pick it up again.
	deliveredAt := s.now()
	if err := s.store.RecordDelivery(ctx, n.ID, outcome, deliveredAt); err != nil {
		slog.Error("record delivery outcome",
			"notification_id", n.ID, "recipient_id", n.RecipientID, "error", err)
		return
	}

	n.DeliveredApp = outcome.App
	n.DeliveredEmail = outcome.Email
	n.DeliveredPush = outcome.Push
	n.DeliveredAt = &deliveredAt
}

// attempt runs one sender under the send timeout. A failed or timed-out
// send is logged and reported as false without affecting sibling channels.
func (s *NotificationService) attempt(ctx context.Context, snd channel.Sender, target channel.Target, n *domain.Notification) bool {
	sctx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	defer cancel()

	if err := snd.Send(sctx, target, n); err != nil {
		slog.Warn("channel delivery failed",
			"channel", snd.Name(),
			"notification_id", n.ID,
			"recipient_id", n.RecipientID,
			"error", err,
		)
		return false
	}
	return true
}

// ListResult is one page of a recipient's notifications.
type ListResult struct {
	Items       []domain.Notification `json:"items"`
	UnreadCount int                   `json:"unread_count"`
	Total       int                   `json:"total"`
	TotalPages  int                   `json:"total_pages"`
	Page        int                   `json:"page"`
}

// List returns one page of the caller's notifications together with the
// derived unread count.
func (s *NotificationService) List(ctx context.Context, recipientID int64, filter domain.NotificationFilter, page, limit int) (*ListResult, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	items, total, err := s.store.List(ctx, recipientID, filter, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	unread, err := s.store.CountUnread(ctx, recipientID)
	if err != nil {
		return nil, err
	}

	totalPages := (total + limit - 1) / limit
	if items == nil {
		items = []domain.Notification{}
	}
	return &ListResult{
		Items:       items,
		UnreadCount: unread,
		Total:       total,
		TotalPages:  totalPages,
		Page:        page,
	}, nil
}

// UnreadCount counts the caller's unread notifications, always derived from
// rows rather than a cached counter.
func (s *NotificationService) UnreadCount(ctx context.Context, recipientID int64) (int, error) {
	return s.store.CountUnread(ctx, recipientID)
}

// MarkRead marks one notification read. Unknown ids yield ErrNotFound,
// foreign ids ErrForbidden, and re-marking an already-read row is a no-op.
func (s *NotificationService) MarkRead(ctx context.Context, id, callerID int64) error {
	n, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if n.RecipientID != callerID {
		return domain.ErrForbidden
	}
	if n.IsRead {
		return nil
	}
	return s.store.MarkRead(ctx, id, s.now())
}

// MarkManyRead marks the given ids read. Ids the caller does not own, or
// that are unknown or already read, are silently skipped.
func (s *NotificationService) MarkManyRead(ctx context.Context, ids []int64, callerID int64) error {
	return s.store.MarkManyRead(ctx, ids, callerID, s.now())
}

// MarkAllRead marks every unread notification of the caller read and
// returns the count affected.
func (s *NotificationService) MarkAllRead(ctx context.Context, callerID int64) (int64, error) {
	return s.store.MarkAllRead(ctx, callerID, s.now())
}

// Delete removes one of the caller's notifications. Deleting a scheduled
// notification before the sweep picks it up cancels its delivery.
func (s *NotificationService) Delete(ctx context.Context, id, callerID int64) error {
	return s.store.Delete(ctx, id, callerID)
}

// Cleanup deletes notifications older than daysToKeep days and returns the
// count deleted. Whether unread rows survive follows the configured
// retention policy.
func (s *NotificationService) Cleanup(ctx context.Context, daysToKeep int) (int64, error) {
	if daysToKeep <= 0 {
		return 0, &domain.ValidationError{Field: "days_to_keep", Message: "must be positive"}
	}

	cutoff := s.now().AddDate(0, 0, -daysToKeep)
	deleted, err := s.store.DeleteOlderThan(ctx, cutoff, s.cfg.CleanupReadOnly)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		slog.Info("notification retention cleanup",
			"deleted", deleted, "cutoff", cutoff, "read_only", s.cfg.CleanupReadOnly)
	}
	return deleted, nil
}

// DeliverDue runs the delivery step for pending notifications whose time
// has come: scheduled rows that are due, and unscheduled rows older than
// the retry age (a crash between persist and deliver leaves those behind).
// Returns how many rows got their delivery stamp; a row whose outcome could
// not be recorded stays pending and does not count, so callers draining in
// batches can tell a full batch from one that made no progress.
func (s *NotificationService) DeliverDue(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 100
	}

	now := s.now()
	due, err := s.store.ListDue(ctx, now, now.Add(-s.cfg.RetryAge), batchSize)
	if err != nil {
		return 0, err
	}

	stamped := 0
	for i := range due {
		s.deliver(ctx, &due[i])
		if due[i].DeliveredAt != nil {
			stamped++
		}
	}
	return stamped, nil
}

package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sayaka/teamboard/internal/channel"
	"github.com/sayaka/teamboard/internal/domain"
)

// fakeNotificationStore keeps notification rows in memory, in insert order.
// CreateBulk fans out on goroutines, so every method takes the mutex.
type fakeNotificationStore struct {
	mu        sync.Mutex
	rows      []domain.Notification
	nextID    int64
	createErr map[int64]error // per-recipient create failures
	recordErr error
}

func newFakeNotificationStore() *fakeNotificationStore {
	return &fakeNotificationStore{nextID: 1}
}

func (s *fakeNotificationStore) Create(_ context.Context, n domain.Notification) (*domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.createErr[n.RecipientID]; err != nil {
		return nil, err
	}
	n.ID = s.nextID
	s.nextID++
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	s.rows = append(s.rows, n)
	out := n
	return &out, nil
}

func (s *fakeNotificationStore) find(id int64) *domain.Notification {
	for i := range s.rows {
		if s.rows[i].ID == id {
			return &s.rows[i]
		}
	}
	return nil
}

func (s *fakeNotificationStore) FindByID(_ context.Context, id int64) (*domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.find(id)
	if n == nil {
		return nil, domain.ErrNotFound
	}
	out := *n
	return &out, nil
}

func (s *fakeNotificationStore) List(_ context.Context, recipientID int64, filter domain.NotificationFilter, limit, offset int) ([]domain.Notification, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []domain.Notification
	for _, n := range s.rows {
		if n.RecipientID != recipientID {
			continue
		}
		if filter.Category != "" && n.Category != filter.Category {
			continue
		}
		if filter.Type != "" && n.Type != filter.Type {
			continue
		}
		if filter.UnreadOnly && n.IsRead {
			continue
		}
		matched = append(matched, n)
	}
	total := len(matched)
	if offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (s *fakeNotificationStore) CountUnread(_ context.Context, recipientID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, n := range s.rows {
		if n.RecipientID == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *fakeNotificationStore) MarkRead(_ context.Context, id int64, readAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.find(id)
	if n == nil {
		return domain.ErrNotFound
	}
	if !n.IsRead {
		n.IsRead = true
		n.ReadAt = &readAt
	}
	return nil
}

func (s *fakeNotificationStore) MarkManyRead(_ context.Context, ids []int64, recipientID int64, readAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		n := s.find(id)
		if n == nil || n.RecipientID != recipientID || n.IsRead {
			continue
		}
		n.IsRead = true
		n.ReadAt = &readAt
	}
	return nil
}

func (s *fakeNotificationStore) MarkAllRead(_ context.Context, recipientID int64, readAt time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var affected int64
	for i := range s.rows {
		n := &s.rows[i]
		if n.RecipientID == recipientID && !n.IsRead {
			n.IsRead = true
			n.ReadAt = &readAt
			affected++
		}
	}
	return affected, nil
}

func (s *fakeNotificationStore) RecordDelivery(_ context.Context, id int64, ch domain.Channels, deliveredAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recordErr != nil {
		return s.recordErr
	}
	n := s.find(id)
	if n == nil {
		return domain.ErrNotFound
	}
	n.DeliveredApp = ch.App
	n.DeliveredEmail = ch.Email
	n.DeliveredPush = ch.Push
	n.DeliveredAt = &deliveredAt
	return nil
}

func (s *fakeNotificationStore) ListDue(_ context.Context, now, retryCutoff time.Time, limit int) ([]domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []domain.Notification
	for _, n := range s.rows {
		if n.DeliveredAt != nil {
			continue
		}
		scheduled := n.ScheduledFor != nil && !n.ScheduledFor.After(now)
		stalled := n.ScheduledFor == nil && !n.CreatedAt.After(retryCutoff)
		if scheduled || stalled {
			due = append(due, n)
		}
		if len(due) == limit {
			break
		}
	}
	return due, nil
}

func (s *fakeNotificationStore) Delete(_ context.Context, id, recipientID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.rows {
		if n.ID == id && n.RecipientID == recipientID {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *fakeNotificationStore) DeleteOlderThan(_ context.Context, cutoff time.Time, readOnly bool) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []domain.Notification
	var deleted int64
	for _, n := range s.rows {
		old := n.CreatedAt.Before(cutoff) && (!readOnly || n.IsRead)
		if old {
			deleted++
			continue
		}
		kept = append(kept, n)
	}
	s.rows = kept
	return deleted, nil
}

// stubPrefs returns a canned preference, or an error, for every user.
type stubPrefs struct {
	pref *domain.Preference
	err  error
	// errFor fails only one user, for partial-success tests.
	errFor int64
}

func (s *stubPrefs) Get(_ context.Context, userID, orgID int64) (*domain.Preference, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.errFor != 0 && s.errFor == userID {
		return nil, &domain.StoreError{Op: "preference.find", Err: errors.New("boom")}
	}
	if s.pref != nil {
		out := *s.pref
		out.UserID = userID
		out.OrgID = orgID
		return &out, nil
	}
	p := domain.DefaultPreference(userID, orgID)
	return &p, nil
}

type stubUsers struct{}

func (stubUsers) FindByID(_ context.Context, id int64) (*domain.User, error) {
	return &domain.User{ID: id, Email: "user@example.com", DisplayName: "User"}, nil
}

// fakeSender records sends and can be told to fail. Bulk delivery calls it
// from several goroutines.
type fakeSender struct {
	mu    sync.Mutex
	name  string
	fail  bool
	calls int
}

func (s *fakeSender) Name() string { return s.name }

func (s *fakeSender) Send(_ context.Context, _ channel.Target, _ *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.fail {
		return errors.New(s.name + " transport down")
	}
	return nil
}

func (s *fakeSender) sent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type dispatcherFixture struct {
	store *fakeNotificationStore
	prefs *stubPrefs
	app   *fakeSender
	email *fakeSender
	push  *fakeSender
	svc   *NotificationService
}

func newDispatcher(t *testing.T) *dispatcherFixture {
	t.Helper()
	f := &dispatcherFixture{
		store: newFakeNotificationStore(),
		prefs: &stubPrefs{},
		app:   &fakeSender{name: "app"},
		email: &fakeSender{name: "email"},
		push:  &fakeSender{name: "push"},
	}
	f.svc = NewNotificationService(f.store, f.prefs, stubUsers{}, f.app, f.email, f.push, nil, DispatcherConfig{})
	return f
}

func validInput() CreateInput {
	return CreateInput{
		Type:     domain.TypeTaskAssigned,
		Category: domain.CategoryTask,
		Priority: domain.PriorityMedium,
		Title:    "Task assigned: write tests",
		Message:  "You were assigned the task write tests.",
	}
}

func TestCreateDeliversImmediately(t *testing.T) {
	f := newDispatcher(t)

	n, err := f.svc.Create(context.Background(), 1, 1, validInput(), true)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if n.DeliveredAt == nil {
		t.Fatal("notification should be stamped delivered")
	}
	if !n.DeliveredApp || !n.DeliveredEmail || !n.DeliveredPush {
		t.Errorf("all channels should be delivered: %+v", n)
	}
	if f.email.sent() != 1 || f.push.sent() != 1 {
		t.Errorf("sender calls = email %d, push %d; want 1 each", f.email.sent(), f.push.sent())
	}
}

func TestCreateWithoutSendNowStaysPending(t *testing.T) {
	f := newDispatcher(t)

	n, err := f.svc.Create(context.Background(), 1, 1, validInput(), false)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if n.DeliveredAt != nil {
		t.Error("notification should stay pending")
	}
	if f.app.sent()+f.email.sent()+f.push.sent() != 0 {
		t.Error("no sender should run without sendNow")
	}
}

func TestCreateFutureScheduleDefersDelivery(t *testing.T) {
	f := newDispatcher(t)

	in := validInput()
	future := time.Now().Add(time.Hour)
	in.ScheduledFor = &future

	n, err := f.svc.Create(context.Background(), 1, 1, in, true)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if n.DeliveredAt != nil {
		t.Error("future-scheduled notification must not deliver yet")
	}
}

func TestCreateValidation(t *testing.T) {
	f := newDispatcher(t)

	cases := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{"missing title", func(in *CreateInput) { in.Title = "" }},
		{"unknown category", func(in *CreateInput) { in.Category = "gossip" }},
		{"unknown priority", func(in *CreateInput) { in.Priority = "shouting" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			if _, err := f.svc.Create(context.Background(), 1, 1, in, true); err == nil {
				t.Error("Create() should reject invalid input")
			}
		})
	}

	if _, err := f.svc.Create(context.Background(), 0, 1, validInput(), true); err == nil {
		t.Error("Create() should reject a zero recipient")
	}
}

func TestCreateDefaultsPriorityToMedium(t *testing.T) {
	f := newDispatcher(t)

	in := validInput()
	in.Priority = ""
	n, err := f.svc.Create(context.Background(), 1, 1, in, false)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if n.Priority != domain.PriorityMedium {
		t.Errorf("priority = %q, want medium", n.Priority)
	}
}

func TestSenderFailureIsAbsorbed(t *testing.T) {
	f := newDispatcher(t)
	f.email.fail = true

	n, err := f.svc.Create(context.Background(), 1, 1, validInput(), true)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if n.DeliveredEmail {
		t.Error("failed email send must record a false flag")
	}
	if !n.DeliveredApp || !n.DeliveredPush {
		t.Error("sibling channels must still deliver")
	}
	if n.DeliveredAt == nil {
		t.Error("row must still be stamped so the sweep skips it")
	}
}

func TestSilentNotificationIsStamped(t *testing.T) {
	f := newDispatcher(t)
	silent := domain.DefaultPreference(1, 1)
	silent.EnableInApp = false
	silent.EnableEmail = false
	silent.EnablePush = false
	f.prefs.pref = &silent

	n, err := f.svc.Create(context.Background(), 1, 1, validInput(), true)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if n.DeliveredApp || n.DeliveredEmail || n.DeliveredPush {
		t.Error("no channel should report delivery")
	}
	if n.DeliveredAt == nil {
		t.Error("a silent notification is still stamped delivered")
	}
	if f.app.sent()+f.email.sent()+f.push.sent() != 0 {
		t.Error("no sender should have run")
	}
}

func TestPreferenceFailureLeavesRowPending(t *testing.T) {
	f := newDispatcher(t)
	f.prefs.err = &domain.StoreError{Op: "preference.find", Err: errors.New("boom")}

	n, err := f.svc.Create(context.Background(), 1, 1, validInput(), true)
	if err != nil {
		t.Fatalf("Create() error = %v; creation must survive a delivery failure", err)
	}
	if n.DeliveredAt != nil {
		t.Error("row must stay pending for the sweep to retry")
	}
}

func TestCreateBulkPartialSuccess(t *testing.T) {
	f := newDispatcher(t)
	f.store.createErr = map[int64]error{2: &domain.StoreError{Op: "notification.create", Err: errors.New("boom")}}

	ids, err := f.svc.CreateBulk(context.Background(), []int64{1, 2, 3, 3, 0}, 1, validInput(), true)
	if err != nil {
		t.Fatalf("CreateBulk() error = %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("created %d notifications, want 2 (recipient 2 failed, 3 deduped, 0 dropped)", len(ids))
	}
	for i := 1; i < len(ids); i++ {
		if ids[i-1] >= ids[i] {
			t.Errorf("ids not sorted: %v", ids)
		}
	}
}

func TestCreateBulkOnePreferenceFailureDoesNotBlockOthers(t *testing.T) {
	f := newDispatcher(t)
	f.prefs.errFor = 2

	ids, err := f.svc.CreateBulk(context.Background(), []int64{1, 2, 3}, 1, validInput(), true)
	if err != nil {
		t.Fatalf("CreateBulk() error = %v", err)
	}
	// All three rows exist; recipient 2's row is merely undelivered.
	if len(ids) != 3 {
		t.Fatalf("created %d notifications, want 3", len(ids))
	}

	delivered := 0
	for _, row := range f.store.rows {
		if row.DeliveredAt != nil {
			delivered++
		}
	}
	if delivered != 2 {
		t.Errorf("delivered %d rows, want 2", delivered)
	}
}

func TestCreateBulkRejectsEmptyRecipients(t *testing.T) {
	f := newDispatcher(t)
	if _, err := f.svc.CreateBulk(context.Background(), nil, 1, validInput(), true); err == nil {
		t.Error("empty recipient list should be rejected")
	}
	if _, err := f.svc.CreateBulk(context.Background(), []int64{0, -4}, 1, validInput(), true); err == nil {
		t.Error("recipient list with no valid ids should be rejected")
	}
}

func TestMarkRead(t *testing.T) {
	f := newDispatcher(t)
	n, _ := f.svc.Create(context.Background(), 1, 1, validInput(), false)

	if err := f.svc.MarkRead(context.Background(), n.ID, 1); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	row := f.store.find(n.ID)
	if !row.IsRead || row.ReadAt == nil {
		t.Fatalf("row not marked read: %+v", row)
	}
	firstReadAt := *row.ReadAt

	// Idempotent: a second mark keeps the original timestamp.
	if err := f.svc.MarkRead(context.Background(), n.ID, 1); err != nil {
		t.Fatalf("second MarkRead() error = %v", err)
	}
	if !row.ReadAt.Equal(firstReadAt) {
		t.Error("re-marking must not move read_at")
	}

	if err := f.svc.MarkRead(context.Background(), 999, 1); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown id error = %v, want ErrNotFound", err)
	}
	if err := f.svc.MarkRead(context.Background(), n.ID, 2); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("foreign id error = %v, want ErrForbidden", err)
	}
}

func TestMarkManyReadSkipsForeignRows(t *testing.T) {
	f := newDispatcher(t)
	mine, _ := f.svc.Create(context.Background(), 1, 1, validInput(), false)
	theirs, _ := f.svc.Create(context.Background(), 2, 1, validInput(), false)

	if err := f.svc.MarkManyRead(context.Background(), []int64{mine.ID, theirs.ID}, 1); err != nil {
		t.Fatalf("MarkManyRead() error = %v", err)
	}
	if !f.store.find(mine.ID).IsRead {
		t.Error("own row should be read")
	}
	if f.store.find(theirs.ID).IsRead {
		t.Error("foreign row must be untouched")
	}
}

func TestMarkAllRead(t *testing.T) {
	f := newDispatcher(t)
	for i := 0; i < 3; i++ {
		f.svc.Create(context.Background(), 1, 1, validInput(), false)
	}
	f.svc.Create(context.Background(), 2, 1, validInput(), false)

	affected, err := f.svc.MarkAllRead(context.Background(), 1)
	if err != nil {
		t.Fatalf("MarkAllRead() error = %v", err)
	}
	if affected != 3 {
		t.Errorf("affected = %d, want 3", affected)
	}

	unread, _ := f.svc.UnreadCount(context.Background(), 1)
	if unread != 0 {
		t.Errorf("unread after MarkAllRead = %d, want 0", unread)
	}
}

func TestListPaginatesAndCountsUnread(t *testing.T) {
	f := newDispatcher(t)
	for i := 0; i < 5; i++ {
		f.svc.Create(context.Background(), 1, 1, validInput(), false)
	}

	result, err := f.svc.List(context.Background(), 1, domain.NotificationFilter{}, 2, 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(result.Items) != 2 || result.Total != 5 || result.TotalPages != 3 || result.Page != 2 {
		t.Errorf("unexpected page: items=%d total=%d pages=%d page=%d",
			len(result.Items), result.Total, result.TotalPages, result.Page)
	}
	if result.UnreadCount != 5 {
		t.Errorf("unread = %d, want 5", result.UnreadCount)
	}

	// Out-of-range pages return an empty, non-nil slice.
	far, err := f.svc.List(context.Background(), 1, domain.NotificationFilter{}, 99, 20)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if far.Items == nil || len(far.Items) != 0 {
		t.Errorf("far page items = %v, want empty slice", far.Items)
	}
}

func TestCleanup(t *testing.T) {
	f := newDispatcher(t)
	now := time.Now()
	ages := []int{10, 29, 31, 45}
	for i, age := range ages {
		n, _ := f.svc.Create(context.Background(), 1, 1, validInput(), false)
		f.store.find(n.ID).CreatedAt = now.AddDate(0, 0, -age)
		if i%2 == 1 {
			f.store.find(n.ID).IsRead = true
		}
	}

	deleted, err := f.svc.Cleanup(context.Background(), 30)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2 (the 31- and 45-day rows)", deleted)
	}

	if _, err := f.svc.Cleanup(context.Background(), 0); err == nil {
		t.Error("non-positive retention should be rejected")
	}
}

func TestCleanupReadOnlyPolicy(t *testing.T) {
	f := newDispatcher(t)
	f.svc.cfg.CleanupReadOnly = true
	now := time.Now()

	read, _ := f.svc.Create(context.Background(), 1, 1, validInput(), false)
	f.store.find(read.ID).CreatedAt = now.AddDate(0, 0, -60)
	f.store.find(read.ID).IsRead = true
	unread, _ := f.svc.Create(context.Background(), 1, 1, validInput(), false)
	f.store.find(unread.ID).CreatedAt = now.AddDate(0, 0, -60)

	deleted, err := f.svc.Cleanup(context.Background(), 30)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want only the read row", deleted)
	}
	if f.store.find(unread.ID) == nil {
		t.Error("unread row must survive under the read-only policy")
	}
}

func TestDeliverDue(t *testing.T) {
	f := newDispatcher(t)

	// A due scheduled notification.
	in := validInput()
	past := time.Now().Add(-time.Minute)
	in.ScheduledFor = &past
	scheduled, _ := f.svc.Create(context.Background(), 1, 1, in, false)

	// A stalled unscheduled row, older than the retry age.
	stalled, _ := f.svc.Create(context.Background(), 2, 1, validInput(), false)
	f.store.find(stalled.ID).CreatedAt = time.Now().Add(-time.Hour)

	// A fresh pending row the sweep must leave alone.
	fresh, _ := f.svc.Create(context.Background(), 3, 1, validInput(), false)

	processed, err := f.svc.DeliverDue(context.Background(), 0)
	if err != nil {
		t.Fatalf("DeliverDue() error = %v", err)
	}
	if processed != 2 {
		t.Fatalf("processed = %d, want 2", processed)
	}
	if f.store.find(scheduled.ID).DeliveredAt == nil {
		t.Error("due scheduled row should be delivered")
	}
	if f.store.find(stalled.ID).DeliveredAt == nil {
		t.Error("stalled row should be retried")
	}
	if f.store.find(fresh.ID).DeliveredAt != nil {
		t.Error("fresh pending row must wait for the retry age")
	}
}

func TestDeliverDueCountsOnlyStampedRows(t *testing.T) {
	f := newDispatcher(t)

	in := validInput()
	past := time.Now().Add(-time.Minute)
	in.ScheduledFor = &past
	for i := 0; i < 3; i++ {
		if _, err := f.svc.Create(context.Background(), int64(i+1), 1, in, false); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	f.store.recordErr = &domain.StoreError{Op: "notification.record_delivery", Err: errors.New("boom")}

	stamped, err := f.svc.DeliverDue(context.Background(), 0)
	if err != nil {
		t.Fatalf("DeliverDue() error = %v", err)
	}
	if stamped != 0 {
		t.Errorf("stamped = %d, want 0 when no outcome can be recorded", stamped)
	}
	for _, row := range f.store.rows {
		if row.DeliveredAt != nil {
			t.Errorf("row %d stamped despite the record failure", row.ID)
		}
	}
}

func TestDelete(t *testing.T) {
	f := newDispatcher(t)
	n, _ := f.svc.Create(context.Background(), 1, 1, validInput(), false)

	if err := f.svc.Delete(context.Background(), n.ID, 2); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("foreign delete error = %v, want ErrNotFound", err)
	}
	if err := f.svc.Delete(context.Background(), n.ID, 1); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if f.store.find(n.ID) != nil {
		t.Error("row should be gone")
	}
}

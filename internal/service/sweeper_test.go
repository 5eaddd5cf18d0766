package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sayaka/teamboard/internal/domain"
)

func TestSweepDeliveriesDrainsInBatches(t *testing.T) {
	f := newDispatcher(t)

	in := validInput()
	past := time.Now().Add(-time.Minute)
	in.ScheduledFor = &past
	for i := 0; i < 5; i++ {
		if _, err := f.svc.Create(context.Background(), int64(i+1), 1, in, false); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	sweeper := NewSweeper(f.svc, SweeperConfig{BatchSize: 2})
	sweeper.sweepDeliveries(context.Background())

	for _, row := range f.store.rows {
		if row.DeliveredAt == nil {
			t.Errorf("row %d still pending after sweep", row.ID)
		}
	}
}

func TestSweepDeliveriesStopsWhenNothingSticks(t *testing.T) {
	f := newDispatcher(t)

	in := validInput()
	past := time.Now().Add(-time.Minute)
	in.ScheduledFor = &past
	for i := 0; i < 5; i++ {
		if _, err := f.svc.Create(context.Background(), int64(i+1), 1, in, false); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	// Every outcome write fails, so each pass lists a full batch but stamps
	// nothing. The sweep must give up until the next tick instead of looping.
	f.store.recordErr = &domain.StoreError{Op: "notification.record_delivery", Err: errors.New("boom")}

	done := make(chan struct{})
	go func() {
		NewSweeper(f.svc, SweeperConfig{BatchSize: 2}).sweepDeliveries(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweepDeliveries kept spinning on a batch that made no progress")
	}
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	f := newDispatcher(t)
	sweeper := NewSweeper(f.svc, SweeperConfig{Interval: time.Hour, CleanupInterval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

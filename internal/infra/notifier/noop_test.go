package notifier

import (
	"context"
	"testing"
	"time"

	"newsloop/internal/domain/entity"
)

func TestNoOpNotifier_NotifyAlert(t *testing.T) {
	t.Run("returns nil without error", func(t *testing.T) {
		notifier := NewNoOpNotifier()
		err := notifier.NotifyAlert(context.Background(), testAlert())
		if err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
	})

	t.Run("completes immediately", func(t *testing.T) {
		notifier := NewNoOpNotifier()
		start := time.Now()
		err := notifier.NotifyAlert(context.Background(), testAlert())
		elapsed := time.Since(start)

		if err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
		if elapsed > time.Millisecond {
			t.Errorf("expected no-op to complete immediately, but took %v", elapsed)
		}
	})

	t.Run("works with nil alert", func(t *testing.T) {
		notifier := NewNoOpNotifier()
		var alert *entity.Alert
		if err := notifier.NotifyAlert(context.Background(), alert); err != nil {
			t.Errorf("expected nil error with nil alert, got %v", err)
		}
	})

	t.Run("works with canceled context", func(t *testing.T) {
		notifier := NewNoOpNotifier()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := notifier.NotifyAlert(ctx, testAlert()); err != nil {
			t.Errorf("expected nil error even with canceled context, got %v", err)
		}
	})
}

func TestNewNoOpNotifier(t *testing.T) {
	if NewNoOpNotifier() == nil {
		t.Fatal("expected non-nil notifier")
	}
}

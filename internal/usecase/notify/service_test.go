package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"newsloop/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAlert(id int64, title string) *entity.Alert {
	return &entity.Alert{
		ID:       id,
		Severity: entity.SeverityWarning,
		Source:   "orchestrator",
		Title:    title,
		Message:  "the ingest stage exceeded its soft deadline",
	}
}

// TestNotifyAlert_NoChannelsEnabled verifies no-op when all channels are disabled
func TestNotifyAlert_NoChannelsEnabled(t *testing.T) {
	channels := []Channel{
		&mockChannel{name: "discord", enabled: false},
		&mockChannel{name: "slack", enabled: false},
	}
	svc := NewService(channels, 10)

	err := svc.NotifyAlert(context.Background(), testAlert(1, "Cycle failed"))

	assert.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	for _, ch := range channels {
		mock := ch.(*mockChannel)
		assert.Equal(t, 0, mock.getSendCalledCount(), "Send should not be called for disabled channel")
	}
}

// TestNotifyAlert_SingleChannel verifies notification sent to single enabled channel
func TestNotifyAlert_SingleChannel(t *testing.T) {
	mock := &mockChannel{name: "discord", enabled: true}
	svc := NewService([]Channel{mock}, 10)

	err := svc.NotifyAlert(context.Background(), testAlert(1, "Cycle failed"))

	assert.NoError(t, err)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, mock.getSendCalledCount())
}

// TestNotifyAlert_MultipleChannels verifies all enabled channels are notified
func TestNotifyAlert_MultipleChannels(t *testing.T) {
	mock1 := &mockChannel{name: "discord", enabled: true}
	mock2 := &mockChannel{name: "slack", enabled: true}
	mock3 := &mockChannel{name: "email", enabled: false}
	svc := NewService([]Channel{mock1, mock2, mock3}, 10)

	err := svc.NotifyAlert(context.Background(), testAlert(1, "Cycle failed"))

	assert.NoError(t, err)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, mock1.getSendCalledCount(), "Discord should receive notification")
	assert.Equal(t, 1, mock2.getSendCalledCount(), "Slack should receive notification")
	assert.Equal(t, 0, mock3.getSendCalledCount(), "Email should not receive notification (disabled)")
}

// TestNotifyAlert_RequestID verifies request_id is generated when absent, and inherited when present
func TestNotifyAlert_RequestID(t *testing.T) {
	t.Run("generated when absent", func(t *testing.T) {
		mock := &mockChannel{name: "discord", enabled: true}
		svc := NewService([]Channel{mock}, 10)

		err := svc.NotifyAlert(context.Background(), testAlert(1, "Cycle failed"))

		assert.NoError(t, err)
		time.Sleep(100 * time.Millisecond)
		assert.Equal(t, 1, mock.getSendCalledCount())
	})

	t.Run("inherited from context", func(t *testing.T) {
		mock := &mockChannel{name: "discord", enabled: true}
		svc := NewService([]Channel{mock}, 10)

		ctx := context.WithValue(context.Background(), requestIDKey, "test-request-id-123")
		err := svc.NotifyAlert(ctx, testAlert(1, "Cycle failed"))

		assert.NoError(t, err)
		time.Sleep(100 * time.Millisecond)
		assert.Equal(t, 1, mock.getSendCalledCount())
	})
}

// TestNotifyAlert_NonBlocking verifies NotifyAlert returns immediately
func TestNotifyAlert_NonBlocking(t *testing.T) {
	mock := &mockChannel{name: "discord", enabled: true, sendDelay: 1 * time.Second}
	svc := NewService([]Channel{mock}, 10)

	start := time.Now()
	err := svc.NotifyAlert(context.Background(), testAlert(1, "Cycle failed"))
	duration := time.Since(start)

	assert.NoError(t, err)
	assert.Less(t, duration, 100*time.Millisecond, "NotifyAlert should return immediately")

	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, 1, mock.getSendCalledCount())
}

// TestNotifyAlert_NilAlert verifies service skips notification with nil alert
func TestNotifyAlert_NilAlert(t *testing.T) {
	mock := &mockChannel{name: "discord", enabled: true}
	svc := NewService([]Channel{mock}, 10)

	err := svc.NotifyAlert(context.Background(), nil)

	assert.NoError(t, err, "Should not return error for nil alert")
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, mock.getSendCalledCount(), "Send should not be called with nil alert")
}

// TestNotifyChannel_PanicRecovery verifies panic in channel doesn't crash service
func TestNotifyChannel_PanicRecovery(t *testing.T) {
	mock := &mockChannel{name: "discord", enabled: true, panicOnSend: true}
	svc := NewService([]Channel{mock}, 10)

	err := svc.NotifyAlert(context.Background(), testAlert(1, "Cycle failed"))
	assert.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	mock.setPanicOnSend(false)
	mock.resetSendCalled()

	err = svc.NotifyAlert(context.Background(), testAlert(1, "Cycle failed"))
	assert.NoError(t, err)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, mock.getSendCalledCount(), "Service should recover and continue working")
}

// TestShutdown_WaitsForInflight verifies graceful shutdown waits for in-flight notifications
func TestShutdown_WaitsForInflight(t *testing.T) {
	mock := &mockChannel{name: "discord", enabled: true, sendDelay: 50 * time.Millisecond}
	svc := NewService([]Channel{mock}, 10)

	err := svc.NotifyAlert(context.Background(), testAlert(1, "Cycle failed"))
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = svc.Shutdown(shutdownCtx)
	assert.NoError(t, err, "Shutdown should succeed")
}

// TestShutdown_NoInflight verifies shutdown completes immediately when no notifications
func TestShutdown_NoInflight(t *testing.T) {
	mock := &mockChannel{name: "discord", enabled: true}
	svc := NewService([]Channel{mock}, 10)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	start := time.Now()
	err := svc.Shutdown(shutdownCtx)
	duration := time.Since(start)

	assert.NoError(t, err)
	assert.Less(t, duration, 100*time.Millisecond, "Shutdown should complete immediately")
}

// TestCircuitBreaker_OpensAfterFailures verifies circuit breaker opens after threshold
func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	mock := &mockChannel{name: "discord", enabled: true, sendError: errors.New("simulated failure")}
	svc := NewService([]Channel{mock}, 10)

	for i := 0; i < circuitBreakerThreshold; i++ {
		err := svc.NotifyAlert(context.Background(), testAlert(1, "Cycle failed"))
		assert.NoError(t, err)
	}
	time.Sleep(200 * time.Millisecond)

	health := svc.GetChannelHealth()
	require.Len(t, health, 1)
	assert.Equal(t, "discord", health[0].Name)
	assert.True(t, health[0].CircuitBreakerOpen, "Circuit breaker should be open")
	assert.NotNil(t, health[0].DisabledUntil)

	mock.setSendError(nil)
	mock.resetSendCalled()

	err := svc.NotifyAlert(context.Background(), testAlert(1, "Cycle failed"))
	assert.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, 0, mock.getSendCalledCount(), "Notification should be dropped when circuit is open")
}

// TestCircuitBreaker_ResetsAfterSuccess verifies circuit breaker resets on success
func TestCircuitBreaker_ResetsAfterSuccess(t *testing.T) {
	mock := &mockChannel{name: "discord", enabled: true}
	svc := NewService([]Channel{mock}, 10)

	mock.setSendError(errors.New("simulated failure"))
	for i := 0; i < circuitBreakerThreshold-1; i++ {
		err := svc.NotifyAlert(context.Background(), testAlert(1, "Cycle failed"))
		assert.NoError(t, err)
	}
	time.Sleep(200 * time.Millisecond)

	mock.setSendError(nil)
	mock.resetSendCalled()
	err := svc.NotifyAlert(context.Background(), testAlert(1, "Cycle failed"))
	assert.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, 1, mock.getSendCalledCount())

	health := svc.GetChannelHealth()
	require.Len(t, health, 1)
	assert.False(t, health[0].CircuitBreakerOpen, "Circuit breaker should remain closed after success")
}

// TestWorkerPool_Saturation verifies worker pool limits concurrent notifications
func TestWorkerPool_Saturation(t *testing.T) {
	maxConcurrent := 2
	mock := &mockChannel{name: "discord", enabled: true, sendDelay: 500 * time.Millisecond}
	svc := NewService([]Channel{mock}, maxConcurrent)

	numNotifications := 5
	for i := 0; i < numNotifications; i++ {
		err := svc.NotifyAlert(context.Background(), testAlert(1, "Cycle failed"))
		assert.NoError(t, err)
	}
	time.Sleep(100 * time.Millisecond)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := svc.Shutdown(shutdownCtx)
	assert.NoError(t, err)

	assert.GreaterOrEqual(t, mock.getSendCalledCount(), maxConcurrent, "At least maxConcurrent notifications should succeed")
}

// TestWorkerPool_Timeout verifies notifications are dropped when pool is full
func TestWorkerPool_Timeout(t *testing.T) {
	mock := &mockChannel{name: "discord", enabled: true, sendDelay: 10 * time.Second}
	svc := NewService([]Channel{mock}, 1)

	err := svc.NotifyAlert(context.Background(), testAlert(1, "Cycle failed"))
	assert.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	err = svc.NotifyAlert(context.Background(), testAlert(2, "Budget exhausted"))
	assert.NoError(t, err)

	time.Sleep(6 * time.Second)

	assert.Equal(t, 1, mock.getSendCalledCount(), "Only first notification should acquire worker slot")
}

// TestGetChannelHealth verifies health status is reported correctly
func TestGetChannelHealth(t *testing.T) {
	mock1 := &mockChannel{name: "discord", enabled: true}
	mock2 := &mockChannel{name: "slack", enabled: false}
	svc := NewService([]Channel{mock1, mock2}, 10)

	health := svc.GetChannelHealth()

	assert.Len(t, health, 2)

	var discordHealth, slackHealth *ChannelHealthStatus
	for i := range health {
		switch health[i].Name {
		case "discord":
			discordHealth = &health[i]
		case "slack":
			slackHealth = &health[i]
		}
	}

	require.NotNil(t, discordHealth)
	assert.True(t, discordHealth.Enabled)
	assert.False(t, discordHealth.CircuitBreakerOpen)
	assert.Nil(t, discordHealth.DisabledUntil)

	require.NotNil(t, slackHealth)
	assert.False(t, slackHealth.Enabled)
	assert.False(t, slackHealth.CircuitBreakerOpen)
	assert.Nil(t, slackHealth.DisabledUntil)
}

// TestConcurrentNotifications verifies service handles concurrent notifications safely
func TestConcurrentNotifications(t *testing.T) {
	mock := &mockChannel{name: "discord", enabled: true, sendDelay: 10 * time.Millisecond}
	svc := NewService([]Channel{mock}, 20)

	numGoroutines := 10
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			err := svc.NotifyAlert(context.Background(), testAlert(1, "Cycle failed"))
			assert.NoError(t, err)
		}()
	}

	wg.Wait()
	time.Sleep(500 * time.Millisecond)

	assert.Equal(t, numGoroutines, mock.getSendCalledCount())
}

// TestContextCancellation verifies the service shuts down cleanly even with slow channels
func TestContextCancellation(t *testing.T) {
	mock := &mockChannel{name: "discord", enabled: true, sendDelay: 5 * time.Second}
	svc := NewService([]Channel{mock}, 10)

	err := svc.NotifyAlert(context.Background(), testAlert(1, "Cycle failed"))
	assert.NoError(t, err)

	time.Sleep(100 * time.Millisecond)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 35*time.Second)
	defer cancel()

	start := time.Now()
	err = svc.Shutdown(shutdownCtx)
	duration := time.Since(start)

	assert.NoError(t, err)
	assert.Less(t, duration, 35*time.Second)
}

// TestMultipleAlerts_QuickSuccession verifies service handles rapid notifications
func TestMultipleAlerts_QuickSuccession(t *testing.T) {
	mock := &mockChannel{name: "discord", enabled: true}
	svc := NewService([]Channel{mock}, 20)

	numAlerts := 20
	for i := 1; i <= numAlerts; i++ {
		alert := testAlert(int64(i), fmt.Sprintf("Alert %d", i))
		err := svc.NotifyAlert(context.Background(), alert)
		assert.NoError(t, err)
	}

	time.Sleep(500 * time.Millisecond)

	assert.Equal(t, numAlerts, mock.getSendCalledCount())
}

// TestMultiChannel_EnableCombinations covers the discord/slack enabled/disabled matrix.
func TestMultiChannel_EnableCombinations(t *testing.T) {
	tests := []struct {
		name           string
		discordEnabled bool
		slackEnabled   bool
	}{
		{"both enabled", true, true},
		{"only discord enabled", true, false},
		{"only slack enabled", false, true},
		{"both disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			discordMock := &mockChannel{name: "discord", enabled: tt.discordEnabled}
			slackMock := &mockChannel{name: "slack", enabled: tt.slackEnabled}
			svc := NewService([]Channel{discordMock, slackMock}, 10)

			err := svc.NotifyAlert(context.Background(), testAlert(1, "Cycle failed"))
			assert.NoError(t, err)
			time.Sleep(100 * time.Millisecond)

			wantDiscord, wantSlack := 0, 0
			if tt.discordEnabled {
				wantDiscord = 1
			}
			if tt.slackEnabled {
				wantSlack = 1
			}
			assert.Equal(t, wantDiscord, discordMock.getSendCalledCount())
			assert.Equal(t, wantSlack, slackMock.getSendCalledCount())

			health := svc.GetChannelHealth()
			assert.Len(t, health, 2)

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			assert.NoError(t, svc.Shutdown(shutdownCtx))
		})
	}
}

// TestMultiChannel_IndependentFailure verifies one channel's failure doesn't affect the other.
func TestMultiChannel_IndependentFailure(t *testing.T) {
	discordMock := &mockChannel{name: "discord", enabled: true, sendError: errors.New("Discord API error: rate limit exceeded")}
	slackMock := &mockChannel{name: "slack", enabled: true}
	svc := NewService([]Channel{discordMock, slackMock}, 10)

	err := svc.NotifyAlert(context.Background(), testAlert(1, "Cycle failed"))
	assert.NoError(t, err, "NotifyAlert should not return error (fire-and-forget)")

	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, 1, discordMock.getSendCalledCount(), "Discord should attempt to send")
	assert.Equal(t, 1, slackMock.getSendCalledCount(), "Slack should send successfully")

	health := svc.GetChannelHealth()
	assert.Len(t, health, 2)
	for _, h := range health {
		assert.False(t, h.CircuitBreakerOpen, "%s circuit breaker should remain closed after 1 failure", h.Name)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, svc.Shutdown(shutdownCtx))
}

// TestMultiChannel_BothChannelsFail verifies service handles both channels failing
func TestMultiChannel_BothChannelsFail(t *testing.T) {
	discordMock := &mockChannel{name: "discord", enabled: true, sendError: errors.New("Discord API error")}
	slackMock := &mockChannel{name: "slack", enabled: true, sendError: errors.New("Slack API error")}
	svc := NewService([]Channel{discordMock, slackMock}, 10)

	err := svc.NotifyAlert(context.Background(), testAlert(1, "Cycle failed"))
	assert.NoError(t, err)

	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, 1, discordMock.getSendCalledCount(), "Discord should attempt to send")
	assert.Equal(t, 1, slackMock.getSendCalledCount(), "Slack should attempt to send")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, svc.Shutdown(shutdownCtx))
}

// TestMultiChannel_ParallelDispatch verifies both channels are called in parallel
func TestMultiChannel_ParallelDispatch(t *testing.T) {
	discordMock := &mockChannel{name: "discord", enabled: true, sendDelay: 100 * time.Millisecond}
	slackMock := &mockChannel{name: "slack", enabled: true, sendDelay: 100 * time.Millisecond}
	svc := NewService([]Channel{discordMock, slackMock}, 10)

	start := time.Now()
	err := svc.NotifyAlert(context.Background(), testAlert(1, "Cycle failed"))
	dispatchDuration := time.Since(start)

	assert.NoError(t, err)
	assert.Less(t, dispatchDuration, 50*time.Millisecond, "Dispatch should be non-blocking")

	time.Sleep(300 * time.Millisecond)
	totalDuration := time.Since(start)

	assert.Equal(t, 1, discordMock.getSendCalledCount(), "Discord should be called")
	assert.Equal(t, 1, slackMock.getSendCalledCount(), "Slack should be called")
	assert.Less(t, totalDuration, 350*time.Millisecond, "Both notifications should execute in parallel")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, svc.Shutdown(shutdownCtx))
}

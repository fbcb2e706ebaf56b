package synthesize

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"newsloop/internal/capability"
	"newsloop/internal/repository"
)

const (
	maxValidationAttempts = 3
	defaultRetryBaseDelay = 2 * time.Second
)

// Service produces one validated SynthesisOutput per cluster.
type Service struct {
	Items          repository.SourceItemRepository
	Synthesizer    capability.Synthesizer
	RetryBaseDelay time.Duration // default 2s; exposed so tests don't pay real wall-clock backoff
}

// NewService constructs a synthesis Service.
func NewService(items repository.SourceItemRepository, synthesizer capability.Synthesizer) *Service {
	return &Service{Items: items, Synthesizer: synthesizer, RetryBaseDelay: defaultRetryBaseDelay}
}

// Synthesize packages clusterID's members, calls the synthesis capability,
// and validates the result, making up to maxValidationAttempts attempts with
// exponential backoff between them when the call fails or its output fails
// validation. On persistent failure it
// returns a *capability.Failure with Kind InvalidOutput so the caller can
// defer the cluster to the next cycle.
func (s *Service) Synthesize(ctx context.Context, clusterID int64) (*capability.SynthesisOutput, error) {
	members, err := s.Items.ListByCluster(ctx, clusterID)
	if err != nil {
		return nil, capability.NewFailure("synthesis", capability.Transient, err)
	}

	sources := PackageSources(members)
	delay := s.RetryBaseDelay
	if delay <= 0 {
		delay = defaultRetryBaseDelay
	}

	var lastErr error
	for attempt := 1; attempt <= maxValidationAttempts; attempt++ {
		out, err := s.Synthesizer.Synthesize(ctx, sources)
		if err != nil {
			lastErr = err
			slog.Warn("synthesis capability call failed",
				slog.Int64("cluster_id", clusterID),
				slog.Int("attempt", attempt),
				slog.Any("error", err))
		} else if valErr := Validate(out); valErr != nil {
			lastErr = valErr
			slog.Warn("synthesis output failed validation",
				slog.Int64("cluster_id", clusterID),
				slog.Int("attempt", attempt),
				slog.Any("error", valErr))
		} else {
			return out, nil
		}

		if attempt == maxValidationAttempts {
			break
		}
		if waitErr := sleepWithContext(ctx, jitter(delay)); waitErr != nil {
			return nil, capability.NewFailure("synthesis", capability.Transient, waitErr)
		}
		delay *= 2
	}

	return nil, capability.NewFailure("synthesis", capability.InvalidOutput, lastErr)
}

func jitter(d time.Duration) time.Duration {
	// #nosec G404 -- jitter does not need cryptographic randomness.
	return d + time.Duration(rand.Float64()*float64(d)*0.1)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package jobs

import (
	"context"
	"fmt"
	"log"
	"time"
)

// RetentionService defines the interface for the retention sweeps
type RetentionService interface {
	// PurgeExpiredRejected deletes rejected items past their retention deadline
	PurgeExpiredRejected(ctx context.Context, now time.Time) (int64, error)

	// PurgeExpiredHistory deletes terminal items older than the history horizon
	PurgeExpiredHistory(ctx context.Context, now time.Time) (int64, error)
}

// RetentionReaper runs the two retention sweeps. Each sweep is
// idempotent, so a pass interrupted between them leaves nothing in a
// state the next pass cannot clean up.
type RetentionReaper struct {
	service RetentionService
	clock   func() time.Time
}

// NewRetentionReaper creates a new RetentionReaper instance
func NewRetentionReaper(service RetentionService) *RetentionReaper {
	return &RetentionReaper{
		service: service,
		clock:   func() time.Time { return time.Now().UTC() },
	}
}

// ProcessJobs implements the JobProcessor interface
func (r *RetentionReaper) ProcessJobs(ctx context.Context) error {
	now := r.clock()

	rejected, err := r.service.PurgeExpiredRejected(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to purge expired rejected items: %w", err)
	}

	history, err := r.service.PurgeExpiredHistory(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to purge expired history: %w", err)
	}

	if rejected > 0 || history > 0 {
		log.Printf("Retention pass done: rejected=%d history=%d", rejected, history)
	}
	return nil
}

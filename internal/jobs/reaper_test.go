package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestRetentionReaper_ProcessJobs_RunsBothSweeps tests that both sweeps run
// with the same clock reading
func TestRetentionReaper_ProcessJobs_RunsBothSweeps(t *testing.T) {
	mockService := new(MockRetentionService)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mockService.On("PurgeExpiredRejected", context.Background(), now).Return(int64(2), nil)
	mockService.On("PurgeExpiredHistory", context.Background(), now).Return(int64(1), nil)

	reaper := NewRetentionReaper(mockService)
	reaper.clock = func() time.Time { return now }

	err := reaper.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockService.AssertExpectations(t)
}

// TestRetentionReaper_ProcessJobs_RejectedSweepErrorShortCircuits tests that a
// failed first sweep skips the second
func TestRetentionReaper_ProcessJobs_RejectedSweepErrorShortCircuits(t *testing.T) {
	mockService := new(MockRetentionService)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mockService.On("PurgeExpiredRejected", context.Background(), now).Return(int64(0), errors.New("database error"))

	reaper := NewRetentionReaper(mockService)
	reaper.clock = func() time.Time { return now }

	err := reaper.ProcessJobs(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to purge expired rejected items")
	mockService.AssertNotCalled(t, "PurgeExpiredHistory", context.Background(), now)
}

// TestRetentionReaper_ProcessJobs_HistorySweepError tests history sweep error handling
func TestRetentionReaper_ProcessJobs_HistorySweepError(t *testing.T) {
	mockService := new(MockRetentionService)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mockService.On("PurgeExpiredRejected", context.Background(), now).Return(int64(0), nil)
	mockService.On("PurgeExpiredHistory", context.Background(), now).Return(int64(0), errors.New("database error"))

	reaper := NewRetentionReaper(mockService)
	reaper.clock = func() time.Time { return now }

	err := reaper.ProcessJobs(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to purge expired history")
}

package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/kbforge/curatex/internal/domain"
)

func strandedItem(id string) *domain.CurationItem {
	return &domain.CurationItem{
		ID:       id,
		TenantID: "tenant-1",
		Status:   domain.CurationStatusApproved,
	}
}

// TestPromotionWorker_ProcessJobs_NoStrandedItems tests when there is nothing to promote
func TestPromotionWorker_ProcessJobs_NoStrandedItems(t *testing.T) {
	mockService := new(MockPromotionService)
	mockService.On("ListUnpromoted", mock.Anything, 25).Return([]*domain.CurationItem{}, nil)

	worker := NewPromotionWorker(mockService, 25)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockService.AssertExpectations(t)
	mockService.AssertNotCalled(t, "PromoteItem", mock.Anything, mock.Anything)
}

// TestPromotionWorker_ProcessJobs_MixedOutcomes tests a pass with promoted,
// duplicate, and failed items
func TestPromotionWorker_ProcessJobs_MixedOutcomes(t *testing.T) {
	mockService := new(MockPromotionService)

	a, b, c := strandedItem("item-a"), strandedItem("item-b"), strandedItem("item-c")
	mockService.On("ListUnpromoted", mock.Anything, 25).Return([]*domain.CurationItem{a, b, c}, nil)
	mockService.On("PromoteItem", mock.Anything, a).Return(true, false, nil)
	mockService.On("PromoteItem", mock.Anything, b).Return(false, true, nil)
	mockService.On("PromoteItem", mock.Anything, c).Return(false, false, errors.New("tx failed"))

	worker := NewPromotionWorker(mockService, 25)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockService.AssertExpectations(t)
}

// TestPromotionWorker_ProcessJobs_FailureDoesNotAbortBatch tests that one
// item's failure does not skip the rest
func TestPromotionWorker_ProcessJobs_FailureDoesNotAbortBatch(t *testing.T) {
	mockService := new(MockPromotionService)

	a, b := strandedItem("item-a"), strandedItem("item-b")
	mockService.On("ListUnpromoted", mock.Anything, 25).Return([]*domain.CurationItem{a, b}, nil)
	mockService.On("PromoteItem", mock.Anything, a).Return(false, false, errors.New("tx failed"))
	mockService.On("PromoteItem", mock.Anything, b).Return(true, false, nil)

	worker := NewPromotionWorker(mockService, 25)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockService.AssertNumberOfCalls(t, "PromoteItem", 2)
}

// TestPromotionWorker_ProcessJobs_ListError tests list error handling
func TestPromotionWorker_ProcessJobs_ListError(t *testing.T) {
	mockService := new(MockPromotionService)
	mockService.On("ListUnpromoted", mock.Anything, 25).Return(nil, errors.New("database error"))

	worker := NewPromotionWorker(mockService, 25)
	err := worker.ProcessJobs(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list unpromoted items")
}

// TestPromotionWorker_ProcessJobs_SkipsOverlappingPass tests the re-entrancy guard
func TestPromotionWorker_ProcessJobs_SkipsOverlappingPass(t *testing.T) {
	mockService := new(MockPromotionService)

	release := make(chan struct{})
	item := strandedItem("item-a")
	mockService.On("ListUnpromoted", mock.Anything, 25).Return([]*domain.CurationItem{item}, nil).Once()
	mockService.On("PromoteItem", mock.Anything, item).Run(func(mock.Arguments) {
		<-release
	}).Return(true, false, nil).Once()

	worker := NewPromotionWorker(mockService, 25)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = worker.ProcessJobs(context.Background())
	}()

	// Wait until the first pass holds the guard
	for !worker.running.Load() {
	}

	// Second pass must return without listing anything
	err := worker.ProcessJobs(context.Background())
	assert.NoError(t, err)

	close(release)
	wg.Wait()

	mockService.AssertNumberOfCalls(t, "ListUnpromoted", 1)
}

// TestPromotionWorker_ProcessJobs_DefaultBatchSize tests the batch size fallback
func TestPromotionWorker_ProcessJobs_DefaultBatchSize(t *testing.T) {
	mockService := new(MockPromotionService)
	mockService.On("ListUnpromoted", mock.Anything, 25).Return([]*domain.CurationItem{}, nil)

	worker := NewPromotionWorker(mockService, 0)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockService.AssertExpectations(t)
}

package jobs

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/kbforge/curatex/internal/domain"
)

// PromotionService defines the interface for completing stranded approvals
type PromotionService interface {
	// ListUnpromoted returns approved items with no published document
	ListUnpromoted(ctx context.Context, limit int) ([]*domain.CurationItem, error)

	// PromoteItem publishes one approved item, reporting whether a new
	// document was created or an existing one was adopted
	PromoteItem(ctx context.Context, item *domain.CurationItem) (promoted, duplicate bool, err error)
}

// PromotionWorker finishes approvals whose inline publish step never
// completed. Runs never overlap: a pass that starts while the previous
// one is still draining is skipped.
type PromotionWorker struct {
	service   PromotionService
	batchSize int
	running   atomic.Bool
}

// NewPromotionWorker creates a new PromotionWorker instance
func NewPromotionWorker(service PromotionService, batchSize int) *PromotionWorker {
	if batchSize <= 0 {
		batchSize = 25
	}
	return &PromotionWorker{
		service:   service,
		batchSize: batchSize,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *PromotionWorker) ProcessJobs(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		log.Println("Skipping promotion pass: previous pass still running")
		return nil
	}
	defer w.running.Store(false)

	items, err := w.service.ListUnpromoted(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("failed to list unpromoted items: %w", err)
	}

	if len(items) == 0 {
		return nil
	}

	log.Printf("Promoting %d stranded approvals", len(items))

	var promoted, duplicates, failed int
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		ok, dup, err := w.service.PromoteItem(ctx, item)
		switch {
		case err != nil:
			failed++
			log.Printf("Error promoting item %s: %v", item.ID, err)
		case dup:
			duplicates++
		case ok:
			promoted++
		}
	}

	log.Printf("Promotion pass done: processed=%d promoted=%d duplicates=%d failed=%d",
		len(items), promoted, duplicates, failed)
	return nil
}

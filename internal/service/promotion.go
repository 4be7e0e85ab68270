package service

import (
	"context"
	"errors"
	"time"

	"github.com/kbforge/curatex/internal/domain"
	"github.com/kbforge/curatex/internal/telemetry"
)

// ListUnpromoted returns approved items whose inline publish step never
// completed, oldest first.
func (s *CurationService) ListUnpromoted(ctx context.Context, limit int) ([]*domain.CurationItem, error) {
	return s.items.ListApprovedUnpublished(ctx, limit)
}

// PromoteItem completes promotion for an approved item with no published
// document, running the same publish sequence as inline Approve. A uniqueness
// violation means a concurrent run already published the content; the item is
// linked to the existing document and reported as a duplicate, not a failure.
func (s *CurationService) PromoteItem(ctx context.Context, item *domain.CurationItem) (promoted, duplicate bool, err error) {
	ctx, span := telemetry.StartSpan(ctx, "CurationService.PromoteItem", telemetry.SpanAttributes{
		TenantID:  item.TenantID,
		ItemID:    item.ID,
		Operation: "promote",
	})
	defer span.End()

	if item.Status != domain.CurationStatusApproved || item.PublishedID != "" {
		return false, false, domain.NewDomainError(domain.ErrCodeInvalidOperation, "item is not awaiting promotion")
	}

	// Content already published under the same hash: adopt it.
	if existing, ferr := s.documents.FindByHash(ctx, item.TenantID, item.ContentHash); ferr == nil {
		if lerr := s.items.SetPublished(ctx, item.TenantID, item.ID, existing.ID); lerr != nil {
			return false, false, lerr
		}
		return false, true, nil
	} else if !errors.Is(ferr, domain.ErrDocumentNotFound) {
		return false, false, ferr
	}

	ns, err := s.resolveNamespace(ctx, item.TenantID, "", item.SuggestedNamespaces)
	if err != nil {
		return false, false, err
	}

	if s.materializer != nil {
		if err := s.materializer.MaterializeForItem(ctx, item.ID); err != nil {
			return false, false, err
		}
	}

	// Absorption, when applicable, already rewrote the item's content during
	// the inline approval; promotion publishes the content as stored.
	doc := &domain.Document{
		ID:          s.uuidGen.NewString(),
		TenantID:    item.TenantID,
		NamespaceID: ns.ID,
		Title:       item.Title,
		Content:     item.Content,
		ContentHash: item.ContentHash,
		Status:      domain.DocumentStatusIndexed,
		Provenance:  domain.ProvenanceCurationApproved,
		Embedding:   item.Embedding,
		CreatedAt:   time.Now().UTC(),
	}
	if err := domain.ValidateDocument(doc); err != nil {
		return false, false, err
	}

	err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Documents().Create(ctx, doc); err != nil {
			return err
		}
		if err := repos.SearchIndex().IndexDocument(ctx, doc.ID, doc.Content, map[string]string{
			"namespace": ns.Name,
			"title":     doc.Title,
		}); err != nil {
			return err
		}
		if err := repos.Training().Create(ctx, s.uuidGen.NewString(), item.TenantID, doc.ID, item.ID, doc.Content, doc.Provenance); err != nil {
			return err
		}
		return repos.Items().SetPublished(ctx, item.TenantID, item.ID, doc.ID)
	})
	if err != nil {
		if errors.Is(err, domain.ErrDocumentAlreadyExists) {
			if existing, ferr := s.documents.FindByHash(ctx, item.TenantID, item.ContentHash); ferr == nil {
				if lerr := s.items.SetPublished(ctx, item.TenantID, item.ID, existing.ID); lerr != nil {
					return false, false, lerr
				}
				return false, true, nil
			}
			return false, true, nil
		}
		return false, false, err
	}

	return true, false, nil
}

// PurgeExpiredRejected deletes rejected items past their retention deadline.
func (s *CurationService) PurgeExpiredRejected(ctx context.Context, now time.Time) (int64, error) {
	return s.items.DeleteExpiredRejected(ctx, now)
}

// PurgeExpiredHistory deletes terminal items older than the history horizon.
func (s *CurationService) PurgeExpiredHistory(ctx context.Context, now time.Time) (int64, error) {
	return s.items.DeleteHistoryOlderThan(ctx, now.Add(-domain.HistoryRetention))
}

package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/kbforge/curatex/internal/content"
	"github.com/kbforge/curatex/internal/domain"
	"github.com/kbforge/curatex/internal/telemetry"
)

// ApproveInput represents the input for approving a pending item
type ApproveInput struct {
	TenantID   string
	ItemID     string
	ReviewedBy string
	Namespace  string // optional override for the item's suggested namespaces
}

// RejectInput represents the input for rejecting a pending item
type RejectInput struct {
	TenantID   string
	ItemID     string
	ReviewedBy string
	Note       string
}

// Approve runs the staged approval pipeline: re-verify duplication, absorb
// novel content from near-duplicates, resolve the target namespace,
// materialize attachments, then publish, index, and record the training copy
// in one transaction. Every stage failure aborts the approval; the reviewer
// can retry the operation as a unit.
func (s *CurationService) Approve(ctx context.Context, input ApproveInput) (*domain.Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "CurationService.Approve", telemetry.SpanAttributes{
		TenantID:  input.TenantID,
		ItemID:    input.ItemID,
		Operation: "approve",
	})
	defer span.End()

	item, err := s.items.GetByID(ctx, input.TenantID, input.ItemID)
	if err != nil {
		return nil, err
	}
	if !item.CanTransition(domain.CurationStatusApproved) {
		return nil, domain.ErrItemNotPending
	}

	// Stage 1: re-verify the hash against indexed documents. The gate ran at
	// submission time, but a matching document may have been published since.
	if doc, err := s.documents.FindByHash(ctx, input.TenantID, item.ContentHash); err == nil {
		return nil, domain.NewDuplicateContentError(doc.ID, doc.Title, false, item.SimilarityScore)
	} else if !errors.Is(err, domain.ErrDocumentNotFound) {
		return nil, err
	}

	// Stage 2: semantic re-verification. Flags set by a stale batch scan are
	// not trusted blindly; an unscanned item is scanned now.
	if s.scanner != nil && item.DuplicationStatus == domain.DuplicationStatusUnset {
		outcome, err := s.scanner.ScanItem(ctx, item)
		if err != nil {
			return nil, err
		}
		item.DuplicationStatus = outcome.Status
		item.SimilarityScore = outcome.Score
		item.DuplicateOfID = outcome.DuplicateOfID
	}

	publishContent := item.Content
	provenance := domain.ProvenanceCurationApproved
	absorbed := false

	switch item.DuplicationStatus {
	case domain.DuplicationStatusExact:
		title, pending := s.resolveDuplicateRef(ctx, input.TenantID, item.DuplicateOfID)
		return nil, domain.NewDuplicateContentError(item.DuplicateOfID, title, pending, item.SimilarityScore)

	case domain.DuplicationStatusNear:
		// Absorption is defined against a published document. A near match
		// against another queue item leaves both pending for the reviewer.
		dupDoc, err := s.documents.GetByID(ctx, input.TenantID, item.DuplicateOfID)
		if err == nil {
			result, aerr := ExtractAbsorption(item.DuplicationStatus, item.Content, dupDoc.Content)
			if aerr != nil {
				return nil, aerr
			}
			publishContent = result.Content
			provenance = domain.ProvenanceCurationAbsorption
			absorbed = true
		} else if !errors.Is(err, domain.ErrDocumentNotFound) {
			return nil, err
		}
	}

	publishHash := item.ContentHash
	publishNormalized := item.NormalizedContent
	if absorbed {
		publishNormalized = content.Normalize(publishContent)
		publishHash = content.Hash(publishContent)
		// The extracted remainder can itself collide with existing content.
		if doc, err := s.documents.FindByHash(ctx, input.TenantID, publishHash); err == nil {
			return nil, domain.NewDuplicateContentError(doc.ID, doc.Title, false, item.SimilarityScore)
		} else if !errors.Is(err, domain.ErrDocumentNotFound) {
			return nil, err
		}
	}

	// Stage 3: resolve the target namespace, falling back to the tenant's
	// default when nothing suggested resolves.
	ns, err := s.resolveNamespace(ctx, input.TenantID, input.Namespace, item.SuggestedNamespaces)
	if err != nil {
		return nil, err
	}

	// Stage 4: materialize pending binary attachments before publication.
	if s.materializer != nil {
		if err := s.materializer.MaterializeForItem(ctx, item.ID); err != nil {
			return nil, err
		}
	}

	// Stages 5-8: publish, index, record training copy, flip item state.
	now := time.Now().UTC()
	doc := &domain.Document{
		ID:          s.uuidGen.NewString(),
		TenantID:    input.TenantID,
		NamespaceID: ns.ID,
		Title:       item.Title,
		Content:     publishContent,
		ContentHash: publishHash,
		Status:      domain.DocumentStatusIndexed,
		Provenance:  provenance,
		CreatedAt:   now,
	}
	if absorbed {
		doc.AbsorbedFromID = item.ID
	} else {
		// Reuse the scan's cached embedding; absorption invalidates it.
		doc.Embedding = item.Embedding
	}

	if err := domain.ValidateDocument(doc); err != nil {
		return nil, err
	}

	err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if absorbed {
			if err := repos.Items().UpdateContentForAbsorption(ctx, input.TenantID, item.ID, publishContent, publishNormalized, publishHash); err != nil {
				return err
			}
		}
		if err := repos.Documents().Create(ctx, doc); err != nil {
			return err
		}
		if err := repos.SearchIndex().IndexDocument(ctx, doc.ID, doc.Content, map[string]string{
			"namespace": ns.Name,
			"title":     doc.Title,
		}); err != nil {
			return err
		}
		// Fail-closed: a lost training record is worse than a failed
		// approval the reviewer can retry.
		if err := repos.Training().Create(ctx, s.uuidGen.NewString(), input.TenantID, doc.ID, item.ID, doc.Content, provenance); err != nil {
			return err
		}
		return repos.Items().MarkApproved(ctx, input.TenantID, item.ID, input.ReviewedBy, doc.ID, now)
	})
	if err != nil {
		if errors.Is(err, domain.ErrDocumentAlreadyExists) {
			// A concurrent approval or promotion run published the same
			// content between our re-verification and the insert.
			if existing, ferr := s.documents.FindByHash(ctx, input.TenantID, publishHash); ferr == nil {
				return nil, domain.NewDuplicateContentError(existing.ID, existing.Title, false, item.SimilarityScore)
			}
			return nil, domain.NewDuplicateContentError("", item.Title, false, item.SimilarityScore)
		}
		return nil, err
	}

	return doc, nil
}

// Reject moves a pending item to rejected and stamps the retention deadline
// at exactly thirty days from the review timestamp. Attachment cleanup is
// best-effort: rejected items were never published, so their stored objects
// are unreferenced by definition.
func (s *CurationService) Reject(ctx context.Context, input RejectInput) error {
	ctx, span := telemetry.StartSpan(ctx, "CurationService.Reject", telemetry.SpanAttributes{
		TenantID:  input.TenantID,
		ItemID:    input.ItemID,
		Operation: "reject",
	})
	defer span.End()

	item, err := s.items.GetByID(ctx, input.TenantID, input.ItemID)
	if err != nil {
		return err
	}
	if !item.CanTransition(domain.CurationStatusRejected) {
		return domain.ErrItemNotPending
	}

	now := time.Now().UTC()
	expiresAt := now.Add(domain.RejectedRetention)
	if err := s.items.MarkRejected(ctx, input.TenantID, input.ItemID, input.ReviewedBy, input.Note, now, expiresAt); err != nil {
		return err
	}

	if s.materializer != nil {
		if err := s.materializer.CleanupForItem(ctx, input.ItemID); err != nil {
			log.Printf("attachment cleanup failed for item %s: %v", input.ItemID, err)
		}
	}

	return nil
}

// BulkItemError reports one item's failure within a bulk operation.
type BulkItemError struct {
	ItemID  string
	Message string
}

// BulkResult reports per-item outcomes of a bulk approve/reject.
type BulkResult struct {
	Processed  int
	Succeeded  int
	Duplicates int
	Failed     int
	Errors     []BulkItemError
}

// BulkApprove applies Approve to each id independently. One item's failure
// never aborts the batch; duplicates are counted apart from other failures.
func (s *CurationService) BulkApprove(ctx context.Context, tenantID string, ids []string, reviewedBy string) *BulkResult {
	result := &BulkResult{}
	for _, id := range ids {
		result.Processed++
		_, err := s.Approve(ctx, ApproveInput{TenantID: tenantID, ItemID: id, ReviewedBy: reviewedBy})
		if err == nil {
			result.Succeeded++
			continue
		}
		var dup *domain.DuplicateContentError
		if errors.As(err, &dup) {
			result.Duplicates++
		} else {
			result.Failed++
		}
		result.Errors = append(result.Errors, BulkItemError{ItemID: id, Message: err.Error()})
	}
	return result
}

// BulkReject applies Reject to each id independently.
func (s *CurationService) BulkReject(ctx context.Context, tenantID string, ids []string, reviewedBy, note string) *BulkResult {
	result := &BulkResult{}
	for _, id := range ids {
		result.Processed++
		if err := s.Reject(ctx, RejectInput{TenantID: tenantID, ItemID: id, ReviewedBy: reviewedBy, Note: note}); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, BulkItemError{ItemID: id, Message: err.Error()})
			continue
		}
		result.Succeeded++
	}
	return result
}

// ApproveAll approves every currently pending item for the tenant.
func (s *CurationService) ApproveAll(ctx context.Context, tenantID, reviewedBy string) (*BulkResult, error) {
	ids, err := s.collectPendingIDs(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s.BulkApprove(ctx, tenantID, ids, reviewedBy), nil
}

// RejectAll rejects every currently pending item for the tenant.
func (s *CurationService) RejectAll(ctx context.Context, tenantID, reviewedBy, note string) (*BulkResult, error) {
	ids, err := s.collectPendingIDs(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s.BulkReject(ctx, tenantID, ids, reviewedBy, note), nil
}

func (s *CurationService) collectPendingIDs(ctx context.Context, tenantID string) ([]string, error) {
	var ids []string
	var cursor string
	for {
		page, err := s.ListPending(ctx, ListItemsInput{TenantID: tenantID, Cursor: cursor, Limit: 100})
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			ids = append(ids, item.ID)
		}
		if !page.HasMore {
			return ids, nil
		}
		cursor = page.Cursor
	}
}

// resolveNamespace walks the override and suggested names in order, returning
// the first namespace that exists for the tenant. When none resolve the
// tenant's default namespace is used, created on first need.
func (s *CurationService) resolveNamespace(ctx context.Context, tenantID, override string, suggested []string) (*domain.Namespace, error) {
	names := suggested
	if override != "" {
		names = append([]string{override}, suggested...)
	}

	for _, name := range names {
		ns, err := s.namespaces.GetByName(ctx, tenantID, name)
		if err == nil {
			return ns, nil
		}
		if !errors.Is(err, domain.ErrNamespaceNotFound) {
			return nil, err
		}
	}

	ns, err := s.namespaces.GetByName(ctx, tenantID, domain.DefaultNamespace)
	if err == nil {
		return ns, nil
	}
	if !errors.Is(err, domain.ErrNamespaceNotFound) {
		return nil, err
	}

	ns = domain.NewNamespace(s.uuidGen.NewString(), tenantID, domain.DefaultNamespace, time.Now().UTC())
	if err := s.namespaces.Create(ctx, ns); err != nil {
		return nil, err
	}
	return ns, nil
}

// resolveDuplicateRef looks up the title and pending state of whatever a
// duplicateOfId points at: a document first, then a queue item.
func (s *CurationService) resolveDuplicateRef(ctx context.Context, tenantID, duplicateOfID string) (string, bool) {
	if duplicateOfID == "" {
		return "", false
	}
	if doc, err := s.documents.GetByID(ctx, tenantID, duplicateOfID); err == nil {
		return doc.Title, false
	}
	if other, err := s.items.GetByID(ctx, tenantID, duplicateOfID); err == nil {
		return other.Title, other.Status == domain.CurationStatusPending
	}
	return "", false
}

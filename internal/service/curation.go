package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/kbforge/curatex/internal/content"
	"github.com/kbforge/curatex/internal/domain"
	"github.com/kbforge/curatex/internal/pagination"
	"github.com/kbforge/curatex/internal/telemetry"
)

// CurationRepositoryInterface defines the repository interface for queue item persistence
type CurationRepositoryInterface interface {
	Create(ctx context.Context, item *domain.CurationItem) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.CurationItem, error)
	FindActiveByHash(ctx context.Context, tenantID, hash string) (*domain.CurationItem, error)
	UpdateContent(ctx context.Context, item *domain.CurationItem) error
	UpdateClassification(ctx context.Context, tenantID, id string, status domain.DuplicationStatus, score float64, duplicateOfID string, embedding []float32) error
	MarkApproved(ctx context.Context, tenantID, id, reviewedBy, publishedID string, at time.Time) error
	MarkRejected(ctx context.Context, tenantID, id, reviewedBy, note string, at, expiresAt time.Time) error
	SetPublished(ctx context.Context, tenantID, id, publishedID string) error
	UpdateContentForAbsorption(ctx context.Context, tenantID, id, content, normalized, hash string) error
	ListPending(ctx context.Context, tenantID string, cursor *pagination.Cursor, limit int) (*CurationPageResult, error)
	ListHistory(ctx context.Context, tenantID string, cursor *pagination.Cursor, limit int) (*CurationPageResult, error)
	ListUnclassified(ctx context.Context, limit int) ([]*domain.CurationItem, error)
	ListEmbeddedPending(ctx context.Context, tenantID, excludeID string, limit int) ([]*EmbeddingCandidate, error)
	ListApprovedUnpublished(ctx context.Context, limit int) ([]*domain.CurationItem, error)
	DeleteExpiredRejected(ctx context.Context, now time.Time) (int64, error)
	DeleteHistoryOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// DocumentRepositoryInterface defines the repository interface for document persistence
type DocumentRepositoryInterface interface {
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.Document, error)
	FindByHash(ctx context.Context, tenantID, hash string) (*domain.Document, error)
	ListEmbedded(ctx context.Context, tenantID string, limit int) ([]*EmbeddingCandidate, error)
	UpdateEmbedding(ctx context.Context, tenantID, id string, embedding []float32) error
}

// NamespaceRepositoryInterface defines the repository interface for namespace resolution
type NamespaceRepositoryInterface interface {
	Create(ctx context.Context, n *domain.Namespace) error
	GetByName(ctx context.Context, tenantID, name string) (*domain.Namespace, error)
}

// AttachmentRepositoryInterface defines the repository interface for attachment persistence
type AttachmentRepositoryInterface interface {
	Create(ctx context.Context, a *domain.Attachment) error
	ListByItem(ctx context.Context, itemID string) ([]*domain.Attachment, error)
	MarkMaterialized(ctx context.Context, id, storageKey, mimeType, sha256 string) error
	DeleteByItem(ctx context.Context, itemID string) error
}

// TrainingExampleRepositoryInterface records approved content for training.
// Approval treats a failed write here as fatal to the whole operation.
type TrainingExampleRepositoryInterface interface {
	Create(ctx context.Context, id, tenantID, documentID, itemID, content string, provenance domain.Provenance) error
}

// SearchIndexRepositoryInterface defines the retrieval index consumed at publish time
type SearchIndexRepositoryInterface interface {
	IndexDocument(ctx context.Context, documentID, content string, meta map[string]string) error
}

// CurationPageResult is one page of queue items plus cursor state.
type CurationPageResult = pagination.PageResult[*domain.CurationItem]

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// ItemScanner classifies a single pending item against existing content.
// Implemented by ScanService; used for the intake kick-off scan and for
// approval-time re-verification of stale flags.
type ItemScanner interface {
	ScanItem(ctx context.Context, item *domain.CurationItem) (*ScanOutcome, error)
}

// AttachmentMaterializer moves inline attachment payloads to object storage.
type AttachmentMaterializer interface {
	MaterializeForItem(ctx context.Context, itemID string) error
	CleanupForItem(ctx context.Context, itemID string) error
}

// CurationService drives the curation queue from intake to terminal state.
type CurationService struct {
	items        CurationRepositoryInterface
	documents    DocumentRepositoryInterface
	namespaces   NamespaceRepositoryInterface
	attachments  AttachmentRepositoryInterface
	txRunner     TxRunner
	scanner      ItemScanner            // nil disables intake kick-off and approval re-verification
	materializer AttachmentMaterializer // nil disables attachment handling
	uuidGen      UUIDGenerator
}

// NewCurationService creates a new CurationService instance
func NewCurationService(
	items CurationRepositoryInterface,
	documents DocumentRepositoryInterface,
	namespaces NamespaceRepositoryInterface,
	attachments AttachmentRepositoryInterface,
	txRunner TxRunner,
	scanner ItemScanner,
	materializer AttachmentMaterializer,
) *CurationService {
	return &CurationService{
		items:        items,
		documents:    documents,
		namespaces:   namespaces,
		attachments:  attachments,
		txRunner:     txRunner,
		scanner:      scanner,
		materializer: materializer,
		uuidGen:      &DefaultUUIDGenerator{},
	}
}

// NewCurationServiceWithUUIDGen creates a new CurationService with custom UUID generator (for testing)
func NewCurationServiceWithUUIDGen(
	items CurationRepositoryInterface,
	documents DocumentRepositoryInterface,
	namespaces NamespaceRepositoryInterface,
	attachments AttachmentRepositoryInterface,
	txRunner TxRunner,
	scanner ItemScanner,
	materializer AttachmentMaterializer,
	uuidGen UUIDGenerator,
) *CurationService {
	s := NewCurationService(items, documents, namespaces, attachments, txRunner, scanner, materializer)
	s.uuidGen = uuidGen
	return s
}

// AttachmentInput carries one attachment of a submission.
type AttachmentInput struct {
	Kind       domain.AttachmentKind
	Filename   string
	InlineData []byte
	SourceURL  string
}

// AddInput represents the input for submitting content to the queue
type AddInput struct {
	TenantID            string
	Title               string
	Content             string
	SuggestedNamespaces []string
	Tags                []string
	SubmittedBy         string
	Attachments         []AttachmentInput
}

// EditInput represents the input for editing a pending item
type EditInput struct {
	TenantID            string
	ItemID              string
	Title               string
	Content             string
	SuggestedNamespaces []string
	Tags                []string
	ReviewNote          string
}

type ListItemsInput struct {
	TenantID string
	Cursor   string
	Limit    int
}

type ListItemsOutput struct {
	Items   []*domain.CurationItem
	Cursor  string
	HasMore bool
}

// Add normalizes and hashes the submission, runs the synchronous duplicate
// gate, and persists the item as pending. Exact duplicates never enter the
// queue: the caller receives a DuplicateContentError describing the conflict.
func (s *CurationService) Add(ctx context.Context, input AddInput) (*domain.CurationItem, error) {
	ctx, span := telemetry.StartSpan(ctx, "CurationService.Add", telemetry.SpanAttributes{
		TenantID:  input.TenantID,
		Operation: "add",
	})
	defer span.End()

	if input.TenantID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "tenant ID is required")
	}
	if input.Content == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "content is required")
	}

	normalized := content.Normalize(input.Content)
	hash := content.Hash(input.Content)

	if err := s.checkHashDuplicate(ctx, input.TenantID, hash, ""); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	item := &domain.CurationItem{
		ID:                  s.uuidGen.NewString(),
		TenantID:            input.TenantID,
		Title:               input.Title,
		Content:             input.Content,
		NormalizedContent:   normalized,
		ContentHash:         hash,
		DuplicationStatus:   domain.DuplicationStatusUnset,
		Status:              domain.CurationStatusPending,
		SubmittedBy:         input.SubmittedBy,
		SubmittedAt:         now,
		StatusChangedAt:     now,
		SuggestedNamespaces: input.SuggestedNamespaces,
		Tags:                input.Tags,
	}

	if err := domain.ValidateCurationItem(item); err != nil {
		return nil, err
	}

	if err := s.items.Create(ctx, item); err != nil {
		// Two identical submissions can race past the gate; the unique
		// constraint is the backstop and its violation means "duplicate",
		// never a fatal error.
		if errors.Is(err, domain.ErrItemAlreadyExists) {
			if dupErr := s.checkHashDuplicate(ctx, input.TenantID, hash, ""); dupErr != nil {
				return nil, dupErr
			}
		}
		return nil, err
	}

	for i := range input.Attachments {
		in := input.Attachments[i]
		att := &domain.Attachment{
			ID:         s.uuidGen.NewString(),
			ItemID:     item.ID,
			Kind:       in.Kind,
			Filename:   in.Filename,
			InlineData: in.InlineData,
			SourceURL:  in.SourceURL,
			CreatedAt:  now,
		}
		if err := domain.ValidateAttachment(att); err != nil {
			return nil, err
		}
		if err := s.attachments.Create(ctx, att); err != nil {
			return nil, err
		}
		item.Attachments = append(item.Attachments, *att)
	}

	// Kick off an early semantic scan so the reviewer usually sees a
	// classification before opening the item. Best-effort: the background
	// scanner picks up anything this misses.
	if s.scanner != nil {
		scanItem := *item
		scanCtx := context.WithoutCancel(ctx)
		go func() {
			if _, err := s.scanner.ScanItem(scanCtx, &scanItem); err != nil {
				log.Printf("Auto scan failed for item %s: %v", scanItem.ID, err)
			}
		}()
	}

	return item, nil
}

// Edit mutates a pending item. When the content changes, hash and normalized
// cache are recomputed, the duplicate gate re-runs, and any stale semantic
// classification is discarded.
func (s *CurationService) Edit(ctx context.Context, input EditInput) (*domain.CurationItem, error) {
	ctx, span := telemetry.StartSpan(ctx, "CurationService.Edit", telemetry.SpanAttributes{
		TenantID:  input.TenantID,
		ItemID:    input.ItemID,
		Operation: "edit",
	})
	defer span.End()

	item, err := s.items.GetByID(ctx, input.TenantID, input.ItemID)
	if err != nil {
		return nil, err
	}
	if item.Status != domain.CurationStatusPending {
		return nil, domain.ErrItemNotPending
	}

	if input.Content != "" && input.Content != item.Content {
		hash := content.Hash(input.Content)
		if err := s.checkHashDuplicate(ctx, input.TenantID, hash, item.ID); err != nil {
			return nil, err
		}
		item.Content = input.Content
		item.NormalizedContent = content.Normalize(input.Content)
		item.ContentHash = hash
		item.DuplicationStatus = domain.DuplicationStatusUnset
		item.SimilarityScore = 0
		item.DuplicateOfID = ""
		item.Embedding = nil
	}

	if input.Title != "" {
		item.Title = input.Title
	}
	if input.SuggestedNamespaces != nil {
		item.SuggestedNamespaces = input.SuggestedNamespaces
	}
	if input.Tags != nil {
		item.Tags = input.Tags
	}
	if input.ReviewNote != "" {
		item.ReviewNote = input.ReviewNote
	}

	if err := s.items.UpdateContent(ctx, item); err != nil {
		return nil, err
	}

	return item, nil
}

// GetByID retrieves a queue item by ID within a tenant scope
func (s *CurationService) GetByID(ctx context.Context, tenantID, id string) (*domain.CurationItem, error) {
	item, err := s.items.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	attachments, err := s.attachments.ListByItem(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, a := range attachments {
		item.Attachments = append(item.Attachments, *a)
	}
	return item, nil
}

// ListPending retrieves pending items for review, newest status change first
func (s *CurationService) ListPending(ctx context.Context, input ListItemsInput) (*ListItemsOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "CurationService.ListPending", telemetry.SpanAttributes{
		TenantID:  input.TenantID,
		Operation: "list",
	})
	defer span.End()

	cursor, _ := pagination.DecodeCursor(input.Cursor)
	result, err := s.items.ListPending(ctx, input.TenantID, cursor, input.Limit)
	if err != nil {
		return nil, err
	}
	return &ListItemsOutput{Items: result.Items, Cursor: result.Cursor, HasMore: result.HasMore}, nil
}

// ListHistory retrieves approved/rejected items within the retention window
func (s *CurationService) ListHistory(ctx context.Context, input ListItemsInput) (*ListItemsOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "CurationService.ListHistory", telemetry.SpanAttributes{
		TenantID:  input.TenantID,
		Operation: "history",
	})
	defer span.End()

	cursor, _ := pagination.DecodeCursor(input.Cursor)
	result, err := s.items.ListHistory(ctx, input.TenantID, cursor, input.Limit)
	if err != nil {
		return nil, err
	}
	return &ListItemsOutput{Items: result.Items, Cursor: result.Cursor, HasMore: result.HasMore}, nil
}

// checkHashDuplicate is the tier-1 gate: an O(1) hash lookup against indexed
// documents and active queue items. excludeID lets Edit skip the item itself.
func (s *CurationService) checkHashDuplicate(ctx context.Context, tenantID, hash, excludeID string) error {
	doc, err := s.documents.FindByHash(ctx, tenantID, hash)
	if err == nil {
		return domain.NewDuplicateContentError(doc.ID, doc.Title, false, 0)
	}
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		return err
	}

	existing, err := s.items.FindActiveByHash(ctx, tenantID, hash)
	if err == nil {
		if existing.ID == excludeID {
			return nil
		}
		return domain.NewDuplicateContentError(existing.ID, existing.Title, existing.Status == domain.CurationStatusPending, 0)
	}
	if !errors.Is(err, domain.ErrItemNotFound) {
		return err
	}

	return nil
}

package service

import (
	"context"
	"fmt"
	"log"

	"github.com/kbforge/curatex/internal/content"
	"github.com/kbforge/curatex/internal/domain"
	"github.com/kbforge/curatex/internal/similarity"
	"github.com/kbforge/curatex/internal/telemetry"
)

const (
	// MinScanLength is the shortest normalized text worth embedding; anything
	// shorter classifies as unique without a provider call.
	MinScanLength = 5

	// ComparisonSampleBound caps the candidate set per scan. A deliberate
	// accuracy/cost trade-off: the scan finds the best match within the
	// sample, not a global best.
	ComparisonSampleBound = 100
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// CandidateSource identifies which store an embedding candidate came from.
type CandidateSource string

const (
	CandidateSourceQueue    CandidateSource = "queue"
	CandidateSourceDocument CandidateSource = "document"
)

// EmbeddingCandidate is one comparison target for the semantic scan.
type EmbeddingCandidate struct {
	ID        string
	Title     string
	Embedding []float32
	Source    CandidateSource
}

// ScanOutcome reports the classification of one scanned item.
type ScanOutcome struct {
	Status        domain.DuplicationStatus
	Score         float64
	DuplicateOfID string
	Title         string
	Source        CandidateSource
	Degraded      bool // provider failure forced a default-unique classification
}

// ScanService is the tier-2 semantic duplicate scanner. It embeds pending
// items and compares them against a bounded sample of existing content,
// classifying each as exact, near, or unique.
type ScanService struct {
	client    EmbeddingClient
	items     CurationRepositoryInterface
	documents DocumentRepositoryInterface
	batchSize int
}

// NewScanService creates a new ScanService instance
func NewScanService(client EmbeddingClient, items CurationRepositoryInterface, documents DocumentRepositoryInterface, batchSize int) *ScanService {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &ScanService{
		client:    client,
		items:     items,
		documents: documents,
		batchSize: batchSize,
	}
}

// ProcessJobs scans one batch of unclassified pending items. Called by the
// background worker on every tick. A single item's scan failure is logged and
// does not abort the batch.
func (s *ScanService) ProcessJobs(ctx context.Context) error {
	items, err := s.items.ListUnclassified(ctx, s.batchSize)
	if err != nil {
		return fmt.Errorf("failed to list unclassified items: %w", err)
	}

	for _, item := range items {
		if _, err := s.ScanItem(ctx, item); err != nil {
			log.Printf("Semantic scan failed for item %s: %v", item.ID, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	return nil
}

// ScanItem classifies a single item and persists the outcome, including the
// computed embedding so it is never regenerated for unchanged content.
func (s *ScanService) ScanItem(ctx context.Context, item *domain.CurationItem) (*ScanOutcome, error) {
	ctx, span := telemetry.StartSpan(ctx, "ScanService.ScanItem", telemetry.SpanAttributes{
		TenantID:  item.TenantID,
		ItemID:    item.ID,
		Operation: "scan",
	})
	defer span.End()

	normalized := item.NormalizedContent
	if normalized == "" {
		normalized = content.Normalize(item.Content)
	}

	// Too short for a meaningful embedding comparison.
	if len(normalized) < MinScanLength {
		outcome := &ScanOutcome{Status: domain.DuplicationStatusUnique}
		return outcome, s.persist(ctx, item, outcome, nil)
	}

	embedding := item.Embedding
	if len(embedding) == 0 {
		var err error
		embedding, err = s.client.GenerateEmbedding(ctx, normalized)
		if err != nil {
			// Provider failures degrade to unique rather than blocking the
			// pipeline; approval re-verifies against the hash index anyway.
			log.Printf("Embedding generation failed for item %s, classifying unique: %v", item.ID, err)
			outcome := &ScanOutcome{Status: domain.DuplicationStatusUnique, Degraded: true}
			return outcome, s.persist(ctx, item, outcome, nil)
		}
	}

	candidates, err := s.gatherCandidates(ctx, item)
	if err != nil {
		return nil, err
	}

	outcome := &ScanOutcome{Status: domain.DuplicationStatusUnique}
	for _, candidate := range candidates {
		score, err := similarity.Cosine(embedding, candidate.Embedding)
		if err != nil {
			// Dimension mismatch is a data error, not a transient condition.
			return nil, fmt.Errorf("comparing item %s against %s %s: %w", item.ID, candidate.Source, candidate.ID, err)
		}
		if score > outcome.Score {
			outcome.Score = score
			outcome.DuplicateOfID = candidate.ID
			outcome.Title = candidate.Title
			outcome.Source = candidate.Source
		}
	}

	outcome.Status = similarity.Classify(outcome.Score)
	if outcome.Status == domain.DuplicationStatusUnique {
		outcome.DuplicateOfID = ""
		outcome.Title = ""
		outcome.Source = ""
	}

	return outcome, s.persist(ctx, item, outcome, embedding)
}

func (s *ScanService) persist(ctx context.Context, item *domain.CurationItem, outcome *ScanOutcome, embedding []float32) error {
	if err := s.items.UpdateClassification(ctx, item.TenantID, item.ID, outcome.Status, outcome.Score, outcome.DuplicateOfID, embedding); err != nil {
		return fmt.Errorf("failed to persist classification: %w", err)
	}
	item.DuplicationStatus = outcome.Status
	item.SimilarityScore = outcome.Score
	item.DuplicateOfID = outcome.DuplicateOfID
	item.Embedding = embedding
	return nil
}

// gatherCandidates assembles the comparison set: indexed documents first,
// then other pending items that already carry a cached embedding, together
// bounded by ComparisonSampleBound.
func (s *ScanService) gatherCandidates(ctx context.Context, item *domain.CurationItem) ([]*EmbeddingCandidate, error) {
	docs, err := s.documents.ListEmbedded(ctx, item.TenantID, ComparisonSampleBound)
	if err != nil {
		return nil, fmt.Errorf("failed to list document candidates: %w", err)
	}

	remaining := ComparisonSampleBound - len(docs)
	if remaining <= 0 {
		return docs, nil
	}

	pending, err := s.items.ListEmbeddedPending(ctx, item.TenantID, item.ID, remaining)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue candidates: %w", err)
	}

	return append(docs, pending...), nil
}

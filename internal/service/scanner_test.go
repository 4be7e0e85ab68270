package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kbforge/curatex/internal/content"
	"github.com/kbforge/curatex/internal/domain"
)

func unscannedItem(raw string) *domain.CurationItem {
	return &domain.CurationItem{
		ID:                "item-1",
		TenantID:          "tenant-1",
		Title:             "Candidate",
		Content:           raw,
		NormalizedContent: content.Normalize(raw),
		ContentHash:       content.Hash(raw),
		DuplicationStatus: domain.DuplicationStatusUnset,
		Status:            domain.CurationStatusPending,
	}
}

func TestScanService_ScanItem(t *testing.T) {
	ctx := context.Background()

	t.Run("short text classifies unique without a provider call", func(t *testing.T) {
		client := new(MockEmbeddingClient)
		items := new(MockCurationRepository)
		docs := new(MockDocumentRepository)
		svc := NewScanService(client, items, docs, 10)

		item := unscannedItem("hi")
		items.On("UpdateClassification", mock.Anything, "tenant-1", "item-1",
			domain.DuplicationStatusUnique, 0.0, "", mock.Anything).Return(nil)

		outcome, err := svc.ScanItem(ctx, item)

		require.NoError(t, err)
		assert.Equal(t, domain.DuplicationStatusUnique, outcome.Status)
		client.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, mock.Anything)
	})

	t.Run("provider failure degrades to unique", func(t *testing.T) {
		client := new(MockEmbeddingClient)
		items := new(MockCurationRepository)
		docs := new(MockDocumentRepository)
		svc := NewScanService(client, items, docs, 10)

		item := unscannedItem("long enough content to embed")
		client.On("GenerateEmbedding", mock.Anything, item.NormalizedContent).Return(nil, errors.New("rate limited"))
		items.On("UpdateClassification", mock.Anything, "tenant-1", "item-1",
			domain.DuplicationStatusUnique, 0.0, "", mock.Anything).Return(nil)

		outcome, err := svc.ScanItem(ctx, item)

		require.NoError(t, err)
		assert.Equal(t, domain.DuplicationStatusUnique, outcome.Status)
		assert.True(t, outcome.Degraded)
		docs.AssertNotCalled(t, "ListEmbedded", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("tracks the single best candidate and persists the embedding", func(t *testing.T) {
		client := new(MockEmbeddingClient)
		items := new(MockCurationRepository)
		docs := new(MockDocumentRepository)
		svc := NewScanService(client, items, docs, 10)

		item := unscannedItem("a paraphrase of the runbook")
		embedding := []float32{1, 0}
		client.On("GenerateEmbedding", mock.Anything, item.NormalizedContent).Return(embedding, nil)
		docs.On("ListEmbedded", mock.Anything, "tenant-1", ComparisonSampleBound).Return([]*EmbeddingCandidate{
			{ID: "doc-far", Title: "Unrelated", Embedding: []float32{0, 1}, Source: CandidateSourceDocument},
			{ID: "doc-close", Title: "Runbook", Embedding: []float32{0.95, 0.3122}, Source: CandidateSourceDocument},
		}, nil)
		items.On("ListEmbeddedPending", mock.Anything, "tenant-1", "item-1", ComparisonSampleBound-2).
			Return([]*EmbeddingCandidate{}, nil)
		items.On("UpdateClassification", mock.Anything, "tenant-1", "item-1",
			domain.DuplicationStatusNear, mock.AnythingOfType("float64"), "doc-close", embedding).Return(nil)

		outcome, err := svc.ScanItem(ctx, item)

		require.NoError(t, err)
		assert.Equal(t, domain.DuplicationStatusNear, outcome.Status)
		assert.Equal(t, "doc-close", outcome.DuplicateOfID)
		assert.Equal(t, CandidateSourceDocument, outcome.Source)
		assert.InDelta(t, 0.95, outcome.Score, 0.01)
		items.AssertExpectations(t)
	})

	t.Run("identical embedding classifies exact", func(t *testing.T) {
		client := new(MockEmbeddingClient)
		items := new(MockCurationRepository)
		docs := new(MockDocumentRepository)
		svc := NewScanService(client, items, docs, 10)

		item := unscannedItem("the same content phrased identically")
		embedding := []float32{0.6, 0.8}
		client.On("GenerateEmbedding", mock.Anything, item.NormalizedContent).Return(embedding, nil)
		docs.On("ListEmbedded", mock.Anything, "tenant-1", ComparisonSampleBound).Return([]*EmbeddingCandidate{
			{ID: "doc-same", Title: "Twin", Embedding: []float32{0.6, 0.8}, Source: CandidateSourceDocument},
		}, nil)
		items.On("ListEmbeddedPending", mock.Anything, "tenant-1", "item-1", ComparisonSampleBound-1).
			Return([]*EmbeddingCandidate{}, nil)
		items.On("UpdateClassification", mock.Anything, "tenant-1", "item-1",
			domain.DuplicationStatusExact, mock.AnythingOfType("float64"), "doc-same", embedding).Return(nil)

		outcome, err := svc.ScanItem(ctx, item)

		require.NoError(t, err)
		assert.Equal(t, domain.DuplicationStatusExact, outcome.Status)
	})

	t.Run("no candidates classifies unique", func(t *testing.T) {
		client := new(MockEmbeddingClient)
		items := new(MockCurationRepository)
		docs := new(MockDocumentRepository)
		svc := NewScanService(client, items, docs, 10)

		item := unscannedItem("fresh content nothing resembles")
		embedding := []float32{1, 0}
		client.On("GenerateEmbedding", mock.Anything, item.NormalizedContent).Return(embedding, nil)
		docs.On("ListEmbedded", mock.Anything, "tenant-1", ComparisonSampleBound).Return([]*EmbeddingCandidate{}, nil)
		items.On("ListEmbeddedPending", mock.Anything, "tenant-1", "item-1", ComparisonSampleBound).
			Return([]*EmbeddingCandidate{}, nil)
		items.On("UpdateClassification", mock.Anything, "tenant-1", "item-1",
			domain.DuplicationStatusUnique, 0.0, "", embedding).Return(nil)

		outcome, err := svc.ScanItem(ctx, item)

		require.NoError(t, err)
		assert.Equal(t, domain.DuplicationStatusUnique, outcome.Status)
		assert.Empty(t, outcome.DuplicateOfID)
	})

	t.Run("dimension mismatch is an error, not a classification", func(t *testing.T) {
		client := new(MockEmbeddingClient)
		items := new(MockCurationRepository)
		docs := new(MockDocumentRepository)
		svc := NewScanService(client, items, docs, 10)

		item := unscannedItem("content with a bad candidate vector")
		client.On("GenerateEmbedding", mock.Anything, item.NormalizedContent).Return([]float32{1, 0}, nil)
		docs.On("ListEmbedded", mock.Anything, "tenant-1", ComparisonSampleBound).Return([]*EmbeddingCandidate{
			{ID: "doc-bad", Embedding: []float32{1, 0, 0}, Source: CandidateSourceDocument},
		}, nil)
		items.On("ListEmbeddedPending", mock.Anything, "tenant-1", "item-1", ComparisonSampleBound-1).
			Return([]*EmbeddingCandidate{}, nil)

		_, err := svc.ScanItem(ctx, item)

		require.Error(t, err)
		items.AssertNotCalled(t, "UpdateClassification",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestScanService_ProcessJobs(t *testing.T) {
	ctx := context.Background()

	t.Run("one item's failure does not abort the batch", func(t *testing.T) {
		client := new(MockEmbeddingClient)
		items := new(MockCurationRepository)
		docs := new(MockDocumentRepository)
		svc := NewScanService(client, items, docs, 10)

		first := unscannedItem("first pending item content")
		second := unscannedItem("second pending item content")
		second.ID = "item-2"

		items.On("ListUnclassified", mock.Anything, 10).Return([]*domain.CurationItem{first, second}, nil)

		// Both degrade on provider failure; persistence fails for the first.
		client.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(nil, errors.New("provider down"))
		items.On("UpdateClassification", mock.Anything, "tenant-1", "item-1",
			domain.DuplicationStatusUnique, 0.0, "", mock.Anything).Return(errors.New("db down")).Once()
		items.On("UpdateClassification", mock.Anything, "tenant-1", "item-2",
			domain.DuplicationStatusUnique, 0.0, "", mock.Anything).Return(nil).Once()

		err := svc.ProcessJobs(ctx)

		require.NoError(t, err)
		items.AssertExpectations(t)
	})
}

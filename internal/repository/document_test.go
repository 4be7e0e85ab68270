//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbforge/curatex/internal/domain"
	"github.com/kbforge/curatex/internal/testutil"
)

func seedNamespace(ctx context.Context, t *testing.T, repo *NamespaceRepository, tenantID, name string) *domain.Namespace {
	ns := &domain.Namespace{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Name:      name,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, repo.Create(ctx, ns))
	return ns
}

func newIndexedDocument(tenantID, namespaceID, title, hash string) *domain.Document {
	return &domain.Document{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		NamespaceID: namespaceID,
		Title:       title,
		Content:     "content of " + title,
		ContentHash: hash,
		Status:      domain.DocumentStatusIndexed,
		Provenance:  domain.ProvenanceCurationApproved,
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestDocumentRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	tenantRepo := NewTenantRepository(pool)
	nsRepo := NewNamespaceRepository(pool)
	docRepo := NewDocumentRepository(pool)

	tenant := seedTenant(ctx, t, tenantRepo, "Acme")
	ns := seedNamespace(ctx, t, nsRepo, tenant.ID, "general")

	doc := newIndexedDocument(tenant.ID, ns.ID, "Runbook", "hash-1")
	require.NoError(t, docRepo.Create(ctx, doc))

	retrieved, err := docRepo.GetByID(ctx, tenant.ID, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Title, retrieved.Title)
	assert.Equal(t, domain.DocumentStatusIndexed, retrieved.Status)
	assert.Equal(t, domain.ProvenanceCurationApproved, retrieved.Provenance)
}

func TestDocumentRepository_IndexedHashUnique(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	tenantRepo := NewTenantRepository(pool)
	nsRepo := NewNamespaceRepository(pool)
	docRepo := NewDocumentRepository(pool)

	tenant := seedTenant(ctx, t, tenantRepo, "Acme")
	ns := seedNamespace(ctx, t, nsRepo, tenant.ID, "general")

	first := newIndexedDocument(tenant.ID, ns.ID, "First", "same-hash")
	require.NoError(t, docRepo.Create(ctx, first))

	second := newIndexedDocument(tenant.ID, ns.ID, "Second", "same-hash")
	err := docRepo.Create(ctx, second)
	assert.ErrorIs(t, err, domain.ErrDocumentAlreadyExists)
}

func TestDocumentRepository_FindByHash(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	tenantRepo := NewTenantRepository(pool)
	nsRepo := NewNamespaceRepository(pool)
	docRepo := NewDocumentRepository(pool)

	tenant := seedTenant(ctx, t, tenantRepo, "Acme")
	other := seedTenant(ctx, t, tenantRepo, "Other")
	ns := seedNamespace(ctx, t, nsRepo, tenant.ID, "general")

	doc := newIndexedDocument(tenant.ID, ns.ID, "Mine", "hash-1")
	require.NoError(t, docRepo.Create(ctx, doc))

	found, err := docRepo.FindByHash(ctx, tenant.ID, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, found.ID)

	_, err = docRepo.FindByHash(ctx, other.ID, "hash-1")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestDocumentRepository_EmbeddingRoundTrip(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	tenantRepo := NewTenantRepository(pool)
	nsRepo := NewNamespaceRepository(pool)
	docRepo := NewDocumentRepository(pool)

	tenant := seedTenant(ctx, t, tenantRepo, "Acme")
	ns := seedNamespace(ctx, t, nsRepo, tenant.ID, "general")

	doc := newIndexedDocument(tenant.ID, ns.ID, "Embedded", "hash-1")
	require.NoError(t, docRepo.Create(ctx, doc))

	embedding := make([]float32, 1536)
	embedding[0] = 0.25
	embedding[1535] = -0.5
	require.NoError(t, docRepo.UpdateEmbedding(ctx, tenant.ID, doc.ID, embedding))

	candidates, err := docRepo.ListEmbedded(ctx, tenant.ID, 100)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, doc.ID, candidates[0].ID)
	assert.InDelta(t, 0.25, candidates[0].Embedding[0], 0.0001)
	assert.InDelta(t, -0.5, candidates[0].Embedding[1535], 0.0001)
}

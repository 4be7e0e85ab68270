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
	"github.com/kbforge/curatex/internal/pagination"
	"github.com/kbforge/curatex/internal/testutil"
)

func newPendingItem(tenantID, title, hash string) *domain.CurationItem {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.CurationItem{
		ID:                uuid.NewString(),
		TenantID:          tenantID,
		Title:             title,
		Content:           "content of " + title,
		NormalizedContent: "content of " + title,
		ContentHash:       hash,
		DuplicationStatus: domain.DuplicationStatusUnset,
		Status:            domain.CurationStatusPending,
		SubmittedBy:       "tester",
		SubmittedAt:       now,
		StatusChangedAt:   now,
	}
}

func TestCurationRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	tenantRepo := NewTenantRepository(pool)
	repo := NewCurationRepository(pool)

	tenant := seedTenant(ctx, t, tenantRepo, "Acme")

	item := newPendingItem(tenant.ID, "Runbook", "hash-1")
	item.Tags = []string{"ops", "runbook"}
	require.NoError(t, repo.Create(ctx, item))

	retrieved, err := repo.GetByID(ctx, tenant.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.Title, retrieved.Title)
	assert.Equal(t, domain.CurationStatusPending, retrieved.Status)
	assert.Equal(t, domain.DuplicationStatusUnset, retrieved.DuplicationStatus)
	assert.Equal(t, []string{"ops", "runbook"}, retrieved.Tags)
	assert.Nil(t, retrieved.Embedding)
}

func TestCurationRepository_ActiveHashUnique(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	tenantRepo := NewTenantRepository(pool)
	repo := NewCurationRepository(pool)

	tenant := seedTenant(ctx, t, tenantRepo, "Acme")

	first := newPendingItem(tenant.ID, "First", "same-hash")
	require.NoError(t, repo.Create(ctx, first))

	second := newPendingItem(tenant.ID, "Second", "same-hash")
	err := repo.Create(ctx, second)
	assert.ErrorIs(t, err, domain.ErrItemAlreadyExists)

	// A rejected item with the same hash does not block resubmission.
	expires := time.Now().UTC().Add(domain.RejectedRetention)
	require.NoError(t, repo.MarkRejected(ctx, tenant.ID, first.ID, "reviewer", "", time.Now().UTC(), expires))

	third := newPendingItem(tenant.ID, "Third", "same-hash")
	require.NoError(t, repo.Create(ctx, third))
}

func TestCurationRepository_FindActiveByHash(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	tenantRepo := NewTenantRepository(pool)
	repo := NewCurationRepository(pool)

	tenant := seedTenant(ctx, t, tenantRepo, "Acme")
	other := seedTenant(ctx, t, tenantRepo, "Other")

	item := newPendingItem(tenant.ID, "Mine", "hash-1")
	require.NoError(t, repo.Create(ctx, item))

	found, err := repo.FindActiveByHash(ctx, tenant.ID, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, item.ID, found.ID)

	// Hash lookups are tenant scoped.
	_, err = repo.FindActiveByHash(ctx, other.ID, "hash-1")
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestCurationRepository_MarkApproved(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	tenantRepo := NewTenantRepository(pool)
	repo := NewCurationRepository(pool)

	tenant := seedTenant(ctx, t, tenantRepo, "Acme")

	item := newPendingItem(tenant.ID, "Approve me", "hash-1")
	require.NoError(t, repo.Create(ctx, item))

	docID := uuid.NewString()
	now := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, repo.MarkApproved(ctx, tenant.ID, item.ID, "reviewer", docID, now))

	retrieved, err := repo.GetByID(ctx, tenant.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CurationStatusApproved, retrieved.Status)
	assert.Equal(t, "reviewer", retrieved.ReviewedBy)
	assert.Equal(t, docID, retrieved.PublishedID)

	// Terminal states stay terminal.
	err = repo.MarkApproved(ctx, tenant.ID, item.ID, "reviewer", docID, now)
	assert.ErrorIs(t, err, domain.ErrItemNotPending)
}

func TestCurationRepository_UpdateClassification(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	tenantRepo := NewTenantRepository(pool)
	repo := NewCurationRepository(pool)

	tenant := seedTenant(ctx, t, tenantRepo, "Acme")

	item := newPendingItem(tenant.ID, "Scan me", "hash-1")
	require.NoError(t, repo.Create(ctx, item))

	embedding := make([]float32, 1536)
	embedding[0] = 0.5
	require.NoError(t, repo.UpdateClassification(ctx, tenant.ID, item.ID, domain.DuplicationStatusNear, 0.91, "doc-1", embedding))

	retrieved, err := repo.GetByID(ctx, tenant.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DuplicationStatusNear, retrieved.DuplicationStatus)
	assert.InDelta(t, 0.91, retrieved.SimilarityScore, 0.0001)
	assert.Equal(t, "doc-1", retrieved.DuplicateOfID)
	assert.InDelta(t, 0.5, retrieved.Embedding[0], 0.0001)
}

func TestCurationRepository_ListUnclassified(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	tenantRepo := NewTenantRepository(pool)
	repo := NewCurationRepository(pool)

	tenant := seedTenant(ctx, t, tenantRepo, "Acme")

	unscanned := newPendingItem(tenant.ID, "Unscanned", "hash-1")
	require.NoError(t, repo.Create(ctx, unscanned))

	scanned := newPendingItem(tenant.ID, "Scanned", "hash-2")
	scanned.DuplicationStatus = domain.DuplicationStatusUnique
	require.NoError(t, repo.Create(ctx, scanned))

	items, err := repo.ListUnclassified(ctx, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, unscanned.ID, items[0].ID)
}

func TestCurationRepository_ListPending_Pagination(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	tenantRepo := NewTenantRepository(pool)
	repo := NewCurationRepository(pool)

	tenant := seedTenant(ctx, t, tenantRepo, "Acme")

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i := 0; i < 5; i++ {
		item := newPendingItem(tenant.ID, "Item", uuid.NewString())
		item.StatusChangedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, repo.Create(ctx, item))
	}

	page1, err := repo.ListPending(ctx, tenant.ID, nil, 3)
	require.NoError(t, err)
	assert.Len(t, page1.Items, 3)
	assert.True(t, page1.HasMore)
	require.NotEmpty(t, page1.Cursor)

	cursor, err := pagination.DecodeCursor(page1.Cursor)
	require.NoError(t, err)

	page2, err := repo.ListPending(ctx, tenant.ID, cursor, 3)
	require.NoError(t, err)
	assert.Len(t, page2.Items, 2)
	assert.False(t, page2.HasMore)
	assert.Empty(t, page2.Cursor)

	// Newest first, no overlap across pages.
	seen := map[string]bool{}
	for _, item := range append(page1.Items, page2.Items...) {
		assert.False(t, seen[item.ID])
		seen[item.ID] = true
	}
}

func TestCurationRepository_PromotionListAndSetPublished(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	tenantRepo := NewTenantRepository(pool)
	repo := NewCurationRepository(pool)

	tenant := seedTenant(ctx, t, tenantRepo, "Acme")

	item := newPendingItem(tenant.ID, "Stranded", "hash-1")
	require.NoError(t, repo.Create(ctx, item))

	// Approve without recording a published document, simulating an
	// interrupted inline publish.
	_, err := pool.Exec(ctx,
		`UPDATE curation_items SET status = 'approved', published_id = NULL WHERE id = $1`, item.ID)
	require.NoError(t, err)

	stranded, err := repo.ListApprovedUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, stranded, 1)
	assert.Equal(t, item.ID, stranded[0].ID)

	docID := uuid.NewString()
	require.NoError(t, repo.SetPublished(ctx, tenant.ID, item.ID, docID))

	stranded, err = repo.ListApprovedUnpublished(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, stranded)

	// Setting twice fails the NULL guard.
	err = repo.SetPublished(ctx, tenant.ID, item.ID, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestCurationRepository_RetentionSweeps(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	tenantRepo := NewTenantRepository(pool)
	repo := NewCurationRepository(pool)

	tenant := seedTenant(ctx, t, tenantRepo, "Acme")
	now := time.Now().UTC().Truncate(time.Microsecond)

	expired := newPendingItem(tenant.ID, "Expired rejection", "hash-1")
	require.NoError(t, repo.Create(ctx, expired))
	require.NoError(t, repo.MarkRejected(ctx, tenant.ID, expired.ID, "reviewer", "", now.Add(-31*24*time.Hour), now.Add(-24*time.Hour)))

	fresh := newPendingItem(tenant.ID, "Fresh rejection", "hash-2")
	require.NoError(t, repo.Create(ctx, fresh))
	require.NoError(t, repo.MarkRejected(ctx, tenant.ID, fresh.ID, "reviewer", "", now, now.Add(domain.RejectedRetention)))

	deleted, err := repo.DeleteExpiredRejected(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.GetByID(ctx, tenant.ID, expired.ID)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
	_, err = repo.GetByID(ctx, tenant.ID, fresh.ID)
	assert.NoError(t, err)

	// History sweep removes terminal items past the cutoff, never pending ones.
	ancient := newPendingItem(tenant.ID, "Ancient", "hash-3")
	require.NoError(t, repo.Create(ctx, ancient))
	_, err = pool.Exec(ctx,
		`UPDATE curation_items SET status = 'approved', status_changed_at = $1 WHERE id = $2`,
		now.Add(-6*365*24*time.Hour), ancient.ID)
	require.NoError(t, err)

	pending := newPendingItem(tenant.ID, "Old but pending", "hash-4")
	require.NoError(t, repo.Create(ctx, pending))
	_, err = pool.Exec(ctx,
		`UPDATE curation_items SET status_changed_at = $1 WHERE id = $2`,
		now.Add(-6*365*24*time.Hour), pending.ID)
	require.NoError(t, err)

	deleted, err = repo.DeleteHistoryOlderThan(ctx, now.Add(-domain.HistoryRetention))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.GetByID(ctx, tenant.ID, pending.ID)
	assert.NoError(t, err)
}

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

func seedTenant(ctx context.Context, t *testing.T, repo *TenantRepository, name string) *domain.Tenant {
	tenant := &domain.Tenant{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, repo.Create(ctx, tenant))
	return tenant
}

func TestTenantRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewTenantRepository(pool)
	tenant := seedTenant(ctx, t, repo, "Acme")

	retrieved, err := repo.GetByID(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, retrieved.ID)
	assert.Equal(t, "Acme", retrieved.Name)

	byName, err := repo.GetByName(ctx, "Acme")
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, byName.ID)
}

func TestTenantRepository_Create_DuplicateName(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewTenantRepository(pool)
	seedTenant(ctx, t, repo, "Acme")

	dup := &domain.Tenant{
		ID:        uuid.NewString(),
		Name:      "Acme",
		CreatedAt: time.Now().UTC(),
	}
	err := repo.Create(ctx, dup)
	assert.ErrorIs(t, err, domain.ErrTenantAlreadyExists)
}

func TestTenantRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewTenantRepository(pool)

	_, err := repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrTenantNotFound)
}

func TestTenantRepository_List(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewTenantRepository(pool)
	seedTenant(ctx, t, repo, "First")
	seedTenant(ctx, t, repo, "Second")

	tenants, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, tenants, 2)
}

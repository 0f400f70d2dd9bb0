package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NaikDeepak/village-mandi-sub001/internal/domain"
	"github.com/NaikDeepak/village-mandi-sub001/internal/testutil"
)

func TestBatchRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewBatchRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	t.Run("create, lock and update batch", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		hubID := testutil.InsertHub(t, ctx, pool, "Nashik")
		now := time.Now().UTC().Truncate(time.Microsecond)

		batch := domain.Batch{
			ID:           uuid.NewString(),
			HubID:        hubID,
			Name:         "Week 11",
			Status:       domain.BatchStatusDraft,
			CutoffAt:     now.Add(24 * time.Hour),
			DeliveryDate: now.Add(72 * time.Hour),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		require.NoError(t, repo.CreateBatch(ctx, batch))

		missingHub := batch
		missingHub.ID = uuid.NewString()
		missingHub.HubID = uuid.NewString()
		assert.ErrorIs(t, repo.CreateBatch(ctx, missingHub), domain.ErrHubNotFound)

		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			b, err := repo.GetBatchForUpdate(txCtx, batch.ID)
			require.NoError(t, err)
			b.Status = domain.BatchStatusOpen
			return repo.UpdateBatch(txCtx, b)
		})
		require.NoError(t, err)

		got, err := repo.GetBatch(ctx, batch.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.BatchStatusOpen, got.Status)
		assert.True(t, got.CutoffAt.Equal(batch.CutoffAt))

		open, err := repo.ListBatches(ctx, []domain.BatchStatus{domain.BatchStatusOpen})
		require.NoError(t, err)
		assert.Len(t, open, 1)
		all, err := repo.ListBatches(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, all, 1)

		_, err = repo.GetBatch(ctx, uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrBatchNotFound)
		_, err = repo.GetBatch(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, domain.ErrInvalidID)
	})

	t.Run("expired open batches", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		hubID := testutil.InsertHub(t, ctx, pool, "Nashik")
		now := time.Now().UTC()

		expired := testutil.InsertBatch(t, ctx, pool, hubID, domain.BatchStatusOpen, now.Add(-time.Minute))
		testutil.InsertBatch(t, ctx, pool, hubID, domain.BatchStatusOpen, now.Add(time.Hour))
		testutil.InsertBatch(t, ctx, pool, hubID, domain.BatchStatusLocked, now.Add(-time.Hour))

		ids, err := repo.ListExpiredOpenBatchIDs(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, []string{expired}, ids)
	})

	t.Run("batch products upsert and delete", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		hubID := testutil.InsertHub(t, ctx, pool, "Nashik")
		_, productID := testutil.InsertFarmerAndProduct(t, ctx, pool, "Tomato")
		batchID := testutil.InsertBatch(t, ctx, pool, hubID, domain.BatchStatusDraft, time.Now().Add(time.Hour))

		bp := domain.BatchProduct{
			BatchID:             batchID,
			ProductID:           productID,
			PricePerUnit:        decimal.RequireFromString("40"),
			FacilitationPercent: decimal.RequireFromString("5"),
			MinOrderQty:         1,
		}
		require.NoError(t, repo.UpsertBatchProduct(ctx, bp))
		bp.PricePerUnit = decimal.RequireFromString("42.50")
		bp.MaxOrderQty = 20
		require.NoError(t, repo.UpsertBatchProduct(ctx, bp))

		list, err := repo.ListBatchProducts(ctx, batchID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "Tomato", list[0].ProductName)
		assert.Equal(t, "42.50", list[0].PricePerUnit.StringFixed(2))
		assert.Equal(t, 20, list[0].MaxOrderQty)

		unknown := bp
		unknown.ProductID = uuid.NewString()
		assert.ErrorIs(t, repo.UpsertBatchProduct(ctx, unknown), domain.ErrProductNotFound)

		require.NoError(t, repo.DeleteBatchProduct(ctx, batchID, productID))
		assert.ErrorIs(t, repo.DeleteBatchProduct(ctx, batchID, productID), domain.ErrBatchProductNotFound)
	})
}

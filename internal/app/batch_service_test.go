package app

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/NaikDeepak/village-mandi-sub001/internal/clock"
	"github.com/NaikDeepak/village-mandi-sub001/internal/domain"
	"github.com/NaikDeepak/village-mandi-sub001/internal/events"
)

func TestBatchService_CreateBatch(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.hubs["hub-1"] = domain.Hub{ID: "hub-1", Name: "Nashik"}
	svc := NewBatchService(store, clock.NewFixed(testNow), false)

	batch, err := svc.CreateBatch(context.Background(), CreateBatchInput{
		HubID:        "hub-1",
		Name:         " Week 11 ",
		CutoffAt:     testNow.Add(48 * time.Hour),
		DeliveryDate: testNow.Add(96 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.BatchStatusDraft, batch.Status)
	assert.Equal(t, "Week 11", batch.Name)
	assert.Contains(t, store.batches, batch.ID)

	cases := []struct {
		name string
		in   CreateBatchInput
		want error
	}{
		{"cutoff in past", CreateBatchInput{HubID: "hub-1", Name: "x", CutoffAt: testNow.Add(-time.Minute), DeliveryDate: testNow.Add(time.Hour)}, domain.ErrInvalidCutoff},
		{"delivery before cutoff", CreateBatchInput{HubID: "hub-1", Name: "x", CutoffAt: testNow.Add(2 * time.Hour), DeliveryDate: testNow.Add(time.Hour)}, domain.ErrInvalidDeliveryDate},
		{"unknown hub", CreateBatchInput{HubID: "hub-2", Name: "x", CutoffAt: testNow.Add(time.Hour), DeliveryDate: testNow.Add(2 * time.Hour)}, domain.ErrHubNotFound},
		{"missing name", CreateBatchInput{HubID: "hub-1", CutoffAt: testNow.Add(time.Hour), DeliveryDate: testNow.Add(2 * time.Hour)}, domain.ErrNameRequired},
	}
	for _, tc := range cases {
		_, err := svc.CreateBatch(context.Background(), tc.in)
		assert.ErrorIs(t, err, tc.want, tc.name)
	}
}

func TestBatchService_TransitionBatch(t *testing.T) {
	t.Parallel()

	t.Run("open requires products", func(t *testing.T) {
		t.Parallel()
		store := newSeeded()
		batch := store.batches["batch-1"]
		batch.Status = domain.BatchStatusDraft
		store.batches[batch.ID] = batch
		delete(store.batchProducts, batch.ID)
		svc := NewBatchService(store, clock.NewFixed(testNow), false)

		_, err := svc.TransitionBatch(context.Background(), TransitionBatchInput{ID: batch.ID, To: domain.BatchStatusOpen})
		assert.ErrorIs(t, err, domain.ErrBatchHasNoProducts)
	})

	t.Run("open rejected after cutoff", func(t *testing.T) {
		t.Parallel()
		store := newSeeded()
		batch := store.batches["batch-1"]
		batch.Status = domain.BatchStatusDraft
		store.batches[batch.ID] = batch
		svc := NewBatchService(store, clock.NewFixed(batch.CutoffAt.Add(time.Second)), false)

		_, err := svc.TransitionBatch(context.Background(), TransitionBatchInput{ID: batch.ID, To: domain.BatchStatusOpen})
		assert.ErrorIs(t, err, domain.ErrCutoffPassed)
	})

	t.Run("walks the lifecycle and publishes", func(t *testing.T) {
		t.Parallel()
		store := newSeeded()
		pub := &recordingPublisher{}
		svc := NewBatchService(store, clock.NewFixed(testNow), false, WithPublisher(pub))

		for _, to := range []domain.BatchStatus{
			domain.BatchStatusLocked,
			domain.BatchStatusProcurement,
			domain.BatchStatusFulfilled,
			domain.BatchStatusSettled,
		} {
			got, err := svc.TransitionBatch(context.Background(), TransitionBatchInput{ID: "batch-1", To: to})
			require.NoError(t, err)
			assert.Equal(t, to, got.Status)
		}
		assert.Len(t, pub.types(), 4)

		_, err := svc.TransitionBatch(context.Background(), TransitionBatchInput{ID: "batch-1", To: domain.BatchStatusCancelled})
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		t.Parallel()
		store := newSeeded()
		pub := &recordingPublisher{}
		svc := NewBatchService(store, clock.NewFixed(testNow), false, WithPublisher(pub))

		got, err := svc.TransitionBatch(context.Background(), TransitionBatchInput{ID: "batch-1", To: domain.BatchStatusOpen})
		require.NoError(t, err)
		assert.Equal(t, domain.BatchStatusOpen, got.Status)
		assert.Empty(t, pub.types())
	})

	t.Run("cancel cancels unpaid orders", func(t *testing.T) {
		t.Parallel()
		store := newSeeded()
		store.orders["o-1"] = domain.Order{ID: "o-1", BatchID: "batch-1", Status: domain.OrderStatusConfirmed}
		store.orders["o-2"] = domain.Order{ID: "o-2", BatchID: "batch-1", Status: domain.OrderStatusPaid}
		store.orders["o-3"] = domain.Order{ID: "o-3", BatchID: "other", Status: domain.OrderStatusConfirmed}
		pub := &recordingPublisher{}
		svc := NewBatchService(store, clock.NewFixed(testNow), false, WithPublisher(pub))

		_, err := svc.TransitionBatch(context.Background(), TransitionBatchInput{ID: "batch-1", To: domain.BatchStatusCancelled})
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusCancelled, store.orders["o-1"].Status)
		assert.Equal(t, domain.OrderStatusPaid, store.orders["o-2"].Status)
		assert.Equal(t, domain.OrderStatusConfirmed, store.orders["o-3"].Status)
		assert.Equal(t, []string{events.TypeBatchStatusChanged, events.TypeOrderCancelled}, pub.types())
	})
}

func TestBatchService_LockExpired(t *testing.T) {
	t.Parallel()

	store := newSeeded()
	store.batches["batch-2"] = domain.Batch{ID: "batch-2", Status: domain.BatchStatusOpen, CutoffAt: testNow.Add(72 * time.Hour)}
	clk := clock.NewManual(testNow)
	pub := &recordingPublisher{}
	svc := NewBatchService(store, clk, false, WithPublisher(pub), WithLogger(zaptest.NewLogger(t)))

	n, err := svc.LockExpired(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	clk.Advance(24 * time.Hour)
	n, err = svc.LockExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, domain.BatchStatusLocked, store.batches["batch-1"].Status)
	assert.Equal(t, domain.BatchStatusOpen, store.batches["batch-2"].Status)
	require.Len(t, pub.events, 1)
	assert.Equal(t, "cutoff", pub.events[0].Data["trigger"])
}

func TestBatchService_Products(t *testing.T) {
	t.Parallel()

	in := UpsertBatchProductInput{
		BatchID:             "batch-1",
		ProductID:           "onion",
		PricePerUnit:        decimal.RequireFromString("30"),
		FacilitationPercent: decimal.NewFromInt(8),
	}

	t.Run("upsert replaces price and defaults minimum", func(t *testing.T) {
		t.Parallel()
		store := newSeeded()
		svc := NewBatchService(store, clock.NewFixed(testNow), false)

		bp, err := svc.UpsertBatchProduct(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, 1, bp.MinOrderQty)
		assert.Equal(t, "Onion", bp.ProductName)
		require.Len(t, store.batchProducts["batch-1"], 2)
		assert.Equal(t, "32.40", store.batchProducts["batch-1"][1].BuyerPrice().StringFixed(2))
	})

	t.Run("locked after cutoff unless overridden", func(t *testing.T) {
		t.Parallel()
		store := newSeeded()
		late := testNow.Add(25 * time.Hour)

		_, err := NewBatchService(store, clock.NewFixed(late), false).UpsertBatchProduct(context.Background(), in)
		assert.ErrorIs(t, err, domain.ErrCutoffPassed)
		err = NewBatchService(store, clock.NewFixed(late), false).RemoveBatchProduct(context.Background(), "batch-1", "onion")
		assert.ErrorIs(t, err, domain.ErrCutoffPassed)

		_, err = NewBatchService(store, clock.NewFixed(late), true).UpsertBatchProduct(context.Background(), in)
		assert.NoError(t, err)
	})

	t.Run("inactive product rejected", func(t *testing.T) {
		t.Parallel()
		store := newSeeded()
		p := store.products["onion"]
		p.IsActive = false
		store.products["onion"] = p

		_, err := NewBatchService(store, clock.NewFixed(testNow), false).UpsertBatchProduct(context.Background(), in)
		assert.ErrorIs(t, err, domain.ErrProductInactive)
	})

	t.Run("remove", func(t *testing.T) {
		t.Parallel()
		store := newSeeded()
		svc := NewBatchService(store, clock.NewFixed(testNow), false)

		require.NoError(t, svc.RemoveBatchProduct(context.Background(), "batch-1", "onion"))
		assert.Len(t, store.batchProducts["batch-1"], 1)
		assert.ErrorIs(t, svc.RemoveBatchProduct(context.Background(), "batch-1", "onion"), domain.ErrBatchProductNotFound)
	})

	t.Run("open batch keeps its last product", func(t *testing.T) {
		t.Parallel()
		store := newSeeded()
		svc := NewBatchService(store, clock.NewFixed(testNow), false)

		require.NoError(t, svc.RemoveBatchProduct(context.Background(), "batch-1", "tomato"))
		assert.ErrorIs(t, svc.RemoveBatchProduct(context.Background(), "batch-1", "onion"), domain.ErrBatchHasNoProducts)
		assert.Len(t, store.batchProducts["batch-1"], 1)

		b := store.batches["batch-1"]
		b.Status = domain.BatchStatusDraft
		store.batches["batch-1"] = b
		require.NoError(t, svc.RemoveBatchProduct(context.Background(), "batch-1", "onion"))
		assert.Empty(t, store.batchProducts["batch-1"])
	})

	t.Run("facilitation percent rounded to two places", func(t *testing.T) {
		t.Parallel()
		store := newSeeded()
		odd := in
		odd.FacilitationPercent = decimal.RequireFromString("5.555")

		bp, err := NewBatchService(store, clock.NewFixed(testNow), false).UpsertBatchProduct(context.Background(), odd)
		require.NoError(t, err)
		assert.Equal(t, "5.56", bp.FacilitationPercent.String())
		assert.Equal(t, "31.67", bp.BuyerPrice().StringFixed(2))
	})
}

func TestBatchService_Views(t *testing.T) {
	t.Parallel()

	store := newSeeded()
	store.batches["batch-2"] = domain.Batch{ID: "batch-2", Status: domain.BatchStatusOpen, CutoffAt: testNow.Add(-time.Hour)}
	store.batches["batch-3"] = domain.Batch{ID: "batch-3", Status: domain.BatchStatusDraft, CutoffAt: testNow.Add(time.Hour)}
	svc := NewBatchService(store, clock.NewFixed(testNow), false)

	open, err := svc.ListOpenBatches(context.Background())
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "batch-1", open[0].ID)
	assert.Len(t, open[0].Products, 2)

	view, err := svc.GetBatch(context.Background(), "batch-2")
	require.NoError(t, err)
	assert.Equal(t, domain.BatchStatusOpen, view.Status)
	assert.Equal(t, domain.BatchStatusLocked, view.EffectiveStatus)

	active, err := svc.ListBatches(context.Background(), "active")
	require.NoError(t, err)
	assert.Len(t, active, 2)

	_, err = svc.ListBatches(context.Background(), "bogus")
	assert.ErrorIs(t, err, domain.ErrInvalidBatchStatus)
}

func TestBatchService_UpdateBatch(t *testing.T) {
	t.Parallel()

	store := newSeeded()
	svc := NewBatchService(store, clock.NewFixed(testNow), false)
	name := "Week 11 (Holi)"
	cutoff := testNow.Add(30 * time.Hour)

	got, err := svc.UpdateBatch(context.Background(), UpdateBatchInput{ID: "batch-1", Name: &name, CutoffAt: &cutoff})
	require.NoError(t, err)
	assert.Equal(t, name, got.Name)
	assert.Equal(t, cutoff, got.CutoffAt)

	past := testNow.Add(-time.Hour)
	_, err = svc.UpdateBatch(context.Background(), UpdateBatchInput{ID: "batch-1", CutoffAt: &past})
	assert.ErrorIs(t, err, domain.ErrInvalidCutoff)

	b := store.batches["batch-1"]
	b.Status = domain.BatchStatusLocked
	store.batches["batch-1"] = b
	_, err = svc.UpdateBatch(context.Background(), UpdateBatchInput{ID: "batch-1", Name: &name})
	assert.ErrorIs(t, err, domain.ErrBatchNotEditable)
}

func TestBatchService_UpdateBatchAfterCutoff(t *testing.T) {
	t.Parallel()

	late := testNow.Add(25 * time.Hour)
	delivery := testNow.Add(96 * time.Hour)

	t.Run("rejected by default", func(t *testing.T) {
		t.Parallel()
		svc := NewBatchService(newSeeded(), clock.NewFixed(late), false)

		_, err := svc.UpdateBatch(context.Background(), UpdateBatchInput{ID: "batch-1", DeliveryDate: &delivery})
		assert.ErrorIs(t, err, domain.ErrCutoffPassed)
	})

	t.Run("delivery date moves with the override", func(t *testing.T) {
		t.Parallel()
		store := newSeeded()
		svc := NewBatchService(store, clock.NewFixed(late), true)

		got, err := svc.UpdateBatch(context.Background(), UpdateBatchInput{ID: "batch-1", DeliveryDate: &delivery})
		require.NoError(t, err)
		assert.Equal(t, delivery, got.DeliveryDate)
		assert.Equal(t, testNow.Add(24*time.Hour), store.batches["batch-1"].CutoffAt)

		beforeCutoff := testNow.Add(12 * time.Hour)
		_, err = svc.UpdateBatch(context.Background(), UpdateBatchInput{ID: "batch-1", DeliveryDate: &beforeCutoff})
		assert.ErrorIs(t, err, domain.ErrInvalidDeliveryDate)
	})

	t.Run("a new cutoff must still be in the future", func(t *testing.T) {
		t.Parallel()
		svc := NewBatchService(newSeeded(), clock.NewFixed(late), true)

		past := late.Add(-time.Minute)
		_, err := svc.UpdateBatch(context.Background(), UpdateBatchInput{ID: "batch-1", CutoffAt: &past})
		assert.ErrorIs(t, err, domain.ErrInvalidCutoff)

		future := late.Add(time.Hour)
		_, err = svc.UpdateBatch(context.Background(), UpdateBatchInput{ID: "batch-1", CutoffAt: &future})
		assert.NoError(t, err)
	})
}

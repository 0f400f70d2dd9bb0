package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/NaikDeepak/village-mandi-sub001/internal/clock"
	"github.com/NaikDeepak/village-mandi-sub001/internal/domain"
	"github.com/NaikDeepak/village-mandi-sub001/internal/events"
)

type BatchRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetHub(ctx context.Context, id string) (domain.Hub, error)
	GetProduct(ctx context.Context, id string) (domain.Product, error)

	CreateBatch(ctx context.Context, batch domain.Batch) error
	GetBatch(ctx context.Context, id string) (domain.Batch, error)
	GetBatchForUpdate(ctx context.Context, id string) (domain.Batch, error)
	ListBatches(ctx context.Context, statuses []domain.BatchStatus) ([]domain.Batch, error)
	UpdateBatch(ctx context.Context, batch domain.Batch) error
	ListExpiredOpenBatchIDs(ctx context.Context, now time.Time) ([]string, error)

	ListBatchProducts(ctx context.Context, batchID string) ([]domain.BatchProduct, error)
	UpsertBatchProduct(ctx context.Context, bp domain.BatchProduct) error
	DeleteBatchProduct(ctx context.Context, batchID, productID string) error

	// CancelOpenOrders cancels every order of the batch that is not fully
	// paid or already cancelled and returns their IDs.
	CancelOpenOrders(ctx context.Context, batchID string, now time.Time) ([]string, error)
}

type BatchService struct {
	repo                   BatchRepository
	clock                  clock.Clock
	editAfterCutoffAllowed bool
	deps
}

func NewBatchService(repo BatchRepository, clk clock.Clock, editAfterCutoffAllowed bool, opts ...Option) *BatchService {
	return &BatchService{
		repo:                   repo,
		clock:                  clk,
		editAfterCutoffAllowed: editAfterCutoffAllowed,
		deps:                   newDeps(opts),
	}
}

// BatchView is a batch as callers see it: EffectiveStatus reports an OPEN
// batch past its cutoff as LOCKED.
type BatchView struct {
	domain.Batch
	EffectiveStatus domain.BatchStatus
	Products        []domain.BatchProduct
}

type CreateBatchInput struct {
	HubID        string
	Name         string
	CutoffAt     time.Time
	DeliveryDate time.Time
}

func (s *BatchService) CreateBatch(ctx context.Context, in CreateBatchInput) (domain.Batch, error) {
	if in.HubID == "" {
		return domain.Batch{}, domain.ErrInvalidID
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Batch{}, domain.ErrNameRequired
	}
	now := s.clock.Now()
	if err := validateSchedule(now, in.CutoffAt, in.DeliveryDate, true); err != nil {
		return domain.Batch{}, err
	}
	if _, err := s.repo.GetHub(ctx, in.HubID); err != nil {
		return domain.Batch{}, err
	}

	batch := domain.Batch{
		ID:           newID(),
		HubID:        in.HubID,
		Name:         name,
		Status:       domain.BatchStatusDraft,
		CutoffAt:     in.CutoffAt.UTC(),
		DeliveryDate: in.DeliveryDate.UTC(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateBatch(ctx, batch); err != nil {
		return domain.Batch{}, err
	}
	return batch, nil
}

type UpdateBatchInput struct {
	ID           string
	Name         *string
	CutoffAt     *time.Time
	DeliveryDate *time.Time
}

// UpdateBatch edits the name and schedule of a DRAFT or OPEN batch before
// its cutoff.
func (s *BatchService) UpdateBatch(ctx context.Context, in UpdateBatchInput) (domain.Batch, error) {
	now := s.clock.Now()
	var result domain.Batch

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		batch, err := s.repo.GetBatchForUpdate(txCtx, in.ID)
		if err != nil {
			return err
		}
		if err := batch.CheckEditable(now, s.editAfterCutoffAllowed); err != nil {
			return err
		}

		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return domain.ErrNameRequired
			}
			batch.Name = name
		}
		if in.CutoffAt != nil {
			batch.CutoffAt = in.CutoffAt.UTC()
		}
		if in.DeliveryDate != nil {
			batch.DeliveryDate = in.DeliveryDate.UTC()
		}
		if in.CutoffAt != nil || in.DeliveryDate != nil {
			// An unchanged cutoff may already be in the past when edits after
			// cutoff are allowed.
			if err := validateSchedule(now, batch.CutoffAt, batch.DeliveryDate, in.CutoffAt != nil); err != nil {
				return err
			}
		}
		batch.UpdatedAt = now

		if err := s.repo.UpdateBatch(txCtx, batch); err != nil {
			return err
		}
		result = batch
		return nil
	})
	if err != nil {
		return domain.Batch{}, err
	}
	return result, nil
}

type TransitionBatchInput struct {
	ID string
	To domain.BatchStatus
}

// TransitionBatch moves a batch along the lifecycle. Asking for the
// current status is a no-op.
func (s *BatchService) TransitionBatch(ctx context.Context, in TransitionBatchInput) (domain.Batch, error) {
	now := s.clock.Now()
	var (
		result    domain.Batch
		from      domain.BatchStatus
		changed   bool
		cancelled []string
	)

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		batch, err := s.repo.GetBatchForUpdate(txCtx, in.ID)
		if err != nil {
			return err
		}
		from = batch.Status
		if batch.Status == in.To {
			result = batch
			return nil
		}
		if !batch.Status.CanTransitionTo(in.To) {
			return domain.ErrInvalidTransition
		}

		if in.To == domain.BatchStatusOpen {
			if batch.CutoffPassed(now) {
				return domain.ErrCutoffPassed
			}
			products, err := s.repo.ListBatchProducts(txCtx, batch.ID)
			if err != nil {
				return err
			}
			if len(products) == 0 {
				return domain.ErrBatchHasNoProducts
			}
		}
		if in.To == domain.BatchStatusCancelled {
			cancelled, err = s.repo.CancelOpenOrders(txCtx, batch.ID, now)
			if err != nil {
				return err
			}
		}

		batch.Status = in.To
		batch.UpdatedAt = now
		if err := s.repo.UpdateBatch(txCtx, batch); err != nil {
			return err
		}
		result = batch
		changed = true
		return nil
	})
	if err != nil {
		return domain.Batch{}, err
	}

	if changed {
		s.publishTransition(ctx, result, from, "admin")
		for _, orderID := range cancelled {
			s.publish(ctx, events.Event{
				Type:        events.TypeOrderCancelled,
				AggregateID: orderID,
				OccurredAt:  now,
				Data:        map[string]any{"batchId": result.ID, "reason": "batch_cancelled"},
			})
		}
		if s.metrics != nil && len(cancelled) > 0 {
			s.metrics.OrdersCancelled.Add(float64(len(cancelled)))
		}
	}
	return result, nil
}

// LockExpired moves every OPEN batch whose cutoff has passed to LOCKED and
// returns how many it locked.
func (s *BatchService) LockExpired(ctx context.Context) (int, error) {
	now := s.clock.Now()
	ids, err := s.repo.ListExpiredOpenBatchIDs(ctx, now)
	if err != nil {
		return 0, err
	}

	locked := 0
	for _, id := range ids {
		var batch domain.Batch
		err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
			b, err := s.repo.GetBatchForUpdate(txCtx, id)
			if err != nil {
				return err
			}
			if b.Status != domain.BatchStatusOpen || !b.CutoffPassed(now) {
				return errSkip
			}
			b.Status = domain.BatchStatusLocked
			b.UpdatedAt = now
			if err := s.repo.UpdateBatch(txCtx, b); err != nil {
				return err
			}
			batch = b
			return nil
		})
		if errors.Is(err, errSkip) {
			continue
		}
		if err != nil {
			return locked, err
		}
		locked++
		s.logger.Info("batch locked at cutoff", zap.String("batch_id", batch.ID), zap.Time("cutoff_at", batch.CutoffAt))
		s.publishTransition(ctx, batch, domain.BatchStatusOpen, "cutoff")
	}
	if s.metrics != nil {
		s.metrics.BatchesLocked.Add(float64(locked))
	}
	return locked, nil
}

var errSkip = errors.New("skip")

type UpsertBatchProductInput struct {
	BatchID             string
	ProductID           string
	PricePerUnit        decimal.Decimal
	FacilitationPercent decimal.Decimal
	MinOrderQty         int
	MaxOrderQty         int
}

// UpsertBatchProduct adds a product to a batch or changes its price and
// limits. Rejected after the cutoff unless edits after cutoff are allowed.
func (s *BatchService) UpsertBatchProduct(ctx context.Context, in UpsertBatchProductInput) (domain.BatchProduct, error) {
	if in.ProductID == "" {
		return domain.BatchProduct{}, domain.ErrInvalidID
	}
	bp := domain.BatchProduct{
		BatchID:             in.BatchID,
		ProductID:           in.ProductID,
		PricePerUnit:        domain.RoundMoney(in.PricePerUnit),
		FacilitationPercent: in.FacilitationPercent.Round(2),
		MinOrderQty:         in.MinOrderQty,
		MaxOrderQty:         in.MaxOrderQty,
	}
	if bp.MinOrderQty == 0 {
		bp.MinOrderQty = 1
	}
	if err := bp.Validate(); err != nil {
		return domain.BatchProduct{}, err
	}

	now := s.clock.Now()
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		batch, err := s.repo.GetBatchForUpdate(txCtx, in.BatchID)
		if err != nil {
			return err
		}
		if err := batch.CheckEditable(now, s.editAfterCutoffAllowed); err != nil {
			return err
		}
		product, err := s.repo.GetProduct(txCtx, in.ProductID)
		if err != nil {
			return err
		}
		if !product.IsActive {
			return domain.ErrProductInactive
		}
		bp.ProductName = product.Name
		bp.Unit = product.Unit
		return s.repo.UpsertBatchProduct(txCtx, bp)
	})
	if err != nil {
		return domain.BatchProduct{}, err
	}
	return bp, nil
}

// RemoveBatchProduct takes a product off a batch. An OPEN batch keeps at
// least one product.
func (s *BatchService) RemoveBatchProduct(ctx context.Context, batchID, productID string) error {
	now := s.clock.Now()
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		batch, err := s.repo.GetBatchForUpdate(txCtx, batchID)
		if err != nil {
			return err
		}
		if err := batch.CheckEditable(now, s.editAfterCutoffAllowed); err != nil {
			return err
		}
		if batch.Status == domain.BatchStatusOpen {
			products, err := s.repo.ListBatchProducts(txCtx, batchID)
			if err != nil {
				return err
			}
			remaining := 0
			for _, bp := range products {
				if bp.ProductID != productID {
					remaining++
				}
			}
			if remaining == len(products) {
				return domain.ErrBatchProductNotFound
			}
			if remaining == 0 {
				return domain.ErrBatchHasNoProducts
			}
		}
		return s.repo.DeleteBatchProduct(txCtx, batchID, productID)
	})
}

func (s *BatchService) GetBatch(ctx context.Context, id string) (BatchView, error) {
	if id == "" {
		return BatchView{}, domain.ErrInvalidID
	}
	batch, err := s.repo.GetBatch(ctx, id)
	if err != nil {
		return BatchView{}, err
	}
	products, err := s.repo.ListBatchProducts(ctx, id)
	if err != nil {
		return BatchView{}, err
	}
	return s.view(batch, products), nil
}

// ListBatches lists batches, optionally filtered by stored status.
func (s *BatchService) ListBatches(ctx context.Context, status string) ([]BatchView, error) {
	var statuses []domain.BatchStatus
	if status != "" {
		st, err := domain.ParseBatchStatus(status)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, st)
	}
	batches, err := s.repo.ListBatches(ctx, statuses)
	if err != nil {
		return nil, err
	}
	out := make([]BatchView, 0, len(batches))
	for _, b := range batches {
		out = append(out, s.view(b, nil))
	}
	return out, nil
}

// ListOpenBatches returns the batches buyers can order from right now,
// with their products.
func (s *BatchService) ListOpenBatches(ctx context.Context) ([]BatchView, error) {
	now := s.clock.Now()
	batches, err := s.repo.ListBatches(ctx, []domain.BatchStatus{domain.BatchStatusOpen})
	if err != nil {
		return nil, err
	}
	out := make([]BatchView, 0, len(batches))
	for _, b := range batches {
		if b.CutoffPassed(now) {
			continue
		}
		products, err := s.repo.ListBatchProducts(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, s.view(b, products))
	}
	return out, nil
}

func (s *BatchService) view(b domain.Batch, products []domain.BatchProduct) BatchView {
	return BatchView{
		Batch:           b,
		EffectiveStatus: b.EffectiveStatus(s.clock.Now()),
		Products:        products,
	}
}

func (s *BatchService) publishTransition(ctx context.Context, b domain.Batch, from domain.BatchStatus, trigger string) {
	s.publish(ctx, events.Event{
		Type:        events.TypeBatchStatusChanged,
		AggregateID: b.ID,
		OccurredAt:  b.UpdatedAt,
		Data: map[string]any{
			"from":    string(from),
			"to":      string(b.Status),
			"trigger": trigger,
		},
	})
}

func validateSchedule(now, cutoffAt, deliveryDate time.Time, futureCutoff bool) error {
	if cutoffAt.IsZero() || (futureCutoff && !cutoffAt.After(now)) {
		return domain.ErrInvalidCutoff
	}
	if deliveryDate.IsZero() || deliveryDate.Before(cutoffAt) {
		return domain.ErrInvalidDeliveryDate
	}
	return nil
}

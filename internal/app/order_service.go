package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/NaikDeepak/village-mandi-sub001/internal/clock"
	"github.com/NaikDeepak/village-mandi-sub001/internal/domain"
	"github.com/NaikDeepak/village-mandi-sub001/internal/events"
)

type OrderRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetBatch(ctx context.Context, id string) (domain.Batch, error)
	// GetBatchForShare locks the batch row against concurrent status
	// changes without serialising order placement.
	GetBatchForShare(ctx context.Context, id string) (domain.Batch, error)
	ListBatchProducts(ctx context.Context, batchID string) ([]domain.BatchProduct, error)

	FindOrderByIdempotencyKey(ctx context.Context, buyerID, key string) (*domain.Order, error)
	CreateOrder(ctx context.Context, order domain.Order) error
	GetOrder(ctx context.Context, id string) (domain.Order, error)
	GetOrderForUpdate(ctx context.Context, id string) (domain.Order, error)
	ListOrdersByBuyer(ctx context.Context, buyerID string) ([]domain.Order, error)
	ListOrdersByBatch(ctx context.Context, batchID string) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus, now time.Time) error
}

type OrderService struct {
	repo  OrderRepository
	clock clock.Clock
	deps
}

func NewOrderService(repo OrderRepository, clk clock.Clock, opts ...Option) *OrderService {
	return &OrderService{
		repo:  repo,
		clock: clk,
		deps:  newDeps(opts),
	}
}

type PlaceOrderInput struct {
	BuyerID        string
	BatchID        string
	Items          []domain.OrderLine
	IdempotencyKey string
}

type PlaceOrderResult struct {
	Order   domain.Order
	Created bool
}

// PlaceOrder creates a pre-order against an open batch, priced from the
// batch's products, with a pending commitment and settlement payment.
// Retrying with the same idempotency key and items returns the original.
func (s *OrderService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (PlaceOrderResult, error) {
	key := strings.TrimSpace(in.IdempotencyKey)
	if key == "" {
		return PlaceOrderResult{}, domain.ErrIdempotencyKeyRequired
	}
	if in.BatchID == "" || in.BuyerID == "" {
		return PlaceOrderResult{}, domain.ErrInvalidID
	}
	if len(in.Items) == 0 {
		return PlaceOrderResult{}, domain.ErrEmptyOrder
	}
	if len(in.Items) > domain.MaxOrderItems {
		return PlaceOrderResult{}, domain.ErrTooManyItems
	}
	seen := make(map[string]struct{}, len(in.Items))
	for _, it := range in.Items {
		if it.ProductID == "" {
			return PlaceOrderResult{}, domain.ErrInvalidID
		}
		if it.Quantity <= 0 {
			return PlaceOrderResult{}, domain.ErrInvalidQuantity
		}
		if _, dup := seen[it.ProductID]; dup {
			return PlaceOrderResult{}, domain.ErrDuplicateItem
		}
		seen[it.ProductID] = struct{}{}
	}

	now := s.clock.Now()
	var result PlaceOrderResult

	replay := func(existing *domain.Order) error {
		if existing.BatchID != in.BatchID || !existing.SameItems(in.Items) {
			return domain.ErrIdempotencyConflict
		}
		result = PlaceOrderResult{Order: *existing, Created: false}
		return nil
	}

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if existing, err := s.repo.FindOrderByIdempotencyKey(txCtx, in.BuyerID, key); err != nil {
			return err
		} else if existing != nil {
			return replay(existing)
		}

		batch, err := s.repo.GetBatchForShare(txCtx, in.BatchID)
		if err != nil {
			return err
		}
		if err := batch.CheckAcceptingOrders(now); err != nil {
			return err
		}

		offered, err := s.repo.ListBatchProducts(txCtx, batch.ID)
		if err != nil {
			return err
		}
		byProduct := make(map[string]domain.BatchProduct, len(offered))
		for _, bp := range offered {
			byProduct[bp.ProductID] = bp
		}

		order := domain.Order{
			ID:             newID(),
			BuyerID:        in.BuyerID,
			BatchID:        batch.ID,
			Status:         domain.OrderStatusPendingCommitment,
			IdempotencyKey: key,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		for _, line := range in.Items {
			bp, ok := byProduct[line.ProductID]
			if !ok {
				return domain.ErrBatchProductNotFound
			}
			if err := bp.CheckQuantity(line.Quantity); err != nil {
				return err
			}
			item := domain.PriceLine(bp, line.Quantity)
			order.Items = append(order.Items, item)
			order.Subtotal = order.Subtotal.Add(item.FarmerAmount)
			order.FacilitationTotal = order.FacilitationTotal.Add(item.FacilitationAmount)
			order.Total = order.Total.Add(item.LineTotal)
		}

		// Every line amount is bounded by the total.
		if order.Total.GreaterThan(domain.MaxOrderTotal) {
			return domain.ErrOrderTooLarge
		}

		commitment, settlement := domain.SplitPayments(order.Total)
		order.Payments = []domain.Payment{
			newPendingPayment(order.ID, domain.PaymentStageCommitment, commitment),
			newPendingPayment(order.ID, domain.PaymentStageSettlement, settlement),
		}

		if err := s.repo.CreateOrder(txCtx, order); err != nil {
			// A concurrent request with the same key won the insert.
			if errors.Is(err, domain.ErrIdempotencyConflict) {
				existing, ferr := s.repo.FindOrderByIdempotencyKey(txCtx, in.BuyerID, key)
				if ferr != nil {
					return ferr
				}
				if existing != nil {
					return replay(existing)
				}
			}
			return err
		}

		result = PlaceOrderResult{Order: order, Created: true}
		return nil
	})
	if err != nil {
		return PlaceOrderResult{}, err
	}

	if result.Created {
		if s.metrics != nil {
			s.metrics.OrdersPlaced.Inc()
		}
		s.publish(ctx, events.Event{
			Type:        events.TypeOrderPlaced,
			AggregateID: result.Order.ID,
			OccurredAt:  now,
			Data: map[string]any{
				"batchId": result.Order.BatchID,
				"buyerId": result.Order.BuyerID,
				"total":   result.Order.Total.StringFixed(2),
			},
		})
	}
	return result, nil
}

// GetOrder returns an order visible to actor. Buyers only see their own
// orders; anything else reads as not found.
func (s *OrderService) GetOrder(ctx context.Context, actor Actor, id string) (domain.Order, error) {
	if id == "" {
		return domain.Order{}, domain.ErrInvalidID
	}
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if !canSee(actor, order) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) ListMyOrders(ctx context.Context, actor Actor) ([]domain.Order, error) {
	return s.repo.ListOrdersByBuyer(ctx, actor.UserID)
}

func (s *OrderService) ListBatchOrders(ctx context.Context, batchID string) ([]domain.Order, error) {
	if batchID == "" {
		return nil, domain.ErrInvalidID
	}
	if _, err := s.repo.GetBatch(ctx, batchID); err != nil {
		return nil, err
	}
	return s.repo.ListOrdersByBatch(ctx, batchID)
}

// CancelOrder cancels an order while its batch still accepts orders.
// Cancelling a cancelled order returns it unchanged.
func (s *OrderService) CancelOrder(ctx context.Context, actor Actor, id string) (domain.Order, error) {
	now := s.clock.Now()
	var (
		result  domain.Order
		changed bool
	)

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		order, err := s.repo.GetOrderForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if !canSee(actor, order) {
			return domain.ErrOrderNotFound
		}
		if order.Status == domain.OrderStatusCancelled {
			result = order
			return nil
		}
		if order.Status == domain.OrderStatusPaid {
			return domain.ErrOrderNotCancelable
		}

		batch, err := s.repo.GetBatchForShare(txCtx, order.BatchID)
		if err != nil {
			return err
		}
		if err := batch.CheckAcceptingOrders(now); err != nil {
			return err
		}

		if err := s.repo.UpdateOrderStatus(txCtx, order.ID, domain.OrderStatusCancelled, now); err != nil {
			return err
		}
		order.Status = domain.OrderStatusCancelled
		order.UpdatedAt = now
		result = order
		changed = true
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	if changed {
		if s.metrics != nil {
			s.metrics.OrdersCancelled.Inc()
		}
		s.publish(ctx, events.Event{
			Type:        events.TypeOrderCancelled,
			AggregateID: result.ID,
			OccurredAt:  now,
			Data:        map[string]any{"batchId": result.BatchID, "reason": "buyer_cancelled"},
		})
	}
	return result, nil
}

func canSee(actor Actor, order domain.Order) bool {
	return actor.IsAdmin() || order.BuyerID == actor.UserID
}

func newPendingPayment(orderID string, stage domain.PaymentStage, amount decimal.Decimal) domain.Payment {
	return domain.Payment{
		ID:      newID(),
		OrderID: orderID,
		Stage:   stage,
		Amount:  amount,
		Status:  domain.PaymentStatusPending,
	}
}

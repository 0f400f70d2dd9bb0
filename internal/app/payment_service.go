package app

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/NaikDeepak/village-mandi-sub001/internal/clock"
	"github.com/NaikDeepak/village-mandi-sub001/internal/domain"
	"github.com/NaikDeepak/village-mandi-sub001/internal/events"
)

type PaymentRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetOrderForUpdate(ctx context.Context, id string) (domain.Order, error)
	GetBatchForShare(ctx context.Context, id string) (domain.Batch, error)
	MarkPaymentPaid(ctx context.Context, paymentID, reference string, paidAt time.Time) error
	UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus, now time.Time) error
}

// PaymentService records the two payment stages of an order: the
// commitment fee up front and the settlement balance after the batch locks.
type PaymentService struct {
	repo  PaymentRepository
	clock clock.Clock
	deps
}

func NewPaymentService(repo PaymentRepository, clk clock.Clock, opts ...Option) *PaymentService {
	return &PaymentService{
		repo:  repo,
		clock: clk,
		deps:  newDeps(opts),
	}
}

type RecordPaymentInput struct {
	OrderID   string
	Stage     domain.PaymentStage
	Amount    *decimal.Decimal
	Reference string
}

type RecordPaymentResult struct {
	Payment domain.Payment
	Order   domain.Order
	Created bool
}

// RecordPayment marks one stage of an order as paid. The reference is the
// idempotency key: replaying the same reference returns the recorded
// payment, a different one is rejected.
func (s *PaymentService) RecordPayment(ctx context.Context, actor Actor, in RecordPaymentInput) (RecordPaymentResult, error) {
	reference := strings.TrimSpace(in.Reference)
	if reference == "" {
		return RecordPaymentResult{}, domain.ErrPaymentReferenceNeeded
	}
	if in.Stage != domain.PaymentStageCommitment && in.Stage != domain.PaymentStageSettlement {
		return RecordPaymentResult{}, domain.ErrInvalidPaymentStage
	}
	if in.OrderID == "" {
		return RecordPaymentResult{}, domain.ErrInvalidID
	}

	now := s.clock.Now()
	var result RecordPaymentResult

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		order, err := s.repo.GetOrderForUpdate(txCtx, in.OrderID)
		if err != nil {
			return err
		}
		if !canSee(actor, order) {
			return domain.ErrOrderNotFound
		}
		payment, ok := order.Payment(in.Stage)
		if !ok {
			return domain.ErrInvalidPaymentStage
		}

		if payment.Paid() {
			if payment.Reference == reference {
				result = RecordPaymentResult{Payment: payment, Order: order, Created: false}
				return nil
			}
			return domain.ErrPaymentAlreadyRecorded
		}
		if order.Status == domain.OrderStatusCancelled {
			return domain.ErrOrderCancelled
		}
		if in.Amount != nil && !domain.RoundMoney(*in.Amount).Equal(payment.Amount) {
			return domain.ErrPaymentAmountMismatch
		}

		batch, err := s.repo.GetBatchForShare(txCtx, order.BatchID)
		if err != nil {
			return err
		}
		effective := batch.EffectiveStatus(now)
		cancelled := effective == domain.BatchStatusCancelled

		next := order.Status
		switch in.Stage {
		case domain.PaymentStageCommitment:
			if cancelled {
				return domain.ErrOrderCancelled
			}
			if order.Status == domain.OrderStatusPendingCommitment {
				next = domain.OrderStatusConfirmed
			}
		case domain.PaymentStageSettlement:
			commitment, _ := order.Payment(domain.PaymentStageCommitment)
			if !commitment.Paid() {
				return domain.ErrCommitmentNotPaid
			}
			if cancelled || !effective.AtLeast(domain.BatchStatusLocked) {
				return domain.ErrSettlementNotOpen
			}
			next = domain.OrderStatusPaid
		}

		if err := s.repo.MarkPaymentPaid(txCtx, payment.ID, reference, now); err != nil {
			return err
		}
		if next != order.Status {
			if err := s.repo.UpdateOrderStatus(txCtx, order.ID, next, now); err != nil {
				return err
			}
			order.Status = next
			order.UpdatedAt = now
		}

		paidAt := now
		payment.Status = domain.PaymentStatusPaid
		payment.Reference = reference
		payment.PaidAt = &paidAt
		for i := range order.Payments {
			if order.Payments[i].Stage == payment.Stage {
				order.Payments[i] = payment
			}
		}
		result = RecordPaymentResult{Payment: payment, Order: order, Created: true}
		return nil
	})
	if err != nil {
		return RecordPaymentResult{}, err
	}

	if result.Created {
		if s.metrics != nil {
			s.metrics.PaymentsPaid.WithLabelValues(string(result.Payment.Stage)).Inc()
		}
		s.publish(ctx, events.Event{
			Type:        events.TypePaymentRecorded,
			AggregateID: result.Order.ID,
			OccurredAt:  now,
			Data: map[string]any{
				"stage":       string(result.Payment.Stage),
				"amount":      result.Payment.Amount.StringFixed(2),
				"reference":   result.Payment.Reference,
				"orderStatus": string(result.Order.Status),
			},
		})
	}
	return result, nil
}

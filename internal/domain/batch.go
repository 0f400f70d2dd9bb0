package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type BatchStatus string

const (
	BatchStatusDraft       BatchStatus = "DRAFT"
	BatchStatusOpen        BatchStatus = "OPEN"
	BatchStatusLocked      BatchStatus = "LOCKED"
	BatchStatusProcurement BatchStatus = "PROCUREMENT"
	BatchStatusFulfilled   BatchStatus = "FULFILLED"
	BatchStatusSettled     BatchStatus = "SETTLED"
	BatchStatusCancelled   BatchStatus = "CANCELLED"
)

// BatchStatuses lists the lifecycle in order, CANCELLED last.
var BatchStatuses = []BatchStatus{
	BatchStatusDraft,
	BatchStatusOpen,
	BatchStatusLocked,
	BatchStatusProcurement,
	BatchStatusFulfilled,
	BatchStatusSettled,
	BatchStatusCancelled,
}

var batchStatusAliases = map[string]BatchStatus{
	"ACTIVE":    BatchStatusOpen,
	"CLOSED":    BatchStatusLocked,
	"COLLECTED": BatchStatusProcurement,
	"DELIVERED": BatchStatusFulfilled,
}

var batchTransitions = map[BatchStatus][]BatchStatus{
	BatchStatusDraft:       {BatchStatusOpen, BatchStatusCancelled},
	BatchStatusOpen:        {BatchStatusLocked, BatchStatusCancelled},
	BatchStatusLocked:      {BatchStatusProcurement, BatchStatusCancelled},
	BatchStatusProcurement: {BatchStatusFulfilled},
	BatchStatusFulfilled:   {BatchStatusSettled},
}

// ParseBatchStatus accepts canonical names and the legacy aliases
// (ACTIVE, CLOSED, COLLECTED, DELIVERED), case-insensitively.
func ParseBatchStatus(s string) (BatchStatus, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if alias, ok := batchStatusAliases[s]; ok {
		return alias, nil
	}
	for _, st := range BatchStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", ErrInvalidBatchStatus
}

// Rank orders the forward lifecycle. CANCELLED and unknown values rank -1.
func (s BatchStatus) Rank() int {
	for i, st := range BatchStatuses {
		if st == BatchStatusCancelled {
			break
		}
		if st == s {
			return i
		}
	}
	return -1
}

func (s BatchStatus) AtLeast(other BatchStatus) bool {
	r := s.Rank()
	return r >= 0 && r >= other.Rank()
}

func (s BatchStatus) CanTransitionTo(to BatchStatus) bool {
	for _, next := range batchTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Batch is a time-boxed ordering window tied to one delivery cycle at a hub.
type Batch struct {
	ID           string
	HubID        string
	Name         string
	Status       BatchStatus
	CutoffAt     time.Time
	DeliveryDate time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (b Batch) CutoffPassed(now time.Time) bool {
	return !now.Before(b.CutoffAt)
}

// EffectiveStatus reports an OPEN batch past its cutoff as LOCKED, even
// before the sweeper has persisted the transition.
func (b Batch) EffectiveStatus(now time.Time) BatchStatus {
	if b.Status == BatchStatusOpen && b.CutoffPassed(now) {
		return BatchStatusLocked
	}
	return b.Status
}

// CheckEditable guards product, price and schedule edits.
func (b Batch) CheckEditable(now time.Time, allowAfterCutoff bool) error {
	if b.Status != BatchStatusDraft && b.Status != BatchStatusOpen {
		return ErrBatchNotEditable
	}
	if b.CutoffPassed(now) && !allowAfterCutoff {
		return ErrCutoffPassed
	}
	return nil
}

// CheckAcceptingOrders reports whether buyers may place or cancel orders.
func (b Batch) CheckAcceptingOrders(now time.Time) error {
	if b.Status != BatchStatusOpen {
		return ErrBatchNotOpen
	}
	if b.CutoffPassed(now) {
		return ErrCutoffPassed
	}
	return nil
}

// BatchProduct is a product offered in a batch. PricePerUnit is what the
// farmer receives; buyers pay it plus FacilitationPercent.
type BatchProduct struct {
	BatchID             string
	ProductID           string
	ProductName         string
	Unit                string
	PricePerUnit        decimal.Decimal
	FacilitationPercent decimal.Decimal
	MinOrderQty         int
	MaxOrderQty         int // 0 means no upper limit
}

// BuyerPrice is the per-unit price including the facilitation fee.
func (p BatchProduct) BuyerPrice() decimal.Decimal {
	return Markup(p.PricePerUnit, p.FacilitationPercent)
}

func (p BatchProduct) Validate() error {
	if !p.PricePerUnit.IsPositive() || p.PricePerUnit.GreaterThan(MaxOrderTotal) {
		return ErrInvalidPrice
	}
	if p.FacilitationPercent.IsNegative() || p.FacilitationPercent.GreaterThan(decimal.NewFromInt(100)) {
		return ErrInvalidFacilitation
	}
	if p.MinOrderQty < 1 || p.MaxOrderQty < 0 || p.MinOrderQty > MaxLineQuantity || p.MaxOrderQty > MaxLineQuantity {
		return ErrInvalidOrderQtyLimits
	}
	if p.MaxOrderQty > 0 && p.MaxOrderQty < p.MinOrderQty {
		return ErrInvalidOrderQtyLimits
	}
	return nil
}

func (p BatchProduct) CheckQuantity(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if qty < p.MinOrderQty {
		return ErrQuantityBelowMin
	}
	if qty > MaxLineQuantity || (p.MaxOrderQty > 0 && qty > p.MaxOrderQty) {
		return ErrQuantityAboveMax
	}
	return nil
}

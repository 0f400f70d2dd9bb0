package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Storage limits on a single order.
const (
	MaxLineQuantity = math.MaxInt32
	MaxOrderItems   = math.MaxInt16
)

// MaxOrderTotal is the largest amount a money column holds.
var MaxOrderTotal = decimal.RequireFromString("9999999999.99")

type OrderStatus string

const (
	OrderStatusPendingCommitment OrderStatus = "PENDING_COMMITMENT"
	OrderStatusConfirmed         OrderStatus = "CONFIRMED"
	OrderStatusPaid              OrderStatus = "PAID"
	OrderStatusCancelled         OrderStatus = "CANCELLED"
)

// Order is a buyer's pre-order against one batch.
type Order struct {
	ID                string
	BuyerID           string
	BatchID           string
	Status            OrderStatus
	Items             []OrderItem
	Subtotal          decimal.Decimal // farmer share
	FacilitationTotal decimal.Decimal
	Total             decimal.Decimal
	IdempotencyKey    string
	Payments          []Payment
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type OrderItem struct {
	ProductID          string
	Quantity           int
	UnitPrice          decimal.Decimal
	FarmerAmount       decimal.Decimal
	FacilitationAmount decimal.Decimal
	LineTotal          decimal.Decimal
}

// Payment returns the order's payment for stage, if loaded.
func (o Order) Payment(stage PaymentStage) (Payment, bool) {
	for _, p := range o.Payments {
		if p.Stage == stage {
			return p, true
		}
	}
	return Payment{}, false
}

// SameItems reports whether items requests the same products and
// quantities as the order, ignoring order of lines.
func (o Order) SameItems(items []OrderLine) bool {
	if len(items) != len(o.Items) {
		return false
	}
	want := make(map[string]int, len(o.Items))
	for _, it := range o.Items {
		want[it.ProductID] = it.Quantity
	}
	for _, it := range items {
		if q, ok := want[it.ProductID]; !ok || q != it.Quantity {
			return false
		}
	}
	return true
}

// OrderLine is a requested product and quantity, before pricing.
type OrderLine struct {
	ProductID string
	Quantity  int
}

// PriceLine prices a requested quantity of a batch product.
func PriceLine(bp BatchProduct, qty int) OrderItem {
	q := decimal.NewFromInt(int64(qty))
	unit := bp.BuyerPrice()
	line := RoundMoney(unit.Mul(q))
	farmer := RoundMoney(bp.PricePerUnit.Mul(q))
	return OrderItem{
		ProductID:          bp.ProductID,
		Quantity:           qty,
		UnitPrice:          unit,
		FarmerAmount:       farmer,
		FacilitationAmount: line.Sub(farmer),
		LineTotal:          line,
	}
}

package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStage string

const (
	PaymentStageCommitment PaymentStage = "COMMITMENT"
	PaymentStageSettlement PaymentStage = "SETTLEMENT"
)

var PaymentStages = []PaymentStage{PaymentStageCommitment, PaymentStageSettlement}

func ParsePaymentStage(s string) (PaymentStage, error) {
	switch PaymentStage(strings.ToUpper(strings.TrimSpace(s))) {
	case PaymentStageCommitment:
		return PaymentStageCommitment, nil
	case PaymentStageSettlement:
		return PaymentStageSettlement, nil
	}
	return "", ErrInvalidPaymentStage
}

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
)

// Payment is one of the two stages of an order's payment. Reference is the
// external transaction reference and doubles as the idempotency key.
type Payment struct {
	ID        string
	OrderID   string
	Stage     PaymentStage
	Amount    decimal.Decimal
	Status    PaymentStatus
	Reference string
	PaidAt    *time.Time
}

func (p Payment) Paid() bool {
	return p.Status == PaymentStatusPaid
}

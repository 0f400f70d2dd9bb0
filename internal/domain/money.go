package domain

import "github.com/shopspring/decimal"

// CommitmentPercent is the share of an order total collected up front.
const CommitmentPercent = 10

var hundred = decimal.NewFromInt(100)

// RoundMoney rounds to paise.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Markup adds percent on top of base, rounded to paise.
func Markup(base, percent decimal.Decimal) decimal.Decimal {
	return RoundMoney(base.Mul(hundred.Add(percent)).Div(hundred))
}

// SplitPayments divides total into the commitment fee and the settlement
// balance. The two parts always sum to total.
func SplitPayments(total decimal.Decimal) (commitment, settlement decimal.Decimal) {
	commitment = RoundMoney(total.Mul(decimal.NewFromInt(CommitmentPercent)).Div(hundred))
	return commitment, total.Sub(commitment)
}

package domain

// Philosophy is reported by the health endpoint.
const Philosophy = "Order first, harvest second. Farmers grow what buyers committed to."

// SystemRules are the marketplace rules published on /health.
type SystemRules struct {
	CommitmentPercent      int            `json:"commitmentPercent"`
	EditAfterCutoffAllowed bool           `json:"editAfterCutoffAllowed"`
	PaymentStages          []PaymentStage `json:"paymentStages"`
	BatchStatuses          []BatchStatus  `json:"batchStatuses"`
}

func NewSystemRules(editAfterCutoffAllowed bool) SystemRules {
	return SystemRules{
		CommitmentPercent:      CommitmentPercent,
		EditAfterCutoffAllowed: editAfterCutoffAllowed,
		PaymentStages:          PaymentStages,
		BatchStatuses:          BatchStatuses,
	}
}

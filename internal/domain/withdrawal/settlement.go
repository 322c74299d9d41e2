package withdrawal

import (
	"strings"

	"github.com/marketplace-balance-ledger/internal/validation"
)

// SettlementDetails is the proof of payment an admin attaches when completing a withdrawal.
type SettlementDetails struct {
	TransactionID string `json:"transaction_id" bson:"transaction_id" validate:"required,max=128"`
	Date          string `json:"date" bson:"date" validate:"required,datetime=2006-01-02"`
	Reference     string `json:"reference" bson:"reference" validate:"required,max=128"`
	Notes         string `json:"notes,omitempty" bson:"notes,omitempty" validate:"max=1000"`
}

// missing reports whether any required field is absent.
func (s *SettlementDetails) missing() bool {
	return s == nil ||
		strings.TrimSpace(s.TransactionID) == "" ||
		strings.TrimSpace(s.Date) == "" ||
		strings.TrimSpace(s.Reference) == ""
}

func (s *SettlementDetails) validate() error {
	return validation.Struct(s)
}

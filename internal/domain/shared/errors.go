package shared

import (
	"errors"

	"github.com/marketplace-balance-ledger/internal/domain/money"
)

// Error kinds surfaced by the ledger. Typed errors in the domain packages
// carry the details and match one of these through errors.Is.
var (
	ErrNotFound              = errors.New("not found")
	ErrForbidden             = errors.New("forbidden")
	ErrInvalidTransition     = errors.New("invalid transition")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInvalidAmount         = money.ErrInvalidAmount
	ErrMissingSettlementData = errors.New("missing settlement data")
	ErrValidation            = errors.New("validation failed")
	ErrConflict              = errors.New("conflict")
)

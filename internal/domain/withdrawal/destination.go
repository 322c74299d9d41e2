package withdrawal

import (
	"github.com/marketplace-balance-ledger/internal/validation"
)

// Method names a payout destination variant
type Method string

const (
	MethodBank Method = "bank"
	MethodUPI  Method = "upi"
)

// BankDetails is an Indian bank account destination
type BankDetails struct {
	AccountNumber     string `json:"account_number" bson:"account_number" validate:"required,digits,max=34"`
	IFSCCode          string `json:"ifsc_code" bson:"ifsc_code" validate:"required,ifsc"`
	AccountHolderName string `json:"account_holder_name" bson:"account_holder_name" validate:"required,max=140"`
	BankName          string `json:"bank_name" bson:"bank_name" validate:"required,max=140"`
}

// UPIDetails is a UPI virtual payment address destination
type UPIDetails struct {
	UPIID string `json:"upi_id" bson:"upi_id" validate:"required,upi"`
}

// PayoutDestination carries exactly one of Bank or UPI, selected by Method.
type PayoutDestination struct {
	Method Method       `json:"method" bson:"method"`
	Bank   *BankDetails `json:"bank,omitempty" bson:"bank,omitempty"`
	UPI    *UPIDetails  `json:"upi,omitempty" bson:"upi,omitempty"`
}

func BankDestination(b BankDetails) PayoutDestination {
	return PayoutDestination{Method: MethodBank, Bank: &b}
}

func UPIDestination(u UPIDetails) PayoutDestination {
	return PayoutDestination{Method: MethodUPI, UPI: &u}
}

// Validate checks that the variant matches Method and that its fields are well formed.
func (d PayoutDestination) Validate() error {
	switch d.Method {
	case MethodBank:
		if d.Bank == nil {
			return validation.NewError("bank", "is required for method bank")
		}
		if d.UPI != nil {
			return validation.NewError("upi", "must be empty for method bank")
		}
		return validation.Struct(d)
	case MethodUPI:
		if d.UPI == nil {
			return validation.NewError("upi", "is required for method upi")
		}
		if d.Bank != nil {
			return validation.NewError("bank", "must be empty for method upi")
		}
		return validation.Struct(d)
	default:
		return validation.NewError("method", "must be one of bank upi")
	}
}

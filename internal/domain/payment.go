package domain

import "strings"

// PaymentMethod represents how the customer paid for a trip.
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodCard         PaymentMethod = "CARD"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
)

// Valid reports whether the payment method is one the settlement engine supports.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodBankTransfer:
		return true
	default:
		return false
	}
}

// IsCash reports whether the driver collected the fare in cash.
func (m PaymentMethod) IsCash() bool {
	return m == PaymentMethodCash
}

// ParsePaymentMethod maps external spellings ("card", "bank-transfer", "transfer")
// onto the canonical enum. Unknown values are returned verbatim so that the
// settlement guard can reject them instead of silently defaulting.
func ParsePaymentMethod(raw string) PaymentMethod {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, "-", "_")

	switch normalized {
	case "CASH":
		return PaymentMethodCash
	case "CARD", "CREDIT_CARD":
		return PaymentMethodCard
	case "BANK_TRANSFER", "TRANSFER":
		return PaymentMethodBankTransfer
	default:
		return PaymentMethod(raw)
	}
}

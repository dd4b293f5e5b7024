package service

import (
	"github.com/shopspring/decimal"

	"transferledger/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Terms carries the driver-side pricing terms that are not part of the trip.
// CommissionRate is a percentage and only applies to affiliated drivers; ad-hoc
// drivers bring their fixed fee on the assignment.
type Terms struct {
	CommissionRate decimal.Decimal
}

// Settle computes the financial consequences of completing a trip.
//
//	affiliated, cash:          driver owes the commission      -(price*r/100)
//	affiliated, card/transfer: company owes net of commission  +(price - commission)
//	ad-hoc, cash:              driver owes the company share   -(price - fee)
//	ad-hoc, card/transfer:     company owes the fixed fee      +fee
//
// Revenue is recognized now only for non-cash trips. Cash revenue waits for
// reconciliation and payouts are expensed when paid, so CompanyExpenseNow is zero.
func Settle(totalPrice decimal.Decimal, method domain.PaymentMethod, assignment *domain.DriverAssignment, terms Terms) (domain.Settlement, error) {
	if assignment == nil {
		return domain.Settlement{}, ErrUnassigned
	}
	if !method.Valid() {
		return domain.Settlement{}, ErrInvalidPaymentMethod
	}
	if !totalPrice.IsPositive() {
		return domain.Settlement{}, ErrInvalidAmount
	}
	if err := assignment.Validate(); err != nil {
		return domain.Settlement{}, err
	}

	price := totalPrice.Round(2)

	var companyShare decimal.Decimal
	switch assignment.Kind {
	case domain.DriverKindAffiliated:
		if err := validateCommissionRate(terms.CommissionRate); err != nil {
			return domain.Settlement{}, err
		}
		companyShare = price.Mul(terms.CommissionRate).Div(hundred).Round(2)
	case domain.DriverKindAdHoc:
		companyShare = price.Sub(assignment.AdHoc.FixedFee.Round(2))
	}

	settlement := domain.Settlement{
		CompanyRevenue:    decimal.Zero,
		CompanyExpenseNow: decimal.Zero,
		CompanyShare:      companyShare,
	}

	if method.IsCash() {
		settlement.DriverDelta = companyShare.Neg()
	} else {
		settlement.DriverDelta = price.Sub(companyShare)
		settlement.CompanyRevenue = price
	}

	return settlement, nil
}

func validateCommissionRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(hundred) {
		return ErrInvalidCommissionRate
	}
	return nil
}

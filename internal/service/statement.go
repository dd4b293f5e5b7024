package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"transferledger/internal/domain"
)

// StatementService renders driver account statements.
type StatementService struct {
	ledger *DriverLedger
	now    func() time.Time
}

// NewStatementService creates a new StatementService.
func NewStatementService(ledger *DriverLedger) *StatementService {
	return &StatementService{
		ledger: ledger,
		now:    time.Now,
	}
}

// Statement is a point-in-time view of a driver account and its transactions.
type Statement struct {
	Account      *domain.DriverAccount
	Transactions []*domain.Transaction
	Earnings     decimal.Decimal
	Debts        decimal.Decimal
	Payouts      decimal.Decimal
	Handovers    decimal.Decimal
	GeneratedAt  time.Time
}

// GenerateStatement builds the statement of a driver.
func (s *StatementService) GenerateStatement(ctx context.Context, key domain.DriverKey) (*Statement, error) {
	account, err := s.ledger.Account(ctx, key)
	if err != nil {
		return nil, err
	}

	txns, err := s.ledger.History(ctx, key)
	if err != nil {
		return nil, err
	}

	statement := &Statement{
		Account:      account,
		Transactions: txns,
		Earnings:     decimal.Zero,
		Debts:        decimal.Zero,
		Payouts:      decimal.Zero,
		Handovers:    decimal.Zero,
		GeneratedAt:  s.now(),
	}
	for _, txn := range txns {
		switch txn.Kind {
		case domain.TransactionEarning:
			statement.Earnings = statement.Earnings.Add(txn.Amount)
		case domain.TransactionDebt:
			statement.Debts = statement.Debts.Add(txn.Amount)
		case domain.TransactionPayout:
			statement.Payouts = statement.Payouts.Add(txn.Amount)
		case domain.TransactionCashHandover:
			statement.Handovers = statement.Handovers.Add(txn.Amount)
		}
	}

	return statement, nil
}

// FormatStatement formats the statement as plain text (for email/print).
func (s *StatementService) FormatStatement(statement *Statement) string {
	account := statement.Account

	var b strings.Builder
	b.WriteString(`
=====================================
        DRIVER STATEMENT
=====================================
Driver:  ` + account.Name + `
Key:     ` + account.Key.String() + `
Type:    ` + string(account.Kind) + `
Date:    ` + statement.GeneratedAt.Format("Jan 02, 2006 3:04 PM") + `

TRANSACTIONS
-------------------------------------
`)

	if len(statement.Transactions) == 0 {
		b.WriteString("(none)\n")
	}
	for _, txn := range statement.Transactions {
		fmt.Fprintf(&b, "%s  %-13s %10s  %10s  %s\n",
			txn.CreatedAt.Format("2006-01-02"),
			txn.Kind,
			formatSigned(txn.Delta()),
			formatAmount(txn.BalanceAfter),
			txn.Reference,
		)
	}

	b.WriteString(`
SUMMARY
-------------------------------------
Earnings:       ` + formatAmount(statement.Earnings) + `
Debts:          ` + formatAmount(statement.Debts) + `
Payouts:        ` + formatAmount(statement.Payouts) + `
Cash handovers: ` + formatAmount(statement.Handovers) + `
-------------------------------------
BALANCE:        ` + formatSigned(account.Balance) + `
` + balanceNote(account.Balance) + `
=====================================
`)

	return b.String()
}

func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func formatSigned(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + d.StringFixed(2)
	}
	return d.StringFixed(2)
}

func balanceNote(balance decimal.Decimal) string {
	switch {
	case balance.IsPositive():
		return "Company owes driver."
	case balance.IsNegative():
		return "Driver owes company."
	default:
		return "Settled."
	}
}

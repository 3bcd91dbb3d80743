package core

import (
	"fmt"
	"time"
)

// Statement is one user's activity inside one billing period.
type Statement struct {
	User        User
	Period      BillingPeriod
	Lines       []Transaction
	TotalDue    Money
	TotalCredit Money
}

// UserSummary aggregates a user's whole transaction history.
type UserSummary struct {
	User         User
	Transactions int64
	TotalCredit  Money
	TotalDebit   Money
}

// BuildStatement keeps the transactions inside period and totals the debits.
//
// Input order is preserved. Credits are listed but never reduce TotalDue.
// A total that would not fit in int64 cents yields ErrAmountOverflow.
func BuildStatement(user User, period BillingPeriod, txs []Transaction, loc *time.Location) (Statement, error) {
	st := Statement{
		User:   user,
		Period: period,
		Lines:  make([]Transaction, 0, len(txs)),
	}
	for _, t := range txs {
		if t.UserID != user.ID || !period.Contains(t.CreatedAt, loc) {
			continue
		}
		st.Lines = append(st.Lines, t)
		var err error
		switch t.Kind {
		case Debit:
			st.TotalDue, err = st.TotalDue.CheckedAdd(t.Amount)
		case Credit:
			st.TotalCredit, err = st.TotalCredit.CheckedAdd(t.Amount)
		}
		if err != nil {
			return Statement{}, fmt.Errorf("transaction %d: %w", t.ID, err)
		}
	}
	return st, nil
}

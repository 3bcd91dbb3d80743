package core

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestBuildStatementFiltersAndTotalsDebits(t *testing.T) {
	user := User{ID: 7, Name: "Jane Doe", Email: "jane@example.com", Role: RoleMember}
	period, err := ComputeBillingPeriod(NewDate(2024, 3, 10))
	if err != nil {
		t.Fatalf("period: %v", err)
	}
	in := time.Date(2024, 2, 20, 9, 30, 0, 0, time.UTC)
	txs := []Transaction{
		{ID: 1, UserID: 7, Amount: Money{Cents: 10000}, Kind: Credit, Description: "payment", CreatedAt: in},
		{ID: 2, UserID: 7, Amount: Money{Cents: 5000}, Kind: Debit, Description: "groceries", CreatedAt: in.Add(time.Hour)},
		{ID: 3, UserID: 7, Amount: Money{Cents: 99900}, Kind: Debit, Description: "later", CreatedAt: time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC)},
	}

	st, err := BuildStatement(user, period, txs, time.UTC)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(st.Lines) != 2 || st.Lines[0].ID != 1 || st.Lines[1].ID != 2 {
		t.Fatalf("unexpected lines: %+v", st.Lines)
	}
	if st.TotalDue.Cents != 5000 {
		t.Fatalf("total due = %d, want 5000", st.TotalDue.Cents)
	}
	if st.TotalCredit.Cents != 10000 {
		t.Fatalf("total credit = %d, want 10000", st.TotalCredit.Cents)
	}

	again, err := BuildStatement(user, period, txs, time.UTC)
	if err != nil {
		t.Fatalf("build again: %v", err)
	}
	if again.TotalDue != st.TotalDue || len(again.Lines) != len(st.Lines) {
		t.Fatalf("aggregation not idempotent")
	}
}

func TestBuildStatementEmpty(t *testing.T) {
	period, _ := ComputeBillingPeriod(NewDate(2024, 1, 5))
	st, err := BuildStatement(User{ID: 1}, period, nil, time.UTC)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if st.Lines == nil || len(st.Lines) != 0 || st.TotalDue.Cents != 0 {
		t.Fatalf("expected empty statement, got %+v", st)
	}
}

func TestBuildStatementIgnoresOtherUsers(t *testing.T) {
	period, _ := ComputeBillingPeriod(NewDate(2024, 1, 5))
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	st, err := BuildStatement(User{ID: 1}, period, []Transaction{
		{ID: 1, UserID: 2, Amount: Money{Cents: 100}, Kind: Debit, CreatedAt: ts},
	}, time.UTC)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(st.Lines) != 0 || st.TotalDue.Cents != 0 {
		t.Fatalf("foreign transaction leaked into statement: %+v", st)
	}
}

func TestBuildStatementOverflow(t *testing.T) {
	period, _ := ComputeBillingPeriod(NewDate(2024, 3, 10))
	ts := time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)
	huge := Money{Cents: math.MaxInt64/2 + 1}
	_, err := BuildStatement(User{ID: 1}, period, []Transaction{
		{ID: 1, UserID: 1, Amount: huge, Kind: Debit, CreatedAt: ts},
		{ID: 2, UserID: 1, Amount: huge, Kind: Debit, CreatedAt: ts},
	}, time.UTC)
	if !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("expected ErrAmountOverflow, got %v", err)
	}
}

package core

import (
	"strings"
	"testing"
	"time"
)

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 0}).Validate(); err != nil {
		t.Fatalf("expected zero to be valid, got %v", err)
	}
	if err := (Money{Cents: -1}).Validate(); err == nil {
		t.Fatalf("expected error for negative")
	}
}

func TestUserValidate(t *testing.T) {
	good := User{Name: "Jane Doe", Email: "jane@example.com", Role: RoleMember}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []User{
		{Name: "", Email: "jane@example.com", Role: RoleMember},
		{Name: "Jane", Email: "not-an-email", Role: RoleMember},
		{Name: "Jane", Email: "Jane@Example.com", Role: RoleMember}, // not normalised
		{Name: "Jane", Email: "jane@example.com", Role: "owner"},
	}
	for i, u := range bads {
		if err := u.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	good := Transaction{UserID: 1, Amount: Money{Cents: 100}, Kind: Debit, Description: "ok", CreatedAt: now}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{UserID: 0, Amount: Money{Cents: 1}, Kind: Debit, CreatedAt: now},
		{UserID: 1, Amount: Money{Cents: -1}, Kind: Debit, CreatedAt: now},
		{UserID: 1, Amount: Money{Cents: 1}, Kind: "refund", CreatedAt: now},
		{UserID: 1, Amount: Money{Cents: 1}, Kind: Credit, Description: strings.Repeat("x", 201), CreatedAt: now},
		{UserID: 1, Amount: Money{Cents: 1}, Kind: Credit},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseKindAndRole(t *testing.T) {
	if k, err := ParseTransactionKind(" DEBIT "); err != nil || k != Debit {
		t.Fatalf("unexpected kind %q %v", k, err)
	}
	if _, err := ParseTransactionKind("transfer"); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
	if r, err := ParseRole(""); err != nil || r != RoleMember {
		t.Fatalf("expected member default, got %q %v", r, err)
	}
	if r, err := ParseRole("Admin"); err != nil || !(User{Role: r}).IsAdmin() {
		t.Fatalf("expected admin, got %q %v", r, err)
	}
	if _, err := ParseRole("root"); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}

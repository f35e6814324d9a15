package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewTransaction_ComputesNet(t *testing.T) {
	userID := uuid.New()
	tx, err := NewTransaction(userID, TxEarn, 98, 2, TransactionMeta{})
	if err != nil {
		t.Fatalf("NewTransaction returned error: %v", err)
	}
	if tx.NetCredits != 96 {
		t.Fatalf("expected net 96, got %d", tx.NetCredits)
	}
	if tx.Status != TxCompleted {
		t.Fatalf("expected default status completed, got %q", tx.Status)
	}
	if tx.ID == uuid.Nil {
		t.Fatal("expected a generated transaction id")
	}
	if tx.UserID != userID {
		t.Fatalf("expected user id %s, got %s", userID, tx.UserID)
	}
}

func TestNewTransaction_Validation(t *testing.T) {
	userID := uuid.New()
	tests := []struct {
		name   string
		txType TransactionType
		amount int64
		fee    int64
	}{
		{name: "rejects unknown type", txType: "gift", amount: 10, fee: 0},
		{name: "rejects negative amount", txType: TxEnroll, amount: -1, fee: 0},
		{name: "rejects negative fee", txType: TxEarn, amount: 10, fee: -1},
		{name: "rejects fee above amount", txType: TxEarn, amount: 10, fee: 11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewTransaction(userID, tt.txType, tt.amount, tt.fee, TransactionMeta{}); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestNewTransaction_AllowsZeroAmount(t *testing.T) {
	// Badge promotion and decay markers are zero-credit entries.
	tx, err := NewTransaction(uuid.New(), TxBonus, 0, 0, TransactionMeta{
		Bonus: &BonusMeta{Reason: "weekly_leaderboard_promotion"},
	})
	if err != nil {
		t.Fatalf("NewTransaction returned error: %v", err)
	}
	if tx.NetCredits != 0 {
		t.Fatalf("expected net 0, got %d", tx.NetCredits)
	}
}

func TestValidTransactionType(t *testing.T) {
	for _, valid := range []TransactionType{TxEnroll, TxPurchase, TxCashout, TxOnboarding, TxBonus, TxRefund, TxEarn} {
		if !ValidTransactionType(valid) {
			t.Fatalf("expected %q to be valid", valid)
		}
	}
	if ValidTransactionType("loan") {
		t.Fatal("expected \"loan\" to be invalid")
	}
}

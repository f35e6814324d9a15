/**
 * @description
 * This file defines the ledger model for the economy-service. Every credit
 * movement in the system is recorded as an immutable Transaction row; only
 * the status field transitions after creation (pending -> completed/failed/
 * cancelled, used by cashouts awaiting the external payout).
 *
 * @notes
 * - Credits are stored as int64 whole units; fractional credits do not exist,
 *   which avoids floating-point drift in financial data.
 * - Each transaction belongs to exactly one account. A three-way enrollment
 *   settlement produces three rows (learner debit, instructor credit,
 *   platform fee credit) that reference each other through typed metadata,
 *   not a shared settlement id.
 */

package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TransactionType is the business reason for a credit movement.
type TransactionType string

const (
	TxEnroll     TransactionType = "enroll"
	TxPurchase   TransactionType = "purchase"
	TxCashout    TransactionType = "cashout"
	TxOnboarding TransactionType = "onboarding"
	TxBonus      TransactionType = "bonus"
	TxRefund     TransactionType = "refund"
	TxEarn       TransactionType = "earn"
)

// ValidTransactionType reports whether t is one of the defined ledger types.
func ValidTransactionType(t TransactionType) bool {
	switch t {
	case TxEnroll, TxPurchase, TxCashout, TxOnboarding, TxBonus, TxRefund, TxEarn:
		return true
	}
	return false
}

// TransactionStatus is the lifecycle state of a ledger entry.
type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxCompleted TransactionStatus = "completed"
	TxFailed    TransactionStatus = "failed"
	TxCancelled TransactionStatus = "cancelled"
)

// Transaction is one row in the append-only credit ledger.
type Transaction struct {
	ID              uuid.UUID         `json:"id"`
	UserID          uuid.UUID         `json:"user_id"`
	Type            TransactionType   `json:"type"`
	AmountCredits   int64             `json:"amount_credits"`
	FeeCredits      int64             `json:"fee_credits"`
	NetCredits      int64             `json:"net_credits"`
	Meta            TransactionMeta   `json:"meta"`
	Description     string            `json:"description,omitempty"`
	Status          TransactionStatus `json:"status"`
	RelatedUserID   *uuid.UUID        `json:"related_user_id,omitempty"`
	RelatedCourseID *uuid.UUID        `json:"related_course_id,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// TransactionMeta is the tagged metadata variant attached to a ledger entry.
// Exactly one field is populated, matching the transaction type, so each
// payload is statically checkable instead of an open key-value bag.
type TransactionMeta struct {
	Enroll  *EnrollMeta  `json:"enroll,omitempty"`
	Earn    *EarnMeta    `json:"earn,omitempty"`
	Fee     *FeeMeta     `json:"fee,omitempty"`
	Bonus   *BonusMeta   `json:"bonus,omitempty"`
	Cashout *CashoutMeta `json:"cashout,omitempty"`
	Refund  *RefundMeta  `json:"refund,omitempty"`
}

// EnrollMeta records the pricing context of a learner's enrollment debit.
type EnrollMeta struct {
	CourseID        uuid.UUID `json:"course_id"`
	OriginalPrice   int64     `json:"original_price"`
	DiscountPercent float64   `json:"discount_percent"`
	DiscountAmount  int64     `json:"discount_amount"`
}

// EarnMeta records the counterparty context of an instructor's earning credit.
type EarnMeta struct {
	CourseID   uuid.UUID `json:"course_id"`
	LearnerID  uuid.UUID `json:"learner_id"`
	FeePercent float64   `json:"fee_percent"`
}

// FeeMeta records the parties behind a platform fee credit.
type FeeMeta struct {
	CourseID     uuid.UUID `json:"course_id"`
	LearnerID    uuid.UUID `json:"learner_id"`
	InstructorID uuid.UUID `json:"instructor_id"`
	FeePercent   float64   `json:"fee_percent"`
}

// BonusMeta records the reason for a bonus entry, including the zero-credit
// badge promotion and decay markers written by the scheduled jobs.
type BonusMeta struct {
	Reason        string     `json:"reason"`
	CourseID      *uuid.UUID `json:"course_id,omitempty"`
	AwardedBy     *uuid.UUID `json:"awarded_by,omitempty"`
	PointsAwarded int64      `json:"points_awarded,omitempty"`
	BadgeUpgraded bool       `json:"badge_upgraded,omitempty"`
	OldBadge      string     `json:"old_badge,omitempty"`
	NewBadge      string     `json:"new_badge,omitempty"`
	Rank          int        `json:"rank,omitempty"`
}

// CashoutMeta records the payout context of a pending cashout debit.
type CashoutMeta struct {
	PaymentMethod    string  `json:"payment_method"`
	FiatAmount       float64 `json:"fiat_amount"`
	CreditToFiatRate float64 `json:"credit_to_fiat_rate"`
}

// RefundMeta records which transaction a compensating refund reverses.
type RefundMeta struct {
	ReversesTransactionID uuid.UUID `json:"reverses_transaction_id"`
	Reason                string    `json:"reason"`
}

// NewTransaction builds a ledger entry, computing net credits at creation.
// Amount and fee must be non-negative and the fee may not exceed the amount.
func NewTransaction(userID uuid.UUID, txType TransactionType, amount, fee int64, meta TransactionMeta) (*Transaction, error) {
	if !ValidTransactionType(txType) {
		return nil, fmt.Errorf("invalid transaction type %q", txType)
	}
	if amount < 0 {
		return nil, fmt.Errorf("transaction amount must be non-negative, got %d", amount)
	}
	if fee < 0 {
		return nil, fmt.Errorf("transaction fee must be non-negative, got %d", fee)
	}
	if fee > amount {
		return nil, fmt.Errorf("transaction fee %d exceeds amount %d", fee, amount)
	}
	return &Transaction{
		ID:            uuid.New(),
		UserID:        userID,
		Type:          txType,
		AmountCredits: amount,
		FeeCredits:    fee,
		NetCredits:    amount - fee,
		Meta:          meta,
		Status:        TxCompleted,
	}, nil
}

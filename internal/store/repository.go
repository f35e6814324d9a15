/**
 * @description
 * This file defines the Repository interface for the economy-service. It
 * abstracts all persistence operations needed by the application layer so the
 * business logic can be tested against in-memory stubs.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/skillswap/economy-service/internal/domain"
)

// SettlementParams carries everything a pre-validated enrollment settlement
// needs to execute atomically. The service computes prices and builds the
// three ledger entries; the repository applies them all-or-nothing.
type SettlementParams struct {
	LearnerID          uuid.UUID
	InstructorID       uuid.UUID
	PlatformUserID     uuid.UUID
	CourseID           uuid.UUID
	FinalPrice         int64
	InstructorEarnings int64
	PlatformFee        int64
	Entries            [3]*domain.Transaction // learner enroll, instructor earn, platform fee
}

// SettlementResult reports the committed outcome of a settlement.
type SettlementResult struct {
	RemainingBalance int64
}

// Repository defines the persistence operations used by the economy service
// and its scheduled jobs.
type Repository interface {
	// Users and courses (collaborator records).
	FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	FindCourseByID(ctx context.Context, courseID uuid.UUID) (*domain.Course, error)
	IsEnrolled(ctx context.Context, learnerID, courseID uuid.UUID) (bool, error)

	// Wallet.
	FindAccountByUserID(ctx context.Context, userID uuid.UUID) (*domain.Account, error)
	CreditWallet(ctx context.Context, userID uuid.UUID, amount int64) error
	DebitWallet(ctx context.Context, userID uuid.UUID, amount int64) error

	// Ledger.
	CreateTransaction(ctx context.Context, tx *domain.Transaction) error
	FindTransactionByID(ctx context.Context, txID uuid.UUID) (*domain.Transaction, error)
	MarkTransactionCompleted(ctx context.Context, txID uuid.UUID) error
	ListTransactionsByUser(ctx context.Context, userID uuid.UUID, opts domain.TransactionListOptions) ([]domain.Transaction, error)

	// Cashout failure: status flip, wallet credit, and refund entry commit
	// as one unit so a transient error leaves the cashout pending.
	RefundCashout(ctx context.Context, cashoutID uuid.UUID, refund *domain.Transaction) error

	// Enrollment settlement, one atomic unit.
	SettleEnrollment(ctx context.Context, params SettlementParams) (*SettlementResult, error)

	// Badge progression.
	AddPerformancePoints(ctx context.Context, userID uuid.UUID, points int64, now time.Time) (int64, error)
	UpdateBadge(ctx context.Context, userID uuid.UUID, badge domain.Badge) error
	RecordBadgePromotion(ctx context.Context, userID uuid.UUID, weekStart time.Time, badge domain.Badge) (bool, error)
	ApplyBadgeDecay(ctx context.Context, userID uuid.UUID, badge domain.Badge, decayedAt time.Time) error

	// Batch job and leaderboard queries.
	TopActiveLearners(ctx context.Context, activeSince time.Time, limit int) ([]domain.User, error)
	RankedLearners(ctx context.Context, activeSince time.Time, limit int) ([]domain.User, error)
	InactiveLearners(ctx context.Context, inactiveBefore time.Time) ([]domain.User, error)

	// Provisioning.
	EnsurePlatformAccount(ctx context.Context, platformUserID uuid.UUID) error
	ProvisionUser(ctx context.Context, user *domain.User, onboardingBonus int64, bonusEntry *domain.Transaction) error
}

/**
 * @description
 * Views of the collaborator entities the economy core reads and writes: user
 * accounts (badge progression state), wallet rows (spendable balance), and
 * courses (price and enrollment gate). The user/course stores own the full
 * records; these structs carry only the fields the economy logic touches.
 *
 * @notes
 * - The wallet row is the single source of truth for a user's spendable
 *   balance. There is no mirrored credits field on the user row.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Roles recognized by the economy service.
const (
	RoleStudent    = "student"
	RoleInstructor = "instructor"
	RoleAdmin      = "admin"
)

// User is the economy-service's view of a user record.
type User struct {
	ID                uuid.UUID `json:"id"`
	Username          string    `json:"username"`
	Role              string    `json:"role"`
	PerformancePoints int64     `json:"performance_points"`
	Badge             Badge     `json:"badge"`
	LastActivity      time.Time `json:"last_activity"`
	IsActive          bool      `json:"is_active"`
}

// Account is a user's wallet row. Balance is in whole credits and is never
// negative; the store enforces that under a row lock.
type Account struct {
	ID      uuid.UUID `json:"id"`
	UserID  uuid.UUID `json:"user_id"`
	Balance int64     `json:"balance"`
}

// Course is the economy-service's view of a course record.
type Course struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	InstructorID    uuid.UUID `json:"instructor_id"`
	Price           int64     `json:"price"` // in credits
	IsPublished     bool      `json:"is_published"`
	EnrollmentCount int       `json:"enrollment_count"`
	MaxEnrollments  int       `json:"max_enrollments"` // 0 = unlimited
}

// EnrollmentOpen reports whether a learner may enroll right now.
func (c *Course) EnrollmentOpen() bool {
	if !c.IsPublished {
		return false
	}
	if c.MaxEnrollments > 0 && c.EnrollmentCount >= c.MaxEnrollments {
		return false
	}
	return true
}

// EnrollmentReceipt is returned to the learner after a settled enrollment.
type EnrollmentReceipt struct {
	CourseID         uuid.UUID `json:"course_id"`
	CourseTitle      string    `json:"course_title"`
	OriginalPrice    int64     `json:"original_price"`
	DiscountPercent  float64   `json:"discount_percent"`
	DiscountAmount   int64     `json:"discount_amount"`
	CreditsSpent     int64     `json:"credits_spent"`
	RemainingBalance int64     `json:"remaining_balance"`
}

// BalanceSummary is the wallet view returned by the balance endpoint.
type BalanceSummary struct {
	Balance            int64         `json:"balance"`
	PerformancePoints  int64         `json:"performance_points"`
	Badge              Badge         `json:"badge"`
	BadgeDisplayName   string        `json:"badge_display_name"`
	DiscountPercent    float64       `json:"discount_percent"`
	RecentTransactions []Transaction `json:"recent_transactions"`
}

// AwardPointsResult reports the effect of a performance point award.
type AwardPointsResult struct {
	UserID            uuid.UUID `json:"user_id"`
	PointsAwarded     int64     `json:"points_awarded"`
	PerformancePoints int64     `json:"performance_points"`
	BadgeUpgraded     bool      `json:"badge_upgraded"`
	OldBadge          string    `json:"old_badge"`
	NewBadge          string    `json:"new_badge"`
}

// CashoutReceipt is returned after a cashout request is accepted.
type CashoutReceipt struct {
	TransactionID   uuid.UUID `json:"transaction_id"`
	RequestedAmount int64     `json:"requested_amount"`
	CashoutFee      int64     `json:"cashout_fee"`
	NetAmount       int64     `json:"net_amount"`
	FiatAmount      float64   `json:"fiat_amount"`
	PaymentMethod   string    `json:"payment_method"`
	Status          string    `json:"status"`
}

// LeaderboardWindow selects the activity window for leaderboard ranking.
type LeaderboardWindow string

const (
	LeaderboardWeekly  LeaderboardWindow = "weekly"
	LeaderboardMonthly LeaderboardWindow = "monthly"
	LeaderboardAllTime LeaderboardWindow = "alltime"
)

// LeaderboardEntry is one ranked row of the leaderboard.
type LeaderboardEntry struct {
	Rank              int       `json:"rank"`
	UserID            uuid.UUID `json:"user_id"`
	Username          string    `json:"username"`
	PerformancePoints int64     `json:"performance_points"`
	Badge             Badge     `json:"badge"`
	BadgeDisplayName  string    `json:"badge_display_name"`
}

// TransactionListOptions controls pagination and filtering of ledger queries.
type TransactionListOptions struct {
	Type   TransactionType
	Limit  int
	Offset int
}

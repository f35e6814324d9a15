/**
 * @description
 * This package contains the core application logic for the economy-service.
 * The Service struct orchestrates enrollment settlements, performance-point
 * awards and badge upgrades, cashouts with compensating refunds, credit
 * purchases, user provisioning, and leaderboard reads, coordinating between
 * the repository and the event producer.
 *
 * @dependencies
 * - internal/domain: Core data structures and the badge engine.
 * - internal/store: Repository interface for data persistence.
 * - pkg/rabbitmq: Event publishing for settlement and badge changes.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skillswap/economy-service/internal/domain"
	"github.com/skillswap/economy-service/internal/store"
	"github.com/skillswap/economy-service/pkg/rabbitmq"
)

var (
	// ErrValidation indicates the request failed a business rule check
	// before any state was touched.
	ErrValidation = errors.New("validation failed")
	// ErrNotAuthorized indicates the caller may not perform the operation.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrNotEnrolled indicates the learner is not enrolled in the course.
	ErrNotEnrolled = errors.New("learner is not enrolled in course")
	// ErrSettlementFailed indicates the settlement could not be committed
	// after retries.
	ErrSettlementFailed = errors.New("settlement failed")
)

// settlementRetries bounds the attempts for a settlement that keeps losing
// serialization conflicts under contention.
const settlementRetries = 3

// Limits on instructor-awarded performance points.
const (
	MinAwardPoints    = 1
	MaxAwardPoints    = 1000
	MaxAwardReasonLen = 200
)

// recentTransactionCount is how many ledger entries the balance summary
// includes.
const recentTransactionCount = 10

// Service provides the core business logic for the credits economy.
type Service struct {
	repo     store.Repository
	producer rabbitmq.Publisher

	platformUserID         uuid.UUID
	platformFeePercent     float64
	cashoutFeePercent      float64
	minCashoutCredits      int64
	creditToFiatRate       float64
	onboardingBonusCredits int64

	// Per-window leaderboard sizes, used when the caller does not ask
	// for an explicit limit.
	weeklyTopCount  int
	monthlyTopCount int
	allTimeTopCount int

	// now is injectable for deterministic tests.
	now func() time.Time
}

// ServiceParams bundles the dependencies and policy values for NewService.
type ServiceParams struct {
	Repo     store.Repository
	Producer rabbitmq.Publisher

	PlatformUserID         uuid.UUID
	PlatformFeePercent     float64
	CashoutFeePercent      float64
	MinCashoutCredits      int64
	CreditToFiatRate       float64
	OnboardingBonusCredits int64

	WeeklyTopCount  int
	MonthlyTopCount int
	AllTimeTopCount int
}

// NewService creates a new instance of the economy service.
func NewService(p ServiceParams) *Service {
	return &Service{
		repo:                   p.Repo,
		producer:               p.Producer,
		platformUserID:         p.PlatformUserID,
		platformFeePercent:     p.PlatformFeePercent,
		cashoutFeePercent:      p.CashoutFeePercent,
		minCashoutCredits:      p.MinCashoutCredits,
		creditToFiatRate:       p.CreditToFiatRate,
		onboardingBonusCredits: p.OnboardingBonusCredits,
		weeklyTopCount:         p.WeeklyTopCount,
		monthlyTopCount:        p.MonthlyTopCount,
		allTimeTopCount:        p.AllTimeTopCount,
		now:                    time.Now,
	}
}

// feeFor computes a whole-credit fee, rounding down so the payee never loses
// a fraction of a credit to rounding.
func feeFor(amount int64, percent float64) int64 {
	if amount <= 0 || percent <= 0 {
		return 0
	}
	fee := int64(math.Floor(float64(amount) * percent / 100.0))
	if fee > amount {
		return amount
	}
	return fee
}

// discountedPrice applies a badge discount to a course price. The discount
// amount rounds down and never exceeds the price.
func discountedPrice(price int64, discountPercent float64) (final, discount int64) {
	if price <= 0 {
		return 0, 0
	}
	discount = int64(math.Floor(float64(price) * discountPercent / 100.0))
	if discount > price {
		discount = price
	}
	return price - discount, discount
}

// Enroll settles a course enrollment: it applies the learner's badge
// discount, debits the learner, credits the instructor net of the platform
// fee, credits the platform account, and writes the three ledger entries,
// all within a single database transaction. Preconditions are checked
// before any money moves.
func (s *Service) Enroll(ctx context.Context, learnerID, courseID uuid.UUID) (*domain.EnrollmentReceipt, error) {
	learner, err := s.repo.FindUserByID(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load learner: %w", err)
	}
	course, err := s.repo.FindCourseByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load course: %w", err)
	}
	if course.InstructorID == learnerID {
		return nil, fmt.Errorf("%w: instructors cannot enroll in their own course", ErrValidation)
	}
	if !course.EnrollmentOpen() {
		return nil, store.ErrEnrollmentClosed
	}
	enrolled, err := s.repo.IsEnrolled(ctx, learnerID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}
	if enrolled {
		return nil, store.ErrAlreadyEnrolled
	}

	discountPercent := learner.Badge.Discount()
	finalPrice, discountAmount := discountedPrice(course.Price, discountPercent)
	platformFee := feeFor(finalPrice, s.platformFeePercent)
	instructorEarnings := finalPrice - platformFee

	account, err := s.repo.FindAccountByUserID(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load learner account: %w", err)
	}
	if account.Balance < finalPrice {
		return nil, store.ErrInsufficientFunds
	}

	enrollEntry, err := domain.NewTransaction(learnerID, domain.TxEnroll, finalPrice, 0, domain.TransactionMeta{
		Enroll: &domain.EnrollMeta{
			CourseID:        courseID,
			OriginalPrice:   course.Price,
			DiscountPercent: discountPercent,
			DiscountAmount:  discountAmount,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build enrollment entry: %w", err)
	}
	enrollEntry.Description = fmt.Sprintf("Enrollment in %s", course.Title)
	enrollEntry.RelatedUserID = &course.InstructorID
	enrollEntry.RelatedCourseID = &courseID

	earnEntry, err := domain.NewTransaction(course.InstructorID, domain.TxEarn, finalPrice, platformFee, domain.TransactionMeta{
		Earn: &domain.EarnMeta{
			CourseID:   courseID,
			LearnerID:  learnerID,
			FeePercent: s.platformFeePercent,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build earn entry: %w", err)
	}
	earnEntry.Description = fmt.Sprintf("Earnings from %s", course.Title)
	earnEntry.RelatedUserID = &learnerID
	earnEntry.RelatedCourseID = &courseID

	feeEntry, err := domain.NewTransaction(s.platformUserID, domain.TxBonus, platformFee, 0, domain.TransactionMeta{
		Fee: &domain.FeeMeta{
			CourseID:     courseID,
			LearnerID:    learnerID,
			InstructorID: course.InstructorID,
			FeePercent:   s.platformFeePercent,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build fee entry: %w", err)
	}
	feeEntry.Description = fmt.Sprintf("Platform fee for %s", course.Title)
	feeEntry.RelatedCourseID = &courseID

	params := store.SettlementParams{
		LearnerID:          learnerID,
		InstructorID:       course.InstructorID,
		PlatformUserID:     s.platformUserID,
		CourseID:           courseID,
		FinalPrice:         finalPrice,
		InstructorEarnings: instructorEarnings,
		PlatformFee:        platformFee,
		Entries:            [3]*domain.Transaction{enrollEntry, earnEntry, feeEntry},
	}

	var result *store.SettlementResult
	for attempt := 1; attempt <= settlementRetries; attempt++ {
		result, err = s.repo.SettleEnrollment(ctx, params)
		if err == nil {
			break
		}
		if !store.IsSerializationFailure(err) {
			return nil, err
		}
		log.Printf("level=warn component=service msg=\"settlement hit serialization conflict; retrying\" learner_id=%s course_id=%s attempt=%d", learnerID, courseID, attempt)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSettlementFailed, err)
	}

	if err := s.producer.PublishSettlementEvent(ctx, rabbitmq.SettlementEvent{
		LearnerID:       learnerID,
		InstructorID:    course.InstructorID,
		CourseID:        courseID,
		CreditsSpent:    finalPrice,
		InstructorNet:   instructorEarnings,
		PlatformFee:     platformFee,
		DiscountApplied: discountPercent,
		Timestamp:       s.now().UTC(),
	}); err != nil {
		// The settlement is committed; event delivery is best-effort.
		log.Printf("level=error component=service msg=\"failed to publish settlement event\" learner_id=%s course_id=%s error=%v", learnerID, courseID, err)
	}

	log.Printf("level=info component=service msg=\"enrollment settled\" learner_id=%s course_id=%s credits_spent=%d instructor_net=%d platform_fee=%d discount=%d",
		learnerID, courseID, finalPrice, instructorEarnings, platformFee, discountAmount)

	return &domain.EnrollmentReceipt{
		CourseID:         courseID,
		CourseTitle:      course.Title,
		OriginalPrice:    course.Price,
		DiscountPercent:  discountPercent,
		DiscountAmount:   discountAmount,
		CreditsSpent:     finalPrice,
		RemainingBalance: result.RemainingBalance,
	}, nil
}

// AwardPoints grants performance points to a learner for work in a course,
// then re-evaluates the learner's badge, advancing it a single step at most.
// Only the course instructor or an admin may award points.
func (s *Service) AwardPoints(ctx context.Context, callerID, learnerID, courseID uuid.UUID, points int64, reason string) (*domain.AwardPointsResult, error) {
	if points < MinAwardPoints || points > MaxAwardPoints {
		return nil, fmt.Errorf("%w: points must be between %d and %d", ErrValidation, MinAwardPoints, MaxAwardPoints)
	}
	reason = strings.TrimSpace(reason)
	if len(reason) > MaxAwardReasonLen {
		return nil, fmt.Errorf("%w: reason must not exceed %d characters", ErrValidation, MaxAwardReasonLen)
	}

	course, err := s.repo.FindCourseByID(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load course: %w", err)
	}
	caller, err := s.repo.FindUserByID(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load caller: %w", err)
	}
	if course.InstructorID != callerID && caller.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("%w: only the course instructor or an admin can award points", ErrNotAuthorized)
	}

	learner, err := s.repo.FindUserByID(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load learner: %w", err)
	}
	enrolled, err := s.repo.IsEnrolled(ctx, learnerID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}
	if !enrolled {
		return nil, ErrNotEnrolled
	}

	totalPoints, err := s.repo.AddPerformancePoints(ctx, learnerID, points, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to add performance points: %w", err)
	}

	oldBadge := learner.Badge
	newBadge, change := domain.EvaluateUpgrade(oldBadge, totalPoints)
	if change != domain.BadgeUnchanged {
		if err := s.repo.UpdateBadge(ctx, learnerID, newBadge); err != nil {
			return nil, fmt.Errorf("failed to update badge: %w", err)
		}
	}

	bonusMeta := &domain.BonusMeta{
		Reason:        reason,
		CourseID:      &courseID,
		AwardedBy:     &callerID,
		PointsAwarded: points,
	}
	if change != domain.BadgeUnchanged {
		bonusMeta.BadgeUpgraded = true
		bonusMeta.OldBadge = oldBadge.String()
		bonusMeta.NewBadge = newBadge.String()
	}
	entry, err := domain.NewTransaction(learnerID, domain.TxBonus, 0, 0, domain.TransactionMeta{Bonus: bonusMeta})
	if err != nil {
		return nil, fmt.Errorf("failed to build bonus entry: %w", err)
	}
	entry.Description = fmt.Sprintf("Awarded %d performance points", points)
	entry.RelatedUserID = &callerID
	entry.RelatedCourseID = &courseID
	if err := s.repo.CreateTransaction(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record points award: %w", err)
	}

	if change != domain.BadgeUnchanged {
		if err := s.producer.PublishBadgeEvent(ctx, rabbitmq.BadgeEvent{
			UserID:    learnerID,
			Change:    change.String(),
			OldBadge:  oldBadge.String(),
			NewBadge:  newBadge.String(),
			Reason:    "performance_points",
			Timestamp: s.now().UTC(),
		}); err != nil {
			log.Printf("level=error component=service msg=\"failed to publish badge event\" user_id=%s error=%v", learnerID, err)
		}
		log.Printf("level=info component=service msg=\"badge changed\" user_id=%s change=%s old=%q new=%q total_points=%d",
			learnerID, change, oldBadge, newBadge, totalPoints)
	}

	return &domain.AwardPointsResult{
		UserID:            learnerID,
		PointsAwarded:     points,
		PerformancePoints: totalPoints,
		BadgeUpgraded:     change != domain.BadgeUnchanged,
		OldBadge:          oldBadge.String(),
		NewBadge:          newBadge.String(),
	}, nil
}

// GetBalance returns the user's wallet balance along with their badge, the
// discount it grants, and their most recent ledger entries.
func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (*domain.BalanceSummary, error) {
	user, err := s.repo.FindUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	account, err := s.repo.FindAccountByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	recent, err := s.repo.ListTransactionsByUser(ctx, userID, domain.TransactionListOptions{Limit: recentTransactionCount})
	if err != nil {
		return nil, fmt.Errorf("failed to load recent transactions: %w", err)
	}
	return &domain.BalanceSummary{
		Balance:            account.Balance,
		PerformancePoints:  user.PerformancePoints,
		Badge:              user.Badge,
		BadgeDisplayName:   user.Badge.String(),
		DiscountPercent:    user.Badge.Discount(),
		RecentTransactions: recent,
	}, nil
}

// ListTransactions returns the user's ledger history, newest first, with an
// optional type filter.
func (s *Service) ListTransactions(ctx context.Context, userID uuid.UUID, opts domain.TransactionListOptions) ([]domain.Transaction, error) {
	if opts.Type != "" && !domain.ValidTransactionType(opts.Type) {
		return nil, fmt.Errorf("%w: unknown transaction type %q", ErrValidation, opts.Type)
	}
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 50
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	return s.repo.ListTransactionsByUser(ctx, userID, opts)
}

// PurchaseCredits credits a wallet top-up that was paid for out of band and
// records the purchase in the ledger.
func (s *Service) PurchaseCredits(ctx context.Context, userID uuid.UUID, amount int64, reference string) (*domain.BalanceSummary, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: purchase amount must be positive", ErrValidation)
	}
	if _, err := s.repo.FindUserByID(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	entry, err := domain.NewTransaction(userID, domain.TxPurchase, amount, 0, domain.TransactionMeta{})
	if err != nil {
		return nil, fmt.Errorf("failed to build purchase entry: %w", err)
	}
	entry.Description = "Credit purchase"
	if reference != "" {
		entry.Description = fmt.Sprintf("Credit purchase (ref %s)", reference)
	}
	if err := s.repo.CreditWallet(ctx, userID, amount); err != nil {
		return nil, fmt.Errorf("failed to credit wallet: %w", err)
	}
	if err := s.repo.CreateTransaction(ctx, entry); err != nil {
		// The credit landed but the ledger write failed. Take the
		// credits back so the wallet never holds unrecorded funds.
		if debitErr := s.repo.DebitWallet(ctx, userID, amount); debitErr != nil {
			log.Printf("level=error component=service msg=\"failed to compensate purchase credit\" user_id=%s amount=%d error=%v", userID, amount, debitErr)
		}
		return nil, fmt.Errorf("failed to record purchase: %w", err)
	}

	log.Printf("level=info component=service msg=\"credits purchased\" user_id=%s amount=%d", userID, amount)
	return s.GetBalance(ctx, userID)
}

// RequestCashout debits an instructor's wallet and records a pending cashout
// entry. The fiat payout itself happens downstream; FailCashout issues a
// compensating refund if it never completes.
func (s *Service) RequestCashout(ctx context.Context, userID uuid.UUID, amount int64, paymentMethod string) (*domain.CashoutReceipt, error) {
	user, err := s.repo.FindUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user.Role != domain.RoleInstructor && user.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("%w: only instructors can cash out credits", ErrNotAuthorized)
	}
	if amount < s.minCashoutCredits {
		return nil, fmt.Errorf("%w: minimum cashout is %d credits", ErrValidation, s.minCashoutCredits)
	}

	fee := feeFor(amount, s.cashoutFeePercent)
	net := amount - fee
	fiatAmount := float64(net) * s.creditToFiatRate

	entry, err := domain.NewTransaction(userID, domain.TxCashout, amount, fee, domain.TransactionMeta{
		Cashout: &domain.CashoutMeta{
			PaymentMethod:    paymentMethod,
			FiatAmount:       fiatAmount,
			CreditToFiatRate: s.creditToFiatRate,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build cashout entry: %w", err)
	}
	entry.Status = domain.TxPending
	entry.Description = fmt.Sprintf("Cashout of %d credits", amount)

	if err := s.repo.DebitWallet(ctx, userID, amount); err != nil {
		return nil, err
	}
	if err := s.repo.CreateTransaction(ctx, entry); err != nil {
		// The debit landed but the ledger write failed. Put the
		// credits back so the wallet is not silently short.
		if refundErr := s.repo.CreditWallet(ctx, userID, amount); refundErr != nil {
			log.Printf("level=error component=service msg=\"failed to compensate cashout debit\" user_id=%s amount=%d error=%v", userID, amount, refundErr)
		}
		return nil, fmt.Errorf("failed to record cashout: %w", err)
	}

	log.Printf("level=info component=service msg=\"cashout requested\" user_id=%s transaction_id=%s amount=%d fee=%d fiat=%.2f",
		userID, entry.ID, amount, fee, fiatAmount)

	return &domain.CashoutReceipt{
		TransactionID:   entry.ID,
		RequestedAmount: amount,
		CashoutFee:      fee,
		NetAmount:       net,
		FiatAmount:      fiatAmount,
		PaymentMethod:   paymentMethod,
		Status:          string(domain.TxPending),
	}, nil
}

// CompleteCashout marks a pending cashout as paid out.
func (s *Service) CompleteCashout(ctx context.Context, transactionID uuid.UUID) error {
	tx, err := s.repo.FindTransactionByID(ctx, transactionID)
	if err != nil {
		return err
	}
	if tx.Type != domain.TxCashout {
		return fmt.Errorf("%w: transaction %s is not a cashout", ErrValidation, transactionID)
	}
	if tx.Status != domain.TxPending {
		return fmt.Errorf("%w: cashout %s is not pending", ErrValidation, transactionID)
	}
	if err := s.repo.MarkTransactionCompleted(ctx, transactionID); err != nil {
		return fmt.Errorf("failed to complete cashout: %w", err)
	}
	log.Printf("level=info component=service msg=\"cashout completed\" transaction_id=%s user_id=%s", transactionID, tx.UserID)
	return nil
}

// FailCashout marks a pending cashout as failed and issues a compensating
// refund: the full debited amount goes back to the wallet with a refund
// entry referencing the original cashout.
func (s *Service) FailCashout(ctx context.Context, transactionID uuid.UUID, reason string) error {
	tx, err := s.repo.FindTransactionByID(ctx, transactionID)
	if err != nil {
		return err
	}
	if tx.Type != domain.TxCashout {
		return fmt.Errorf("%w: transaction %s is not a cashout", ErrValidation, transactionID)
	}
	if tx.Status != domain.TxPending {
		return fmt.Errorf("%w: cashout %s is not pending", ErrValidation, transactionID)
	}
	refund, err := domain.NewTransaction(tx.UserID, domain.TxRefund, tx.AmountCredits, 0, domain.TransactionMeta{
		Refund: &domain.RefundMeta{
			ReversesTransactionID: transactionID,
			Reason:                reason,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to build refund entry: %w", err)
	}
	refund.Description = "Cashout refund"
	// Status flip, refund credit, and refund entry land atomically. A
	// transient failure leaves the cashout pending so the call can be
	// retried until the refund lands.
	if err := s.repo.RefundCashout(ctx, transactionID, refund); err != nil {
		if errors.Is(err, store.ErrCashoutNotPending) {
			return fmt.Errorf("%w: cashout %s is not pending", ErrValidation, transactionID)
		}
		return fmt.Errorf("failed to refund cashout: %w", err)
	}
	log.Printf("level=warn component=service msg=\"cashout failed and refunded\" transaction_id=%s user_id=%s amount=%d reason=%q",
		transactionID, tx.UserID, tx.AmountCredits, reason)
	return nil
}

// ProvisionUser creates a user with a fresh wallet, the starting badge, and
// the onboarding bonus already credited and recorded in the ledger.
func (s *Service) ProvisionUser(ctx context.Context, userID uuid.UUID, username, role string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrValidation)
	}
	switch role {
	case domain.RoleStudent, domain.RoleInstructor, domain.RoleAdmin:
	default:
		return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}

	now := s.now().UTC()
	user := &domain.User{
		ID:                userID,
		Username:          username,
		Role:              role,
		PerformancePoints: 0,
		Badge:             domain.NewUserBadge(),
		LastActivity:      now,
		IsActive:          true,
	}

	var bonusEntry *domain.Transaction
	if s.onboardingBonusCredits > 0 {
		var err error
		bonusEntry, err = domain.NewTransaction(userID, domain.TxOnboarding, s.onboardingBonusCredits, 0, domain.TransactionMeta{
			Bonus: &domain.BonusMeta{Reason: "onboarding"},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build onboarding entry: %w", err)
		}
		bonusEntry.Description = "Onboarding bonus"
	}

	if err := s.repo.ProvisionUser(ctx, user, s.onboardingBonusCredits, bonusEntry); err != nil {
		return nil, err
	}
	log.Printf("level=info component=service msg=\"user provisioned\" user_id=%s role=%s onboarding_bonus=%d", userID, role, s.onboardingBonusCredits)
	return user, nil
}

// Leaderboard returns the top learners by performance points for the given
// window, ranked from 1.
func (s *Service) Leaderboard(ctx context.Context, window domain.LeaderboardWindow, limit int) ([]domain.LeaderboardEntry, error) {
	now := s.now().UTC()
	var since time.Time
	var windowTop int
	switch window {
	case domain.LeaderboardWeekly:
		since = now.AddDate(0, 0, -7)
		windowTop = s.weeklyTopCount
	case domain.LeaderboardMonthly:
		since = now.AddDate(0, -1, 0)
		windowTop = s.monthlyTopCount
	case domain.LeaderboardAllTime:
		since = time.Time{}
		windowTop = s.allTimeTopCount
	default:
		return nil, fmt.Errorf("%w: unknown leaderboard window %q", ErrValidation, window)
	}
	if limit <= 0 {
		limit = windowTop
	}
	if limit <= 0 {
		limit = 10
	}
	users, err := s.repo.RankedLearners(ctx, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank learners: %w", err)
	}
	entries := make([]domain.LeaderboardEntry, 0, len(users))
	for i, u := range users {
		entries = append(entries, domain.LeaderboardEntry{
			Rank:              i + 1,
			UserID:            u.ID,
			Username:          u.Username,
			PerformancePoints: u.PerformancePoints,
			Badge:             u.Badge,
			BadgeDisplayName:  u.Badge.String(),
		})
	}
	return entries, nil
}

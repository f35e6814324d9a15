/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository`
 * interface. It contains all SQL touching the users, accounts, courses,
 * enrollments, transactions, and badge_promotions tables.
 *
 * Schema (logical):
 *   users(id uuid pk, username, role, performance_points bigint,
 *         badge_level text, badge_tier int, last_activity timestamptz,
 *         last_decay_at timestamptz, is_active bool)
 *   accounts(id uuid pk, user_id uuid unique fk, balance bigint >= 0)
 *   courses(id uuid pk, title, instructor_id uuid, price bigint,
 *           is_published bool, enrollment_count int, max_enrollments int)
 *   enrollments(learner_id uuid, course_id uuid, enrolled_at timestamptz,
 *               primary key (learner_id, course_id))
 *   transactions(id uuid pk, user_id uuid, type text, amount_credits bigint,
 *                fee_credits bigint, net_credits bigint, meta jsonb,
 *                description text, status text, related_user_id uuid,
 *                related_course_id uuid, created_at, updated_at;
 *                index (user_id, created_at desc), index (type))
 *   badge_promotions(user_id uuid, week_start date,
 *                    primary key (user_id, week_start))
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: PostgreSQL driver and pool.
 * - internal/domain: domain models.
 */

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/skillswap/economy-service/internal/domain"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrCourseNotFound      = errors.New("course not found")
	ErrAccountNotFound     = errors.New("account not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrAlreadyEnrolled     = errors.New("already enrolled in this course")
	ErrEnrollmentClosed    = errors.New("enrollment is not open for this course")
	ErrCashoutNotPending   = errors.New("cashout is not pending")
)

// IsSerializationFailure reports whether err is a transient transaction
// conflict worth retrying (serialization failure or deadlock).
func IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

// PostgresRepository is the pgx-backed implementation of Repository.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, btrim(username), role, performance_points, badge_level, badge_tier, last_activity, is_active`

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	var levelName string
	err := row.Scan(&user.ID, &user.Username, &user.Role, &user.PerformancePoints,
		&levelName, &user.Badge.Tier, &user.LastActivity, &user.IsActive)
	if err != nil {
		return nil, err
	}
	level, err := domain.ParseLevel(levelName)
	if err != nil {
		return nil, fmt.Errorf("corrupt badge level for user %s: %w", user.ID, err)
	}
	user.Badge.Level = level
	return &user, nil
}

// FindUserByID retrieves the economy view of a user.
func (r *PostgresRepository) FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// FindCourseByID retrieves the economy view of a course.
func (r *PostgresRepository) FindCourseByID(ctx context.Context, courseID uuid.UUID) (*domain.Course, error) {
	var course domain.Course
	query := `
		SELECT id, title, instructor_id, price, is_published, enrollment_count, COALESCE(max_enrollments, 0)
		FROM courses
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, courseID).Scan(
		&course.ID, &course.Title, &course.InstructorID, &course.Price,
		&course.IsPublished, &course.EnrollmentCount, &course.MaxEnrollments,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}
	return &course, nil
}

// IsEnrolled reports whether a learner already holds an enrollment.
func (r *PostgresRepository) IsEnrolled(ctx context.Context, learnerID, courseID uuid.UUID) (bool, error) {
	var enrolled bool
	query := `SELECT EXISTS (SELECT 1 FROM enrollments WHERE learner_id = $1 AND course_id = $2)`
	if err := r.db.QueryRow(ctx, query, learnerID, courseID).Scan(&enrolled); err != nil {
		return false, err
	}
	return enrolled, nil
}

// FindAccountByUserID retrieves a user's wallet row.
func (r *PostgresRepository) FindAccountByUserID(ctx context.Context, userID uuid.UUID) (*domain.Account, error) {
	var account domain.Account
	query := `SELECT id, user_id, balance FROM accounts WHERE user_id = $1`
	err := r.db.QueryRow(ctx, query, userID).Scan(&account.ID, &account.UserID, &account.Balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// CreditWallet adds credits to a user's balance. No upper bound is enforced.
func (r *PostgresRepository) CreditWallet(ctx context.Context, userID uuid.UUID, amount int64) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE accounts SET balance = balance + $1, updated_at = NOW() WHERE user_id = $2", amount, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// DebitWallet atomically removes credits from a user's balance. The row lock
// makes the check-then-mutate a single unit, so two concurrent debits cannot
// both pass the balance check and drive the balance negative.
func (r *PostgresRepository) DebitWallet(ctx context.Context, userID uuid.UUID, amount int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var balance int64
	err = tx.QueryRow(ctx, "SELECT balance FROM accounts WHERE user_id = $1 FOR UPDATE", userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAccountNotFound
		}
		return err
	}

	if balance < amount {
		return ErrInsufficientFunds
	}

	if _, err = tx.Exec(ctx,
		"UPDATE accounts SET balance = balance - $1, updated_at = NOW() WHERE user_id = $2", amount, userID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

const transactionColumns = `id, user_id, type, amount_credits, fee_credits, net_credits, meta,
       COALESCE(description, '') AS description, status, related_user_id, related_course_id,
       created_at, updated_at`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var tx domain.Transaction
	var metaRaw []byte
	err := row.Scan(
		&tx.ID, &tx.UserID, &tx.Type, &tx.AmountCredits, &tx.FeeCredits, &tx.NetCredits,
		&metaRaw, &tx.Description, &tx.Status, &tx.RelatedUserID, &tx.RelatedCourseID,
		&tx.CreatedAt, &tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(metaRaw) > 0 {
		if err := json.Unmarshal(metaRaw, &tx.Meta); err != nil {
			return nil, fmt.Errorf("corrupt transaction meta for %s: %w", tx.ID, err)
		}
	}
	return &tx, nil
}

func insertTransaction(ctx context.Context, q interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}, tx *domain.Transaction) error {
	metaRaw, err := json.Marshal(tx.Meta)
	if err != nil {
		return fmt.Errorf("marshal transaction meta: %w", err)
	}
	query := `
		INSERT INTO transactions (
			id, user_id, type, amount_credits, fee_credits, net_credits,
			meta, description, status, related_user_id, related_course_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = q.Exec(ctx, query,
		tx.ID, tx.UserID, tx.Type, tx.AmountCredits, tx.FeeCredits, tx.NetCredits,
		metaRaw, tx.Description, tx.Status, tx.RelatedUserID, tx.RelatedCourseID,
	)
	return err
}

// CreateTransaction appends a single ledger entry.
func (r *PostgresRepository) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	return insertTransaction(ctx, r.db, tx)
}

// FindTransactionByID retrieves a ledger entry.
func (r *PostgresRepository) FindTransactionByID(ctx context.Context, txID uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	tx, err := scanTransaction(r.db.QueryRow(ctx, query, txID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return tx, nil
}

func (r *PostgresRepository) setTransactionStatus(ctx context.Context, txID uuid.UUID, status domain.TransactionStatus) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE transactions SET status = $1, updated_at = NOW() WHERE id = $2", status, txID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

// MarkTransactionCompleted transitions a ledger entry to completed. Status
// transitions never touch balances; cashout debits at record time.
func (r *PostgresRepository) MarkTransactionCompleted(ctx context.Context, txID uuid.UUID) error {
	return r.setTransactionStatus(ctx, txID, domain.TxCompleted)
}

// RefundCashout fails a pending cashout and refunds the debited credits in a
// single transaction: the status flip, the wallet credit, and the refund
// ledger entry commit together or not at all, so a transient error leaves the
// cashout pending and retryable. The status guard in the UPDATE makes a
// concurrent complete/fail race lose cleanly.
func (r *PostgresRepository) RefundCashout(ctx context.Context, cashoutID uuid.UUID, refund *domain.Transaction) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE transactions
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`, domain.TxFailed, cashoutID, domain.TxPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCashoutNotPending
	}

	tag, err = tx.Exec(ctx,
		"UPDATE accounts SET balance = balance + $1, updated_at = NOW() WHERE user_id = $2",
		refund.AmountCredits, refund.UserID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}

	if err := insertTransaction(ctx, tx, refund); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ListTransactionsByUser retrieves a user's ledger entries, newest first,
// optionally filtered by type.
func (r *PostgresRepository) ListTransactionsByUser(ctx context.Context, userID uuid.UUID, opts domain.TransactionListOptions) ([]domain.Transaction, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = $1`
	args := []any{userID}
	if opts.Type != "" {
		query += ` AND type = $2 ORDER BY created_at DESC LIMIT $3 OFFSET $4`
		args = append(args, opts.Type, limit, offset)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *tx)
	}
	return transactions, rows.Err()
}

// SettleEnrollment executes the three-way enrollment transfer as one database
// transaction: learner debit, instructor credit, platform fee credit, three
// ledger entries, the enrollment row, and the course counter. Any failure
// rolls the whole unit back; no reader ever observes a partial settlement.
func (r *PostgresRepository) SettleEnrollment(ctx context.Context, params SettlementParams) (*SettlementResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Lock the learner's wallet row first; the balance check and the debit
	// must be one unit.
	var balance int64
	err = tx.QueryRow(ctx, "SELECT balance FROM accounts WHERE user_id = $1 FOR UPDATE", params.LearnerID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	if balance < params.FinalPrice {
		return nil, ErrInsufficientFunds
	}

	// The enrollment row doubles as the settlement's idempotency guard: a
	// concurrent duplicate request loses the insert and aborts before any
	// balance moves.
	tag, err := tx.Exec(ctx, `
		INSERT INTO enrollments (learner_id, course_id, enrolled_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (learner_id, course_id) DO NOTHING
	`, params.LearnerID, params.CourseID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrAlreadyEnrolled
	}

	// Re-validate the enrollment gate under the same transaction so a course
	// filling up between precondition check and commit is caught here.
	tag, err = tx.Exec(ctx, `
		UPDATE courses
		SET enrollment_count = enrollment_count + 1, updated_at = NOW()
		WHERE id = $1
		  AND is_published = true
		  AND (COALESCE(max_enrollments, 0) = 0 OR enrollment_count < max_enrollments)
	`, params.CourseID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrEnrollmentClosed
	}

	var remaining int64
	err = tx.QueryRow(ctx, `
		UPDATE accounts SET balance = balance - $1, updated_at = NOW()
		WHERE user_id = $2
		RETURNING balance
	`, params.FinalPrice, params.LearnerID).Scan(&remaining)
	if err != nil {
		return nil, err
	}

	if _, err = tx.Exec(ctx,
		"UPDATE accounts SET balance = balance + $1, updated_at = NOW() WHERE user_id = $2",
		params.InstructorEarnings, params.InstructorID); err != nil {
		return nil, err
	}
	if _, err = tx.Exec(ctx,
		"UPDATE accounts SET balance = balance + $1, updated_at = NOW() WHERE user_id = $2",
		params.PlatformFee, params.PlatformUserID); err != nil {
		return nil, err
	}

	for _, entry := range params.Entries {
		if err := insertTransaction(ctx, tx, entry); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &SettlementResult{RemainingBalance: remaining}, nil
}

// AddPerformancePoints atomically adds points and bumps last_activity,
// returning the new cumulative total.
func (r *PostgresRepository) AddPerformancePoints(ctx context.Context, userID uuid.UUID, points int64, now time.Time) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx, `
		UPDATE users
		SET performance_points = performance_points + $1, last_activity = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING performance_points
	`, points, now, userID).Scan(&total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	return total, nil
}

// UpdateBadge persists a badge transition.
func (r *PostgresRepository) UpdateBadge(ctx context.Context, userID uuid.UUID, badge domain.Badge) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users SET badge_level = $1, badge_tier = $2, updated_at = NOW() WHERE id = $3
	`, badge.Level.String(), badge.Tier, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// RecordBadgePromotion claims the (user, week) promotion slot and applies the
// promoted badge in one transaction. It returns false when the slot was
// already claimed, which makes the weekly promotion job safe to re-run
// within the same window. An error rolls the marker back with the badge, so
// a failed promotion does not burn the learner's slot for the week.
func (r *PostgresRepository) RecordBadgePromotion(ctx context.Context, userID uuid.UUID, weekStart time.Time, badge domain.Badge) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO badge_promotions (user_id, week_start)
		VALUES ($1, $2)
		ON CONFLICT (user_id, week_start) DO NOTHING
	`, userID, weekStart)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	tag, err = tx.Exec(ctx, `
		UPDATE users SET badge_level = $1, badge_tier = $2, updated_at = NOW() WHERE id = $3
	`, badge.Level.String(), badge.Tier, userID)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, ErrUserNotFound
	}

	return true, tx.Commit(ctx)
}

// ApplyBadgeDecay persists a decayed badge and stamps the decay time so the
// monthly job's selection window excludes the user on a re-run.
func (r *PostgresRepository) ApplyBadgeDecay(ctx context.Context, userID uuid.UUID, badge domain.Badge, decayedAt time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET badge_level = $1, badge_tier = $2, last_decay_at = $3, updated_at = NOW()
		WHERE id = $4
	`, badge.Level.String(), badge.Tier, decayedAt, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// TopActiveLearners returns the highest-scoring active students with recent
// activity, for the weekly promotion job.
func (r *PostgresRepository) TopActiveLearners(ctx context.Context, activeSince time.Time, limit int) ([]domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE last_activity >= $1 AND is_active = true AND role = 'student'
		ORDER BY performance_points DESC
		LIMIT $2
	`
	return r.queryUsers(ctx, query, activeSince, limit)
}

// RankedLearners returns the leaderboard ranking. A zero activeSince means
// the all-time window.
func (r *PostgresRepository) RankedLearners(ctx context.Context, activeSince time.Time, limit int) ([]domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE ($1::timestamptz = 'epoch'::timestamptz OR last_activity >= $1) AND is_active = true
		ORDER BY performance_points DESC
		LIMIT $2
	`
	since := activeSince
	if since.IsZero() {
		since = time.Unix(0, 0).UTC()
	}
	return r.queryUsers(ctx, query, since, limit)
}

// InactiveLearners returns active students above Bronze whose last activity
// and last decay both precede the cutoff, so one decay per window applies.
func (r *PostgresRepository) InactiveLearners(ctx context.Context, inactiveBefore time.Time) ([]domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE last_activity < $1
		  AND (last_decay_at IS NULL OR last_decay_at < $1)
		  AND is_active = true
		  AND role = 'student'
		  AND badge_level <> 'Bronze'
	`
	return r.queryUsers(ctx, query, inactiveBefore)
}

func (r *PostgresRepository) queryUsers(ctx context.Context, query string, args ...any) ([]domain.User, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// EnsurePlatformAccount provisions the distinguished platform fee account at
// a well-known id. Called once at bootstrap; settlements never create it.
func (r *PostgresRepository) EnsurePlatformAccount(ctx context.Context, platformUserID uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err = tx.Exec(ctx, `
		INSERT INTO users (id, username, role, performance_points, badge_level, badge_tier, last_activity, is_active)
		VALUES ($1, 'platform', 'admin', 0, 'Bronze', 1, NOW(), true)
		ON CONFLICT (id) DO NOTHING
	`, platformUserID); err != nil {
		return err
	}

	if _, err = tx.Exec(ctx, `
		INSERT INTO accounts (id, user_id, balance)
		VALUES ($1, $2, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, uuid.New(), platformUserID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ProvisionUser creates a user's economy records: the user row, a wallet
// seeded with the onboarding bonus, and the onboarding ledger entry, in one
// transaction.
func (r *PostgresRepository) ProvisionUser(ctx context.Context, user *domain.User, onboardingBonus int64, bonusEntry *domain.Transaction) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err = tx.Exec(ctx, `
		INSERT INTO users (id, username, role, performance_points, badge_level, badge_tier, last_activity, is_active)
		VALUES ($1, $2, $3, 0, $4, $5, NOW(), true)
	`, user.ID, user.Username, user.Role, user.Badge.Level.String(), user.Badge.Tier); err != nil {
		return err
	}

	if _, err = tx.Exec(ctx, `
		INSERT INTO accounts (id, user_id, balance) VALUES ($1, $2, $3)
	`, uuid.New(), user.ID, onboardingBonus); err != nil {
		return err
	}

	if bonusEntry != nil {
		if err := insertTransaction(ctx, tx, bonusEntry); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

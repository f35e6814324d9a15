/**
 * @description
 * This file contains the HTTP handlers for the economy-service's API
 * endpoints. Handlers are responsible for parsing incoming requests, calling
 * the appropriate methods on the application service, and writing the HTTP
 * response. They act as the bridge between the web layer and the business
 * logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/skillswap/economy-service/internal/app"
	"github.com/skillswap/economy-service/internal/domain"
	"github.com/skillswap/economy-service/internal/store"
)

// rateLimitWindow is the fixed window used for the per-user rate limits.
const rateLimitWindow = time.Minute

// CompletionPoints maps course difficulty names to the suggested point
// award for completing a course at that difficulty. Award callers can name
// a difficulty instead of picking a raw point count.
type CompletionPoints struct {
	Beginner     int64
	Intermediate int64
	Advanced     int64
}

// For resolves a difficulty name to its point award.
func (c CompletionPoints) For(difficulty string) (int64, bool) {
	switch strings.ToLower(strings.TrimSpace(difficulty)) {
	case "beginner":
		return c.Beginner, true
	case "intermediate":
		return c.Intermediate, true
	case "advanced":
		return c.Advanced, true
	default:
		return 0, false
	}
}

// EconomyHandlers holds the application service that handlers will use.
type EconomyHandlers struct {
	service *app.Service
	jobs    *app.Jobs
	limiter app.RateLimiter

	completionPoints      CompletionPoints
	enrollLimitPerMinute  int
	cashoutLimitPerMinute int
}

// NewEconomyHandlers creates a new instance of EconomyHandlers.
func NewEconomyHandlers(service *app.Service, jobs *app.Jobs, limiter app.RateLimiter, completionPoints CompletionPoints, enrollLimit, cashoutLimit int) *EconomyHandlers {
	return &EconomyHandlers{
		service:               service,
		jobs:                  jobs,
		limiter:               limiter,
		completionPoints:      completionPoints,
		enrollLimitPerMinute:  enrollLimit,
		cashoutLimitPerMinute: cashoutLimit,
	}
}

type enrollRequest struct {
	CourseID string `json:"course_id"`
}

type awardPointsRequest struct {
	LearnerID string `json:"learner_id"`
	CourseID  string `json:"course_id"`
	Points    int64  `json:"points"`
	// Difficulty selects the configured completion award when no explicit
	// point count is given.
	Difficulty string `json:"difficulty"`
	Reason     string `json:"reason"`
}

type purchaseRequest struct {
	Amount    int64  `json:"amount"`
	Reference string `json:"reference"`
}

type cashoutRequest struct {
	Amount        int64  `json:"amount"`
	PaymentMethod string `json:"payment_method"`
}

type failCashoutRequest struct {
	Reason string `json:"reason"`
}

type provisionUserRequest struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (h *EconomyHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *EconomyHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// mapServiceError translates application and store errors into HTTP status
// codes so every handler reports failures consistently.
func (h *EconomyHandlers) mapServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrInsufficientFunds):
		h.writeError(w, http.StatusPaymentRequired, "Insufficient credits")
	case errors.Is(err, store.ErrAlreadyEnrolled):
		h.writeError(w, http.StatusConflict, "Already enrolled in this course")
	case errors.Is(err, store.ErrEnrollmentClosed):
		h.writeError(w, http.StatusConflict, "Enrollment for this course is closed")
	case errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrCourseNotFound),
		errors.Is(err, store.ErrAccountNotFound),
		errors.Is(err, store.ErrTransactionNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrNotEnrolled):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrNotAuthorized):
		h.writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, app.ErrValidation):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrSettlementFailed):
		h.writeError(w, http.StatusConflict, "Could not settle enrollment, please retry")
	default:
		log.Printf("level=error component=api msg=\"unhandled service error\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *EconomyHandlers) authUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := GetAuthUserID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get user ID from context")
		return uuid.Nil, false
	}
	return userID, true
}

// checkRateLimit consumes one slot from the user's fixed window. Limiter
// failures are logged and treated as open so Redis downtime does not take
// the API with it.
func (h *EconomyHandlers) checkRateLimit(w http.ResponseWriter, r *http.Request, scope string, userID uuid.UUID, limit int) bool {
	if h.limiter == nil || limit <= 0 {
		return true
	}
	count, retryAfter, err := h.limiter.ConsumeRateLimit(r.Context(), scope, userID.String(), limit, rateLimitWindow)
	if err != nil {
		log.Printf("level=warn component=api msg=\"rate limiter unavailable; allowing request\" scope=%s err=%v", scope, err)
		return true
	}
	if count > limit {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		h.writeError(w, http.StatusTooManyRequests, "Too many requests, slow down")
		return false
	}
	return true
}

// EnrollHandler settles a course enrollment for the authenticated learner.
func (h *EconomyHandlers) EnrollHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authUser(w, r)
	if !ok {
		return
	}
	if !h.checkRateLimit(w, r, "enroll", userID, h.enrollLimitPerMinute) {
		return
	}

	var req enrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	courseID, err := uuid.Parse(req.CourseID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid course ID format")
		return
	}

	receipt, err := h.service.Enroll(r.Context(), userID, courseID)
	if err != nil {
		h.mapServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, receipt)
}

// AwardPointsHandler grants performance points to a learner. The caller must
// be the course instructor or an admin.
func (h *EconomyHandlers) AwardPointsHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := h.authUser(w, r)
	if !ok {
		return
	}

	var req awardPointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	learnerID, err := uuid.Parse(req.LearnerID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid learner ID format")
		return
	}
	courseID, err := uuid.Parse(req.CourseID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid course ID format")
		return
	}

	points := req.Points
	if points == 0 && req.Difficulty != "" {
		v, ok := h.completionPoints.For(req.Difficulty)
		if !ok {
			h.writeError(w, http.StatusBadRequest, "Unknown course difficulty")
			return
		}
		points = v
	}

	result, err := h.service.AwardPoints(r.Context(), callerID, learnerID, courseID, points, req.Reason)
	if err != nil {
		h.mapServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// BalanceHandler returns the authenticated user's wallet summary.
func (h *EconomyHandlers) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authUser(w, r)
	if !ok {
		return
	}
	summary, err := h.service.GetBalance(r.Context(), userID)
	if err != nil {
		h.mapServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// TransactionsHandler lists the authenticated user's ledger history.
func (h *EconomyHandlers) TransactionsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authUser(w, r)
	if !ok {
		return
	}

	opts := domain.TransactionListOptions{
		Type: domain.TransactionType(r.URL.Query().Get("type")),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			opts.Limit = v
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			opts.Offset = v
		}
	}

	txs, err := h.service.ListTransactions(r.Context(), userID, opts)
	if err != nil {
		h.mapServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"transactions": txs})
}

// PurchaseHandler credits a wallet top-up.
func (h *EconomyHandlers) PurchaseHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authUser(w, r)
	if !ok {
		return
	}

	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	summary, err := h.service.PurchaseCredits(r.Context(), userID, req.Amount, req.Reference)
	if err != nil {
		h.mapServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, summary)
}

// CashoutHandler requests a credits-to-fiat cashout for the authenticated
// instructor.
func (h *EconomyHandlers) CashoutHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authUser(w, r)
	if !ok {
		return
	}
	if !h.checkRateLimit(w, r, "cashout", userID, h.cashoutLimitPerMinute) {
		return
	}

	var req cashoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	receipt, err := h.service.RequestCashout(r.Context(), userID, req.Amount, req.PaymentMethod)
	if err != nil {
		h.mapServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, receipt)
}

// LeaderboardHandler returns the ranked learners for a window.
func (h *EconomyHandlers) LeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	window := domain.LeaderboardWindow(chi.URLParam(r, "window"))
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}
	entries, err := h.service.Leaderboard(r.Context(), window, limit)
	if err != nil {
		h.mapServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"window":  window,
		"entries": entries,
	})
}

// ProvisionUserHandler creates a user with a wallet and onboarding bonus.
// Internal endpoint, called by the auth service on signup.
func (h *EconomyHandlers) ProvisionUserHandler(w http.ResponseWriter, r *http.Request) {
	var req provisionUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid user ID format")
		return
	}
	user, err := h.service.ProvisionUser(r.Context(), userID, req.Username, req.Role)
	if err != nil {
		h.mapServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, user)
}

// CompleteCashoutHandler marks a pending cashout as paid. Internal endpoint,
// called by the payout processor.
func (h *EconomyHandlers) CompleteCashoutHandler(w http.ResponseWriter, r *http.Request) {
	txID, err := uuid.Parse(chi.URLParam(r, "transactionID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid transaction ID format")
		return
	}
	if err := h.service.CompleteCashout(r.Context(), txID); err != nil {
		h.mapServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}

// FailCashoutHandler marks a pending cashout as failed and refunds the
// debited credits. Internal endpoint, called by the payout processor.
func (h *EconomyHandlers) FailCashoutHandler(w http.ResponseWriter, r *http.Request) {
	txID, err := uuid.Parse(chi.URLParam(r, "transactionID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid transaction ID format")
		return
	}
	var req failCashoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.service.FailCashout(r.Context(), txID, req.Reason); err != nil {
		h.mapServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "failed"})
}

// RunPromotionJobHandler triggers the weekly promotion pass on demand.
// Internal endpoint for operators; the pass itself is idempotent.
func (h *EconomyHandlers) RunPromotionJobHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.jobs.RunWeeklyPromotion(r.Context()); err != nil {
		log.Printf("level=error component=api msg=\"manual promotion run failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Promotion run failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RunDecayJobHandler triggers the inactivity decay pass on demand. Internal
// endpoint for operators; the pass itself is idempotent.
func (h *EconomyHandlers) RunDecayJobHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.jobs.RunMonthlyDecay(r.Context()); err != nil {
		log.Printf("level=error component=api msg=\"manual decay run failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Decay run failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/skillswap/economy-service/internal/domain"
	"github.com/skillswap/economy-service/internal/store"
)

type jobsRepoStub struct {
	store.Repository

	topLearners      []domain.User
	inactiveLearners []domain.User

	promotionsRecorded map[uuid.UUID]time.Time
	replayedPromotions map[uuid.UUID]bool

	updatedBadges map[uuid.UUID]domain.Badge
	decayedBadges map[uuid.UUID]domain.Badge
	entries       []*domain.Transaction

	promoteErrFor uuid.UUID
}

func newJobsRepoStub() *jobsRepoStub {
	return &jobsRepoStub{
		promotionsRecorded: map[uuid.UUID]time.Time{},
		replayedPromotions: map[uuid.UUID]bool{},
		updatedBadges:      map[uuid.UUID]domain.Badge{},
		decayedBadges:      map[uuid.UUID]domain.Badge{},
	}
}

func (s *jobsRepoStub) TopActiveLearners(ctx context.Context, activeSince time.Time, limit int) ([]domain.User, error) {
	if limit < len(s.topLearners) {
		return s.topLearners[:limit], nil
	}
	return s.topLearners, nil
}

func (s *jobsRepoStub) InactiveLearners(ctx context.Context, inactiveBefore time.Time) ([]domain.User, error) {
	return s.inactiveLearners, nil
}

func (s *jobsRepoStub) RecordBadgePromotion(ctx context.Context, userID uuid.UUID, weekStart time.Time, badge domain.Badge) (bool, error) {
	// An error claims nothing, mirroring the rollback in the real store.
	if userID == s.promoteErrFor {
		return false, errors.New("promotion rejected")
	}
	if s.replayedPromotions[userID] {
		return false, nil
	}
	if _, seen := s.promotionsRecorded[userID]; seen {
		return false, nil
	}
	s.promotionsRecorded[userID] = weekStart
	s.updatedBadges[userID] = badge
	return true, nil
}

func (s *jobsRepoStub) ApplyBadgeDecay(ctx context.Context, userID uuid.UUID, badge domain.Badge, decayedAt time.Time) error {
	s.decayedBadges[userID] = badge
	return nil
}

func (s *jobsRepoStub) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	s.entries = append(s.entries, tx)
	return nil
}

func newTestJobs(repo *jobsRepoStub, pub *recordingPublisher) *Jobs {
	jobs := NewJobs(repo, pub, 5, 6)
	jobs.now = func() time.Time { return time.Date(2024, 6, 9, 23, 59, 0, 0, time.UTC) } // a Sunday
	return jobs
}

func topUser(badge domain.Badge) domain.User {
	return domain.User{ID: uuid.New(), Username: "learner", Role: domain.RoleStudent, Badge: badge}
}

func TestRunWeeklyPromotion_PromotesOneTier(t *testing.T) {
	repo := newJobsRepoStub()
	pub := &recordingPublisher{}
	jobs := newTestJobs(repo, pub)

	u := topUser(domain.Badge{Level: domain.Silver, Tier: 1})
	repo.topLearners = []domain.User{u}

	if err := jobs.RunWeeklyPromotion(context.Background()); err != nil {
		t.Fatalf("RunWeeklyPromotion returned error: %v", err)
	}

	if got := repo.updatedBadges[u.ID]; got != (domain.Badge{Level: domain.Silver, Tier: 2}) {
		t.Fatalf("expected Silver 2, got %v", got)
	}
	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 promotion ledger entry, got %d", len(repo.entries))
	}
	entry := repo.entries[0]
	if entry.AmountCredits != 0 || entry.Type != domain.TxBonus {
		t.Fatalf("promotion entry should be a zero-credit bonus, got %+v", entry)
	}
	if entry.Meta.Bonus == nil || entry.Meta.Bonus.Rank != 1 || entry.Meta.Bonus.OldBadge != "Silver 1" || entry.Meta.Bonus.NewBadge != "Silver 2" {
		t.Fatalf("unexpected promotion meta: %+v", entry.Meta.Bonus)
	}
	if len(pub.badgeEvents) != 1 || pub.badgeEvents[0].Reason != "weekly_leaderboard_promotion" {
		t.Fatalf("unexpected badge events: %+v", pub.badgeEvents)
	}
}

func TestRunWeeklyPromotion_SkipsTopTier(t *testing.T) {
	repo := newJobsRepoStub()
	jobs := newTestJobs(repo, &recordingPublisher{})

	u := topUser(domain.Badge{Level: domain.Gold, Tier: 3})
	repo.topLearners = []domain.User{u}

	if err := jobs.RunWeeklyPromotion(context.Background()); err != nil {
		t.Fatalf("RunWeeklyPromotion returned error: %v", err)
	}
	if len(repo.updatedBadges) != 0 {
		t.Fatal("tier 3 learner must not be promoted by the weekly job")
	}
	if len(repo.promotionsRecorded) != 0 {
		t.Fatal("no promotion marker should be written for a skipped learner")
	}
}

func TestRunWeeklyPromotion_RerunIsIdempotent(t *testing.T) {
	repo := newJobsRepoStub()
	jobs := newTestJobs(repo, &recordingPublisher{})

	u := topUser(domain.Badge{Level: domain.Silver, Tier: 1})
	repo.topLearners = []domain.User{u}

	if err := jobs.RunWeeklyPromotion(context.Background()); err != nil {
		t.Fatalf("first run returned error: %v", err)
	}
	// Second pass inside the same week: the marker row blocks stacking,
	// even though the learner is still in the top list.
	if err := jobs.RunWeeklyPromotion(context.Background()); err != nil {
		t.Fatalf("second run returned error: %v", err)
	}

	if got := repo.updatedBadges[u.ID]; got != (domain.Badge{Level: domain.Silver, Tier: 2}) {
		t.Fatalf("expected a single promotion to Silver 2, got %v", got)
	}
	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 ledger entry across reruns, got %d", len(repo.entries))
	}
}

func TestRunWeeklyPromotion_OneFailureDoesNotStopTheBatch(t *testing.T) {
	repo := newJobsRepoStub()
	jobs := newTestJobs(repo, &recordingPublisher{})

	broken := topUser(domain.Badge{Level: domain.Silver, Tier: 1})
	healthy := topUser(domain.Badge{Level: domain.Gold, Tier: 1})
	repo.topLearners = []domain.User{broken, healthy}
	repo.promoteErrFor = broken.ID

	if err := jobs.RunWeeklyPromotion(context.Background()); err != nil {
		t.Fatalf("RunWeeklyPromotion returned error: %v", err)
	}
	if _, ok := repo.updatedBadges[healthy.ID]; !ok {
		t.Fatal("healthy learner should still be promoted after a failure earlier in the batch")
	}
}

func TestRunWeeklyPromotion_FailedPromotionDoesNotBurnTheWeek(t *testing.T) {
	repo := newJobsRepoStub()
	jobs := newTestJobs(repo, &recordingPublisher{})

	u := topUser(domain.Badge{Level: domain.Silver, Tier: 1})
	repo.topLearners = []domain.User{u}
	repo.promoteErrFor = u.ID

	if err := jobs.RunWeeklyPromotion(context.Background()); err != nil {
		t.Fatalf("RunWeeklyPromotion returned error: %v", err)
	}
	if _, ok := repo.promotionsRecorded[u.ID]; ok {
		t.Fatal("a failed promotion must not claim the week marker")
	}

	// Once the store recovers, a rerun in the same week promotes the
	// learner who was skipped.
	repo.promoteErrFor = uuid.Nil
	if err := jobs.RunWeeklyPromotion(context.Background()); err != nil {
		t.Fatalf("rerun returned error: %v", err)
	}
	if got := repo.updatedBadges[u.ID]; got != (domain.Badge{Level: domain.Silver, Tier: 2}) {
		t.Fatalf("expected the rerun to promote to Silver 2, got %v", got)
	}
	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", len(repo.entries))
	}
}

func TestRunMonthlyDecay_StepsDownAndStamps(t *testing.T) {
	repo := newJobsRepoStub()
	pub := &recordingPublisher{}
	jobs := newTestJobs(repo, pub)

	u := topUser(domain.Badge{Level: domain.Platinum, Tier: 1})
	repo.inactiveLearners = []domain.User{u}

	if err := jobs.RunMonthlyDecay(context.Background()); err != nil {
		t.Fatalf("RunMonthlyDecay returned error: %v", err)
	}

	if got := repo.decayedBadges[u.ID]; got != (domain.Badge{Level: domain.Gold, Tier: 3}) {
		t.Fatalf("expected decay to Gold 3, got %v", got)
	}
	if len(repo.entries) != 1 {
		t.Fatalf("expected 1 decay ledger entry, got %d", len(repo.entries))
	}
	if repo.entries[0].Meta.Bonus == nil || repo.entries[0].Meta.Bonus.Reason != "inactivity_decay" {
		t.Fatalf("unexpected decay meta: %+v", repo.entries[0].Meta.Bonus)
	}
	if len(pub.badgeEvents) != 1 || pub.badgeEvents[0].Change != domain.BadgeLevelDown.String() {
		t.Fatalf("unexpected badge events: %+v", pub.badgeEvents)
	}
}

func TestRunMonthlyDecay_BronzeLearnersAreLeftAlone(t *testing.T) {
	repo := newJobsRepoStub()
	jobs := newTestJobs(repo, &recordingPublisher{})

	u := topUser(domain.Badge{Level: domain.Bronze, Tier: 2})
	repo.inactiveLearners = []domain.User{u}

	if err := jobs.RunMonthlyDecay(context.Background()); err != nil {
		t.Fatalf("RunMonthlyDecay returned error: %v", err)
	}
	if len(repo.decayedBadges) != 0 {
		t.Fatal("Bronze badges must never decay")
	}
	if len(repo.entries) != 0 {
		t.Fatal("no ledger entry expected for a skipped decay")
	}
}

func TestWeekStart(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "midweek truncates to monday",
			in:   time.Date(2024, 6, 5, 15, 30, 0, 0, time.UTC), // Wednesday
			want: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "sunday belongs to the prior monday",
			in:   time.Date(2024, 6, 9, 23, 59, 0, 0, time.UTC),
			want: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "monday is its own week start",
			in:   time.Date(2024, 6, 3, 0, 0, 1, 0, time.UTC),
			want: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := weekStart(tt.in); !got.Equal(tt.want) {
				t.Fatalf("weekStart(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

/**
 * @description
 * Scheduled badge jobs: the weekly leaderboard promotion and the monthly
 * inactivity decay. Both jobs are idempotent so a crashed or rescheduled run
 * can execute again without double-applying: promotions are guarded by a
 * per-user per-week marker row, decay by the last-decay timestamp.
 */

package app

import (
	"context"
	"log"
	"time"

	"github.com/skillswap/economy-service/internal/domain"
	"github.com/skillswap/economy-service/internal/store"
	"github.com/skillswap/economy-service/pkg/rabbitmq"
)

// Jobs runs the scheduled badge promotion and decay passes.
type Jobs struct {
	repo     store.Repository
	producer rabbitmq.Publisher

	weeklyTopCount           int
	inactivityThresholdWeeks int

	now func() time.Time
}

// NewJobs creates the badge job runner.
func NewJobs(repo store.Repository, producer rabbitmq.Publisher, weeklyTopCount, inactivityThresholdWeeks int) *Jobs {
	return &Jobs{
		repo:                     repo,
		producer:                 producer,
		weeklyTopCount:           weeklyTopCount,
		inactivityThresholdWeeks: inactivityThresholdWeeks,
		now:                      time.Now,
	}
}

// weekStart truncates t to the Monday 00:00 UTC of its ISO week, the key
// used to deduplicate promotion runs.
func weekStart(t time.Time) time.Time {
	t = t.UTC()
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday belongs to the week that started the prior Monday
	}
	day := t.AddDate(0, 0, -(weekday - 1))
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}

// RunWeeklyPromotion promotes the top active learners of the past week by
// one tier. Learners already at the top tier of their level are left for the
// points-threshold path; promotion never changes level. A failure for one
// learner is logged and does not stop the rest of the batch.
func (j *Jobs) RunWeeklyPromotion(ctx context.Context) error {
	now := j.now().UTC()
	week := weekStart(now)
	since := now.AddDate(0, 0, -7)

	top, err := j.repo.TopActiveLearners(ctx, since, j.weeklyTopCount)
	if err != nil {
		return err
	}
	log.Printf("level=info component=jobs msg=\"weekly promotion run started\" week_start=%s candidates=%d", week.Format("2006-01-02"), len(top))

	promoted := 0
	for rank, user := range top {
		if user.Badge.Tier >= domain.MaxTier {
			continue
		}
		oldBadge := user.Badge
		newBadge := domain.Badge{Level: oldBadge.Level, Tier: oldBadge.Tier + 1}
		// The week marker and the badge commit together; a failed
		// promotion leaves the slot unclaimed so a rerun can retry it.
		fresh, err := j.repo.RecordBadgePromotion(ctx, user.ID, week, newBadge)
		if err != nil {
			log.Printf("level=error component=jobs msg=\"failed to apply weekly promotion\" user_id=%s error=%v", user.ID, err)
			continue
		}
		if !fresh {
			// Already promoted this week; a rerun must not stack.
			continue
		}

		entry, err := domain.NewTransaction(user.ID, domain.TxBonus, 0, 0, domain.TransactionMeta{
			Bonus: &domain.BonusMeta{
				Reason:        "weekly_leaderboard_promotion",
				BadgeUpgraded: true,
				OldBadge:      oldBadge.String(),
				NewBadge:      newBadge.String(),
				Rank:          rank + 1,
			},
		})
		if err != nil {
			log.Printf("level=error component=jobs msg=\"failed to build promotion entry\" user_id=%s error=%v", user.ID, err)
			continue
		}
		entry.Description = "Weekly leaderboard badge promotion"
		if err := j.repo.CreateTransaction(ctx, entry); err != nil {
			log.Printf("level=error component=jobs msg=\"failed to record promotion entry\" user_id=%s error=%v", user.ID, err)
		}

		if err := j.producer.PublishBadgeEvent(ctx, rabbitmq.BadgeEvent{
			UserID:    user.ID,
			Change:    domain.BadgeTierUp.String(),
			OldBadge:  oldBadge.String(),
			NewBadge:  newBadge.String(),
			Reason:    "weekly_leaderboard_promotion",
			Timestamp: now,
		}); err != nil {
			log.Printf("level=error component=jobs msg=\"failed to publish promotion event\" user_id=%s error=%v", user.ID, err)
		}
		promoted++
	}

	log.Printf("level=info component=jobs msg=\"weekly promotion run finished\" week_start=%s promoted=%d", week.Format("2006-01-02"), promoted)
	return nil
}

// RunMonthlyDecay demotes learners with no activity inside the inactivity
// window by one badge step. The repository only returns learners whose last
// decay predates the window, so a rerun inside the same window is a no-op.
func (j *Jobs) RunMonthlyDecay(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.AddDate(0, 0, -7*j.inactivityThresholdWeeks)

	inactive, err := j.repo.InactiveLearners(ctx, cutoff)
	if err != nil {
		return err
	}
	log.Printf("level=info component=jobs msg=\"monthly decay run started\" cutoff=%s candidates=%d", cutoff.Format("2006-01-02"), len(inactive))

	decayed := 0
	for _, user := range inactive {
		oldBadge := user.Badge
		newBadge, change := domain.Decay(oldBadge)
		if change == domain.BadgeUnchanged {
			continue
		}
		if err := j.repo.ApplyBadgeDecay(ctx, user.ID, newBadge, now); err != nil {
			log.Printf("level=error component=jobs msg=\"failed to apply badge decay\" user_id=%s error=%v", user.ID, err)
			continue
		}

		entry, err := domain.NewTransaction(user.ID, domain.TxBonus, 0, 0, domain.TransactionMeta{
			Bonus: &domain.BonusMeta{
				Reason:   "inactivity_decay",
				OldBadge: oldBadge.String(),
				NewBadge: newBadge.String(),
			},
		})
		if err != nil {
			log.Printf("level=error component=jobs msg=\"failed to build decay entry\" user_id=%s error=%v", user.ID, err)
			continue
		}
		entry.Description = "Badge decay for inactivity"
		if err := j.repo.CreateTransaction(ctx, entry); err != nil {
			log.Printf("level=error component=jobs msg=\"failed to record decay entry\" user_id=%s error=%v", user.ID, err)
		}

		if err := j.producer.PublishBadgeEvent(ctx, rabbitmq.BadgeEvent{
			UserID:    user.ID,
			Change:    change.String(),
			OldBadge:  oldBadge.String(),
			NewBadge:  newBadge.String(),
			Reason:    "inactivity_decay",
			Timestamp: now,
		}); err != nil {
			log.Printf("level=error component=jobs msg=\"failed to publish decay event\" user_id=%s error=%v", user.ID, err)
		}
		decayed++
	}

	log.Printf("level=info component=jobs msg=\"monthly decay run finished\" decayed=%d", decayed)
	return nil
}

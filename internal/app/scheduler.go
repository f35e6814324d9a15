/**
 * @description
 * Cron scheduler setup for the badge promotion and decay jobs.
 */
package app

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// jobTimeout bounds a single scheduled run.
const jobTimeout = 5 * time.Minute

// Scheduler manages the cron jobs.
type Scheduler struct {
	cron *cron.Cron
	jobs *Jobs

	promotionSchedule string
	decaySchedule     string
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(jobs *Jobs, promotionSchedule, decaySchedule string) *Scheduler {
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	return &Scheduler{
		cron:              c,
		jobs:              jobs,
		promotionSchedule: promotionSchedule,
		decaySchedule:     decaySchedule,
	}
}

func runJob(name string, fn func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Printf("level=error component=scheduler msg=\"scheduled job failed\" job=%s error=%v", name, err)
		}
	}
}

// Start registers the jobs and starts the cron scheduler.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc(s.promotionSchedule, runJob("weekly_promotion", s.jobs.RunWeeklyPromotion)); err != nil {
		log.Printf("level=error component=scheduler msg=\"failed to schedule weekly promotion job\" error=%v", err)
	} else {
		log.Printf("level=info component=scheduler msg=\"scheduled weekly promotion job\" schedule=%q", s.promotionSchedule)
	}

	if _, err := s.cron.AddFunc(s.decaySchedule, runJob("monthly_decay", s.jobs.RunMonthlyDecay)); err != nil {
		log.Printf("level=error component=scheduler msg=\"failed to schedule monthly decay job\" error=%v", err)
	} else {
		log.Printf("level=info component=scheduler msg=\"scheduled monthly decay job\" schedule=%q", s.decaySchedule)
	}

	s.cron.Start()
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Package jobs runs the background work: an hourly reconciliation that
// compares stored balances and counters against what the transaction log
// implies. The job only reads and logs; fixing a drift is a human decision.
package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/Company-Discord/economy-bot/internal/features/economy"
)

const auditTimeout = 5 * time.Minute

type auditStore interface {
	Guilds(ctx context.Context) ([]int64, error)
	SupplyDrift(ctx context.Context, guildID int64) (*economy.SupplyDrift, error)
	CounterDrifts(ctx context.Context, guildID int64) ([]*economy.CounterDrift, error)
}

type Scheduler struct {
	cron *cron.Cron
	repo auditStore
}

func NewScheduler(repo auditStore) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		repo: repo,
	}
}

// Start schedules the reconciliation with the given cron spec and launches
// the scheduler.
func (s *Scheduler) Start(reconcileSpec string) error {
	if _, err := s.cron.AddFunc(reconcileSpec, s.runAudit); err != nil {
		return err
	}
	s.cron.Start()
	logrus.WithField("spec", reconcileSpec).Info("Audit reconciliation scheduled")
	return nil
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runAudit() {
	runID := uuid.NewString()
	log := logrus.WithField("audit_run", runID)

	ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
	defer cancel()

	guilds, err := s.repo.Guilds(ctx)
	if err != nil {
		log.WithError(err).Error("Audit run failed to list guilds")
		return
	}

	start := time.Now()
	drifting := 0
	for _, guildID := range guilds {
		if s.auditGuild(ctx, log, guildID) {
			drifting++
		}
	}
	log.WithFields(logrus.Fields{
		"guilds":   len(guilds),
		"drifting": drifting,
		"took":     time.Since(start).Round(time.Millisecond).String(),
	}).Info("Audit run finished")
}

// auditGuild reports whether the guild showed any drift.
func (s *Scheduler) auditGuild(ctx context.Context, log *logrus.Entry, guildID int64) bool {
	dirty := false

	supply, err := s.repo.SupplyDrift(ctx, guildID)
	if err != nil {
		log.WithError(err).WithField("guild_id", guildID).Error("Supply check failed")
		return false
	}
	if supply.Diff() != 0 {
		dirty = true
		log.WithFields(logrus.Fields{
			"guild_id": guildID,
			"stored":   supply.Stored,
			"derived":  supply.Derived,
			"diff":     supply.Diff(),
		}).Warn("Money supply does not match the transaction log")
	}

	counters, err := s.repo.CounterDrifts(ctx, guildID)
	if err != nil {
		log.WithError(err).WithField("guild_id", guildID).Error("Counter check failed")
		return dirty
	}
	for _, d := range counters {
		dirty = true
		log.WithFields(logrus.Fields{
			"guild_id":         guildID,
			"user_id":          d.UserID,
			"crimes_attempted": d.CrimesAttempted,
			"crimes_derived":   d.CrimesAttemptedDerived,
			"robs_attempted":   d.RobsAttempted,
			"robs_derived":     d.RobsAttemptedDerived,
		}).Warn("Lifetime counters do not match the transaction log")
	}
	return dirty
}

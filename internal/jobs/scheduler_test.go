package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/Company-Discord/economy-bot/internal/features/economy"
)

type fakeAuditStore struct {
	guilds   []int64
	supply   map[int64]*economy.SupplyDrift
	counters map[int64][]*economy.CounterDrift
	audited  []int64
	failList bool
}

func (f *fakeAuditStore) Guilds(ctx context.Context) ([]int64, error) {
	if f.failList {
		return nil, errors.New("db down")
	}
	return f.guilds, nil
}

func (f *fakeAuditStore) SupplyDrift(ctx context.Context, guildID int64) (*economy.SupplyDrift, error) {
	f.audited = append(f.audited, guildID)
	if d, ok := f.supply[guildID]; ok {
		return d, nil
	}
	return &economy.SupplyDrift{GuildID: guildID}, nil
}

func (f *fakeAuditStore) CounterDrifts(ctx context.Context, guildID int64) ([]*economy.CounterDrift, error) {
	return f.counters[guildID], nil
}

func TestAuditRunVisitsEveryGuild(t *testing.T) {
	store := &fakeAuditStore{
		guilds: []int64{10, 20, 30},
		supply: map[int64]*economy.SupplyDrift{
			20: {GuildID: 20, Stored: 500, Derived: 450},
		},
		counters: map[int64][]*economy.CounterDrift{
			30: {{UserID: 7, CrimesAttempted: 5, CrimesAttemptedDerived: 4}},
		},
	}
	s := NewScheduler(store)

	s.runAudit()

	if len(store.audited) != 3 {
		t.Errorf("audited %d guilds, want 3", len(store.audited))
	}
}

func TestAuditRunSurvivesListFailure(t *testing.T) {
	s := NewScheduler(&fakeAuditStore{failList: true})
	// Must not panic; the run just logs and gives up.
	s.runAudit()
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	s := NewScheduler(&fakeAuditStore{})
	if err := s.Start("not a cron spec"); err == nil {
		t.Fatal("Start accepted an invalid cron spec")
	}
}

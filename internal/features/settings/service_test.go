package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Company-Discord/economy-bot/internal/common"
)

// fakeStore keeps settings rows in memory so the cache and validation logic
// can be tested without a database.
type fakeStore struct {
	rows map[int64]Settings
	gets int
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[int64]Settings{}}
}

func (f *fakeStore) Ensure(ctx context.Context, s Settings) error {
	if _, ok := f.rows[s.GuildID]; !ok {
		f.rows[s.GuildID] = s
	}
	return nil
}

func (f *fakeStore) Get(ctx context.Context, guildID int64) (*Settings, error) {
	f.gets++
	s, ok := f.rows[guildID]
	if !ok {
		return nil, errors.New("no row")
	}
	copied := s
	return &copied, nil
}

func (f *fakeStore) Update(ctx context.Context, guildID int64, apply func(*Settings) error) (*Settings, error) {
	s, ok := f.rows[guildID]
	if !ok {
		return nil, errors.New("no row")
	}
	if err := apply(&s); err != nil {
		return nil, err
	}
	f.rows[guildID] = s
	copied := s
	return &copied, nil
}

func testDefaults() Settings {
	a := ActionSettings{Cooldown: time.Minute, MinEarn: 10, MaxEarn: 100, SuccessRate: 0.5}
	return Settings{
		CurrencySymbol: "💰",
		Work:           ActionSettings{Cooldown: time.Minute, MinEarn: 10, MaxEarn: 100, SuccessRate: 1},
		Slut:           a,
		Crime:          a,
		Rob:            a,
	}
}

func TestEffectiveCreatesAndCaches(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, testDefaults(), time.Minute)
	ctx := context.Background()

	got, err := svc.Effective(ctx, 42)
	if err != nil {
		t.Fatalf("Effective: %v", err)
	}
	if got.GuildID != 42 || got.CurrencySymbol != "💰" {
		t.Errorf("got %+v, want defaults for guild 42", got)
	}

	// Second read within the TTL must come from the cache.
	before := store.gets
	if _, err := svc.Effective(ctx, 42); err != nil {
		t.Fatalf("Effective: %v", err)
	}
	if store.gets != before {
		t.Errorf("cached read hit the store (%d -> %d gets)", before, store.gets)
	}
}

func TestEffectiveExpires(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, testDefaults(), time.Nanosecond)
	ctx := context.Background()

	if _, err := svc.Effective(ctx, 42); err != nil {
		t.Fatalf("Effective: %v", err)
	}
	time.Sleep(time.Millisecond)
	before := store.gets
	if _, err := svc.Effective(ctx, 42); err != nil {
		t.Fatalf("Effective: %v", err)
	}
	if store.gets == before {
		t.Error("expired entry was served from the cache")
	}
}

func TestSetOverrideAppliesAndInvalidates(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, testDefaults(), time.Hour)
	ctx := context.Background()

	// Warm the cache with the defaults first.
	if _, err := svc.Effective(ctx, 42); err != nil {
		t.Fatalf("Effective: %v", err)
	}

	updated, err := svc.SetOverride(ctx, 42, "rob_cooldown", "30m")
	if err != nil {
		t.Fatalf("SetOverride: %v", err)
	}
	if updated.Rob.Cooldown != 30*time.Minute {
		t.Errorf("rob cooldown = %v, want 30m", updated.Rob.Cooldown)
	}

	// Despite the long TTL the next read must see the override.
	got, err := svc.Effective(ctx, 42)
	if err != nil {
		t.Fatalf("Effective: %v", err)
	}
	if got.Rob.Cooldown != 30*time.Minute {
		t.Errorf("stale read after override: %v", got.Rob.Cooldown)
	}
}

func TestSetOverrideValidation(t *testing.T) {
	tests := []struct {
		name    string
		field   string
		value   string
		wantErr error
	}{
		{"unknown field", "rob_luck", "0.5", common.ErrUnknownSetting},
		{"work rate is fixed", "work_success_rate", "0.5", common.ErrUnknownSetting},
		{"rate above one", "crime_success_rate", "1.5", common.ErrSettingOutOfRange},
		{"negative rate", "crime_success_rate", "-0.1", common.ErrSettingOutOfRange},
		{"rate not a number", "crime_success_rate", "often", common.ErrSettingOutOfRange},
		{"min above max", "slut_min_earn", "5000", common.ErrSettingOutOfRange},
		{"negative min", "slut_min_earn", "-10", common.ErrSettingOutOfRange},
		{"zero cooldown", "work_cooldown", "0s", common.ErrSettingOutOfRange},
		{"cooldown not a duration", "work_cooldown", "soon", common.ErrSettingOutOfRange},
		{"empty symbol", "currency_symbol", "", common.ErrSettingOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			svc := NewService(store, testDefaults(), time.Hour)
			_, err := svc.SetOverride(context.Background(), 42, tt.field, tt.value)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
			// A rejected override must leave the stored row untouched.
			got, err := svc.Effective(context.Background(), 42)
			if err != nil {
				t.Fatalf("Effective: %v", err)
			}
			if got.Slut != testDefaults().Slut || got.Work.Cooldown != time.Minute {
				t.Errorf("rejected override changed the row: %+v", got)
			}
		})
	}
}

func TestSetOverrideAcceptedValues(t *testing.T) {
	tests := []struct {
		field string
		value string
		check func(*Settings) bool
	}{
		{"currency_symbol", "🪙", func(s *Settings) bool { return s.CurrencySymbol == "🪙" }},
		{"crime_success_rate", "0.25", func(s *Settings) bool { return s.Crime.SuccessRate == 0.25 }},
		{"slut_max_earn", "900", func(s *Settings) bool { return s.Slut.MaxEarn == 900 }},
		{"slut_min_earn", "90", func(s *Settings) bool { return s.Slut.MinEarn == 90 }},
		{"rob_cooldown", "1h30m", func(s *Settings) bool { return s.Rob.Cooldown == 90*time.Minute }},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			store := newFakeStore()
			svc := NewService(store, testDefaults(), time.Hour)
			got, err := svc.SetOverride(context.Background(), 42, tt.field, tt.value)
			if err != nil {
				t.Fatalf("SetOverride(%s, %s): %v", tt.field, tt.value, err)
			}
			if !tt.check(got) {
				t.Errorf("override not applied: %+v", got)
			}
		})
	}
}

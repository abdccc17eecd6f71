package settings

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Company-Discord/economy-bot/internal/common"
)

type store interface {
	Ensure(ctx context.Context, s Settings) error
	Get(ctx context.Context, guildID int64) (*Settings, error)
	Update(ctx context.Context, guildID int64, apply func(*Settings) error) (*Settings, error)
}

// Service serves effective per-guild settings with a small TTL cache in
// front of the repository. Writes go through SetOverride, which validates
// the field and invalidates the guild's cache entry.
type Service struct {
	repo     store
	defaults Settings
	ttl      time.Duration

	mu    sync.RWMutex
	cache map[int64]cacheEntry
}

type cacheEntry struct {
	settings Settings
	fetched  time.Time
}

func NewService(repo store, defaults Settings, ttl time.Duration) *Service {
	return &Service{
		repo:     repo,
		defaults: defaults,
		ttl:      ttl,
		cache:    make(map[int64]cacheEntry),
	}
}

// Effective returns the guild's settings, creating the row from defaults on
// first reference. The returned value is a copy; callers may not see an
// override for up to the cache TTL.
func (s *Service) Effective(ctx context.Context, guildID int64) (Settings, error) {
	s.mu.RLock()
	entry, ok := s.cache[guildID]
	s.mu.RUnlock()
	if ok && time.Since(entry.fetched) < s.ttl {
		return entry.settings, nil
	}

	def := s.defaults
	def.GuildID = guildID
	if err := s.repo.Ensure(ctx, def); err != nil {
		return Settings{}, err
	}
	loaded, err := s.repo.Get(ctx, guildID)
	if err != nil {
		return Settings{}, err
	}
	s.mu.Lock()
	s.cache[guildID] = cacheEntry{settings: *loaded, fetched: time.Now()}
	s.mu.Unlock()
	return *loaded, nil
}

// CurrencySymbol returns the guild's currency symbol, falling back to the
// deployment default when the lookup fails. Rendering a reply must not die
// on a settings read.
func (s *Service) CurrencySymbol(ctx context.Context, guildID int64) string {
	st, err := s.Effective(ctx, guildID)
	if err != nil {
		logrus.WithError(err).WithField("guild_id", guildID).Warn("Settings lookup failed, using default symbol")
		return s.defaults.CurrencySymbol
	}
	return st.CurrencySymbol
}

// Invalidate drops the guild's cache entry so the next read hits the
// repository.
func (s *Service) Invalidate(guildID int64) {
	s.mu.Lock()
	delete(s.cache, guildID)
	s.mu.Unlock()
}

// SetOverride parses and applies a single-field override. Unknown fields,
// rates outside [0,1], non-positive cooldowns and ranges where min would
// exceed max are rejected without touching the stored row.
func (s *Service) SetOverride(ctx context.Context, guildID int64, field, value string) (*Settings, error) {
	def := s.defaults
	def.GuildID = guildID
	if err := s.repo.Ensure(ctx, def); err != nil {
		return nil, err
	}
	updated, err := s.repo.Update(ctx, guildID, func(st *Settings) error {
		if err := applyField(st, field, value); err != nil {
			return err
		}
		return validate(st)
	})
	if err != nil {
		return nil, err
	}
	s.Invalidate(guildID)
	logrus.WithFields(logrus.Fields{
		"guild_id": guildID,
		"field":    field,
		"value":    value,
	}).Info("Guild setting overridden")
	return updated, nil
}

func applyField(st *Settings, field, value string) error {
	if field == "currency_symbol" {
		if value == "" {
			return fmt.Errorf("%w: currency_symbol cannot be empty", common.ErrSettingOutOfRange)
		}
		st.CurrencySymbol = value
		return nil
	}

	actions := map[string]*ActionSettings{
		"work":  &st.Work,
		"slut":  &st.Slut,
		"crime": &st.Crime,
		"rob":   &st.Rob,
	}
	for prefix, a := range actions {
		switch field {
		case prefix + "_cooldown":
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("%w: %q is not a duration", common.ErrSettingOutOfRange, value)
			}
			a.Cooldown = d
			return nil
		case prefix + "_min_earn":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: %q is not an integer", common.ErrSettingOutOfRange, value)
			}
			a.MinEarn = n
			return nil
		case prefix + "_max_earn":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: %q is not an integer", common.ErrSettingOutOfRange, value)
			}
			a.MaxEarn = n
			return nil
		case prefix + "_success_rate":
			// Work always succeeds; its rate is not a setting.
			if prefix == "work" {
				return fmt.Errorf("%w: %s", common.ErrUnknownSetting, field)
			}
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return fmt.Errorf("%w: %q is not a number", common.ErrSettingOutOfRange, value)
			}
			a.SuccessRate = f
			return nil
		}
	}
	return fmt.Errorf("%w: %s", common.ErrUnknownSetting, field)
}

func validate(st *Settings) error {
	for name, a := range map[string]ActionSettings{
		"work": st.Work, "slut": st.Slut, "crime": st.Crime, "rob": st.Rob,
	} {
		if a.Cooldown <= 0 {
			return fmt.Errorf("%w: %s_cooldown must be positive", common.ErrSettingOutOfRange, name)
		}
		if a.MinEarn < 0 || a.MinEarn > a.MaxEarn {
			return fmt.Errorf("%w: %s earn range must satisfy 0 <= min <= max", common.ErrSettingOutOfRange, name)
		}
		if a.SuccessRate < 0 || a.SuccessRate > 1 {
			return fmt.Errorf("%w: %s_success_rate must be within [0,1]", common.ErrSettingOutOfRange, name)
		}
	}
	return nil
}

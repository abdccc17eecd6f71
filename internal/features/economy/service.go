package economy

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Company-Discord/economy-bot/internal/common"
	"github.com/Company-Discord/economy-bot/internal/features/settings"
)

// Service implements the economy operations on top of the repository. All
// randomness flows through one injected source so tests can pin outcomes via
// per-guild success-rate settings of 0 or 1.
type Service struct {
	repo             *Repository
	settings         *settings.Service
	robMinTargetCash int64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewService wires the economy core. A nil rng gets a time-seeded source.
func NewService(repo *Repository, settingsSvc *settings.Service, robMinTargetCash int64, rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{
		repo:             repo,
		settings:         settingsSvc,
		robMinTargetCash: robMinTargetCash,
		rng:              rng,
	}
}

func (s *Service) draw(min, max int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return drawAmount(s.rng, min, max)
}

func (s *Service) roll(rate float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return rollSuccess(s.rng, rate)
}

// Do dispatches a normalized request to the matching operation.
func (s *Service) Do(ctx context.Context, req ActionRequest) (*ActionResult, error) {
	switch req.Kind {
	case ActionWork, ActionSlut, ActionCrime:
		return s.performAction(ctx, req.GuildID, req.ActorUserID, req.Kind)
	case ActionRob:
		return s.Rob(ctx, req.GuildID, req.ActorUserID, req.TargetUserID)
	case ActionGive:
		return s.Give(ctx, req.GuildID, req.ActorUserID, req.TargetUserID, req.Amount)
	case ActionDeposit:
		return s.Deposit(ctx, req.GuildID, req.ActorUserID, req.Amount, req.All)
	case ActionWithdraw:
		return s.Withdraw(ctx, req.GuildID, req.ActorUserID, req.Amount, req.All)
	}
	return nil, fmt.Errorf("unknown action kind %q", req.Kind)
}

// GetBalance returns the user's record, creating it on first reference.
func (s *Service) GetBalance(ctx context.Context, guildID, userID int64) (*BalanceRecord, error) {
	return s.repo.GetBalance(ctx, guildID, userID)
}

// Work grants a payout from the guild's work range. Work always succeeds;
// only the cooldown gates it.
func (s *Service) Work(ctx context.Context, guildID, userID int64) (*ActionResult, error) {
	return s.performAction(ctx, guildID, userID, ActionWork)
}

// Slut is a riskier earn: on a failed roll a fraction of the drawn amount is
// taken from cash instead.
func (s *Service) Slut(ctx context.Context, guildID, userID int64) (*ActionResult, error) {
	return s.performAction(ctx, guildID, userID, ActionSlut)
}

// Crime is the high-risk earn; it also advances the lifetime crime counters.
func (s *Service) Crime(ctx context.Context, guildID, userID int64) (*ActionResult, error) {
	return s.performAction(ctx, guildID, userID, ActionCrime)
}

func (s *Service) performAction(ctx context.Context, guildID, userID int64, kind ActionKind) (*ActionResult, error) {
	cfg, err := s.settings.Effective(ctx, guildID)
	if err != nil {
		return nil, err
	}
	p := actionParams(cfg, kind)

	res := &ActionResult{Kind: kind}
	rec, err := s.repo.Mutate(ctx, guildID, userID, func(rec *BalanceRecord, now time.Time) (*Mutation, error) {
		if remaining := cooldownRemaining(rec.lastUsed(kind), now, p.Cooldown); remaining > 0 {
			return nil, &common.CooldownError{Remaining: remaining}
		}
		drawn := s.draw(p.MinEarn, p.MaxEarn)
		// A failed roll still consumes the cooldown: the attempt was made.
		mut := &Mutation{Stamp: kind}
		if kind == ActionCrime {
			mut.CrimesAttempted = 1
		}
		if s.roll(p.SuccessRate) {
			if kind == ActionCrime {
				mut.CrimesSucceeded = 1
			}
			mut.CashDelta = drawn
			mut.EarnedDelta = drawn
			res.Outcome = OutcomeSuccess
			res.Amount = drawn
		} else {
			pen := penaltyAmount(drawn, penaltyFraction(kind), rec.Cash)
			mut.CashDelta = -pen
			mut.SpentDelta = pen
			res.Outcome = OutcomeFailure
			res.Amount = pen
		}
		return mut, nil
	})
	if err != nil {
		return nil, err
	}
	res.Balance = rec

	amount := res.Amount
	if res.Outcome == OutcomeFailure {
		amount = -amount
	}
	s.logTransaction(ctx, &Transaction{
		GuildID:  guildID,
		ToUserID: userID,
		Amount:   amount,
		Kind:     kind,
		Outcome:  res.Outcome,
	})
	return res, nil
}

// Rob attempts to steal from another user's cash. The target must hold at
// least the eligibility threshold in cash; that check comes before the
// cooldown check so an ineligible target never consumes the actor's cooldown.
func (s *Service) Rob(ctx context.Context, guildID, actorID, targetID int64) (*ActionResult, error) {
	if actorID == targetID {
		return nil, common.ErrSelfTransfer
	}
	cfg, err := s.settings.Effective(ctx, guildID)
	if err != nil {
		return nil, err
	}
	p := cfg.Rob

	res := &ActionResult{Kind: ActionRob}
	actor, target, err := s.repo.MutatePair(ctx, guildID, actorID, targetID,
		func(actor, target *BalanceRecord, now time.Time) (*Mutation, *Mutation, error) {
			if target.Cash < s.robMinTargetCash {
				return nil, nil, common.ErrTargetIneligible
			}
			if remaining := cooldownRemaining(actor.lastUsed(ActionRob), now, p.Cooldown); remaining > 0 {
				return nil, nil, &common.CooldownError{Remaining: remaining}
			}
			drawn := s.draw(p.MinEarn, p.MaxEarn)
			if drawn > target.Cash {
				drawn = target.Cash
			}
			actorMut := &Mutation{Stamp: ActionRob, RobsAttempted: 1}
			var targetMut *Mutation
			if s.roll(p.SuccessRate) {
				actorMut.RobsSucceeded = 1
				actorMut.CashDelta = drawn
				actorMut.EarnedDelta = drawn
				targetMut = &Mutation{CashDelta: -drawn, SpentDelta: drawn}
				res.Outcome = OutcomeSuccess
				res.Amount = drawn
			} else {
				pen := penaltyAmount(drawn, penaltyFraction(ActionRob), actor.Cash)
				actorMut.CashDelta = -pen
				actorMut.SpentDelta = pen
				res.Outcome = OutcomeFailure
				res.Amount = pen
			}
			return actorMut, targetMut, nil
		})
	if err != nil {
		return nil, err
	}
	res.Balance = actor
	res.TargetBalance = target

	t := &Transaction{
		GuildID:  guildID,
		ToUserID: actorID,
		Kind:     ActionRob,
		Outcome:  res.Outcome,
	}
	if res.Outcome == OutcomeSuccess {
		t.FromUserID = &targetID
		t.Amount = res.Amount
	} else {
		t.Amount = -res.Amount
	}
	s.logTransaction(ctx, t)
	return res, nil
}

// Give moves cash between two users of the same guild atomically: either
// both rows change or neither does.
func (s *Service) Give(ctx context.Context, guildID, fromID, toID, amount int64) (*ActionResult, error) {
	if amount <= 0 {
		return nil, common.ErrInvalidAmount
	}
	if fromID == toID {
		return nil, common.ErrSelfTransfer
	}
	from, to, err := s.repo.TransferAtomic(ctx, guildID, fromID, toID, amount)
	if err != nil {
		return nil, err
	}
	s.logTransaction(ctx, &Transaction{
		GuildID:    guildID,
		FromUserID: &fromID,
		ToUserID:   toID,
		Amount:     amount,
		Kind:       ActionGive,
		Outcome:    OutcomeSuccess,
	})
	return &ActionResult{
		Kind:          ActionGive,
		Outcome:       OutcomeSuccess,
		Amount:        amount,
		Balance:       from,
		TargetBalance: to,
	}, nil
}

// Deposit moves cash into the bank. With all set, the amount is the user's
// entire cash at the moment the row is locked.
func (s *Service) Deposit(ctx context.Context, guildID, userID, amount int64, all bool) (*ActionResult, error) {
	return s.moveBetweenPools(ctx, guildID, userID, amount, all, ActionDeposit)
}

// Withdraw moves bank funds back to cash.
func (s *Service) Withdraw(ctx context.Context, guildID, userID, amount int64, all bool) (*ActionResult, error) {
	return s.moveBetweenPools(ctx, guildID, userID, amount, all, ActionWithdraw)
}

func (s *Service) moveBetweenPools(ctx context.Context, guildID, userID, amount int64, all bool, kind ActionKind) (*ActionResult, error) {
	if !all && amount <= 0 {
		return nil, common.ErrInvalidAmount
	}
	var moved int64
	rec, err := s.repo.Mutate(ctx, guildID, userID, func(rec *BalanceRecord, now time.Time) (*Mutation, error) {
		source := rec.Cash
		if kind == ActionWithdraw {
			source = rec.Bank
		}
		moved = amount
		if all {
			moved = source
		}
		if moved <= 0 {
			return nil, common.ErrInvalidAmount
		}
		if source < moved {
			return nil, common.ErrInsufficientFunds
		}
		// Internal move: total unchanged, lifetime totals untouched.
		if kind == ActionDeposit {
			return &Mutation{CashDelta: -moved, BankDelta: moved}, nil
		}
		return &Mutation{CashDelta: moved, BankDelta: -moved}, nil
	})
	if err != nil {
		return nil, err
	}
	s.logTransaction(ctx, &Transaction{
		GuildID:  guildID,
		ToUserID: userID,
		Amount:   moved,
		Kind:     kind,
		Outcome:  OutcomeSuccess,
	})
	return &ActionResult{Kind: kind, Outcome: OutcomeSuccess, Amount: moved, Balance: rec}, nil
}

// AdminAdjust adds or removes money on behalf of an administrator. Negative
// deltas fail with ErrInsufficientFunds rather than clamping.
func (s *Service) AdminAdjust(ctx context.Context, guildID, userID, cashDelta, bankDelta int64) (*BalanceRecord, error) {
	rec, err := s.repo.ApplyDelta(ctx, guildID, userID, cashDelta, bankDelta)
	if err != nil {
		return nil, err
	}
	s.logTransaction(ctx, &Transaction{
		GuildID:  guildID,
		ToUserID: userID,
		Amount:   cashDelta + bankDelta,
		Kind:     ActionAdminAdjust,
		Outcome:  OutcomeSuccess,
	})
	return rec, nil
}

// ResetBalance zeroes a user's cash and bank, keeping the row and counters.
func (s *Service) ResetBalance(ctx context.Context, guildID, userID int64) (int64, error) {
	removed, err := s.repo.ResetBalance(ctx, guildID, userID)
	if err != nil {
		return 0, err
	}
	if removed != 0 {
		s.logTransaction(ctx, &Transaction{
			GuildID:  guildID,
			ToUserID: userID,
			Amount:   -removed,
			Kind:     ActionAdminAdjust,
			Outcome:  OutcomeSuccess,
		})
	}
	return removed, nil
}

// Leaderboard returns a page of the guild leaderboard.
func (s *Service) Leaderboard(ctx context.Context, guildID int64, limit, offset int) ([]*LeaderboardEntry, error) {
	return s.repo.Leaderboard(ctx, guildID, limit, offset)
}

// Rank returns the user's leaderboard position.
func (s *Service) Rank(ctx context.Context, guildID, userID int64) (int, error) {
	return s.repo.Rank(ctx, guildID, userID)
}

// History lists recent transactions matching the filter.
func (s *Service) History(ctx context.Context, guildID int64, f TxFilter) ([]*Transaction, error) {
	return s.repo.Transactions(ctx, guildID, f)
}

// GuildStats aggregates the guild's economy.
func (s *Service) GuildStats(ctx context.Context, guildID int64) (*GuildStats, error) {
	return s.repo.GuildStats(ctx, guildID)
}

// logTransaction appends to the audit log after the balance change has
// committed. The balance state is authoritative: a failed append is logged
// as a degraded audit trail, never rolled back.
func (s *Service) logTransaction(ctx context.Context, t *Transaction) {
	if err := s.repo.AppendTransaction(ctx, t); err != nil {
		logrus.WithFields(logrus.Fields{
			"guild_id": t.GuildID,
			"to_user":  t.ToUserID,
			"kind":     t.Kind,
			"amount":   t.Amount,
		}).WithError(err).Warn("Audit log append failed, balance change kept")
	}
}

func actionParams(cfg settings.Settings, kind ActionKind) settings.ActionSettings {
	switch kind {
	case ActionSlut:
		return cfg.Slut
	case ActionCrime:
		return cfg.Crime
	case ActionRob:
		return cfg.Rob
	}
	return cfg.Work
}

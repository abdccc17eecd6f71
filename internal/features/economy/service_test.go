package economy

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/Company-Discord/economy-bot/internal/common"
	"github.com/Company-Discord/economy-bot/internal/db/pgtest"
	"github.com/Company-Discord/economy-bot/internal/features/settings"
)

// baseSettings pins every draw to exactly 100 and every roll to success, so
// tests flip individual rates to 0 when they need a guaranteed failure.
func baseSettings() settings.Settings {
	fixed := settings.ActionSettings{Cooldown: time.Hour, MinEarn: 100, MaxEarn: 100, SuccessRate: 1}
	return settings.Settings{
		CurrencySymbol: "$",
		Work:           fixed,
		Slut:           fixed,
		Crime:          fixed,
		Rob:            fixed,
	}
}

func newTestService(t *testing.T, defaults settings.Settings) (*Service, *Repository) {
	t.Helper()
	pool := pgtest.NewDB(t)
	repo := NewRepository(pool)
	settingsSvc := settings.NewService(settings.NewRepository(pool), defaults, time.Minute)
	svc := NewService(repo, settingsSvc, 50, rand.New(rand.NewSource(42)))
	return svc, repo
}

func TestWorkPaysAndStampsCooldown(t *testing.T) {
	svc, _ := newTestService(t, baseSettings())
	ctx := context.Background()
	guildID := testGuildID()

	res, err := svc.Work(ctx, guildID, 1)
	if err != nil {
		t.Fatalf("Work: %v", err)
	}
	if res.Outcome != OutcomeSuccess || res.Amount != 100 {
		t.Fatalf("got %s %d, want success 100", res.Outcome, res.Amount)
	}
	if res.Balance.Cash != 100 || res.Balance.TotalEarned != 100 {
		t.Errorf("balance after work: cash %d earned %d", res.Balance.Cash, res.Balance.TotalEarned)
	}
	if res.Balance.LastWork == nil {
		t.Error("work did not stamp its cooldown")
	}

	// Immediately again: the cooldown gates it and nothing changes.
	_, err = svc.Work(ctx, guildID, 1)
	var cdErr *common.CooldownError
	if !errors.As(err, &cdErr) {
		t.Fatalf("got %v, want CooldownError", err)
	}
	if cdErr.Remaining <= 0 || cdErr.Remaining > time.Hour {
		t.Errorf("remaining = %v, want within (0, 1h]", cdErr.Remaining)
	}
	rec, err := svc.GetBalance(ctx, guildID, 1)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if rec.Cash != 100 {
		t.Errorf("gated attempt changed the balance: cash = %d, want 100", rec.Cash)
	}

	history, err := svc.History(ctx, guildID, TxFilter{Limit: 10})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 || history[0].Kind != ActionWork || history[0].Amount != 100 {
		t.Errorf("history = %+v, want one work entry of 100", history)
	}
}

func TestCrimeFailureFinesAndConsumesCooldown(t *testing.T) {
	cfg := baseSettings()
	cfg.Crime.SuccessRate = 0
	svc, repo := newTestService(t, cfg)
	ctx := context.Background()
	guildID := testGuildID()

	if _, err := repo.ApplyDelta(ctx, guildID, 1, 40, 0); err != nil {
		t.Fatalf("seed: %v", err)
	}

	res, err := svc.Crime(ctx, guildID, 1)
	if err != nil {
		t.Fatalf("Crime: %v", err)
	}
	if res.Outcome != OutcomeFailure {
		t.Fatalf("got %s, want failure", res.Outcome)
	}
	// Half of the drawn 100 is 50, clamped to the 40 on hand.
	if res.Amount != 40 {
		t.Errorf("penalty = %d, want 40", res.Amount)
	}
	if res.Balance.Cash != 0 {
		t.Errorf("cash after fine = %d, want 0", res.Balance.Cash)
	}
	if res.Balance.CrimesAttempted != 1 || res.Balance.CrimesSucceeded != 0 {
		t.Errorf("counters = %d/%d, want 1/0", res.Balance.CrimesAttempted, res.Balance.CrimesSucceeded)
	}

	// The failed attempt still consumed the cooldown.
	_, err = svc.Crime(ctx, guildID, 1)
	if !errors.Is(err, common.ErrCooldownActive) {
		t.Fatalf("got %v, want cooldown error", err)
	}

	history, err := svc.History(ctx, guildID, TxFilter{Kind: ActionCrime, Limit: 10})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 || history[0].Amount != -40 || history[0].Outcome != OutcomeFailure {
		t.Errorf("history = %+v, want one failed crime entry of -40", history)
	}
}

func TestRobIneligibleTargetDoesNotConsumeCooldown(t *testing.T) {
	svc, repo := newTestService(t, baseSettings())
	ctx := context.Background()
	guildID := testGuildID()
	const actor, target = int64(1), int64(2)

	// Target below the 50 cash threshold.
	if _, err := repo.ApplyDelta(ctx, guildID, target, 10, 0); err != nil {
		t.Fatalf("seed: %v", err)
	}
	_, err := svc.Rob(ctx, guildID, actor, target)
	if !errors.Is(err, common.ErrTargetIneligible) {
		t.Fatalf("got %v, want ErrTargetIneligible", err)
	}
	rec, err := svc.GetBalance(ctx, guildID, actor)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if rec.LastRob != nil || rec.RobsAttempted != 0 {
		t.Error("rejected attempt must not consume the cooldown or count as an attempt")
	}

	// With a rich enough target the rob goes through right away.
	if _, err := repo.ApplyDelta(ctx, guildID, target, 90, 0); err != nil {
		t.Fatalf("seed: %v", err)
	}
	res, err := svc.Rob(ctx, guildID, actor, target)
	if err != nil {
		t.Fatalf("Rob: %v", err)
	}
	if res.Outcome != OutcomeSuccess || res.Amount != 100 {
		t.Fatalf("got %s %d, want success 100", res.Outcome, res.Amount)
	}
	if res.Balance.Cash != 100 || res.TargetBalance.Cash != 0 {
		t.Errorf("after rob: actor %d target %d, want 100 and 0", res.Balance.Cash, res.TargetBalance.Cash)
	}
	if res.Balance.RobsAttempted != 1 || res.Balance.RobsSucceeded != 1 {
		t.Errorf("rob counters = %d/%d, want 1/1", res.Balance.RobsAttempted, res.Balance.RobsSucceeded)
	}

	history, err := svc.History(ctx, guildID, TxFilter{Kind: ActionRob, Limit: 10})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history has %d rob entries, want 1", len(history))
	}
	if history[0].FromUserID == nil || *history[0].FromUserID != target {
		t.Errorf("rob entry must name the victim as sender: %+v", history[0])
	}
}

func TestRobSelfRejected(t *testing.T) {
	svc, _ := newTestService(t, baseSettings())
	if _, err := svc.Rob(context.Background(), testGuildID(), 1, 1); !errors.Is(err, common.ErrSelfTransfer) {
		t.Fatalf("got %v, want ErrSelfTransfer", err)
	}
}

func TestGive(t *testing.T) {
	svc, repo := newTestService(t, baseSettings())
	ctx := context.Background()
	guildID := testGuildID()
	const from, to = int64(1), int64(2)

	if _, err := repo.ApplyDelta(ctx, guildID, from, 100, 0); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := svc.Give(ctx, guildID, from, to, 0); !errors.Is(err, common.ErrInvalidAmount) {
		t.Errorf("zero amount: got %v, want ErrInvalidAmount", err)
	}
	if _, err := svc.Give(ctx, guildID, from, from, 10); !errors.Is(err, common.ErrSelfTransfer) {
		t.Errorf("self give: got %v, want ErrSelfTransfer", err)
	}
	if _, err := svc.Give(ctx, guildID, from, to, 500); !errors.Is(err, common.ErrInsufficientFunds) {
		t.Errorf("overdraw: got %v, want ErrInsufficientFunds", err)
	}

	res, err := svc.Give(ctx, guildID, from, to, 60)
	if err != nil {
		t.Fatalf("Give: %v", err)
	}
	if res.Balance.Cash != 40 || res.TargetBalance.Cash != 60 {
		t.Errorf("after give: sender %d recipient %d, want 40 and 60", res.Balance.Cash, res.TargetBalance.Cash)
	}

	history, err := svc.History(ctx, guildID, TxFilter{Kind: ActionGive, Limit: 10})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 || history[0].FromUserID == nil || *history[0].FromUserID != from {
		t.Errorf("give must log exactly one entry naming the sender: %+v", history)
	}
}

func TestDepositAndWithdraw(t *testing.T) {
	svc, repo := newTestService(t, baseSettings())
	ctx := context.Background()
	guildID := testGuildID()

	if _, err := repo.ApplyDelta(ctx, guildID, 1, 300, 0); err != nil {
		t.Fatalf("seed: %v", err)
	}

	res, err := svc.Deposit(ctx, guildID, 1, 120, false)
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if res.Balance.Cash != 180 || res.Balance.Bank != 120 {
		t.Errorf("after deposit: cash %d bank %d, want 180/120", res.Balance.Cash, res.Balance.Bank)
	}
	// Moving between pools must not touch the lifetime totals.
	if res.Balance.TotalEarned != 0 || res.Balance.TotalSpent != 0 {
		t.Errorf("pool move changed totals: %+v", res.Balance)
	}

	if _, err := svc.Withdraw(ctx, guildID, 1, 500, false); !errors.Is(err, common.ErrInsufficientFunds) {
		t.Errorf("overdraw withdraw: got %v, want ErrInsufficientFunds", err)
	}

	res, err = svc.Deposit(ctx, guildID, 1, 0, true)
	if err != nil {
		t.Fatalf("Deposit all: %v", err)
	}
	if res.Amount != 180 || res.Balance.Cash != 0 || res.Balance.Bank != 300 {
		t.Errorf("deposit all moved %d, cash %d bank %d", res.Amount, res.Balance.Cash, res.Balance.Bank)
	}

	// "all" with an empty source pool is an invalid amount, not a no-op.
	if _, err := svc.Deposit(ctx, guildID, 1, 0, true); !errors.Is(err, common.ErrInvalidAmount) {
		t.Errorf("deposit all with no cash: got %v, want ErrInvalidAmount", err)
	}

	res, err = svc.Withdraw(ctx, guildID, 1, 0, true)
	if err != nil {
		t.Fatalf("Withdraw all: %v", err)
	}
	if res.Amount != 300 || res.Balance.Cash != 300 || res.Balance.Bank != 0 {
		t.Errorf("withdraw all moved %d, cash %d bank %d", res.Amount, res.Balance.Cash, res.Balance.Bank)
	}
}

func TestGiveConcurrentOverdraw(t *testing.T) {
	svc, repo := newTestService(t, baseSettings())
	ctx := context.Background()
	guildID := testGuildID()
	const from, to = int64(1), int64(2)

	if _, err := repo.ApplyDelta(ctx, guildID, from, 100, 0); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// 10 concurrent gives of 25 against 100 cash: exactly 4 can win.
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func() {
			_, err := svc.Give(ctx, guildID, from, to, 25)
			results <- err
		}()
	}
	var ok, insufficient int
	for i := 0; i < 10; i++ {
		err := <-results
		switch {
		case err == nil:
			ok++
		case errors.Is(err, common.ErrInsufficientFunds):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 4 || insufficient != 6 {
		t.Errorf("got %d successes and %d rejections, want 4 and 6", ok, insufficient)
	}

	sender, _ := svc.GetBalance(ctx, guildID, from)
	recipient, _ := svc.GetBalance(ctx, guildID, to)
	if sender.Cash != 0 || recipient.Cash != 100 {
		t.Errorf("final balances: sender %d recipient %d, want 0 and 100", sender.Cash, recipient.Cash)
	}
}

func TestRobAndDepositOnSameVictimStayConsistent(t *testing.T) {
	svc, repo := newTestService(t, baseSettings())
	ctx := context.Background()
	guildID := testGuildID()
	const victim = int64(100)

	if _, err := repo.ApplyDelta(ctx, guildID, victim, 5000, 0); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Eight distinct robbers (each draw is a fixed 100) race against the
	// victim moving cash into the bank. Every operation must see a fully
	// committed state of the other, so the books have to close exactly.
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for actor := int64(1); actor <= 8; actor++ {
		wg.Add(1)
		go func(actor int64) {
			defer wg.Done()
			_, err := svc.Rob(ctx, guildID, actor, victim)
			errs <- err
		}(actor)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 8; i++ {
			_, err := svc.Deposit(ctx, guildID, victim, 50, false)
			errs <- err
		}
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent op: %v", err)
		}
	}

	rec, err := svc.GetBalance(ctx, guildID, victim)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if rec.Cash != 3800 || rec.Bank != 400 {
		t.Errorf("victim cash %d bank %d, want 3800/400", rec.Cash, rec.Bank)
	}
	var stolen int64
	for actor := int64(1); actor <= 8; actor++ {
		r, err := svc.GetBalance(ctx, guildID, actor)
		if err != nil {
			t.Fatalf("GetBalance(%d): %v", actor, err)
		}
		stolen += r.Cash
	}
	if stolen != 800 {
		t.Errorf("robbers hold %d, want 800", stolen)
	}
}

func TestAdminAdjustAndReset(t *testing.T) {
	svc, _ := newTestService(t, baseSettings())
	ctx := context.Background()
	guildID := testGuildID()

	rec, err := svc.AdminAdjust(ctx, guildID, 1, 500, 200)
	if err != nil {
		t.Fatalf("AdminAdjust: %v", err)
	}
	if rec.Cash != 500 || rec.Bank != 200 {
		t.Errorf("after adjust: cash %d bank %d, want 500/200", rec.Cash, rec.Bank)
	}

	if _, err := svc.AdminAdjust(ctx, guildID, 1, -1000, 0); !errors.Is(err, common.ErrInsufficientFunds) {
		t.Errorf("over-removal: got %v, want ErrInsufficientFunds", err)
	}

	removed, err := svc.ResetBalance(ctx, guildID, 1)
	if err != nil {
		t.Fatalf("ResetBalance: %v", err)
	}
	if removed != 700 {
		t.Errorf("removed = %d, want 700", removed)
	}

	history, err := svc.History(ctx, guildID, TxFilter{Kind: ActionAdminAdjust, Limit: 10})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("admin history has %d entries, want 2", len(history))
	}

	// The log fully explains the supply, so the reconciliation sees none.
	drift, err := svc.repo.SupplyDrift(ctx, guildID)
	if err != nil {
		t.Fatalf("SupplyDrift: %v", err)
	}
	if drift.Diff() != 0 {
		t.Errorf("drift = %d, want 0", drift.Diff())
	}
}

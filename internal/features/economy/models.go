// Package economy implements the per-guild virtual-currency core: balances
// split into cash and bank, gated earning actions, transfers and the
// append-only transaction log.
// models.go declares the shared types.
package economy

import "time"

// ActionKind identifies every balance-affecting operation. The first four are
// the gated (cooldown-protected) earning actions; the rest are deterministic
// moves and administrative adjustments.
type ActionKind string

const (
	ActionWork     ActionKind = "work"
	ActionSlut     ActionKind = "slut"
	ActionCrime    ActionKind = "crime"
	ActionRob      ActionKind = "rob"
	ActionGive     ActionKind = "give"
	ActionDeposit  ActionKind = "deposit"
	ActionWithdraw ActionKind = "withdraw"

	// ActionAdminAdjust marks administrator add/remove/reset operations in
	// the transaction log.
	ActionAdminAdjust ActionKind = "admin-adjust"
)

// Gated reports whether the kind is cooldown-protected.
func (k ActionKind) Gated() bool {
	switch k {
	case ActionWork, ActionSlut, ActionCrime, ActionRob:
		return true
	}
	return false
}

// Outcome is the result of a probabilistic roll. Deterministic operations
// always log OutcomeSuccess.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// BalanceRecord is the durable per-(guild, user) state. Created lazily with
// zeroed fields on first interaction; mutated only through the repository's
// atomic mutation path; never hard-deleted (admin reset zeroes the money
// pools but keeps the row and its lifetime counters).
type BalanceRecord struct {
	GuildID int64 `db:"guild_id"`
	UserID  int64 `db:"user_id"`
	Cash    int64 `db:"cash"` // liquid pool, subject to robbery; never negative
	Bank    int64 `db:"bank"` // protected pool; never negative

	TotalEarned int64 `db:"total_earned"` // monotonic
	TotalSpent  int64 `db:"total_spent"`  // monotonic

	CrimesAttempted int64 `db:"crimes_attempted"`
	CrimesSucceeded int64 `db:"crimes_succeeded"`
	RobsAttempted   int64 `db:"robs_attempted"`
	RobsSucceeded   int64 `db:"robs_succeeded"`

	// Per-action last-use timestamps; nil until the action is first used.
	LastWork  *time.Time `db:"last_work"`
	LastSlut  *time.Time `db:"last_slut"`
	LastCrime *time.Time `db:"last_crime"`
	LastRob   *time.Time `db:"last_rob"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Total returns cash + bank.
func (b *BalanceRecord) Total() int64 {
	return b.Cash + b.Bank
}

// lastUsed returns the last-use timestamp for a gated action.
func (b *BalanceRecord) lastUsed(kind ActionKind) *time.Time {
	switch kind {
	case ActionWork:
		return b.LastWork
	case ActionSlut:
		return b.LastSlut
	case ActionCrime:
		return b.LastCrime
	case ActionRob:
		return b.LastRob
	}
	return nil
}

// Transaction is one immutable entry of the audit log. FromUserID is nil for
// system-granted income and penalties; Amount is signed from the recipient's
// point of view, so a failed action logs a negative system entry. The supply
// reconciliation derives the guild total from nil-sender rows outside the
// supply-neutral kinds (give, deposit, withdraw), so payouts and penalties
// must keep logging as system entries and rob rows must carry the victim as
// sender.
type Transaction struct {
	ID         int64      `db:"id"`
	GuildID    int64      `db:"guild_id"`
	FromUserID *int64     `db:"from_user_id"`
	ToUserID   int64      `db:"to_user_id"`
	Amount     int64      `db:"amount"`
	Kind       ActionKind `db:"kind"`
	Outcome    Outcome    `db:"outcome"`
	CreatedAt  time.Time  `db:"created_at"`
}

// ActionRequest is the normalized form of an inbound command, produced by
// the dispatch layer. TargetUserID is set for rob and give; Amount/All for
// give, deposit and withdraw.
type ActionRequest struct {
	GuildID      int64
	ActorUserID  int64
	Kind         ActionKind
	TargetUserID int64
	Amount       int64
	All          bool
}

// ActionResult is what the dispatch layer renders back to the user. The core
// never formats text.
type ActionResult struct {
	Kind    ActionKind
	Outcome Outcome
	// Amount is the payout on success, the penalty on failure, or the moved
	// amount for deterministic operations.
	Amount int64
	// Balance is the actor's post-mutation snapshot.
	Balance *BalanceRecord
	// TargetBalance is set for rob and give.
	TargetBalance *BalanceRecord
}

// LeaderboardEntry is one row of the guild leaderboard, ordered by total.
type LeaderboardEntry struct {
	Rank   int
	UserID int64
	Cash   int64
	Bank   int64
	Total  int64
}

// GuildStats summarizes a guild's economy for the admin stats command.
type GuildStats struct {
	Users        int64
	TotalMoney   int64
	Transactions int64
}

// TxFilter narrows a transaction-log query. Zero values mean "no filter";
// Limit must be positive.
type TxFilter struct {
	UserID *int64
	Kind   ActionKind
	Since  *time.Time
	Limit  int
	Offset int
}

package economy

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Company-Discord/economy-bot/internal/common"
)

// Repository owns all SQL for balances and the transaction log. Every
// balance mutation goes through Mutate or MutatePair: a single database
// transaction that locks the affected rows, lets a callback decide the
// deltas against the locked state, and rejects any change that would drive
// cash or bank negative.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Mutation is the set of deltas a mutation callback asks to apply. Stamp, if
// set to a gated action, records the transaction clock as that action's
// last-use time.
type Mutation struct {
	CashDelta   int64
	BankDelta   int64
	EarnedDelta int64
	SpentDelta  int64

	CrimesAttempted int64
	CrimesSucceeded int64
	RobsAttempted   int64
	RobsSucceeded   int64

	Stamp ActionKind
}

const balanceColumns = `cash, bank, total_earned, total_spent,
		crimes_attempted, crimes_succeeded, robs_attempted, robs_succeeded,
		last_work, last_slut, last_crime, last_rob, created_at, updated_at`

// GetBalance returns the record for (guildID, userID), creating a zeroed row
// if none exists yet.
func (r *Repository) GetBalance(ctx context.Context, guildID, userID int64) (*BalanceRecord, error) {
	if err := r.ensureRows(ctx, r.db, guildID, userID); err != nil {
		return nil, err
	}
	rec := &BalanceRecord{GuildID: guildID, UserID: userID}
	query := `SELECT ` + balanceColumns + ` FROM balances WHERE guild_id = $1 AND user_id = $2`
	err := r.db.QueryRow(ctx, query, guildID, userID).Scan(
		&rec.Cash, &rec.Bank, &rec.TotalEarned, &rec.TotalSpent,
		&rec.CrimesAttempted, &rec.CrimesSucceeded, &rec.RobsAttempted, &rec.RobsSucceeded,
		&rec.LastWork, &rec.LastSlut, &rec.LastCrime, &rec.LastRob,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return rec, nil
}

// execer is the subset of pgxpool.Pool and pgx.Tx the lazy row creation
// needs.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (r *Repository) ensureRows(ctx context.Context, db execer, guildID int64, userIDs ...int64) error {
	// Insert in user-id order, matching the locking read. Speculative
	// inserts of missing rows block just like row locks, so a fixed order
	// here is what keeps first-contact pair mutations deadlock free.
	slices.Sort(userIDs)
	for _, id := range userIDs {
		_, err := db.Exec(ctx,
			`INSERT INTO balances (guild_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			guildID, id)
		if err != nil {
			return fmt.Errorf("ensure balance row: %w", err)
		}
	}
	return nil
}

// Mutate runs fn against the locked record for (guildID, userID) and applies
// the returned deltas in the same database transaction. now is the database
// clock captured by the locking read; the same instant is used for cooldown
// comparison and for stamping, so cooldown math never mixes clocks. fn
// returning an error aborts with no change; returning a nil Mutation commits
// nothing but still returns the observed record.
func (r *Repository) Mutate(ctx context.Context, guildID, userID int64, fn func(rec *BalanceRecord, now time.Time) (*Mutation, error)) (*BalanceRecord, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := r.ensureRows(ctx, tx, guildID, userID); err != nil {
		return nil, err
	}
	rec, now, err := lockRow(ctx, tx, guildID, userID)
	if err != nil {
		return nil, err
	}
	mut, err := fn(rec, now)
	if err != nil {
		return nil, err
	}
	if mut == nil {
		return rec, nil
	}
	if rec.Cash+mut.CashDelta < 0 || rec.Bank+mut.BankDelta < 0 {
		return nil, common.ErrInsufficientFunds
	}
	if err := applyMutation(ctx, tx, guildID, userID, mut, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	rec.apply(mut, now)
	return rec, nil
}

// MutatePair is Mutate over two distinct users of the same guild. Both rows
// are locked by one statement in user-id order, so two concurrent pair
// mutations over the same users cannot deadlock.
func (r *Repository) MutatePair(ctx context.Context, guildID, userID, otherID int64, fn func(user, other *BalanceRecord, now time.Time) (*Mutation, *Mutation, error)) (*BalanceRecord, *BalanceRecord, error) {
	if userID == otherID {
		return nil, nil, common.ErrSelfTransfer
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := r.ensureRows(ctx, tx, guildID, userID, otherID); err != nil {
		return nil, nil, err
	}
	user, other, now, err := lockPair(ctx, tx, guildID, userID, otherID)
	if err != nil {
		return nil, nil, err
	}
	userMut, otherMut, err := fn(user, other, now)
	if err != nil {
		return nil, nil, err
	}
	if userMut == nil && otherMut == nil {
		return user, other, nil
	}
	for _, p := range []struct {
		rec *BalanceRecord
		mut *Mutation
	}{{user, userMut}, {other, otherMut}} {
		if p.mut == nil {
			continue
		}
		if p.rec.Cash+p.mut.CashDelta < 0 || p.rec.Bank+p.mut.BankDelta < 0 {
			return nil, nil, common.ErrInsufficientFunds
		}
		if err := applyMutation(ctx, tx, guildID, p.rec.UserID, p.mut, now); err != nil {
			return nil, nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}
	if userMut != nil {
		user.apply(userMut, now)
	}
	if otherMut != nil {
		other.apply(otherMut, now)
	}
	return user, other, nil
}

// lockRow reads the record FOR UPDATE and captures the database clock in the
// same statement.
func lockRow(ctx context.Context, tx pgx.Tx, guildID, userID int64) (*BalanceRecord, time.Time, error) {
	rec := &BalanceRecord{GuildID: guildID, UserID: userID}
	var now time.Time
	query := `SELECT ` + balanceColumns + `, NOW()
		FROM balances WHERE guild_id = $1 AND user_id = $2 FOR UPDATE`
	err := tx.QueryRow(ctx, query, guildID, userID).Scan(
		&rec.Cash, &rec.Bank, &rec.TotalEarned, &rec.TotalSpent,
		&rec.CrimesAttempted, &rec.CrimesSucceeded, &rec.RobsAttempted, &rec.RobsSucceeded,
		&rec.LastWork, &rec.LastSlut, &rec.LastCrime, &rec.LastRob,
		&rec.CreatedAt, &rec.UpdatedAt, &now,
	)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("lock balance row: %w", err)
	}
	return rec, now, nil
}

func lockPair(ctx context.Context, tx pgx.Tx, guildID, userID, otherID int64) (user, other *BalanceRecord, now time.Time, err error) {
	query := `SELECT user_id, ` + balanceColumns + `, NOW()
		FROM balances WHERE guild_id = $1 AND user_id = ANY($2)
		ORDER BY user_id FOR UPDATE`
	rows, err := tx.Query(ctx, query, guildID, []int64{userID, otherID})
	if err != nil {
		return nil, nil, time.Time{}, fmt.Errorf("lock balance rows: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		rec := &BalanceRecord{GuildID: guildID}
		if err := rows.Scan(
			&rec.UserID,
			&rec.Cash, &rec.Bank, &rec.TotalEarned, &rec.TotalSpent,
			&rec.CrimesAttempted, &rec.CrimesSucceeded, &rec.RobsAttempted, &rec.RobsSucceeded,
			&rec.LastWork, &rec.LastSlut, &rec.LastCrime, &rec.LastRob,
			&rec.CreatedAt, &rec.UpdatedAt, &now,
		); err != nil {
			return nil, nil, time.Time{}, fmt.Errorf("scan balance row: %w", err)
		}
		switch rec.UserID {
		case userID:
			user = rec
		case otherID:
			other = rec
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, time.Time{}, fmt.Errorf("lock balance rows: %w", err)
	}
	if user == nil || other == nil {
		return nil, nil, time.Time{}, errors.New("lock balance rows: row missing after ensure")
	}
	return user, other, now, nil
}

func applyMutation(ctx context.Context, tx pgx.Tx, guildID, userID int64, mut *Mutation, now time.Time) error {
	set := `cash = cash + $3, bank = bank + $4,
		total_earned = total_earned + $5, total_spent = total_spent + $6,
		crimes_attempted = crimes_attempted + $7, crimes_succeeded = crimes_succeeded + $8,
		robs_attempted = robs_attempted + $9, robs_succeeded = robs_succeeded + $10,
		updated_at = $11`
	if col := stampColumn(mut.Stamp); col != "" {
		set += ", " + col + " = $11"
	}
	_, err := tx.Exec(ctx,
		`UPDATE balances SET `+set+` WHERE guild_id = $1 AND user_id = $2`,
		guildID, userID,
		mut.CashDelta, mut.BankDelta, mut.EarnedDelta, mut.SpentDelta,
		mut.CrimesAttempted, mut.CrimesSucceeded, mut.RobsAttempted, mut.RobsSucceeded,
		now,
	)
	if err != nil {
		return fmt.Errorf("apply balance mutation: %w", err)
	}
	return nil
}

// stampColumn maps a gated action to its last-use column. The returned name
// is from a fixed set, never user input.
func stampColumn(kind ActionKind) string {
	switch kind {
	case ActionWork:
		return "last_work"
	case ActionSlut:
		return "last_slut"
	case ActionCrime:
		return "last_crime"
	case ActionRob:
		return "last_rob"
	}
	return ""
}

// apply folds a committed mutation into the in-memory snapshot.
func (b *BalanceRecord) apply(mut *Mutation, now time.Time) {
	b.Cash += mut.CashDelta
	b.Bank += mut.BankDelta
	b.TotalEarned += mut.EarnedDelta
	b.TotalSpent += mut.SpentDelta
	b.CrimesAttempted += mut.CrimesAttempted
	b.CrimesSucceeded += mut.CrimesSucceeded
	b.RobsAttempted += mut.RobsAttempted
	b.RobsSucceeded += mut.RobsSucceeded
	b.UpdatedAt = now
	if mut.Stamp.Gated() {
		stamped := now
		switch mut.Stamp {
		case ActionWork:
			b.LastWork = &stamped
		case ActionSlut:
			b.LastSlut = &stamped
		case ActionCrime:
			b.LastCrime = &stamped
		case ActionRob:
			b.LastRob = &stamped
		}
	}
}

// ApplyDelta adjusts cash and bank by plain deltas, failing with
// ErrInsufficientFunds if either pool would go negative.
func (r *Repository) ApplyDelta(ctx context.Context, guildID, userID, cashDelta, bankDelta int64) (*BalanceRecord, error) {
	return r.Mutate(ctx, guildID, userID, func(rec *BalanceRecord, now time.Time) (*Mutation, error) {
		return &Mutation{CashDelta: cashDelta, BankDelta: bankDelta}, nil
	})
}

// ResetBalance zeroes both money pools, keeping the row and its lifetime
// counters. Returns the total that was removed.
func (r *Repository) ResetBalance(ctx context.Context, guildID, userID int64) (int64, error) {
	var removed int64
	_, err := r.Mutate(ctx, guildID, userID, func(rec *BalanceRecord, now time.Time) (*Mutation, error) {
		removed = rec.Total()
		return &Mutation{CashDelta: -rec.Cash, BankDelta: -rec.Bank}, nil
	})
	return removed, err
}

// TransferAtomic debits cash from one user and credits it to another as a
// single unit: either both rows change or neither does. The sender's spent
// total and the recipient's earned total advance with the move.
func (r *Repository) TransferAtomic(ctx context.Context, guildID, fromID, toID, amount int64) (from, to *BalanceRecord, err error) {
	if amount <= 0 {
		return nil, nil, common.ErrInvalidAmount
	}
	return r.MutatePair(ctx, guildID, fromID, toID,
		func(from, to *BalanceRecord, now time.Time) (*Mutation, *Mutation, error) {
			if from.Cash < amount {
				return nil, nil, common.ErrInsufficientFunds
			}
			return &Mutation{CashDelta: -amount, SpentDelta: amount},
				&Mutation{CashDelta: amount, EarnedDelta: amount}, nil
		})
}

// AppendTransaction inserts one audit-log entry. Called after the balance
// transaction commits; a failure here must not undo the balance change.
func (r *Repository) AppendTransaction(ctx context.Context, t *Transaction) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO transactions (guild_id, from_user_id, to_user_id, amount, kind, outcome)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		t.GuildID, t.FromUserID, t.ToUserID, t.Amount, string(t.Kind), string(t.Outcome),
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	return nil
}

// Transactions lists log entries for a guild in reverse chronological order,
// narrowed by the filter. Entries where the user is sender or recipient both
// match a UserID filter.
func (r *Repository) Transactions(ctx context.Context, guildID int64, f TxFilter) ([]*Transaction, error) {
	query := `SELECT id, guild_id, from_user_id, to_user_id, amount, kind, outcome, created_at
		FROM transactions WHERE guild_id = $1`
	args := []any{guildID}
	if f.UserID != nil {
		args = append(args, *f.UserID)
		query += fmt.Sprintf(" AND (to_user_id = $%d OR from_user_id = $%d)", len(args), len(args))
	}
	if f.Kind != "" {
		args = append(args, string(f.Kind))
		query += fmt.Sprintf(" AND kind = $%d", len(args))
	}
	if f.Since != nil {
		args = append(args, *f.Since)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	query += " ORDER BY created_at DESC, id DESC"
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []*Transaction
	for rows.Next() {
		t := &Transaction{}
		if err := rows.Scan(&t.ID, &t.GuildID, &t.FromUserID, &t.ToUserID,
			&t.Amount, &t.Kind, &t.Outcome, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Leaderboard returns users of a guild ordered by total balance descending,
// ties broken by user id for a stable order.
func (r *Repository) Leaderboard(ctx context.Context, guildID int64, limit, offset int) ([]*LeaderboardEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT user_id, cash, bank, cash + bank AS total
		 FROM balances WHERE guild_id = $1
		 ORDER BY total DESC, user_id ASC
		 LIMIT $2 OFFSET $3`,
		guildID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()

	var out []*LeaderboardEntry
	rank := offset
	for rows.Next() {
		rank++
		e := &LeaderboardEntry{Rank: rank}
		if err := rows.Scan(&e.UserID, &e.Cash, &e.Bank, &e.Total); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Rank returns the 1-based position of a user on the guild leaderboard.
func (r *Repository) Rank(ctx context.Context, guildID, userID int64) (int, error) {
	if err := r.ensureRows(ctx, r.db, guildID, userID); err != nil {
		return 0, err
	}
	var rank int
	err := r.db.QueryRow(ctx,
		`SELECT pos FROM (
			SELECT user_id, ROW_NUMBER() OVER (ORDER BY cash + bank DESC, user_id ASC) AS pos
			FROM balances WHERE guild_id = $1
		 ) ranked WHERE user_id = $2`,
		guildID, userID).Scan(&rank)
	if err != nil {
		return 0, fmt.Errorf("rank: %w", err)
	}
	return rank, nil
}

// GuildStats aggregates a guild's economy.
func (r *Repository) GuildStats(ctx context.Context, guildID int64) (*GuildStats, error) {
	stats := &GuildStats{}
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(cash + bank), 0) FROM balances WHERE guild_id = $1`,
		guildID).Scan(&stats.Users, &stats.TotalMoney)
	if err != nil {
		return nil, fmt.Errorf("guild stats: %w", err)
	}
	err = r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM transactions WHERE guild_id = $1`,
		guildID).Scan(&stats.Transactions)
	if err != nil {
		return nil, fmt.Errorf("guild stats: %w", err)
	}
	return stats, nil
}

// Guilds lists every guild that has at least one balance row. Used by the
// reconciliation job.
func (r *Repository) Guilds(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT guild_id FROM balances ORDER BY guild_id`)
	if err != nil {
		return nil, fmt.Errorf("list guilds: %w", err)
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan guild id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

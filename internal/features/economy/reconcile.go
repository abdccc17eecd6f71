package economy

import (
	"context"
	"fmt"
)

// SupplyDrift compares the guild's stored money supply (sum of cash + bank)
// against the supply derived from the transaction log. Internal moves and
// user-to-user transfers are supply-neutral; only system-granted income,
// penalties and administrative adjustments change the supply. A nonzero
// difference means the log is missing entries, usually from a degraded audit
// append.
type SupplyDrift struct {
	GuildID int64
	Stored  int64
	Derived int64
}

func (d *SupplyDrift) Diff() int64 {
	return d.Stored - d.Derived
}

func (r *Repository) SupplyDrift(ctx context.Context, guildID int64) (*SupplyDrift, error) {
	d := &SupplyDrift{GuildID: guildID}
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(cash + bank), 0) FROM balances WHERE guild_id = $1`,
		guildID).Scan(&d.Stored)
	if err != nil {
		return nil, fmt.Errorf("supply drift: %w", err)
	}
	err = r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(
			CASE
				WHEN kind IN ('deposit', 'withdraw', 'give') THEN 0
				WHEN from_user_id IS NOT NULL THEN 0
				ELSE amount
			END), 0)
		 FROM transactions WHERE guild_id = $1`,
		guildID).Scan(&d.Derived)
	if err != nil {
		return nil, fmt.Errorf("supply drift: %w", err)
	}
	return d, nil
}

// CounterDrift is one user whose stored crime/rob counters disagree with the
// counts derived from the transaction log.
type CounterDrift struct {
	UserID int64

	CrimesAttempted        int64
	CrimesAttemptedDerived int64
	CrimesSucceeded        int64
	CrimesSucceededDerived int64
	RobsAttempted          int64
	RobsAttemptedDerived   int64
	RobsSucceeded          int64
	RobsSucceededDerived   int64
}

// CounterDrifts lists users whose lifetime counters do not match the log.
// Both rob outcomes log the actor as the recipient, so counting to_user_id
// rows per kind reconstructs the attempt counters exactly.
func (r *Repository) CounterDrifts(ctx context.Context, guildID int64) ([]*CounterDrift, error) {
	rows, err := r.db.Query(ctx,
		`SELECT b.user_id,
			b.crimes_attempted, COALESCE(t.crimes_attempted, 0),
			b.crimes_succeeded, COALESCE(t.crimes_succeeded, 0),
			b.robs_attempted, COALESCE(t.robs_attempted, 0),
			b.robs_succeeded, COALESCE(t.robs_succeeded, 0)
		 FROM balances b
		 LEFT JOIN (
			SELECT to_user_id AS user_id,
				COUNT(*) FILTER (WHERE kind = 'crime') AS crimes_attempted,
				COUNT(*) FILTER (WHERE kind = 'crime' AND outcome = 'success') AS crimes_succeeded,
				COUNT(*) FILTER (WHERE kind = 'rob') AS robs_attempted,
				COUNT(*) FILTER (WHERE kind = 'rob' AND outcome = 'success') AS robs_succeeded
			FROM transactions WHERE guild_id = $1 GROUP BY to_user_id
		 ) t ON t.user_id = b.user_id
		 WHERE b.guild_id = $1 AND (
			b.crimes_attempted <> COALESCE(t.crimes_attempted, 0) OR
			b.crimes_succeeded <> COALESCE(t.crimes_succeeded, 0) OR
			b.robs_attempted <> COALESCE(t.robs_attempted, 0) OR
			b.robs_succeeded <> COALESCE(t.robs_succeeded, 0))`,
		guildID)
	if err != nil {
		return nil, fmt.Errorf("counter drift: %w", err)
	}
	defer rows.Close()

	var out []*CounterDrift
	for rows.Next() {
		d := &CounterDrift{}
		if err := rows.Scan(&d.UserID,
			&d.CrimesAttempted, &d.CrimesAttemptedDerived,
			&d.CrimesSucceeded, &d.CrimesSucceededDerived,
			&d.RobsAttempted, &d.RobsAttemptedDerived,
			&d.RobsSucceeded, &d.RobsSucceededDerived); err != nil {
			return nil, fmt.Errorf("scan counter drift: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

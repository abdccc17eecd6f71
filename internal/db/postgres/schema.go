package postgres

// Migration is one versioned schema change. Versions are applied in slice
// order and recorded in schema_migrations, so a restart skips what already
// ran.
type Migration struct {
	Version string
	SQL     string
}

// Migrations is the full schema of the bot, in apply order.
var Migrations = []Migration{
	{Version: "001_create_balances", SQL: migrationBalances},
	{Version: "002_create_transactions", SQL: migrationTransactions},
	{Version: "003_create_guild_settings", SQL: migrationGuildSettings},
}

// The CHECK constraints are the last line of defense: the repository
// rejects negative pools before writing, but a bug there must not be able
// to persist a negative balance.
const migrationBalances = `
CREATE TABLE IF NOT EXISTS balances (
    guild_id BIGINT NOT NULL,
    user_id BIGINT NOT NULL,
    cash BIGINT NOT NULL DEFAULT 0 CHECK (cash >= 0),
    bank BIGINT NOT NULL DEFAULT 0 CHECK (bank >= 0),
    total_earned BIGINT NOT NULL DEFAULT 0,
    total_spent BIGINT NOT NULL DEFAULT 0,
    crimes_attempted BIGINT NOT NULL DEFAULT 0,
    crimes_succeeded BIGINT NOT NULL DEFAULT 0,
    robs_attempted BIGINT NOT NULL DEFAULT 0,
    robs_succeeded BIGINT NOT NULL DEFAULT 0,
    last_work TIMESTAMPTZ,
    last_slut TIMESTAMPTZ,
    last_crime TIMESTAMPTZ,
    last_rob TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (guild_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_balances_guild_total
    ON balances (guild_id, (cash + bank) DESC);
`

const migrationTransactions = `
CREATE TABLE IF NOT EXISTS transactions (
    id BIGSERIAL PRIMARY KEY,
    guild_id BIGINT NOT NULL,
    from_user_id BIGINT,
    to_user_id BIGINT NOT NULL,
    amount BIGINT NOT NULL,
    kind TEXT NOT NULL,
    outcome TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_transactions_guild_created
    ON transactions (guild_id, created_at DESC);

CREATE INDEX IF NOT EXISTS idx_transactions_guild_to_user
    ON transactions (guild_id, to_user_id);
`

const migrationGuildSettings = `
CREATE TABLE IF NOT EXISTS guild_settings (
    guild_id BIGINT PRIMARY KEY,
    currency_symbol TEXT NOT NULL,
    work_cooldown_seconds BIGINT NOT NULL,
    work_min_earn BIGINT NOT NULL,
    work_max_earn BIGINT NOT NULL,
    slut_cooldown_seconds BIGINT NOT NULL,
    slut_min_earn BIGINT NOT NULL,
    slut_max_earn BIGINT NOT NULL,
    slut_success_rate DOUBLE PRECISION NOT NULL,
    crime_cooldown_seconds BIGINT NOT NULL,
    crime_min_earn BIGINT NOT NULL,
    crime_max_earn BIGINT NOT NULL,
    crime_success_rate DOUBLE PRECISION NOT NULL,
    rob_cooldown_seconds BIGINT NOT NULL,
    rob_min_earn BIGINT NOT NULL,
    rob_max_earn BIGINT NOT NULL,
    rob_success_rate DOUBLE PRECISION NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

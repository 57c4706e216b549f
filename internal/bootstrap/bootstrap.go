// Package bootstrap prepares the PostgreSQL schema and reference data at
// startup. Every statement is idempotent so repeated boots are safe.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
        id         TEXT PRIMARY KEY,
        phone      TEXT NOT NULL UNIQUE,
        full_name  TEXT NOT NULL,
        pin_hash   TEXT NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE TABLE IF NOT EXISTS account_types (
        name            TEXT PRIMARY KEY,
        description     TEXT NOT NULL DEFAULT '',
        minimum_balance NUMERIC(15,2) NOT NULL DEFAULT 0,
        daily_limit     NUMERIC(15,2) NOT NULL DEFAULT 0,
        active          BOOLEAN NOT NULL DEFAULT TRUE
    )`,
	`CREATE TABLE IF NOT EXISTS accounts (
        id              TEXT PRIMARY KEY,
        number          TEXT NOT NULL UNIQUE,
        owner_id        TEXT NOT NULL DEFAULT '',
        type_name       TEXT NOT NULL REFERENCES account_types(name),
        balance         NUMERIC(15,2) NOT NULL DEFAULT 0,
        minimum_balance NUMERIC(15,2) NOT NULL DEFAULT 0,
        status          TEXT NOT NULL,
        is_primary      BOOLEAN NOT NULL DEFAULT FALSE,
        created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE TABLE IF NOT EXISTS transactions (
        id              TEXT PRIMARY KEY,
        reference       TEXT NOT NULL UNIQUE,
        source_number   TEXT NOT NULL DEFAULT '',
        dest_number     TEXT NOT NULL DEFAULT '',
        amount          NUMERIC(15,2) NOT NULL,
        category        TEXT NOT NULL,
        description     TEXT NOT NULL DEFAULT '',
        status          TEXT NOT NULL,
        idempotency_key TEXT NOT NULL DEFAULT '',
        created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE UNIQUE INDEX IF NOT EXISTS transactions_idempotency_key_uq
        ON transactions (idempotency_key) WHERE idempotency_key <> ''`,
	`CREATE INDEX IF NOT EXISTS transactions_source_number_idx ON transactions (source_number)`,
	`CREATE INDEX IF NOT EXISTS transactions_dest_number_idx ON transactions (dest_number)`,
}

var seeds = []string{
	`INSERT INTO account_types (name, description, minimum_balance, daily_limit, active) VALUES
        ('savings',  'Interest-bearing savings account', 100.00, 500000.00, TRUE),
        ('checking', 'Everyday spending account',          0.00, 500000.00, TRUE),
        ('internal', 'Bank-operated suspense account',     0.00,      0.00, FALSE)
        ON CONFLICT (name) DO NOTHING`,
}

// Run applies the schema and seeds reference data.
func Run(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	for _, stmt := range seeds {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("seed reference data: %w", err)
		}
	}
	return nil
}

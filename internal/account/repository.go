package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrUnknownAccountType indicates the requested account type is not configured.
var ErrUnknownAccountType = errors.New("unknown account type")

// TypeRepository reads account-type reference data.
type TypeRepository interface {
	Get(ctx context.Context, name string) (AccountType, error)
	List(ctx context.Context) ([]AccountType, error)
}

// PostgresTypeRepository reads account types from PostgreSQL.
type PostgresTypeRepository struct {
	db *pgxpool.Pool
}

// NewPostgresTypeRepository builds a repository backed by PostgreSQL.
func NewPostgresTypeRepository(db *pgxpool.Pool) *PostgresTypeRepository {
	return &PostgresTypeRepository{db: db}
}

// Get fetches one account type by name.
func (r *PostgresTypeRepository) Get(ctx context.Context, name string) (AccountType, error) {
	row := r.db.QueryRow(ctx, `SELECT name, description, minimum_balance, daily_limit, active
        FROM account_types WHERE name = $1`, name)
	at, err := scanType(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return AccountType{}, ErrUnknownAccountType
	}
	return at, err
}

// List returns all active account types.
func (r *PostgresTypeRepository) List(ctx context.Context) ([]AccountType, error) {
	rows, err := r.db.Query(ctx, `SELECT name, description, minimum_balance, daily_limit, active
        FROM account_types WHERE active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []AccountType
	for rows.Next() {
		at, err := scanType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, at)
	}
	return types, rows.Err()
}

func scanType(row pgx.Row) (AccountType, error) {
	var (
		at      AccountType
		minimum string
		limit   string
	)
	if err := row.Scan(&at.Name, &at.Description, &minimum, &limit, &at.Active); err != nil {
		return AccountType{}, err
	}
	var err error
	if at.MinimumBalance, err = decimal.NewFromString(minimum); err != nil {
		return AccountType{}, fmt.Errorf("parse minimum balance %q: %w", minimum, err)
	}
	if at.DailyLimit, err = decimal.NewFromString(limit); err != nil {
		return AccountType{}, fmt.Errorf("parse daily limit %q: %w", limit, err)
	}
	return at, nil
}

package translog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Querier is the subset of pgx satisfied by both *pgxpool.Pool and pgx.Tx,
// allowing an append to participate in the ledger's database transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// AppendTx inserts a transaction row using the provided querier. The ledger
// store calls this inside its transfer transaction; PostgresLog.Append calls
// it against the pool for standalone offsetting entries.
func AppendTx(ctx context.Context, q Querier, tx Transaction) error {
	id := tx.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := q.Exec(ctx, `INSERT INTO transactions
        (id, reference, source_number, dest_number, amount, category, description, status, idempotency_key, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, tx.Reference, tx.SourceNumber, tx.DestNumber, tx.Amount.StringFixed(2),
		tx.Category, tx.Description, string(tx.Status), tx.IdempotencyKey, tx.CreatedAt.UTC())
	return err
}

// PostgresLog reads and appends transaction rows in PostgreSQL.
type PostgresLog struct {
	db *pgxpool.Pool
}

// NewPostgresLog builds a Postgres-backed transaction log.
func NewPostgresLog(db *pgxpool.Pool) *PostgresLog {
	return &PostgresLog{db: db}
}

// Append records a transaction outside of any ledger transfer transaction.
func (l *PostgresLog) Append(ctx context.Context, tx Transaction) error {
	return AppendTx(ctx, l.db, tx)
}

const selectColumns = `id, reference, source_number, dest_number, amount, category, description, status, idempotency_key, created_at`

// History returns the account's transactions most-recent-first.
func (l *PostgresLog) History(ctx context.Context, accountNumber string, q Query) ([]Transaction, error) {
	q = q.Normalize()

	var (
		conds = []string{"(source_number = $1 OR dest_number = $1)"}
		args  = []any{accountNumber}
	)
	if q.Category != "" {
		args = append(args, q.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if q.Status != "" {
		args = append(args, string(q.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if !q.From.IsZero() {
		args = append(args, q.From.UTC())
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !q.To.IsZero() {
		args = append(args, q.To.UTC())
		conds = append(conds, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	args = append(args, q.PageSize, (q.Page-1)*q.PageSize)

	query := fmt.Sprintf(`SELECT %s FROM transactions WHERE %s
        ORDER BY created_at DESC, reference DESC LIMIT $%d OFFSET $%d`,
		selectColumns, strings.Join(conds, " AND "), len(args)-1, len(args))

	rows, err := l.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, tx)
	}
	return result, rows.Err()
}

// FindByReference looks up a transaction by its reference number.
func (l *PostgresLog) FindByReference(ctx context.Context, reference string) (Transaction, error) {
	row := l.db.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM transactions WHERE reference = $1`, selectColumns), reference)
	tx, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrNotFound
	}
	return tx, err
}

// FindByIdempotencyKey looks up a transaction by the client-supplied key.
func (l *PostgresLog) FindByIdempotencyKey(ctx context.Context, key string) (Transaction, error) {
	if key == "" {
		return Transaction{}, ErrNotFound
	}
	row := l.db.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM transactions WHERE idempotency_key = $1`, selectColumns), key)
	tx, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrNotFound
	}
	return tx, err
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var (
		tx        Transaction
		id        uuid.UUID
		amount    string
		status    string
		createdAt time.Time
	)
	if err := row.Scan(&id, &tx.Reference, &tx.SourceNumber, &tx.DestNumber, &amount,
		&tx.Category, &tx.Description, &status, &tx.IdempotencyKey, &createdAt); err != nil {
		return Transaction{}, err
	}
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return Transaction{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	tx.ID = id.String()
	tx.Amount = parsed
	tx.Status = Status(status)
	tx.CreatedAt = createdAt.UTC()
	return tx, nil
}

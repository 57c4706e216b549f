package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/securecipher/bankcore/internal/translog"
)

const uniqueViolation = "23505"

// PostgresStore persists accounts in PostgreSQL. Transfers run in a single
// database transaction with row-level locks taken in ascending account-number
// order, so the paired debit/credit and the log append commit or roll back
// together.
type PostgresStore struct {
	db          *pgxpool.Pool
	lockTimeout time.Duration
}

// NewPostgresStore constructs a Postgres-backed account store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db, lockTimeout: DefaultLockTimeout}
}

// WithLockTimeout overrides the per-transfer lock acquisition budget.
func (s *PostgresStore) WithLockTimeout(d time.Duration) *PostgresStore {
	if d > 0 {
		s.lockTimeout = d
	}
	return s
}

// CreateAccount inserts an account row.
func (s *PostgresStore) CreateAccount(ctx context.Context, acct Account) error {
	id := acct.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := acct.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.Exec(ctx, `INSERT INTO accounts
        (id, number, owner_id, type_name, balance, minimum_balance, status, is_primary, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, acct.Number, acct.OwnerID, acct.TypeName,
		acct.Balance.StringFixed(2), acct.MinimumBalance.StringFixed(2),
		string(acct.Status), acct.Primary, createdAt.UTC())
	if isUniqueViolation(err) {
		return ErrAccountExists
	}
	return err
}

const accountColumns = `id, number, owner_id, type_name, balance, minimum_balance, status, is_primary, created_at`

// Get fetches an account by number.
func (s *PostgresStore) Get(ctx context.Context, number string) (Account, error) {
	row := s.db.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM accounts WHERE number = $1`, accountColumns), number)
	return scanAccount(row)
}

// Balance returns the current balance for the account.
func (s *PostgresStore) Balance(ctx context.Context, number string) (decimal.Decimal, error) {
	var balance string
	err := s.db.QueryRow(ctx, `SELECT balance FROM accounts WHERE number = $1`, number).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Decimal{}, ErrAccountNotFound
	}
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(balance)
}

// UpdateStatus sets the account lifecycle status.
func (s *PostgresStore) UpdateStatus(ctx context.Context, number string, status Status) error {
	cmd, err := s.db.Exec(ctx, `UPDATE accounts SET status = $1 WHERE number = $2`, string(status), number)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// Transfer applies a paired debit/credit and appends the completed transaction
// record inside one database transaction.
func (s *PostgresStore) Transfer(ctx context.Context, fromNumber, toNumber string, rec translog.Transaction) (TransferResult, error) {
	if err := validateLegs(fromNumber, toNumber, rec.Amount); err != nil {
		return TransferResult{}, err
	}

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	res, err := s.transferTx(lockCtx, fromNumber, toNumber, rec)
	if err != nil && lockCtx.Err() != nil && ctx.Err() == nil {
		return TransferResult{}, ErrTransferTimeout
	}
	return res, err
}

func (s *PostgresStore) transferTx(ctx context.Context, fromNumber, toNumber string, rec translog.Transaction) (TransferResult, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return TransferResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if rec.IdempotencyKey != "" {
		var existing uuid.UUID
		err := tx.QueryRow(ctx, `SELECT id FROM transactions WHERE idempotency_key = $1`, rec.IdempotencyKey).Scan(&existing)
		if err == nil {
			return TransferResult{}, ErrDuplicateTransaction
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return TransferResult{}, err
		}
	}

	// Canonical lock ordering: lower account number first.
	first, second := fromNumber, toNumber
	if toNumber < fromNumber {
		first, second = toNumber, fromNumber
	}

	locked := make(map[string]Account, 2)
	for _, number := range []string{first, second} {
		row := tx.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM accounts WHERE number = $1 FOR UPDATE`, accountColumns), number)
		acct, err := scanAccount(row)
		if err != nil {
			return TransferResult{}, err
		}
		locked[number] = acct
	}

	from, to := locked[fromNumber], locked[toNumber]

	if !debitFloor(from, rec.Amount) {
		return TransferResult{}, ErrInsufficientFunds
	}

	fromBalance := from.Balance.Sub(rec.Amount)
	toBalance := to.Balance.Add(rec.Amount)

	if _, err := tx.Exec(ctx, `UPDATE accounts SET balance = $1 WHERE number = $2`, fromBalance.StringFixed(2), fromNumber); err != nil {
		return TransferResult{}, err
	}
	if _, err := tx.Exec(ctx, `UPDATE accounts SET balance = $1 WHERE number = $2`, toBalance.StringFixed(2), toNumber); err != nil {
		return TransferResult{}, err
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.Status = translog.StatusCompleted

	if err := translog.AppendTx(ctx, tx, rec); err != nil {
		if isUniqueViolation(err) {
			return TransferResult{}, ErrDuplicateTransaction
		}
		return TransferResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return TransferResult{}, err
	}

	return TransferResult{Reference: rec.Reference, FromBalance: fromBalance, ToBalance: toBalance}, nil
}

func scanAccount(row pgx.Row) (Account, error) {
	var (
		acct      Account
		id        uuid.UUID
		balance   string
		minimum   string
		status    string
		createdAt time.Time
	)
	err := row.Scan(&id, &acct.Number, &acct.OwnerID, &acct.TypeName, &balance, &minimum, &status, &acct.Primary, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrAccountNotFound
	}
	if err != nil {
		return Account{}, err
	}
	if acct.Balance, err = decimal.NewFromString(balance); err != nil {
		return Account{}, fmt.Errorf("parse balance %q: %w", balance, err)
	}
	if acct.MinimumBalance, err = decimal.NewFromString(minimum); err != nil {
		return Account{}, fmt.Errorf("parse minimum balance %q: %w", minimum, err)
	}
	acct.ID = id.String()
	acct.Status = Status(status)
	acct.CreatedAt = createdAt.UTC()
	return acct, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

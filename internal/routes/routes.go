package routes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/securecipher/bankcore/internal/account"
	"github.com/securecipher/bankcore/internal/audit"
	"github.com/securecipher/bankcore/internal/config"
	"github.com/securecipher/bankcore/internal/identity"
	"github.com/securecipher/bankcore/internal/ledger"
	"github.com/securecipher/bankcore/internal/middleware"
	"github.com/securecipher/bankcore/internal/reference"
	"github.com/securecipher/bankcore/internal/transfer"
	"github.com/securecipher/bankcore/internal/translog"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.AccessLog(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	var (
		log       translog.Log
		store     ledger.Store
		typeRepo  account.TypeRepository
		userRepo  identity.Repository
	)
	if d.DB != nil {
		log = translog.NewPostgresLog(d.DB)
		store = ledger.NewPostgresStore(d.DB).WithLockTimeout(d.Cfg.LockTimeout)
		typeRepo = account.NewPostgresTypeRepository(d.DB)
		userRepo = identity.NewPostgresRepository(d.DB)
	} else {
		memLog := translog.NewMemoryLog()
		log = memLog
		store = ledger.NewInMemory(memLog)
		typeRepo = devAccountTypes()
		userRepo = identity.NewMemoryRepository()
	}

	refs := reference.NewGenerator(log)
	trail := audit.NewLoggerTrail(d.Logger)

	userSvc := identity.NewService(userRepo)
	accountSvc := account.NewService(store, typeRepo)
	transferSvc, err := transfer.NewService(context.Background(), store, log, refs, trail)
	if err != nil {
		return fmt.Errorf("build transfer service: %w", err)
	}

	RegisterUserRoutes(app, identity.NewHandler(userSvc))
	RegisterAccountRoutes(app, account.NewHandler(accountSvc))
	RegisterTransferRoutes(app, transfer.NewHandler(transferSvc, userSvc))

	return nil
}

// devAccountTypes seeds the in-memory repository with the same reference data
// bootstrap installs in PostgreSQL.
func devAccountTypes() *account.MemoryTypeRepository {
	repo := account.NewMemoryTypeRepository()
	repo.Put(account.AccountType{
		Name:           "savings",
		Description:    "Interest-bearing savings account",
		MinimumBalance: decimal.NewFromInt(100),
		DailyLimit:     decimal.NewFromInt(500000),
		Active:         true,
	})
	repo.Put(account.AccountType{
		Name:           "checking",
		Description:    "Everyday spending account",
		DailyLimit:     decimal.NewFromInt(500000),
		Active:         true,
	})
	repo.Put(account.AccountType{
		Name:        "internal",
		Description: "Bank-operated suspense account",
	})
	return repo
}

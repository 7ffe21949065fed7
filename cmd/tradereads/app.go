package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tradereads/tradereads-api/internal/config"
	"github.com/tradereads/tradereads-api/internal/events"
	"github.com/tradereads/tradereads-api/internal/platform/memory"
	"github.com/tradereads/tradereads-api/internal/platform/postgres"
	"github.com/tradereads/tradereads-api/internal/service/auth"
	"github.com/tradereads/tradereads-api/internal/service/ledger"
	"github.com/tradereads/tradereads-api/internal/service/session"
	"github.com/tradereads/tradereads-api/internal/service/trading"
	"github.com/tradereads/tradereads-api/internal/store"
)

// stores is one storage backend.
type stores struct {
	users      store.UserStore
	books      store.BookStore
	trades     store.TradeRequestStore
	sessions   store.SessionStore
	transactor store.Transactor
	ping       func(ctx context.Context) error
	close      func() error
}

// application holds the wired services.
type application struct {
	config *config.Config
	logger *slog.Logger
	stores *stores

	emitter  *events.InMemoryEventEmitter
	users    auth.UserService
	jwt      auth.JWTService
	sessions session.Registry
	books    ledger.BookService
	trades   trading.Engine
}

func openStores(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*stores, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		db := memory.NewDB()
		return &stores{
			users:      memory.NewUserStore(db),
			books:      memory.NewBookStore(db),
			trades:     memory.NewTradeRequestStore(db),
			sessions:   memory.NewSessionStore(db),
			transactor: memory.NewTransactor(db),
			close:      func() error { return nil },
		}, nil
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return postgresStores(db, logger), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func postgresStores(db *sql.DB, logger *slog.Logger) *stores {
	return &stores{
		users:      postgres.NewPostgresUserStore(db, logger),
		books:      postgres.NewPostgresBookStore(db, logger),
		trades:     postgres.NewPostgresTradeRequestStore(db, logger),
		sessions:   postgres.NewPostgresSessionStore(db, logger),
		transactor: postgres.NewTransactor(db, logger),
		ping:       db.PingContext,
		close:      db.Close,
	}
}

func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	st, err := openStores(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	app, err := wireServices(cfg, logger, st)
	if err != nil {
		_ = st.close()
		return nil, err
	}
	return app, nil
}

func wireServices(cfg *config.Config, logger *slog.Logger, st *stores) (*application, error) {
	app := &application{
		config:  cfg,
		logger:  logger,
		stores:  st,
		emitter: events.NewInMemoryEventEmitter(logger),
	}
	app.emitter.RegisterHandler(events.NewAuditLogHandler(logger))

	var err error
	if app.users, err = auth.NewUserService(st.users, auth.NewBcryptHasher(cfg.Auth.BcryptCost), logger); err != nil {
		return nil, fmt.Errorf("failed to create user service: %w", err)
	}
	if app.jwt, err = auth.NewJWTService(cfg.Auth); err != nil {
		return nil, fmt.Errorf("failed to create jwt service: %w", err)
	}

	registryOpts := []session.Option{session.WithTTL(cfg.Auth.RefreshTokenLifetime())}
	if cfg.Auth.MaxSessionsPerUser > 0 {
		registryOpts = append(registryOpts, session.WithMaxSessions(cfg.Auth.MaxSessionsPerUser))
	}
	if app.sessions, err = session.NewRegistry(st.sessions, logger, registryOpts...); err != nil {
		return nil, fmt.Errorf("failed to create session registry: %w", err)
	}
	if app.books, err = ledger.NewBookService(st.transactor, st.books, logger); err != nil {
		return nil, fmt.Errorf("failed to create book service: %w", err)
	}
	app.trades, err = trading.NewEngine(st.transactor, st.books, st.trades, logger,
		trading.WithEmitter(app.emitter))
	if err != nil {
		return nil, fmt.Errorf("failed to create trade engine: %w", err)
	}
	return app, nil
}

func (app *application) cleanup() {
	if err := app.stores.close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		app.logger.Error("failed to close database", "error", err)
	}
}

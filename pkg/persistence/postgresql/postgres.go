// Package postgresql provides the PostgreSQL persistence implementation.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukex/automation/pkg/persistence"
	"github.com/dukex/automation/pkg/persistence/sqlbase"
	_ "github.com/lib/pq"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger

	rules         *RuleRepository
	templates     *TemplateRepository
	messages      *MessageRepository
	continuations *ContinuationRepository
	tenants       *TenantRepository
	entities      *EntityRepository
}

// NewPersistence connects, migrates and returns the PostgreSQL persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:            database,
		logger:        logger,
		rules:         NewRuleRepository(database, logger),
		templates:     NewTemplateRepository(database),
		messages:      NewMessageRepository(database, logger),
		continuations: NewContinuationRepository(database),
		tenants:       NewTenantRepository(database, logger),
		entities:      NewEntityRepository(database),
	}, nil
}

func (p *Persistence) Rules() persistence.RuleRepository                 { return p.rules }
func (p *Persistence) Templates() persistence.TemplateRepository         { return p.templates }
func (p *Persistence) Messages() persistence.MessageRepository           { return p.messages }
func (p *Persistence) Continuations() persistence.ContinuationRepository { return p.continuations }
func (p *Persistence) Tenants() persistence.TenantRepository             { return p.tenants }
func (p *Persistence) Entities() persistence.EntityRepository            { return p.entities }

// DB exposes the connection for fixtures and administration tooling.
func (p *Persistence) DB() *sql.DB { return p.db }

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func closeRows(ctx context.Context, logger *slog.Logger, rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

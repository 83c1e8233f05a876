// This file implements a PostgreSQL-backed store.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/BTreeMap/CareSignal/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}
	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) SaveProfile(ctx context.Context, sessionID string, p models.EmergencyProfile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO emergency_profiles
			(session_id, subject_name, subject_phone, guardian_name, guardian_phone, guardian_email, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id) DO UPDATE SET
			subject_name = EXCLUDED.subject_name,
			subject_phone = EXCLUDED.subject_phone,
			guardian_name = EXCLUDED.guardian_name,
			guardian_phone = EXCLUDED.guardian_phone,
			guardian_email = EXCLUDED.guardian_email,
			updated_at = EXCLUDED.updated_at`,
		sessionID, p.SubjectName, nilIfEmpty(p.SubjectPhone), p.GuardianName, p.GuardianPhone,
		nilIfEmpty(p.GuardianEmail), time.Now().UTC())
	if err != nil {
		slog.Error("PostgresStore SaveProfile failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to save profile for %s: %w", sessionID, err)
	}
	slog.Debug("PostgresStore SaveProfile succeeded", "sessionID", sessionID)
	return nil
}

func (s *PostgresStore) GetProfile(ctx context.Context, sessionID string) (*models.EmergencyProfile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT subject_name, subject_phone, guardian_name, guardian_phone, guardian_email
		FROM emergency_profiles WHERE session_id = $1`, sessionID)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetProfile not found", "sessionID", sessionID)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetProfile failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to get profile for %s: %w", sessionID, err)
	}
	return &p, nil
}

func (s *PostgresStore) AppendMessage(ctx context.Context, sessionID string, m models.ChatMessage) error {
	if err := checkRole(m); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, session_id, role, content, created_at) VALUES ($1, $2, $3, $4, $5)`,
		m.ID, sessionID, m.Role, m.Content, m.Timestamp.UTC())
	if err != nil {
		slog.Error("PostgresStore AppendMessage failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to append message for %s: %w", sessionID, err)
	}
	return nil
}

func (s *PostgresStore) ListMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, content, created_at FROM chat_messages WHERE session_id = $1 ORDER BY seq`, sessionID)
	if err != nil {
		slog.Error("PostgresStore ListMessages query failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()
	msgs, err := scanMessages(rows)
	if err != nil {
		slog.Error("PostgresStore ListMessages scan failed", "error", err, "sessionID", sessionID)
		return nil, err
	}
	slog.Debug("PostgresStore ListMessages succeeded", "sessionID", sessionID, "count", len(msgs))
	return msgs, nil
}

func (s *PostgresStore) ClearMessages(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE session_id = $1`, sessionID); err != nil {
		slog.Error("PostgresStore ClearMessages failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to clear messages for %s: %w", sessionID, err)
	}
	return nil
}

func (s *PostgresStore) AddReceipt(ctx context.Context, r models.Receipt) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_receipts (alert_id, channel, recipient, status, provider_id, error, time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.AlertID, r.Channel, nilIfEmpty(r.To), r.Status, nilIfEmpty(r.ProviderID), nilIfEmpty(r.Error), r.Time)
	if err != nil {
		slog.Error("PostgresStore AddReceipt failed", "error", err, "alertID", r.AlertID, "channel", r.Channel)
		return fmt.Errorf("failed to insert receipt for %s: %w", r.AlertID, err)
	}
	slog.Debug("PostgresStore AddReceipt succeeded", "alertID", r.AlertID, "channel", r.Channel, "status", r.Status)
	return nil
}

func (s *PostgresStore) GetReceipts(ctx context.Context, alertID string) ([]models.Receipt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT alert_id, channel, recipient, status, provider_id, error, time
		FROM alert_receipts WHERE alert_id = $1 ORDER BY id`, alertID)
	if err != nil {
		slog.Error("PostgresStore GetReceipts query failed", "error", err)
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer rows.Close()
	receipts, err := scanReceipts(rows)
	if err != nil {
		slog.Error("PostgresStore GetReceipts scan failed", "error", err)
		return nil, err
	}
	return receipts, nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

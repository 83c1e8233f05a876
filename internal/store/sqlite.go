// This file implements an SQLite-backed store.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/BTreeMap/CareSignal/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	slog.Debug("SQLite database directory verified/created", "dir", dir)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	// Alert receipts are written from several goroutines; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveProfile(ctx context.Context, sessionID string, p models.EmergencyProfile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO emergency_profiles
			(session_id, subject_name, subject_phone, guardian_name, guardian_phone, guardian_email, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID, p.SubjectName, nilIfEmpty(p.SubjectPhone), p.GuardianName, p.GuardianPhone,
		nilIfEmpty(p.GuardianEmail), time.Now().UTC())
	if err != nil {
		slog.Error("SQLiteStore SaveProfile failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to save profile for %s: %w", sessionID, err)
	}
	slog.Debug("SQLiteStore SaveProfile succeeded", "sessionID", sessionID)
	return nil
}

func (s *SQLiteStore) GetProfile(ctx context.Context, sessionID string) (*models.EmergencyProfile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT subject_name, subject_phone, guardian_name, guardian_phone, guardian_email
		FROM emergency_profiles WHERE session_id = ?`, sessionID)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetProfile not found", "sessionID", sessionID)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetProfile failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to get profile for %s: %w", sessionID, err)
	}
	return &p, nil
}

func (s *SQLiteStore) AppendMessage(ctx context.Context, sessionID string, m models.ChatMessage) error {
	if err := checkRole(m); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, session_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, sessionID, m.Role, m.Content, m.Timestamp.UTC())
	if err != nil {
		slog.Error("SQLiteStore AppendMessage failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to append message for %s: %w", sessionID, err)
	}
	return nil
}

func (s *SQLiteStore) ListMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, content, created_at FROM chat_messages WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		slog.Error("SQLiteStore ListMessages query failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()
	msgs, err := scanMessages(rows)
	if err != nil {
		slog.Error("SQLiteStore ListMessages scan failed", "error", err, "sessionID", sessionID)
		return nil, err
	}
	slog.Debug("SQLiteStore ListMessages succeeded", "sessionID", sessionID, "count", len(msgs))
	return msgs, nil
}

func (s *SQLiteStore) ClearMessages(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE session_id = ?`, sessionID); err != nil {
		slog.Error("SQLiteStore ClearMessages failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to clear messages for %s: %w", sessionID, err)
	}
	slog.Debug("SQLiteStore ClearMessages succeeded", "sessionID", sessionID)
	return nil
}

func (s *SQLiteStore) AddReceipt(ctx context.Context, r models.Receipt) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_receipts (alert_id, channel, recipient, status, provider_id, error, time)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.AlertID, r.Channel, nilIfEmpty(r.To), r.Status, nilIfEmpty(r.ProviderID), nilIfEmpty(r.Error), r.Time)
	if err != nil {
		slog.Error("SQLiteStore AddReceipt failed", "error", err, "alertID", r.AlertID, "channel", r.Channel)
		return fmt.Errorf("failed to insert receipt for %s: %w", r.AlertID, err)
	}
	slog.Debug("SQLiteStore AddReceipt succeeded", "alertID", r.AlertID, "channel", r.Channel, "status", r.Status)
	return nil
}

func (s *SQLiteStore) GetReceipts(ctx context.Context, alertID string) ([]models.Receipt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT alert_id, channel, recipient, status, provider_id, error, time
		FROM alert_receipts WHERE alert_id = ? ORDER BY id`, alertID)
	if err != nil {
		slog.Error("SQLiteStore GetReceipts query failed", "error", err)
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer rows.Close()
	receipts, err := scanReceipts(rows)
	if err != nil {
		slog.Error("SQLiteStore GetReceipts scan failed", "error", err)
		return nil, err
	}
	slog.Debug("SQLiteStore GetReceipts succeeded", "alertID", alertID, "count", len(receipts))
	return receipts, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}

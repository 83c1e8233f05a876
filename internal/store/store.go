// Package store provides storage backends for CareSignal.
//
// It persists emergency profiles, chat history and alert receipts in memory, SQLite or PostgreSQL.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BTreeMap/CareSignal/internal/models"
)

// Store is the record store shared by the chat, alert and api packages.
// Lookups of absent records return nil without an error.
type Store interface {
	SaveProfile(ctx context.Context, sessionID string, p models.EmergencyProfile) error
	GetProfile(ctx context.Context, sessionID string) (*models.EmergencyProfile, error)

	AppendMessage(ctx context.Context, sessionID string, m models.ChatMessage) error
	ListMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error)
	ClearMessages(ctx context.Context, sessionID string) error

	AddReceipt(ctx context.Context, r models.Receipt) error
	GetReceipts(ctx context.Context, alertID string) ([]models.Receipt, error)

	Close() error
}

// DSN types understood by DetectDSNType.
const (
	DSNTypePostgres = "postgres"
	DSNTypeSQLite   = "sqlite"
)

// Opts holds configuration options for store implementations.
type Opts struct {
	DSN  string
	Type string
}

// Option defines a configuration option for stores.
type Option func(*Opts)

// WithPostgresDSN selects the PostgreSQL store.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
		o.Type = DSNTypePostgres
	}
}

// WithSQLiteDSN selects the SQLite store. The DSN is a file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
		o.Type = DSNTypeSQLite
	}
}

// DetectDSNType classifies a DSN as postgres or sqlite.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return DSNTypePostgres
	}
	return DSNTypeSQLite
}

// Open returns the store selected by opts, or an in-memory store when no DSN is set.
func Open(opts ...Option) (Store, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	switch {
	case cfg.DSN == "":
		slog.Info("store.Open: no DSN configured, using in-memory store")
		return NewInMemoryStore(), nil
	case cfg.Type == DSNTypePostgres:
		return NewPostgresStore(opts...)
	case cfg.Type == DSNTypeSQLite:
		return NewSQLiteStore(opts...)
	}
	return nil, fmt.Errorf("unknown store type %q", cfg.Type)
}

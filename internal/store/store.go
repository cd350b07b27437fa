// Package store persists audit sessions and their comparison history.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/audit-cli/internal/config"
	"github.com/sells-group/audit-cli/internal/model"
)

// ComparisonFilter specifies criteria for listing comparison history.
type ComparisonFilter struct {
	SessionID string `json:"session_id,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// Store defines the persistence interface for audit sessions.
type Store interface {
	// Sessions. GetSession returns nil, nil for an unknown id.
	GetSession(ctx context.Context, id string) (*model.SessionRecord, error)
	SaveSession(ctx context.Context, id string, state model.Session) error
	ListSessions(ctx context.Context, limit int) ([]model.SessionRecord, error)
	DeleteSession(ctx context.Context, id string) error

	// Comparison history. AddComparison assigns ID and CreatedAt when unset.
	AddComparison(ctx context.Context, rec *model.ComparisonRecord) error
	LatestComparison(ctx context.Context, sessionID string) (*model.ComparisonRecord, error)
	ListComparisons(ctx context.Context, filter ComparisonFilter) ([]model.ComparisonRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

// Open creates the store selected by cfg.Driver and runs its migration.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		st  Store
		err error
	)
	switch cfg.Driver {
	case "sqlite", "":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = "audit.db"
		}
		st, err = NewSQLite(dsn)
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, eris.New("store: postgres driver requires database_url")
		}
		st, err = NewPostgres(ctx, cfg.DatabaseURL)
	case "memory":
		st = NewMemory(time.Duration(cfg.SessionTTLHours) * time.Hour)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

func listLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}

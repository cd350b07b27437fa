package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/audit-cli/internal/model"
)

// pool is the subset of pgxpool.Pool used by PostgresStore; pgxmock
// satisfies it in tests.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: p}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS sessions (
	id            TEXT PRIMARY KEY,
	case_study    TEXT NOT NULL DEFAULT '',
	ai_analysis   TEXT NOT NULL DEFAULT '',
	user_analysis TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS comparisons (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	session_id      TEXT NOT NULL,
	source_analysis TEXT NOT NULL DEFAULT '',
	ai_analysis     TEXT NOT NULL,
	user_analysis   TEXT NOT NULL,
	result          JSONB NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

ALTER TABLE comparisons ADD COLUMN IF NOT EXISTS source_analysis TEXT NOT NULL DEFAULT '';

CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at);
CREATE INDEX IF NOT EXISTS idx_comparisons_session ON comparisons(session_id, created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) GetSession(ctx context.Context, id string) (*model.SessionRecord, error) {
	var rec model.SessionRecord
	err := s.pool.QueryRow(ctx,
		`SELECT id, case_study, ai_analysis, user_analysis, created_at, updated_at FROM sessions WHERE id = $1`,
		id,
	).Scan(&rec.ID, &rec.State.CaseStudy, &rec.State.AIAnalysis, &rec.State.UserAnalysis, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get session %s", id)
	}
	return &rec, nil
}

func (s *PostgresStore) SaveSession(ctx context.Context, id string, state model.Session) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (id, case_study, ai_analysis, user_analysis, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			case_study = EXCLUDED.case_study,
			ai_analysis = EXCLUDED.ai_analysis,
			user_analysis = EXCLUDED.user_analysis,
			updated_at = EXCLUDED.updated_at`,
		id, state.CaseStudy, state.AIAnalysis, state.UserAnalysis, now, now,
	)
	return eris.Wrapf(err, "postgres: save session %s", id)
}

func (s *PostgresStore) ListSessions(ctx context.Context, limit int) ([]model.SessionRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, case_study, ai_analysis, user_analysis, created_at, updated_at
		FROM sessions ORDER BY updated_at DESC LIMIT $1`,
		listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sessions")
	}
	defer rows.Close()

	var out []model.SessionRecord
	for rows.Next() {
		var rec model.SessionRecord
		if err := rows.Scan(&rec.ID, &rec.State.CaseStudy, &rec.State.AIAnalysis, &rec.State.UserAnalysis, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan session")
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list sessions iterate")
}

func (s *PostgresStore) DeleteSession(ctx context.Context, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin delete")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM comparisons WHERE session_id = $1`, id); err != nil {
		return eris.Wrapf(err, "postgres: delete comparisons %s", id)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return eris.Wrapf(err, "postgres: delete session %s", id)
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit delete")
}

func (s *PostgresStore) AddComparison(ctx context.Context, rec *model.ComparisonRecord) error {
	fillComparison(rec)
	resultJSON, err := json.Marshal(rec.Result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal comparison result")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO comparisons (id, session_id, source_analysis, ai_analysis, user_analysis, result, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.SessionID, rec.SourceAnalysis, rec.AIAnalysis, rec.UserAnalysis, resultJSON, rec.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert comparison for session %s", rec.SessionID)
}

func (s *PostgresStore) LatestComparison(ctx context.Context, sessionID string) (*model.ComparisonRecord, error) {
	recs, err := s.ListComparisons(ctx, ComparisonFilter{SessionID: sessionID, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

func (s *PostgresStore) ListComparisons(ctx context.Context, filter ComparisonFilter) ([]model.ComparisonRecord, error) {
	query := `SELECT id, session_id, source_analysis, ai_analysis, user_analysis, result, created_at FROM comparisons`
	var args []any
	if filter.SessionID != "" {
		query += ` WHERE session_id = $1 ORDER BY created_at DESC LIMIT $2`
		args = append(args, filter.SessionID, listLimit(filter.Limit))
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1`
		args = append(args, listLimit(filter.Limit))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list comparisons")
	}
	defer rows.Close()

	var out []model.ComparisonRecord
	for rows.Next() {
		var (
			rec        model.ComparisonRecord
			resultJSON []byte
		)
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.SourceAnalysis, &rec.AIAnalysis, &rec.UserAnalysis, &resultJSON, &rec.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan comparison")
		}
		if err := json.Unmarshal(resultJSON, &rec.Result); err != nil {
			return nil, eris.Wrapf(err, "postgres: unmarshal comparison %s", rec.ID)
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list comparisons iterate")
}

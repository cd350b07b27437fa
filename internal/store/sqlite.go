package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/audit-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS sessions (
	id            TEXT PRIMARY KEY,
	case_study    TEXT NOT NULL DEFAULT '',
	ai_analysis   TEXT NOT NULL DEFAULT '',
	user_analysis TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS comparisons (
	id              TEXT PRIMARY KEY,
	session_id      TEXT NOT NULL,
	source_analysis TEXT NOT NULL DEFAULT '',
	ai_analysis     TEXT NOT NULL,
	user_analysis   TEXT NOT NULL,
	result          TEXT NOT NULL,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at);
CREATE INDEX IF NOT EXISTS idx_comparisons_session ON comparisons(session_id, created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	return s.addColumn(ctx, "comparisons", "source_analysis", "TEXT NOT NULL DEFAULT ''")
}

// addColumn adds a column to a table created by an earlier schema.
func (s *SQLiteStore) addColumn(ctx context.Context, table, column, def string) error {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column,
	).Scan(&n)
	if err != nil {
		return eris.Wrapf(err, "sqlite: inspect %s", table)
	}
	if n > 0 {
		return nil
	}
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, table, column, def))
	return eris.Wrapf(err, "sqlite: add column %s.%s", table, column)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*model.SessionRecord, error) {
	var rec model.SessionRecord
	err := s.db.QueryRowContext(ctx,
		`SELECT id, case_study, ai_analysis, user_analysis, created_at, updated_at FROM sessions WHERE id = ?`,
		id,
	).Scan(&rec.ID, &rec.State.CaseStudy, &rec.State.AIAnalysis, &rec.State.UserAnalysis, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get session %s", id)
	}
	return &rec, nil
}

func (s *SQLiteStore) SaveSession(ctx context.Context, id string, state model.Session) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, case_study, ai_analysis, user_analysis, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			case_study = excluded.case_study,
			ai_analysis = excluded.ai_analysis,
			user_analysis = excluded.user_analysis,
			updated_at = excluded.updated_at`,
		id, state.CaseStudy, state.AIAnalysis, state.UserAnalysis, now, now,
	)
	return eris.Wrapf(err, "sqlite: save session %s", id)
}

func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]model.SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, case_study, ai_analysis, user_analysis, created_at, updated_at
		FROM sessions ORDER BY updated_at DESC, rowid DESC LIMIT ?`,
		listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sessions")
	}
	defer rows.Close()

	var out []model.SessionRecord
	for rows.Next() {
		var rec model.SessionRecord
		if err := rows.Scan(&rec.ID, &rec.State.CaseStudy, &rec.State.AIAnalysis, &rec.State.UserAnalysis, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan session")
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list sessions iterate")
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin delete")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM comparisons WHERE session_id = ?`, id); err != nil {
		return eris.Wrapf(err, "sqlite: delete comparisons %s", id)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return eris.Wrapf(err, "sqlite: delete session %s", id)
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit delete")
}

func (s *SQLiteStore) AddComparison(ctx context.Context, rec *model.ComparisonRecord) error {
	fillComparison(rec)
	resultJSON, err := json.Marshal(rec.Result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal comparison result")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO comparisons (id, session_id, source_analysis, ai_analysis, user_analysis, result, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, rec.SourceAnalysis, rec.AIAnalysis, rec.UserAnalysis, string(resultJSON), rec.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert comparison for session %s", rec.SessionID)
}

func (s *SQLiteStore) LatestComparison(ctx context.Context, sessionID string) (*model.ComparisonRecord, error) {
	recs, err := s.ListComparisons(ctx, ComparisonFilter{SessionID: sessionID, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

func (s *SQLiteStore) ListComparisons(ctx context.Context, filter ComparisonFilter) ([]model.ComparisonRecord, error) {
	query := `SELECT id, session_id, source_analysis, ai_analysis, user_analysis, result, created_at FROM comparisons WHERE 1=1`
	var args []any
	if filter.SessionID != "" {
		query += ` AND session_id = ?`
		args = append(args, filter.SessionID)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, listLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list comparisons")
	}
	defer rows.Close()

	var out []model.ComparisonRecord
	for rows.Next() {
		var (
			rec        model.ComparisonRecord
			resultJSON string
		)
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.SourceAnalysis, &rec.AIAnalysis, &rec.UserAnalysis, &resultJSON, &rec.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan comparison")
		}
		if err := json.Unmarshal([]byte(resultJSON), &rec.Result); err != nil {
			return nil, eris.Wrapf(err, "sqlite: unmarshal comparison %s", rec.ID)
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list comparisons iterate")
}

func fillComparison(rec *model.ComparisonRecord) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
}

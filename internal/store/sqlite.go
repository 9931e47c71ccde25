package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/parcelworks/addrsplit/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
}

// DefaultRetention is how long a submission is kept when the caller does not
// set ExpiresAt.
const DefaultRetention = 30 * 24 * time.Hour

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
	return &SQLiteStore{db: db, ttl: DefaultRetention}, nil
}

// WithRetention overrides how long submissions are kept.
func (s *SQLiteStore) WithRetention(d time.Duration) *SQLiteStore {
	if d > 0 {
		s.ttl = d
	}
	return s
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS submissions (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	input            TEXT NOT NULL,
	results          TEXT NOT NULL,
	preferred_method TEXT NOT NULL DEFAULT '',
	created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at       DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS user_settings (
	user_id         TEXT PRIMARY KEY,
	prompt_template TEXT NOT NULL,
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_submissions_user_created ON submissions(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_submissions_expires_at ON submissions(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) PutSubmission(ctx context.Context, sub *model.Submission) error {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	if sub.ExpiresAt.IsZero() {
		sub.ExpiresAt = sub.CreatedAt.Add(s.ttl)
	}

	inputJSON, err := json.Marshal(sub.Input)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal input")
	}
	resultsJSON, err := json.Marshal(sub.Results)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal results")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO submissions (id, user_id, input, results, preferred_method, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.UserID, string(inputJSON), string(resultsJSON), sub.PreferredMethod, sub.CreatedAt, sub.ExpiresAt,
	)
	return eris.Wrap(err, "sqlite: insert submission")
}

func (s *SQLiteStore) GetSubmission(ctx context.Context, userID, id string) (*model.Submission, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, input, results, preferred_method, created_at, expires_at
		 FROM submissions WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	return scanSubmission(row)
}

func (s *SQLiteStore) ListRecent(ctx context.Context, userID string, limit int) ([]model.Submission, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, input, results, preferred_method, created_at, expires_at
		 FROM submissions WHERE user_id = ?
		 ORDER BY created_at DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list recent")
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, eris.Wrap(rows.Err(), "sqlite: list recent iterate")
}

func (s *SQLiteStore) SetPreferred(ctx context.Context, userID, id, method string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE submissions SET preferred_method = ? WHERE id = ? AND user_id = ?`,
		method, id, userID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set preferred %s", id)
	}
	return checkRowsAffected(res)
}

func (s *SQLiteStore) DeleteExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM submissions WHERE expires_at <= ?`,
		time.Now().UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) GetPromptTemplate(ctx context.Context, userID string) (string, error) {
	var tpl string
	err := s.db.QueryRowContext(ctx,
		`SELECT prompt_template FROM user_settings WHERE user_id = ?`,
		userID,
	).Scan(&tpl)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrap(err, "sqlite: get prompt template")
	}
	return tpl, nil
}

func (s *SQLiteStore) PutPromptTemplate(ctx context.Context, userID, template string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_settings (user_id, prompt_template, updated_at)
		 VALUES (?, ?, datetime('now'))
		 ON CONFLICT(user_id) DO UPDATE SET prompt_template = excluded.prompt_template, updated_at = datetime('now')`,
		userID, template,
	)
	return eris.Wrap(err, "sqlite: put prompt template")
}

// helpers

func checkRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSubmission(row scannable) (*model.Submission, error) {
	var sub model.Submission
	var inputJSON, resultsJSON string

	err := row.Scan(&sub.ID, &sub.UserID, &inputJSON, &resultsJSON, &sub.PreferredMethod, &sub.CreatedAt, &sub.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan submission")
	}

	if err := json.Unmarshal([]byte(inputJSON), &sub.Input); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal input")
	}
	if err := json.Unmarshal([]byte(resultsJSON), &sub.Results); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal results")
	}
	return &sub, nil
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/parcelworks/addrsplit/internal/model"
)

// Querier is the subset of pgxpool.Pool the store needs. Tests substitute a
// pgxmock pool.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Querier
	ttl     time.Duration
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, ttl: DefaultRetention, closeFn: pool.Close}, nil
}

// WithRetention overrides how long submissions are kept.
func (s *PostgresStore) WithRetention(d time.Duration) *PostgresStore {
	if d > 0 {
		s.ttl = d
	}
	return s
}

// NewPostgresWithQuerier wraps an existing querier; used by tests.
func NewPostgresWithQuerier(q Querier) *PostgresStore {
	return &PostgresStore{pool: q, ttl: DefaultRetention}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS submissions (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	input            JSONB NOT NULL,
	results          JSONB NOT NULL,
	preferred_method TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at       TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS user_settings (
	user_id         TEXT PRIMARY KEY,
	prompt_template TEXT NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_submissions_user_created ON submissions(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_submissions_expires_at ON submissions(expires_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) PutSubmission(ctx context.Context, sub *model.Submission) error {
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
		return eris.Wrap(err, "postgres: marshal input")
	}
	resultsJSON, err := json.Marshal(sub.Results)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal results")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO submissions (id, user_id, input, results, preferred_method, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sub.ID, sub.UserID, inputJSON, resultsJSON, sub.PreferredMethod, sub.CreatedAt, sub.ExpiresAt,
	)
	return eris.Wrap(err, "postgres: insert submission")
}

func (s *PostgresStore) GetSubmission(ctx context.Context, userID, id string) (*model.Submission, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, user_id, input, results, preferred_method, created_at, expires_at
		 FROM submissions WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	return scanPgSubmission(row)
}

func (s *PostgresStore) ListRecent(ctx context.Context, userID string, limit int) ([]model.Submission, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, input, results, preferred_method, created_at, expires_at
		 FROM submissions WHERE user_id = $1
		 ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list recent")
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		sub, err := scanPgSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, eris.Wrap(rows.Err(), "postgres: list recent iterate")
}

func (s *PostgresStore) SetPreferred(ctx context.Context, userID, id, method string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE submissions SET preferred_method = $1 WHERE id = $2 AND user_id = $3`,
		method, id, userID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set preferred %s", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteExpired(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM submissions WHERE expires_at <= now()`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) GetPromptTemplate(ctx context.Context, userID string) (string, error) {
	var tpl string
	err := s.pool.QueryRow(ctx,
		`SELECT prompt_template FROM user_settings WHERE user_id = $1`,
		userID,
	).Scan(&tpl)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrap(err, "postgres: get prompt template")
	}
	return tpl, nil
}

func (s *PostgresStore) PutPromptTemplate(ctx context.Context, userID, template string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_settings (user_id, prompt_template, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (user_id) DO UPDATE SET prompt_template = EXCLUDED.prompt_template, updated_at = now()`,
		userID, template,
	)
	return eris.Wrap(err, "postgres: put prompt template")
}

func scanPgSubmission(row pgx.Row) (*model.Submission, error) {
	var sub model.Submission
	var inputJSON, resultsJSON []byte

	err := row.Scan(&sub.ID, &sub.UserID, &inputJSON, &resultsJSON, &sub.PreferredMethod, &sub.CreatedAt, &sub.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan submission")
	}

	if err := json.Unmarshal(inputJSON, &sub.Input); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal input")
	}
	if err := json.Unmarshal(resultsJSON, &sub.Results); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal results")
	}
	return &sub, nil
}

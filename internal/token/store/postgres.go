package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	// Registers the postgres driver used by the shared *sql.DB pool.
	_ "github.com/lib/pq"

	pkgerrors "github.com/zanclus/nexus-auth-proxy/pkg/errors"
)

// Postgres persists token records in PostgreSQL through a shared *sql.DB
// pool. Connection checkout and release is the pool's job; every method
// here uses context-aware calls so a cancelled request releases its
// connection on all exit paths.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed token store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Open connects to the backend and sizes the connection pool.
func Open(dsn string, minConns, maxConns int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open token store: %w", err)
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(minConns)
	return db, nil
}

// EnsureSchema creates the token table when it does not exist yet. The
// original deployment used an embedded file database; with postgres the
// gateway bootstraps its own schema instead.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS user_tokens (
			username TEXT NOT NULL,
			token    TEXT NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStore, "ensure token schema", err)
	}
	return nil
}

func (s *Postgres) Insert(ctx context.Context, username, token string) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO user_tokens (username, token) VALUES ($1, $2)`,
		username, token,
	)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStore, "insert token", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStore, "insert token", err)
	}
	if rows != 1 {
		return pkgerrors.New(pkgerrors.CodeStore, "unknown error")
	}
	return nil
}

func (s *Postgres) FindUsername(ctx context.Context, token string) (string, error) {
	var username string
	err := s.db.QueryRowContext(ctx,
		`SELECT username FROM user_tokens WHERE token = $1 LIMIT 1`,
		token,
	).Scan(&username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeStore, "look up token", err)
	}
	return username, nil
}

func (s *Postgres) ListByUser(ctx context.Context, username string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT token FROM user_tokens WHERE username = $1 ORDER BY token`,
		username,
	)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStore, "list tokens", err)
	}
	defer rows.Close()

	tokens := []string{}
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStore, "scan token", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStore, "list tokens", err)
	}
	return tokens, nil
}

func (s *Postgres) ListUsernames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT username FROM user_tokens ORDER BY username`,
	)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStore, "list usernames", err)
	}
	defer rows.Close()

	users := []string{}
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStore, "scan username", err)
		}
		users = append(users, username)
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStore, "list usernames", err)
	}
	return users, nil
}

func (s *Postgres) DeleteOne(ctx context.Context, username, token string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM user_tokens WHERE username = $1 AND token = $2`,
		username, token,
	)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStore, "delete token", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStore, "delete token", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) DeleteAllForUser(ctx context.Context, username string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM user_tokens WHERE username = $1`,
		username,
	)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeStore, "delete user tokens", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeStore, "delete user tokens", err)
	}
	if rows == 0 {
		return 0, pkgerrors.Newf(pkgerrors.CodeNotFound, "no tokens for user '%s' found", username)
	}
	return rows, nil
}

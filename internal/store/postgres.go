package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/voyagen/channelvault/internal/models"
)

// ErrNoPool is returned by Ping when the store was built without a connection pool.
var ErrNoPool = errors.New("store: no connection pool")

// DB is the subset of pgx shared by *pgxpool.Pool and pgx.Tx.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

const createChannelsTable = `CREATE TABLE IF NOT EXISTS channels (
	id SERIAL PRIMARY KEY,
	name TEXT UNIQUE NOT NULL,
	category TEXT,
	url TEXT,
	logo TEXT,
	position INT
)`

// Postgres implements Store using PostgreSQL.
type Postgres struct {
	db   DB
	pool *pgxpool.Pool // nil for transaction-bound and test stores
}

// NewPostgres creates a Postgres store from a DSN. Caller must call Close when done.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Postgres{db: pool, pool: pool}, nil
}

// NewWithDB wraps an existing pgx handle (pool, transaction or mock).
func NewWithDB(db DB) *Postgres {
	return &Postgres{db: db}
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// Ping checks the database connection.
func (p *Postgres) Ping(ctx context.Context) error {
	pg, ok := p.db.(pinger)
	if !ok {
		return ErrNoPool
	}
	if err := pg.Ping(ctx); err != nil {
		return fmt.Errorf("Ping: %w", err)
	}
	return nil
}

// EnsureSchema creates the channels table if it is missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, createChannelsTable); err != nil {
		return fmt.Errorf("EnsureSchema: %w", err)
	}
	return nil
}

// ListChannels returns all channels, position ascending with nulls last, then name.
func (p *Postgres) ListChannels(ctx context.Context) ([]models.Channel, error) {
	rows, err := p.db.Query(ctx,
		`SELECT name, category, url, logo, position FROM channels
		 ORDER BY position NULLS LAST, name`)
	if err != nil {
		return nil, fmt.Errorf("ListChannels: %w", err)
	}
	defer rows.Close()

	channels := []models.Channel{}
	for rows.Next() {
		var ch models.Channel
		var url *string
		if err := rows.Scan(&ch.Name, &ch.Category, &url, &ch.Logo, &ch.Position); err != nil {
			return nil, fmt.Errorf("ListChannels scan: %w", err)
		}
		if url != nil {
			ch.URL = *url
		}
		channels = append(channels, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListChannels rows: %w", err)
	}
	return channels, nil
}

// UpsertChannel inserts a channel or updates category, url and logo on name conflict.
func (p *Postgres) UpsertChannel(ctx context.Context, ch models.Channel) error {
	_, err := p.db.Exec(ctx,
		`INSERT INTO channels (name, category, url, logo)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (name) DO UPDATE SET
		   category = EXCLUDED.category, url = EXCLUDED.url, logo = EXCLUDED.logo`,
		ch.Name, ch.Category, ch.URL, ch.Logo,
	)
	if err != nil {
		return fmt.Errorf("UpsertChannel: %w", err)
	}
	return nil
}

// RenameChannel updates the row currently named oldName.
func (p *Postgres) RenameChannel(ctx context.Context, oldName string, ch models.Channel) (int64, error) {
	tag, err := p.db.Exec(ctx,
		`UPDATE channels SET name = $1, category = $2, url = $3, logo = $4 WHERE name = $5`,
		ch.Name, ch.Category, ch.URL, ch.Logo, oldName,
	)
	if err != nil {
		return 0, fmt.Errorf("RenameChannel: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteChannel removes a channel by exact name.
func (p *Postgres) DeleteChannel(ctx context.Context, name string) (int64, error) {
	tag, err := p.db.Exec(ctx, `DELETE FROM channels WHERE name = $1`, name)
	if err != nil {
		return 0, fmt.Errorf("DeleteChannel: %w", err)
	}
	return tag.RowsAffected(), nil
}

// SetPosition sets the display position of a channel.
func (p *Postgres) SetPosition(ctx context.Context, name string, position int) (int64, error) {
	tag, err := p.db.Exec(ctx, `UPDATE channels SET position = $1 WHERE name = $2`, position, name)
	if err != nil {
		return 0, fmt.Errorf("SetPosition: %w", err)
	}
	return tag.RowsAffected(), nil
}

// InTx runs fn inside a transaction.
func (p *Postgres) InTx(ctx context.Context, fn func(Store) error) error {
	return pgx.BeginFunc(ctx, p.db, func(tx pgx.Tx) error {
		return fn(&Postgres{db: tx})
	})
}

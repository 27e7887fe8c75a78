package infrastructure

import (
	"context"
	"fmt"
	"time"

	"conexbot/internal/config"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type PostgresClient struct {
	Pool   *pgxpool.Pool
	schema string
}

func NewPostgresClient(ctx context.Context, cfg config.DBConfig) (*PostgresClient, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute
	// Repositories use unqualified table names.
	poolCfg.ConnConfig.RuntimeParams["search_path"] = cfg.Schema + ",public"

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	client := &PostgresClient{Pool: pool, schema: cfg.Schema}
	if err := client.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	zap.L().Info("database ready",
		zap.String("schema", cfg.Schema),
		zap.Int32("max_conns", cfg.MaxConns))
	return client, nil
}

func (p *PostgresClient) Migrate(ctx context.Context) error {
	schema := pgx.Identifier{p.schema}.Sanitize()

	statements := []struct {
		name string
		sql  string
	}{
		{"schema", fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, schema)},
		{"users table", fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s.users (
				id SERIAL PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				email VARCHAR(255) NOT NULL,
				password VARCHAR(255) NOT NULL,
				role VARCHAR(20) NOT NULL DEFAULT 'user'
					CHECK (role IN ('admin', 'user', 'moderator')),
				company VARCHAR(255) NOT NULL DEFAULT '',
				phone VARCHAR(32) NOT NULL DEFAULT '',
				cpf VARCHAR(20) NOT NULL DEFAULT '',
				plan_expires_at TIMESTAMPTZ,
				message_template TEXT NOT NULL DEFAULT '',
				message_interval INT NOT NULL DEFAULT 30 CHECK (message_interval > 0),
				ia_enabled BOOLEAN NOT NULL DEFAULT FALSE,
				contacts JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`, schema)},
		{"users email index", fmt.Sprintf(
			`CREATE UNIQUE INDEX IF NOT EXISTS users_email_lower_idx ON %s.users (LOWER(email))`, schema)},
		{"media table", fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s.media (
				id SERIAL PRIMARY KEY,
				user_id INT NOT NULL REFERENCES %s.users(id) ON DELETE CASCADE,
				filename VARCHAR(255) NOT NULL,
				original_name VARCHAR(255) NOT NULL,
				url TEXT NOT NULL,
				mimetype VARCHAR(127) NOT NULL DEFAULT '',
				size BIGINT NOT NULL DEFAULT 0,
				remote_id VARCHAR(255) NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`, schema, schema)},
		{"media user index", fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS media_user_id_idx ON %s.media (user_id)`, schema)},
		{"message usage table", fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s.message_usage (
				user_id INT NOT NULL REFERENCES %s.users(id) ON DELETE CASCADE,
				date DATE NOT NULL,
				messages_sent INT NOT NULL DEFAULT 0,
				messages_failed INT NOT NULL DEFAULT 0,
				PRIMARY KEY (user_id, date)
			)`, schema, schema)},
	}

	for _, st := range statements {
		if _, err := p.Pool.Exec(ctx, st.sql); err != nil {
			return fmt.Errorf("create %s: %w", st.name, err)
		}
	}
	return nil
}

// WithTx begins a transaction, runs fn and commits. Any error or panic from
// fn rolls the transaction back.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) (err error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			zap.L().Warn("transaction rollback failed", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (p *PostgresClient) Close() {
	p.Pool.Close()
}

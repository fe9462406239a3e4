// Package database opens the Postgres pool and bootstraps the tables the app
// store reads: apps and categories.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx connection pool using the provided DSN.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 8
	cfg.MaxConnIdleTime = 5 * time.Minute
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS categories (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	description TEXT,
	icon_name TEXT
);
CREATE TABLE IF NOT EXISTS apps (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	short_description TEXT NOT NULL,
	description TEXT NOT NULL,
	category_id TEXT NOT NULL REFERENCES categories(id),
	tags TEXT[] NOT NULL DEFAULT '{}',
	version TEXT NOT NULL,
	developer_id TEXT NOT NULL,
	logo_url TEXT NOT NULL,
	file_url TEXT,
	web_url TEXT,
	promo_video_url TEXT,
	banner_url TEXT,
	screenshot_urls TEXT[] NOT NULL DEFAULT '{}',
	release_notes TEXT,
	privacy_policy_url TEXT,
	release_type TEXT NOT NULL,
	test_users TEXT[] NOT NULL DEFAULT '{}',
	collect_feedback BOOLEAN NOT NULL DEFAULT FALSE,
	feedback_prompt TEXT,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_apps_status ON apps(status);
CREATE INDEX IF NOT EXISTS idx_apps_developer ON apps(developer_id);`

// EnsureSchema creates the tables if needed and seeds the default categories.
// Having the migration in code lets docker-compose bootstrap everything.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	batch := &pgx.Batch{}
	for _, c := range SeedCategories {
		batch.Queue(`INSERT INTO categories (id, name, description, icon_name) VALUES ($1,$2,$3,$4)
			ON CONFLICT (id) DO NOTHING`, c.ID, c.Name, c.Description, c.IconName)
	}
	if err := pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}
	return nil
}

// SeedCategory is a category inserted on first start.
type SeedCategory struct {
	ID, Name, Description, IconName string
}

// SeedCategories are the categories available out of the box.
var SeedCategories = []SeedCategory{
	{"education", "Education", "Courses, study aids and learning tools", "graduation-cap"},
	{"games", "Games", "Games built by the community", "gamepad-2"},
	{"productivity", "Productivity", "Planners, notes and organisers", "briefcase"},
	{"social", "Social", "Clubs, events and communication", "users"},
	{"utilities", "Utilities", "Campus maps, calculators and tools", "wrench"},
}

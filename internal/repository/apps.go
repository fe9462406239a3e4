// Package repository wraps the SQL used by the API for app rows and
// categories.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dharsanguruparan/witverse/internal/model"
)

// DB is the subset of *pgxpool.Pool the repositories use.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AppRepository inserts submitted apps.
type AppRepository struct {
	db  DB
	now func() time.Time
}

// NewAppRepository constructs a repository.
func NewAppRepository(db DB) *AppRepository {
	return &AppRepository{db: db, now: time.Now}
}

const insertApp = `
	INSERT INTO apps (
		id, name, short_description, description, category_id, tags, version, developer_id,
		logo_url, file_url, web_url, promo_video_url, banner_url, screenshot_urls, release_notes,
		privacy_policy_url, release_type, test_users, collect_feedback, feedback_prompt, status, created_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
	RETURNING id`

// InsertApp writes app and returns the generated id.
func (r *AppRepository) InsertApp(ctx context.Context, app *model.AppRecord) (string, error) {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	if app.CreatedAt.IsZero() {
		app.CreatedAt = r.now().UTC()
	}
	var id string
	err := r.db.QueryRow(ctx, insertApp, insertArgs(app)...).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert app: %w", err)
	}
	return id, nil
}

func insertArgs(app *model.AppRecord) []any {
	return []any{
		app.ID, app.Name, app.ShortDescription, app.Description, app.CategoryID, nonNil(app.Tags),
		app.Version, app.DeveloperID, app.LogoURL, app.FileURL, app.WebURL, app.PromoVideoURL,
		app.BannerURL, nonNil(app.ScreenshotURLs), app.ReleaseNotes, app.PrivacyPolicyURL,
		string(app.ReleaseType), nonNil(app.TestUsers), app.CollectFeedback, app.FeedbackPrompt,
		string(app.Status), app.CreatedAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// CountByStatus returns how many apps are in status.
func (r *AppRepository) CountByStatus(ctx context.Context, status model.AppStatus) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM apps WHERE status=$1`, string(status)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count apps: %w", err)
	}
	return n, nil
}

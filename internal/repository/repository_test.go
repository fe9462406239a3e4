package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/witverse/internal/model"
)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case *int:
			*p = r.values[i].(int)
		case *sql.NullString:
			if r.values[i] == nil {
				*p = sql.NullString{}
			} else {
				*p = sql.NullString{String: r.values[i].(string), Valid: true}
			}
		}
	}
	return nil
}

type fakeRows struct {
	rows []fakeRow
	pos  int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Next() bool                                   { r.pos++; return r.pos <= len(r.rows) }
func (r *fakeRows) Scan(dest ...any) error                       { return r.rows[r.pos-1].Scan(dest...) }
func (r *fakeRows) Values() ([]any, error)                       { return r.rows[r.pos-1].values, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

type fakeDB struct {
	sql  string
	args []any
	row  fakeRow
	rows *fakeRows
	err  error
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql, f.args = sql, args
	return pgconn.CommandTag{}, f.err
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.sql, f.args = sql, args
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.sql, f.args = sql, args
	return f.row
}

func TestInsertApp(t *testing.T) {
	db := &fakeDB{row: fakeRow{values: []any{"generated"}}}
	repo := NewAppRepository(db)
	repo.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	app := &model.AppRecord{
		Name:        "CampusMap",
		LogoURL:     "http://x/logo.png",
		ReleaseType: model.ReleasePublic,
		Status:      model.StatusPendingReview,
		WebURL:      model.NullIfEmpty("https://app.wit.edu"),
	}
	id, err := repo.InsertApp(context.Background(), app)
	require.NoError(t, err)
	assert.Equal(t, "generated", id)
	assert.NotEmpty(t, app.ID)
	assert.Contains(t, db.sql, "INSERT INTO apps")
	require.Len(t, db.args, 22)
	assert.Equal(t, "CampusMap", db.args[1])
	assert.Equal(t, []string{}, db.args[5], "nil tags are written as an empty array")
	assert.Equal(t, "pending_review", db.args[20])
	assert.Equal(t, repo.now().UTC(), db.args[21])
}

func TestInsertAppError(t *testing.T) {
	db := &fakeDB{row: fakeRow{err: errors.New("duplicate key")}}
	_, err := NewAppRepository(db).InsertApp(context.Background(), &model.AppRecord{})
	assert.EqualError(t, err, "insert app: duplicate key")
}

func TestListCategories(t *testing.T) {
	db := &fakeDB{rows: &fakeRows{rows: []fakeRow{
		{values: []any{"games", "Games", "Fun", nil}},
		{values: []any{"utilities", "Utilities", nil, "wrench"}},
	}}}
	list, err := NewCategoryRepository(db).ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Category{
		{ID: "games", Name: "Games", Description: "Fun"},
		{ID: "utilities", Name: "Utilities", IconName: "wrench"},
	}, list)
	assert.Contains(t, db.sql, "ORDER BY name")
}

func TestListCategoriesQueryError(t *testing.T) {
	_, err := NewCategoryRepository(&fakeDB{err: errors.New("down")}).ListCategories(context.Background())
	assert.Error(t, err)
}

func TestCountByStatus(t *testing.T) {
	db := &fakeDB{row: fakeRow{values: []any{3}}}
	n, err := NewAppRepository(db).CountByStatus(context.Background(), model.StatusPendingReview)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []any{"pending_review"}, db.args)
}

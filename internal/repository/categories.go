package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dharsanguruparan/witverse/internal/model"
)

// CategoryRepository reads the category list.
type CategoryRepository struct {
	db DB
}

func NewCategoryRepository(db DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// ListCategories returns every category ordered by name.
func (r *CategoryRepository) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, description, icon_name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("select categories: %w", err)
	}
	defer rows.Close()
	out := []model.Category{}
	for rows.Next() {
		var (
			c           model.Category
			description sql.NullString
			icon        sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Name, &description, &icon); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Description = description.String
		c.IconName = icon.String
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

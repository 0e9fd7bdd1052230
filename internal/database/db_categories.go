package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-while/go-newsroom/internal/models"
)

// --- Category Queries ---
const query_ListCategories = `SELECT id, name, alias, created_at FROM categories ORDER BY name`

// ListCategories returns every category ordered by display name
func (db *Database) ListCategories(ctx context.Context) ([]*models.Category, error) {
	rows, err := retryableQuery(ctx, db.mainDB, query_ListCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Alias, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// FindCategoryByID returns the category with this id or ErrNotFound
func (db *Database) FindCategoryByID(ctx context.Context, id int64) (*models.Category, error) {
	return db.findCategory(ctx, "id = ?", id)
}

// FindCategoryByAlias returns the category with this alias or ErrNotFound
func (db *Database) FindCategoryByAlias(ctx context.Context, alias string) (*models.Category, error) {
	return db.findCategory(ctx, "alias = ?", alias)
}

func (db *Database) findCategory(ctx context.Context, cond string, arg interface{}) (*models.Category, error) {
	var c models.Category
	err := retryableQueryRowScan(ctx, db.mainDB, db.rebind(`SELECT id, name, alias, created_at FROM categories WHERE `+cond),
		[]interface{}{arg}, &c.ID, &c.Name, &c.Alias, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// InsertCategory creates a category and returns its id
func (db *Database) InsertCategory(ctx context.Context, c *models.Category) (int64, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utcNow()
	}
	var id int64
	err := retryableQueryRowScan(ctx, db.mainDB,
		db.rebind(`INSERT INTO categories (name, alias, created_at) VALUES (?, ?, ?) RETURNING id`),
		[]interface{}{c.Name, c.Alias, c.CreatedAt.UTC()}, &id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("category alias %q already exists", c.Alias)
		}
		return 0, fmt.Errorf("failed to insert category %s: %w", c.Alias, err)
	}
	c.ID = id
	return id, nil
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-while/go-newsroom/internal/models"
)

// --- Article Queries ---
const query_InsertArticle = `INSERT INTO articles (title, alias, content, featured_image, category_id, author_id, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`

const query_articleJoin = `SELECT a.id, a.title, a.alias, a.content, a.featured_image, a.category_id, a.author_id, a.created_at,
	c.id, c.name, c.alias, c.created_at,
	u.id, u.firstname, u.lastname, u.email
	FROM articles a
	JOIN categories c ON c.id = a.category_id
	JOIN users u ON u.id = a.author_id`

// SaveArticle inserts a as a new row in one transaction and returns the generated id.
// Every call inserts; identical articles are not deduplicated.
func (db *Database) SaveArticle(ctx context.Context, a *models.Article) (int64, error) {
	var image sql.NullString
	if a.FeaturedImage != "" {
		image = sql.NullString{String: a.FeaturedImage, Valid: true}
	}

	var id int64
	err := retryableTransactionExec(ctx, db.mainDB, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, db.rebind(query_InsertArticle),
			a.Title, a.Alias, a.Content, image, a.CategoryID, a.AuthorID, a.CreatedAt.UTC(),
		).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to save article %q: %w", a.Alias, err)
	}
	a.ID = id
	return id, nil
}

func scanArticle(scan func(dest ...interface{}) error) (*models.Article, error) {
	var a models.Article
	var c models.Category
	var u models.User
	var image sql.NullString
	if err := scan(&a.ID, &a.Title, &a.Alias, &a.Content, &image, &a.CategoryID, &a.AuthorID, &a.CreatedAt,
		&c.ID, &c.Name, &c.Alias, &c.CreatedAt,
		&u.ID, &u.FirstName, &u.LastName, &u.Email); err != nil {
		return nil, err
	}
	a.FeaturedImage = image.String
	a.Category = &c
	a.Author = &u
	return &a, nil
}

// GetArticleByID returns the article with category and author materialized
func (db *Database) GetArticleByID(ctx context.Context, id int64) (*models.Article, error) {
	row := db.mainDB.QueryRowContext(ctx, db.rebind(query_articleJoin+` WHERE a.id = ?`), id)
	a, err := scanArticle(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

// GetLatestArticles returns up to limit articles, newest first
func (db *Database) GetLatestArticles(ctx context.Context, limit int) ([]*models.Article, error) {
	rows, err := retryableQuery(ctx, db.mainDB, db.rebind(query_articleJoin+` ORDER BY a.created_at DESC, a.id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Article
	for rows.Next() {
		a, err := scanArticle(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetArticlesByCategory returns up to limit articles of one category, newest first
func (db *Database) GetArticlesByCategory(ctx context.Context, categoryID int64, limit int) ([]*models.Article, error) {
	rows, err := retryableQuery(ctx, db.mainDB,
		db.rebind(query_articleJoin+` WHERE a.category_id = ? ORDER BY a.created_at DESC, a.id DESC LIMIT ?`), categoryID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Article
	for rows.Next() {
		a, err := scanArticle(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CountArticles returns the total number of stored articles
func (db *Database) CountArticles(ctx context.Context) (int64, error) {
	var n int64
	err := retryableQueryRowScan(ctx, db.mainDB, `SELECT COUNT(*) FROM articles`, nil, &n)
	return n, err
}

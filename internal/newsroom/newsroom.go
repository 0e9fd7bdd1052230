// Package newsroom implements the article creation and member registration workflows
// on top of narrow storage, hashing and file interfaces.
package newsroom

import (
	"context"
	"errors"
	"mime/multipart"
	"net/url"
	"strconv"
	"time"

	"github.com/go-while/go-newsroom/internal/models"
	"github.com/go-while/go-newsroom/internal/slug"
)

var (
	// ErrNoPrincipal is returned when an article is created without an authenticated author
	ErrNoPrincipal = errors.New("no authenticated principal")
	// ErrForbidden is returned when the principal lacks the journalist role
	ErrForbidden = errors.New("principal is not allowed to publish")
)

// CategoryRepository reads the category reference data
type CategoryRepository interface {
	ListCategories(ctx context.Context) ([]*models.Category, error)
	FindCategoryByID(ctx context.Context, id int64) (*models.Category, error)
}

// ArticleStore persists articles
type ArticleStore interface {
	SaveArticle(ctx context.Context, a *models.Article) (int64, error)
}

// UserStore persists members
type UserStore interface {
	SaveUser(ctx context.Context, u *models.User) (int64, error)
	EmailExists(ctx context.Context, email string) (bool, error)
}

// Slugger maps text to a URL-safe token
type Slugger func(string) string

// PasswordHasher computes a one-way digest of a clear text password for u
type PasswordHasher interface {
	Hash(u *models.User, clear string) (string, error)
}

// FileStore stores an upload and returns the generated filename
type FileStore interface {
	Store(fh *multipart.FileHeader) (string, error)
}

// Service wires the workflows to their collaborators. Files may be nil, uploads are then ignored.
type Service struct {
	Categories CategoryRepository
	Articles   ArticleStore
	Users      UserStore
	Files      FileStore
	Hasher     PasswordHasher
	Slug       Slugger
	Now        func() time.Time
}

// NewService returns a Service with the default slugger, bcrypt hasher and clock
func NewService(categories CategoryRepository, articles ArticleStore, users UserStore, files FileStore) *Service {
	return &Service{
		Categories: categories,
		Articles:   articles,
		Users:      users,
		Files:      files,
		Hasher:     NewBcryptHasher(0),
		Slug:       slug.Make,
		Now:        time.Now,
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) slugify(text string) string {
	if s.Slug != nil {
		return s.Slug(text)
	}
	return slug.Make(text)
}

// ArticlePath returns the view path /{category}/{alias}/{id}
func ArticlePath(categoryAlias, alias string, id int64) string {
	return "/" + url.PathEscape(categoryAlias) + "/" + url.PathEscape(alias) + "/" + strconv.FormatInt(id, 10)
}

package newsroom

import (
	"context"
	"fmt"
	"log"

	"github.com/go-while/go-newsroom/internal/forms"
	"github.com/go-while/go-newsroom/internal/models"
)

// fallback alias for titles that slug to nothing
const defaultArticleAlias = "article"

// NewArticleDraft returns an empty article authored by principal and stamped with the current time
func (s *Service) NewArticleDraft(principal *models.User) *models.Article {
	draft := &models.Article{CreatedAt: s.now().UTC()}
	if principal != nil {
		draft.AuthorID = principal.ID
		draft.Author = principal
	}
	return draft
}

// ArticleForm returns the field specification for in, listing every category
func (s *Service) ArticleForm(ctx context.Context, in forms.ArticleInput, fe forms.FieldErrors) (*forms.Form, error) {
	categories, err := s.Categories.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return forms.ArticleForm(in, categories, fe), nil
}

// CreateArticle validates in, stores the optional featured image, derives the alias
// and saves draft. Field errors come back without touching storage. A featured image
// that cannot be stored is logged and the article is saved without it.
func (s *Service) CreateArticle(ctx context.Context, principal *models.User, draft *models.Article, in forms.ArticleInput) (*models.Article, forms.FieldErrors, error) {
	if principal == nil || principal.ID == 0 {
		return nil, nil, ErrNoPrincipal
	}
	if !principal.HasRole(models.RoleJournalist) {
		return nil, nil, ErrForbidden
	}
	if draft == nil {
		draft = s.NewArticleDraft(principal)
	}
	draft.AuthorID = principal.ID
	draft.Author = principal

	categories, err := s.Categories.ListCategories(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list categories: %w", err)
	}

	valid, fe := forms.ValidateArticle(in, categories)
	if fe != nil {
		return nil, fe, nil
	}

	draft.Title = valid.Title
	draft.Content = valid.Content
	draft.CategoryID = valid.Category.ID
	draft.Category = valid.Category

	if valid.FeaturedImage != nil && s.Files != nil {
		name, err := s.Files.Store(valid.FeaturedImage)
		if err != nil {
			log.Printf("[NEWSROOM]: featured image %q not stored, saving article without it: %v", valid.FeaturedImage.Filename, err)
		} else {
			draft.FeaturedImage = name
		}
	}

	draft.Alias = s.slugify(draft.Title)
	if draft.Alias == "" {
		draft.Alias = defaultArticleAlias
	}

	id, err := s.Articles.SaveArticle(ctx, draft)
	if err != nil {
		return nil, nil, fmt.Errorf("save article: %w", err)
	}
	draft.ID = id
	log.Printf("[NEWSROOM]: article %d %q published by user %d in %s", id, draft.Alias, principal.ID, draft.Category.Alias)
	return draft, nil, nil
}

// ConfirmationPath returns the view path of a saved article, loading its category when needed
func (s *Service) ConfirmationPath(ctx context.Context, a *models.Article) (string, error) {
	category := a.Category
	if category == nil {
		c, err := s.Categories.FindCategoryByID(ctx, a.CategoryID)
		if err != nil {
			return "", fmt.Errorf("find category %d: %w", a.CategoryID, err)
		}
		category = c
	}
	return ArticlePath(category.Alias, a.Alias, a.ID), nil
}

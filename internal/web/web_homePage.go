package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/go-while/go-newsroom/internal/database"
	"github.com/go-while/go-newsroom/internal/models"
	"github.com/go-while/go-newsroom/internal/newsroom"
)

const latestArticlesLimit = 20

// ArticleListItem is one teaser in an article list
type ArticleListItem struct {
	Article  *models.Article
	URL      string
	ImageURL string
}

// ListPageData represents data for the index and category pages
type ListPageData struct {
	TemplateData
	Category *models.Category
	Articles []ArticleListItem
}

func (s *WebServer) listItems(articles []*models.Article) []ArticleListItem {
	items := make([]ArticleListItem, 0, len(articles))
	for _, a := range articles {
		items = append(items, ArticleListItem{
			Article:  a,
			URL:      newsroom.ArticlePath(a.Category.Alias, a.Alias, a.ID),
			ImageURL: s.imageURL(a.FeaturedImage),
		})
	}
	return items
}

// homePage lists the latest articles
func (s *WebServer) homePage(c *gin.Context) {
	articles, err := s.DB.GetLatestArticles(c.Request.Context(), latestArticlesLimit)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, "Erreur de base de données", err.Error())
		return
	}
	s.renderTemplate(c, http.StatusOK, "index.html", ListPageData{
		TemplateData: s.getBaseTemplateData(c, "Accueil"),
		Articles:     s.listItems(articles),
	})
}

// categoryPage lists the latest articles of one category
func (s *WebServer) categoryPage(c *gin.Context) {
	ctx := c.Request.Context()
	category, err := s.DB.FindCategoryByAlias(ctx, c.Param("category"))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.renderError(c, http.StatusNotFound, "Catégorie introuvable", c.Param("category"))
			return
		}
		s.renderError(c, http.StatusInternalServerError, "Erreur de base de données", err.Error())
		return
	}

	articles, err := s.DB.GetArticlesByCategory(ctx, category.ID, latestArticlesLimit)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, "Erreur de base de données", err.Error())
		return
	}
	s.renderTemplate(c, http.StatusOK, "index.html", ListPageData{
		TemplateData: s.getBaseTemplateData(c, category.Name),
		Category:     category,
		Articles:     s.listItems(articles),
	})
}

package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/go-while/go-newsroom/internal/database"
	"github.com/go-while/go-newsroom/internal/models"
)

// ArticlePageData represents data for article page
type ArticlePageData struct {
	TemplateData
	Article  *models.Article
	ImageURL string
}

// articlePage shows one article at /:category/:alias/:id
func (s *WebServer) articlePage(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		s.renderError(c, http.StatusNotFound, "Article introuvable", "invalid id "+c.Param("id"))
		return
	}

	article, err := s.DB.GetArticleByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.renderError(c, http.StatusNotFound, "Article introuvable", err.Error())
			return
		}
		s.renderError(c, http.StatusInternalServerError, "Erreur de base de données", err.Error())
		return
	}

	// the id decides, but the path must name the right category and alias
	if article.Category.Alias != c.Param("category") || article.Alias != c.Param("alias") {
		s.renderError(c, http.StatusNotFound, "Article introuvable", "path does not match article "+c.Param("id"))
		return
	}

	s.renderTemplate(c, http.StatusOK, "article.html", ArticlePageData{
		TemplateData: s.getBaseTemplateData(c, article.Title),
		Article:      article,
		ImageURL:     s.imageURL(article.FeaturedImage),
	})
}

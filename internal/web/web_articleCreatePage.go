package web

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/go-while/go-newsroom/internal/forms"
)

const (
	msgArticlePublished = "Votre article est en ligne !"
	msgImageDropped     = "L'image à la une n'a pas pu être enregistrée, l'article a été publié sans image."
)

// FormPageData represents data for the article and registration form pages
type FormPageData struct {
	TemplateData
	Form *forms.Form
}

// articleCreatePage shows the article form on GET and publishes on a submitted POST
func (s *WebServer) articleCreatePage(c *gin.Context) {
	ctx := c.Request.Context()
	principal := s.currentUser(c)
	draft := s.Newsroom.NewArticleDraft(principal)

	var in forms.ArticleInput
	var fe forms.FieldErrors
	if c.Request.Method == http.MethodPost {
		var err error
		in, err = bindArticleInput(c)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				s.renderError(c, http.StatusRequestEntityTooLarge, "Fichier trop volumineux", err.Error())
				return
			}
			s.renderError(c, http.StatusBadRequest, "Requête invalide", err.Error())
			return
		}
	}

	if in.Submitted {
		article, errs, err := s.Newsroom.CreateArticle(ctx, principal, draft, in)
		if err != nil {
			s.renderError(c, http.StatusInternalServerError, "Impossible d'enregistrer l'article", err.Error())
			return
		}
		if errs == nil {
			target, err := s.Newsroom.ConfirmationPath(ctx, article)
			if err != nil {
				s.renderError(c, http.StatusInternalServerError, "Article enregistré", err.Error())
				return
			}
			s.Flash.SetFlashSuccess(c, msgArticlePublished)
			if img := in.FeaturedImage; img != nil && img.Size > 0 && article.FeaturedImage == "" {
				s.Flash.SetFlashError(c, msgImageDropped)
			}
			c.Redirect(http.StatusSeeOther, target)
			return
		}
		fe = errs
	}

	form, err := s.Newsroom.ArticleForm(ctx, in, fe)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, "Catégories indisponibles", err.Error())
		return
	}
	s.renderTemplate(c, http.StatusOK, "article_create.html", FormPageData{
		TemplateData: s.getBaseTemplateData(c, "Créer un article"),
		Form:         form,
	})
}

// bindArticleInput reads the article fields from a multipart or urlencoded body
func bindArticleInput(c *gin.Context) (forms.ArticleInput, error) {
	var in forms.ArticleInput
	fh, err := c.FormFile("featuredImage")
	switch {
	case err == nil:
		in.FeaturedImage = fh
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		// no upload, or a plain urlencoded post
	default:
		return in, err
	}
	if err := c.Request.ParseForm(); err != nil {
		return in, err
	}
	in.Title = c.PostForm("title")
	in.Category = c.PostForm("category")
	in.Content = c.PostForm("content")
	_, in.Submitted = c.GetPostForm(forms.SubmitField)
	if in.FeaturedImage != nil {
		log.Printf("[WEB]: article upload %q (%d bytes)", in.FeaturedImage.Filename, in.FeaturedImage.Size)
	}
	return in, nil
}

package forms

import (
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/go-while/go-newsroom/internal/models"
)

// ArticleAction is where the article form posts to
const ArticleAction = "/article/creer-un-article"

// ArticleInput carries the raw submitted article fields
type ArticleInput struct {
	Title         string                `form:"title" validate:"required,max=255"`
	Category      string                `form:"category" validate:"required"`
	Content       string                `form:"content" validate:"required"`
	FeaturedImage *multipart.FileHeader `form:"featuredImage" validate:"-"`
	Submitted     bool                  `form:"-" validate:"-"`
}

// ValidatedArticle is an article submission that passed every field rule
type ValidatedArticle struct {
	Title         string
	Content       string
	Category      *models.Category
	FeaturedImage *multipart.FileHeader
}

// ValidateArticle checks in against the article rules. The category must be the
// id of one of categories. The featured image is never a validation failure: its
// content is checked when it is stored. FieldErrors is nil when the submission is valid.
func ValidateArticle(in ArticleInput, categories []*models.Category) (ValidatedArticle, FieldErrors) {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	in.Category = strings.TrimSpace(in.Category)

	fe := FieldErrors{}
	if err := collect(in, fe); err != nil {
		fe.Add("form", err.Error())
	}

	var category *models.Category
	if !fe.Has("category") {
		id, err := strconv.ParseInt(in.Category, 10, 64)
		if err != nil {
			fe.Add("category", "Cette valeur n'est pas valide.")
		} else if category = findCategory(categories, id); category == nil {
			fe.Add("category", "Cette valeur n'est pas valide.")
		}
	}

	if !fe.Valid() {
		return ValidatedArticle{}, fe
	}

	out := ValidatedArticle{
		Title:    in.Title,
		Content:  in.Content,
		Category: category,
	}
	if in.FeaturedImage != nil && in.FeaturedImage.Size > 0 {
		out.FeaturedImage = in.FeaturedImage
	}
	return out, nil
}

func findCategory(categories []*models.Category, id int64) *models.Category {
	for _, c := range categories {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// ArticleForm builds the article field specification with the current values and errors
func ArticleForm(in ArticleInput, categories []*models.Category, fe FieldErrors) *Form {
	options := make([]Option, 0, len(categories))
	for _, c := range categories {
		value := strconv.FormatInt(c.ID, 10)
		options = append(options, Option{Value: value, Label: c.Name, Selected: value == strings.TrimSpace(in.Category)})
	}
	return &Form{
		Name:      "article",
		Action:    ArticleAction,
		Multipart: true,
		Submitted: in.Submitted,
		Fields: []Field{
			{Name: "title", Label: "Titre", Type: FieldText, Required: true, Value: in.Title, Error: fe.Get("title")},
			{Name: "category", Label: "Catégorie", Type: FieldSelect, Required: true, Options: options, Error: fe.Get("category")},
			{Name: "content", Label: "Contenu", Type: FieldTextarea, Required: true, Value: in.Content, Error: fe.Get("content")},
			{Name: "featuredImage", Label: "Image à la une", Type: FieldFile, Accept: "image/*", Error: fe.Get("featuredImage")},
			{Name: SubmitField, Label: "Publier", Type: FieldSubmit},
		},
	}
}

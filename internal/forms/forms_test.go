package forms

import (
	"mime/multipart"
	"net/textproto"
	"strings"
	"testing"

	"github.com/go-while/go-newsroom/internal/models"
)

var testCategories = []*models.Category{
	{ID: 1, Name: "Politique", Alias: "politique"},
	{ID: 5, Name: "Tech", Alias: "tech"},
}

func TestValidateArticle(t *testing.T) {
	testCases := []struct {
		name       string
		in         ArticleInput
		wantFields []string
	}{
		{
			name: "valid",
			in:   ArticleInput{Title: "Hello World", Category: "5", Content: "Body"},
		},
		{
			name:       "missing title",
			in:         ArticleInput{Category: "5", Content: "Body"},
			wantFields: []string{"title"},
		},
		{
			name:       "blank title",
			in:         ArticleInput{Title: "   ", Category: "5", Content: "Body"},
			wantFields: []string{"title"},
		},
		{
			name:       "missing content",
			in:         ArticleInput{Title: "T", Category: "5"},
			wantFields: []string{"content"},
		},
		{
			name:       "missing category",
			in:         ArticleInput{Title: "T", Content: "Body"},
			wantFields: []string{"category"},
		},
		{
			name:       "unknown category",
			in:         ArticleInput{Title: "T", Category: "99", Content: "Body"},
			wantFields: []string{"category"},
		},
		{
			name:       "non integer category",
			in:         ArticleInput{Title: "T", Category: "tech", Content: "Body"},
			wantFields: []string{"category"},
		},
		{
			name:       "title too long",
			in:         ArticleInput{Title: strings.Repeat("é", 256), Category: "1", Content: "Body"},
			wantFields: []string{"title"},
		},
		{
			name:       "everything missing",
			in:         ArticleInput{},
			wantFields: []string{"title", "category", "content"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, fe := ValidateArticle(tc.in, testCategories)
			if len(tc.wantFields) == 0 {
				if fe != nil {
					t.Fatalf("unexpected errors: %v", fe)
				}
				if out.Category == nil || out.Category.Alias != "tech" {
					t.Errorf("category not resolved: %+v", out.Category)
				}
				return
			}
			if fe == nil {
				t.Fatalf("expected errors on %v, got none", tc.wantFields)
			}
			for _, f := range tc.wantFields {
				if !fe.Has(f) {
					t.Errorf("expected error on %q, got %v", f, fe)
				}
			}
		})
	}
}

func TestValidateArticleTrims(t *testing.T) {
	out, fe := ValidateArticle(ArticleInput{Title: "  Hello  ", Category: " 1 ", Content: "\nBody\n"}, testCategories)
	if fe != nil {
		t.Fatalf("unexpected errors: %v", fe)
	}
	if out.Title != "Hello" || out.Content != "Body" {
		t.Errorf("values not trimmed: %q %q", out.Title, out.Content)
	}
}

func TestValidateArticleImage(t *testing.T) {
	image := &multipart.FileHeader{
		Filename: "photo.png",
		Size:     10,
		Header:   textproto.MIMEHeader{"Content-Type": {"image/png"}},
	}
	out, fe := ValidateArticle(ArticleInput{Title: "T", Category: "1", Content: "C", FeaturedImage: image}, testCategories)
	if fe != nil {
		t.Fatalf("unexpected errors: %v", fe)
	}
	if out.FeaturedImage != image {
		t.Errorf("featured image not carried over")
	}

	// empty file input is treated as no upload
	empty := &multipart.FileHeader{Filename: "", Size: 0}
	out, fe = ValidateArticle(ArticleInput{Title: "T", Category: "1", Content: "C", FeaturedImage: empty}, testCategories)
	if fe != nil || out.FeaturedImage != nil {
		t.Errorf("empty upload should be ignored, got image=%v errors=%v", out.FeaturedImage, fe)
	}

	// the client's content type label is not trusted either way
	for _, label := range []string{"application/octet-stream", "application/pdf", ""} {
		labelled := &multipart.FileHeader{
			Filename: "photo.png",
			Size:     10,
			Header:   textproto.MIMEHeader{"Content-Type": {label}},
		}
		out, fe = ValidateArticle(ArticleInput{Title: "T", Category: "1", Content: "C", FeaturedImage: labelled}, testCategories)
		if fe != nil {
			t.Errorf("label %q: unexpected errors %v", label, fe)
		}
		if out.FeaturedImage != labelled {
			t.Errorf("label %q: featured image not carried over", label)
		}
	}
}

func TestValidateRegistration(t *testing.T) {
	valid := RegistrationInput{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Password: "s3cret"}

	out, fe := ValidateRegistration(valid)
	if fe != nil {
		t.Fatalf("unexpected errors: %v", fe)
	}
	if out.Email != "ada@example.com" || out.Password != "s3cret" {
		t.Errorf("unexpected output %+v", out)
	}

	testCases := []struct {
		name  string
		edit  func(*RegistrationInput)
		field string
	}{
		{"missing firstname", func(in *RegistrationInput) { in.FirstName = "" }, "firstname"},
		{"missing lastname", func(in *RegistrationInput) { in.LastName = " " }, "lastname"},
		{"missing email", func(in *RegistrationInput) { in.Email = "" }, "email"},
		{"bad email", func(in *RegistrationInput) { in.Email = "not-an-email" }, "email"},
		{"missing password", func(in *RegistrationInput) { in.Password = "" }, "password"},
		{"password too long", func(in *RegistrationInput) { in.Password = strings.Repeat("x", 73) }, "password"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			tc.edit(&in)
			_, fe := ValidateRegistration(in)
			if !fe.Has(tc.field) {
				t.Errorf("expected error on %q, got %v", tc.field, fe)
			}
		})
	}
}

func TestArticleFormSpecification(t *testing.T) {
	in := ArticleInput{Title: "Draft", Category: "5", Submitted: true}
	form := ArticleForm(in, testCategories, FieldErrors{"content": "Cette valeur ne doit pas être vide."})

	wantOrder := []string{"title", "category", "content", "featuredImage", SubmitField}
	if len(form.Fields) != len(wantOrder) {
		t.Fatalf("got %d fields, want %d", len(form.Fields), len(wantOrder))
	}
	for i, name := range wantOrder {
		if form.Fields[i].Name != name {
			t.Errorf("field %d = %q, want %q", i, form.Fields[i].Name, name)
		}
	}
	if !form.Multipart {
		t.Error("article form must be multipart")
	}
	if form.Valid() {
		t.Error("form with a content error reported valid")
	}
	if got := form.Field("title").Value; got != "Draft" {
		t.Errorf("title value = %q", got)
	}
	opts := form.Field("category").Options
	if len(opts) != 2 || opts[0].Selected || !opts[1].Selected {
		t.Errorf("unexpected category options %+v", opts)
	}
	if form.Field("featuredImage").Required {
		t.Error("featured image must be optional")
	}
}

func TestRegistrationFormNeverEchoesPassword(t *testing.T) {
	form := RegistrationForm(RegistrationInput{Email: "a@b.c", Password: "clear"}, nil)
	if v := form.Field("password").Value; v != "" {
		t.Errorf("password echoed back: %q", v)
	}
	if form.Field("email").Value != "a@b.c" {
		t.Errorf("email not kept")
	}
}

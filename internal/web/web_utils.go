package web

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/go-while/go-newsroom/internal/config"
	"github.com/go-while/go-newsroom/internal/models"
)

// templateSet holds one parsed base+page template per page file
type templateSet struct {
	pages map[string]*template.Template
}

var templateFuncs = template.FuncMap{
	"formatDate": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Local().Format("02/01/2006 15:04")
	},
	"paragraphs": func(s string) []string {
		var out []string
		for _, p := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n\n") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	},
}

// mustParseTemplates parses every embedded page together with base.html
func mustParseTemplates() *templateSet {
	ts := &templateSet{pages: make(map[string]*template.Template)}
	pages, err := fs.Glob(EmbeddedTemplatesFS, "templates/*.html")
	if err != nil {
		panic("Failed to list embedded templates: " + err.Error())
	}
	for _, page := range pages {
		name := path.Base(page)
		if name == "base.html" {
			continue
		}
		ts.pages[name] = template.Must(template.New(name).Funcs(templateFuncs).
			ParseFS(EmbeddedTemplatesFS, "templates/base.html", page))
	}
	return ts
}

// getBaseTemplateData creates a TemplateData struct with common information including user auth.
// Pending flash messages are consumed.
func (s *WebServer) getBaseTemplateData(c *gin.Context, title string) TemplateData {
	data := s.baseTemplateData(c, title)
	data.Flashes = s.Flash.Pop(c)
	return data
}

// baseTemplateData is getBaseTemplateData without flashes; error pages leave them for the next page
func (s *WebServer) baseTemplateData(c *gin.Context, title string) TemplateData {
	ctx := c.Request.Context()

	// Check registration status (default to true if error)
	registrationEnabled := true
	if enabled, err := s.DB.IsRegistrationEnabled(ctx); err == nil {
		registrationEnabled = enabled
	}

	var categories []*models.Category
	if list, err := s.DB.ListCategories(ctx); err == nil {
		categories = list
	}

	data := TemplateData{
		Title:               title,
		CurrentTime:         time.Now().Format("2006-01-02 15:04:05"),
		AppVersion:          config.AppVersion,
		RegistrationEnabled: registrationEnabled,
		Categories:          categories,
	}

	// Add user information if logged in
	if session := s.getWebSession(c); session != nil {
		data.User = session.User
		data.IsJournalist = session.User.HasRole(models.RoleJournalist)
		data.IsAdmin = session.User.HasRole(models.RoleAdmin)
	}

	return data
}

// imageURL returns the public URL of a stored featured image
func (s *WebServer) imageURL(name string) string {
	if name == "" {
		return ""
	}
	return strings.TrimSuffix(s.Uploads.URLPrefix, "/") + "/" + name
}

// renderError renders an error page
func (s *WebServer) renderError(c *gin.Context, statusCode int, message string, errstring string) {
	errorData := struct {
		TemplateData
		Error      string
		StatusCode int
	}{
		TemplateData: s.baseTemplateData(c, "Erreur"),
		Error:        message,
		StatusCode:   statusCode,
	}
	log.Printf("[WEB]: Error %d: %s - %s", statusCode, message, errstring)

	if err := s.executeTemplate(c, statusCode, "error.html", errorData); err != nil {
		log.Printf("[WEB]: Error rendering error template: %v", err)
		c.String(statusCode, "Error: %s", message)
	}
}

// renderTemplate renders a page with the given status
func (s *WebServer) renderTemplate(c *gin.Context, statusCode int, templateName string, data interface{}) {
	if err := s.executeTemplate(c, statusCode, templateName, data); err != nil {
		log.Printf("[WEB]: Error rendering template %s: %v", templateName, err)
		s.renderError(c, http.StatusInternalServerError, "Erreur de rendu", err.Error())
	}
}

// executeTemplate renders into a buffer first so a failing template never leaves a half-written page
func (s *WebServer) executeTemplate(c *gin.Context, statusCode int, templateName string, data interface{}) error {
	tmpl, ok := s.templates.pages[templateName]
	if !ok {
		return fmt.Errorf("unknown template %s", templateName)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		return err
	}
	c.Data(statusCode, "text/html; charset=utf-8", buf.Bytes())
	return nil
}

package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/go-while/go-newsroom/internal/forms"
	"github.com/go-while/go-newsroom/internal/newsroom"
)

const msgRegistered = "Félicitations pour votre inscription !"

// registerPage displays the registration form on GET and registers on a submitted POST
func (s *WebServer) registerPage(c *gin.Context) {
	ctx := c.Request.Context()

	// Check if registration is enabled
	registrationEnabled, err := s.DB.IsRegistrationEnabled(ctx)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, "Erreur de base de données", err.Error())
		return
	}
	if !registrationEnabled {
		s.renderError(c, http.StatusForbidden, "Inscriptions fermées", "registration is disabled")
		return
	}

	draft := newsroom.NewUserDraft()

	var in forms.RegistrationInput
	var fe forms.FieldErrors
	if c.Request.Method == http.MethodPost {
		in = forms.RegistrationInput{
			FirstName: c.PostForm("firstname"),
			LastName:  c.PostForm("lastname"),
			Email:     c.PostForm("email"),
			Password:  c.PostForm("password"),
		}
		_, in.Submitted = c.GetPostForm(forms.SubmitField)
	}

	if in.Submitted {
		_, errs, err := s.Newsroom.RegisterUser(ctx, draft, in)
		if err != nil {
			s.renderError(c, http.StatusInternalServerError, "Impossible d'enregistrer l'inscription", err.Error())
			return
		}
		if errs == nil {
			s.Flash.SetFlashSuccess(c, msgRegistered)
			c.Redirect(http.StatusSeeOther, "/")
			return
		}
		fe = errs
	}

	s.renderTemplate(c, http.StatusOK, "register.html", FormPageData{
		TemplateData: s.getBaseTemplateData(c, "Inscription"),
		Form:         s.Newsroom.RegistrationForm(in, fe),
	})
}

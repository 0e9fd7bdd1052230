package web

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/go-while/go-newsroom/internal/newsroom"
)

// LoginPageData represents data for login page
type LoginPageData struct {
	TemplateData
	Error       string
	Email       string
	RedirectURL string
}

// loginPage displays the login form
func (s *WebServer) loginPage(c *gin.Context) {
	// Check if user is already logged in
	if session := s.getWebSession(c); session != nil {
		c.Redirect(http.StatusSeeOther, safeRedirect(c.Query("redirect")))
		return
	}

	var errorMsg string
	if c.Query("message") == "session_expired" {
		errorMsg = "Votre session a expiré, veuillez vous reconnecter."
	}

	s.renderTemplate(c, http.StatusOK, "login.html", LoginPageData{
		TemplateData: s.getBaseTemplateData(c, "Connexion"),
		Error:        errorMsg,
		RedirectURL:  c.Query("redirect"),
	})
}

// loginSubmit processes login form submission
func (s *WebServer) loginSubmit(c *gin.Context) {
	ctx := c.Request.Context()
	email := strings.TrimSpace(c.PostForm("email"))
	password := c.PostForm("password")
	redirectURL := safeRedirect(c.PostForm("redirect"))

	if email == "" || password == "" {
		s.renderLoginError(c, "Email et mot de passe requis.", email, redirectURL)
		return
	}

	lockedOut, err := s.DB.IsUserLockedOut(ctx, email)
	if err != nil {
		s.renderLoginError(c, "Erreur de connexion, veuillez réessayer.", email, redirectURL)
		return
	}
	if lockedOut {
		s.renderLoginError(c, "Compte temporairement bloqué après trop de tentatives. Réessayez dans 15 minutes.", email, redirectURL)
		return
	}

	user, err := s.DB.GetUserByEmail(ctx, email)
	if err != nil || !newsroom.CheckPassword(password, user.Password) {
		if err := s.DB.IncrementLoginAttempts(ctx, email); err != nil {
			log.Printf("[WEB]: Failed to count login attempt for %s: %v", email, err)
		}
		s.renderLoginError(c, "Email ou mot de passe invalide.", email, redirectURL)
		return
	}

	// Successful login - create new session (this invalidates any existing session)
	sessionID, err := s.DB.CreateUserSession(ctx, user.ID, c.ClientIP())
	if err != nil {
		s.renderLoginError(c, "Impossible de créer la session.", email, redirectURL)
		return
	}
	s.setSessionCookie(c, sessionID)
	log.Printf("[WEB]: User %d logged in from %s", user.ID, c.ClientIP())

	c.Redirect(http.StatusSeeOther, redirectURL)
}

// logout handles user logout
func (s *WebServer) logout(c *gin.Context) {
	if session := s.getWebSession(c); session != nil {
		if err := s.DB.InvalidateUserSession(c.Request.Context(), session.UserID); err != nil {
			log.Printf("[WEB]: Failed to invalidate session of user %d: %v", session.UserID, err)
		}
	}
	s.clearSessionCookie(c)
	c.Redirect(http.StatusSeeOther, "/")
}

// renderLoginError renders login page with error
func (s *WebServer) renderLoginError(c *gin.Context, errorMsg, email, redirectURL string) {
	s.renderTemplate(c, http.StatusUnauthorized, "login.html", LoginPageData{
		TemplateData: s.getBaseTemplateData(c, "Connexion"),
		Error:        errorMsg,
		Email:        email,
		RedirectURL:  redirectURL,
	})
}

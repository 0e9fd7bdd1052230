package web

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/go-while/go-newsroom/internal/database"
	"github.com/go-while/go-newsroom/internal/models"
)

const (
	sessionCookieName = "session_id"
	ctxSessionKey     = "session"
	ctxUserKey        = "user"
)

// SessionData represents session information with user data
type SessionData struct {
	SessionID string
	UserID    int64
	User      *models.User
	ExpiresAt time.Time
}

// WebRoleRequired middleware for routes restricted to one role.
// Anonymous visitors are sent to the login page, logged in users without the role get 403.
func (s *WebServer) WebRoleRequired(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := s.getWebSession(c)
		if session == nil {
			c.Redirect(http.StatusSeeOther, "/login?redirect="+url.QueryEscape(c.Request.URL.Path))
			c.Abort()
			return
		}

		if !session.User.HasRole(role) {
			s.renderError(c, http.StatusForbidden, "Accès refusé", "role "+role+" required for user "+session.User.Email)
			c.Abort()
			return
		}

		c.Set(ctxUserKey, session.User)
		c.Next()
	}
}

// currentUser returns the principal stored by the auth middleware
func (s *WebServer) currentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(ctxUserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// getWebSession retrieves session from cookie and returns full session data.
// The result is memoized on the request context.
func (s *WebServer) getWebSession(c *gin.Context) *SessionData {
	if v, ok := c.Get(ctxSessionKey); ok {
		session, _ := v.(*SessionData)
		return session
	}

	var session *SessionData
	defer func() { c.Set(ctxSessionKey, session) }()

	sessionID, err := c.Cookie(sessionCookieName)
	if err != nil || len(sessionID) != database.SessionIDLength {
		return nil
	}

	user, err := s.DB.ValidateUserSession(c.Request.Context(), sessionID)
	if err != nil {
		return nil
	}

	session = &SessionData{
		SessionID: sessionID,
		UserID:    user.ID,
		User:      user,
	}
	if user.SessionExpiresAt != nil {
		session.ExpiresAt = *user.SessionExpiresAt
	}
	return session
}

// isHTTPS detects HTTPS from the current request perspective only
func isHTTPS(c *gin.Context) bool {
	return c.Request != nil && (c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https"))
}

// Helper function to set session cookie
func (s *WebServer) setSessionCookie(c *gin.Context, sessionID string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   isHTTPS(c),
		SameSite: http.SameSiteLaxMode, // Works well with reverse proxies
		MaxAge:   int(database.SessionTimeout / time.Second),
	})
}

// Helper function to clear session cookie
func (s *WebServer) clearSessionCookie(c *gin.Context) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   isHTTPS(c),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1, // Delete cookie
	})
}

// safeRedirect only accepts local absolute paths
func safeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, "\\") {
		return "/"
	}
	return target
}

package web

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// adminSetRegistration returns a handler that switches self-registration on or off
func (s *WebServer) adminSetRegistration(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.DB.SetConfigBool(c.Request.Context(), "registration_enabled", enabled); err != nil {
			s.renderError(c, http.StatusInternalServerError, "Impossible de modifier les inscriptions", err.Error())
			return
		}

		user := s.currentUser(c)
		log.Printf("[WEB]: Registration enabled=%t by user %d", enabled, user.ID)
		if enabled {
			s.Flash.SetFlashSuccess(c, "Inscriptions ouvertes.")
		} else {
			s.Flash.SetFlashSuccess(c, "Inscriptions fermées.")
		}
		c.Redirect(http.StatusSeeOther, "/")
	}
}

package web

import (
	"context"
	"log"
	"time"
)

// StartSessionCleanup starts a background goroutine that expires sessions and stale flash messages
func (s *WebServer) StartSessionCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.DB.StopChan:
				return
			case <-ticker.C:
			}
			if s.DB.IsDBshutdown() {
				return
			}
			n, err := s.DB.CleanupExpiredSessions(ctx)
			if err != nil {
				log.Printf("[WEB]: Error cleaning up expired sessions: %v", err)
				continue
			}
			flashes := s.Flash.Cleanup()
			log.Printf("[WEB]: Session cleanup completed: %d sessions, %d flash entries", n, flashes)
		}
	}()

	log.Println("[WEB]: Started session cleanup background task")
}

package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/go-while/go-newsroom/internal/models"
)

const (
	flashCookieName = "flash_id"
	flashTTL        = 10 * time.Minute
	ctxFlashKey     = "flash"

	FlashSuccess = "success"
	FlashError   = "error"
)

type flashEntry struct {
	messages []models.FlashMessage
	expires  time.Time
}

// FlashStore keeps one-time notices keyed by the flash_id cookie, so anonymous
// visitors (fresh registrations) get them too
type FlashStore struct {
	mu      sync.Mutex
	entries map[string]*flashEntry
}

// NewFlashStore returns an empty store
func NewFlashStore() *FlashStore {
	return &FlashStore{entries: make(map[string]*flashEntry)}
}

// Add queues a message for the next page rendered for this browser
func (fs *FlashStore) Add(c *gin.Context, kind, message string) {
	id := c.GetString(ctxFlashKey)
	if id == "" {
		id, _ = c.Cookie(flashCookieName)
	}
	if uuid.Validate(id) != nil {
		id = uuid.NewString()
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     flashCookieName,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			Secure:   isHTTPS(c),
			SameSite: http.SameSiteLaxMode,
		})
	}
	c.Set(ctxFlashKey, id)

	fs.mu.Lock()
	entry, ok := fs.entries[id]
	if !ok {
		entry = &flashEntry{}
		fs.entries[id] = entry
	}
	entry.messages = append(entry.messages, models.FlashMessage{Type: kind, Message: message})
	entry.expires = time.Now().Add(flashTTL)
	fs.mu.Unlock()
}

// SetFlashSuccess queues a success message
func (fs *FlashStore) SetFlashSuccess(c *gin.Context, message string) {
	fs.Add(c, FlashSuccess, message)
}

// SetFlashError queues an error message
func (fs *FlashStore) SetFlashError(c *gin.Context, message string) {
	fs.Add(c, FlashError, message)
}

// Pop returns and clears the pending messages for this browser
func (fs *FlashStore) Pop(c *gin.Context) []models.FlashMessage {
	id, err := c.Cookie(flashCookieName)
	if err != nil || id == "" {
		return nil
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	entry, ok := fs.entries[id]
	if !ok {
		return nil
	}
	delete(fs.entries, id)
	if time.Now().After(entry.expires) {
		return nil
	}
	return entry.messages
}

// Cleanup drops messages nobody came back for and returns how many entries were removed
func (fs *FlashStore) Cleanup() int {
	now := time.Now()
	fs.mu.Lock()
	defer fs.mu.Unlock()
	removed := 0
	for id, entry := range fs.entries {
		if now.After(entry.expires) {
			delete(fs.entries, id)
			removed++
		}
	}
	return removed
}

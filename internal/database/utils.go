package database

import (
	"os"
	"strings"
	"time"
)

// createDirIfNotExists creates a directory if it doesn't exist
func createDirIfNotExists(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// normalizeEmail lowercases and trims an address so lookups and the unique index agree
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// utcNow returns the current time in UTC.
// sqlite compares timestamps as text, so every stored time must share one zone.
func utcNow() time.Time {
	return time.Now().UTC()
}

// truncateString truncates a string to the specified length
func truncateString(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length]
}

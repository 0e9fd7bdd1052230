package database

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/go-while/go-newsroom/internal/models"
)

// Session security constants
const (
	SessionIDLength  = 64               // 64 character session ID
	SessionTimeout   = 3 * time.Hour    // 3 hour sliding timeout
	MaxLoginAttempts = 5                // Max failed login attempts
	LoginLockoutTime = 15 * time.Minute // Lockout time after max attempts
)

// GenerateSecureSessionID creates a cryptographically secure session ID
func GenerateSecureSessionID() (string, error) {
	bytes := make([]byte, SessionIDLength/2) // hex encoding doubles the length
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure session ID: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// CreateUserSession creates a new session for the user and invalidates any existing session
func (db *Database) CreateUserSession(ctx context.Context, userID int64, remoteIP string) (string, error) {
	sessionID, err := GenerateSecureSessionID()
	if err != nil {
		return "", err
	}

	now := utcNow()
	query := `UPDATE users SET
		session_id = ?,
		last_login_ip = ?,
		session_expires_at = ?,
		login_attempts = 0,
		updated_at = ?
		WHERE id = ?`

	_, err = retryableExec(ctx, db.mainDB, db.rebind(query), sessionID, remoteIP, now.Add(SessionTimeout), now, userID)
	if err != nil {
		return "", fmt.Errorf("failed to create user session: %w", err)
	}

	return sessionID, nil
}

// ValidateUserSession checks if the session is valid and extends expiration
func (db *Database) ValidateUserSession(ctx context.Context, sessionID string) (*models.User, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("empty session ID")
	}

	now := utcNow()
	user, err := db.getUserWhere(ctx, "session_id = ? AND session_expires_at > ?", sessionID, now)
	if err != nil {
		return nil, fmt.Errorf("invalid or expired session")
	}
	if user.SessionExpiresAt == nil || !user.SessionExpiresAt.After(now) {
		return nil, fmt.Errorf("invalid or expired session")
	}

	// Extend session expiration (sliding timeout)
	newExpiresAt := now.Add(SessionTimeout)
	_, err = retryableExec(ctx, db.mainDB, db.rebind(`UPDATE users SET session_expires_at = ?, updated_at = ? WHERE id = ?`),
		newExpiresAt, now, user.ID)
	if err != nil {
		// Log error but don't fail validation
		log.Printf("Warning: Failed to extend session expiration: %v", err)
	}

	user.SessionExpiresAt = &newExpiresAt
	return user, nil
}

// InvalidateUserSession clears the user's session
func (db *Database) InvalidateUserSession(ctx context.Context, userID int64) error {
	query := `UPDATE users SET
		session_id = '',
		session_expires_at = NULL,
		updated_at = ?
		WHERE id = ?`
	_, err := retryableExec(ctx, db.mainDB, db.rebind(query), utcNow(), userID)
	return err
}

// IncrementLoginAttempts increases the failed login counter
func (db *Database) IncrementLoginAttempts(ctx context.Context, email string) error {
	query := `UPDATE users SET
		login_attempts = login_attempts + 1,
		updated_at = ?
		WHERE email = ?`
	_, err := retryableExec(ctx, db.mainDB, db.rebind(query), utcNow(), normalizeEmail(email))
	return err
}

// IsUserLockedOut checks if user is temporarily locked out due to failed attempts
func (db *Database) IsUserLockedOut(ctx context.Context, email string) (bool, error) {
	var attempts int
	var updatedAt time.Time
	err := retryableQueryRowScan(ctx, db.mainDB, db.rebind(`SELECT login_attempts, updated_at FROM users WHERE email = ?`),
		[]interface{}{normalizeEmail(email)}, &attempts, &updatedAt)
	if err != nil {
		return false, err
	}

	if attempts >= MaxLoginAttempts {
		// Check if lockout period has expired
		if time.Now().Before(updatedAt.Add(LoginLockoutTime)) {
			return true, nil // Still locked out
		}
		// Lockout period expired, reset attempts
		if _, err := retryableExec(ctx, db.mainDB, db.rebind(`UPDATE users SET login_attempts = 0, updated_at = ? WHERE email = ?`),
			utcNow(), normalizeEmail(email)); err != nil {
			log.Printf("Warning: Failed to reset login attempts for %s: %v", email, err)
		}
	}

	return false, nil
}

// CleanupExpiredSessions clears expired sessions
func (db *Database) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	now := utcNow()
	query := `UPDATE users SET
		session_id = '',
		session_expires_at = NULL,
		updated_at = ?
		WHERE session_expires_at < ?`

	result, err := retryableExec(ctx, db.mainDB, db.rebind(query), now, now)
	if err != nil {
		return 0, err
	}
	rowsAffected, _ := result.RowsAffected()
	return rowsAffected, nil
}

package database

import (
	"context"
	"database/sql"
	"errors"
)

// GetConfigValue retrieves a configuration value from the config table
func (db *Database) GetConfigValue(ctx context.Context, key string) (string, error) {
	var value string
	err := retryableQueryRowScan(ctx, db.mainDB, db.rebind("SELECT value FROM config WHERE key = ?"), []interface{}{key}, &value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil // Return empty string for missing keys
		}
		return "", err
	}
	return value, nil
}

// SetConfigValue sets or updates a configuration value in the config table
func (db *Database) SetConfigValue(ctx context.Context, key, value string) error {
	_, err := retryableExec(ctx, db.mainDB, db.rebind(`
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`), key, value)
	return err
}

// SetConfigBool sets a boolean configuration value
func (db *Database) SetConfigBool(ctx context.Context, key string, value bool) error {
	stringValue := "false"
	if value {
		stringValue = "true"
	}
	return db.SetConfigValue(ctx, key, stringValue)
}

// IsRegistrationEnabled checks if user registration is enabled
func (db *Database) IsRegistrationEnabled(ctx context.Context) (bool, error) {
	value, err := db.GetConfigValue(ctx, "registration_enabled")
	if err != nil {
		return false, err
	}
	if value == "" {
		return true, nil // Default to enabled
	}
	return value == "true", nil
}

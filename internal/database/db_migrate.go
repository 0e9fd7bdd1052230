package database

import (
	"database/sql"
	"fmt"
	"log"
)

// MigrationType represents the type of database that migrations apply to
type MigrationType string

const (
	MigrationTypeMain MigrationType = "main"
)

// MigrationFile represents a migration file with its metadata
type MigrationFile struct {
	FileName    string
	Version     int
	Type        MigrationType
	Description string
	FilePath    string
}

// Migrate applies all pending migrations of the active driver to the main database
func (db *Database) Migrate() error {
	if err := db.migrateMainDB(); err != nil {
		return fmt.Errorf("failed to migrate main database: %w", err)
	}
	return nil
}

// ensureMigrationsTable creates the schema_migrations table if it doesn't exist
func ensureMigrationsTable(conn *sql.DB, dbType string) error {
	_, err := conn.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT NOT NULL PRIMARY KEY,
		db_type TEXT NOT NULL DEFAULT '',
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table for %s: %w", dbType, err)
	}
	return nil
}

// getAppliedMigrations returns a map of applied migration filenames for a specific database
func (db *Database) getAppliedMigrations(dbType string) (map[string]bool, error) {
	applied := make(map[string]bool)

	rows, err := db.mainDB.Query(db.rebind(`SELECT filename FROM schema_migrations WHERE db_type = ? OR db_type = ''`), dbType)
	if err != nil {
		log.Printf("Failed to query applied migrations for %s: %v", dbType, err)
		return nil, fmt.Errorf("failed to query applied migrations for %s: %w", dbType, err)
	}
	defer rows.Close()

	for rows.Next() {
		var fname string
		if err := rows.Scan(&fname); err != nil {
			return nil, fmt.Errorf("failed to scan migration filename for %s: %w", dbType, err)
		}
		applied[fname] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating migration rows for %s: %w", dbType, err)
	}

	return applied, nil
}

// applyMigration applies a single migration and records it in one transaction
func (db *Database) applyMigration(migration *MigrationFile, dbType string) error {
	content, err := readEmbeddedMigrationContent(migration)
	if err != nil {
		log.Printf("Failed to read migration file %s: %v", migration.FilePath, err)
		return err
	}

	tx, err := db.mainDB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin migration %s: %w", migration.FileName, err)
	}

	if _, err := tx.Exec(content); err != nil {
		tx.Rollback()
		log.Printf("Failed to execute migration %s for %s: %v", migration.FileName, dbType, err)
		return fmt.Errorf("failed to execute migration %s for %s: %w", migration.FileName, dbType, err)
	}

	// Record the migration as applied
	_, err = tx.Exec(db.rebind(`INSERT INTO schema_migrations (filename, db_type) VALUES (?, ?)`), migration.FileName, dbType)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record migration %s for %s: %w", migration.FileName, dbType, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", migration.FileName, err)
	}
	log.Printf("[DATABASE]: applied migration %s", migration.FileName)
	return nil
}

// migrateMainDB applies migrations to the main database
func (db *Database) migrateMainDB() error {
	// Ensure migrations table exists
	if err := ensureMigrationsTable(db.mainDB, "main"); err != nil {
		log.Printf("Failed to ensure migrations table for main database: %v", err)
		return err
	}

	migrations, err := getEmbeddedMigrationFiles(db.driver)
	if err != nil {
		log.Printf("Failed to get migration files: %v", err)
		return err
	}

	applied, err := db.getAppliedMigrations("main")
	if err != nil {
		log.Printf("Failed to get applied migrations for main database: %v", err)
		return err
	}

	for _, migration := range migrations {
		if migration.Type == MigrationTypeMain && !applied[migration.FileName] {
			if err := db.applyMigration(migration, "main"); err != nil {
				log.Printf("Failed to apply migration %s to main database: %v", migration.FileName, err)
				return err
			}
		}
	}

	return nil
}

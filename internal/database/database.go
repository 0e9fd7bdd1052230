// Package database provides database abstraction and management for go-newsroom
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/mattn/go-sqlite3"       // SQLite3 driver
)

// Supported database/sql driver names
const (
	DriverSQLite3  = "sqlite3"
	DriverPostgres = "pgx"
)

var (
	// ErrNotFound is returned by lookups that matched no row
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEmail is returned when a user with the same email already exists
	ErrDuplicateEmail = errors.New("email already registered")
)

// Database represents the main database connection
type Database struct {
	mainDB *sql.DB
	driver string

	// Database configuration
	dbconfig *DBConfig

	MainMutex sync.RWMutex
	StopChan  chan struct{} // Channel to signal shutdown
	stopOnce  sync.Once
}

// DBConfig represents database configuration
type DBConfig struct {
	Driver string // sqlite3 or pgx
	DSN    string // connection string, pgx only

	// Directory to store database files (sqlite3)
	DataDir string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// Performance settings (sqlite3)
	WALMode   bool   // Write-Ahead Logging
	SyncMode  string // OFF, NORMAL, FULL
	CacheSize int    // KB
	TempStore string // MEMORY, FILE
}

// DefaultDBConfig returns default database configuration
func DefaultDBConfig() (dbconfig *DBConfig) {
	return &DBConfig{
		Driver:          DriverSQLite3,
		DataDir:         "./data",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 0, // Unlimited for SQLite - connections don't need to be recycled
		WALMode:         true,
		SyncMode:        "NORMAL",
		CacheSize:       -16384, // -16384 == 1024 KB * 16384 = 16MB cache
		TempStore:       "MEMORY",
	}
}

// OpenDatabase opens the main database and applies all pending migrations
func OpenDatabase(dbconfig *DBConfig) (*Database, error) {
	if dbconfig == nil {
		dbconfig = DefaultDBConfig()
	}
	if dbconfig.Driver == "" {
		dbconfig.Driver = DriverSQLite3
	}

	db := &Database{
		dbconfig: dbconfig,
		driver:   dbconfig.Driver,
		StopChan: make(chan struct{}),
	}

	if err := db.initMainDB(); err != nil {
		return nil, fmt.Errorf("failed to initialize main database: %w", err)
	}

	// Run migrations to ensure all tables exist
	if err := db.Migrate(); err != nil {
		db.mainDB.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	log.Printf("[DATABASE]: initialized driver=%s datadir=%s", db.driver, dbconfig.DataDir)
	return db, nil
}

// Driver returns the database/sql driver name in use
func (db *Database) Driver() string {
	return db.driver
}

// IsDBshutdown reports whether Shutdown has been called
func (db *Database) IsDBshutdown() bool {
	if db == nil {
		return true
	}
	select {
	case <-db.StopChan:
		return true
	default:
		return false
	}
}

// Shutdown closes the database connection
func (db *Database) Shutdown() error {
	var err error
	db.stopOnce.Do(func() {
		close(db.StopChan)
		db.MainMutex.Lock()
		defer db.MainMutex.Unlock()
		if db.mainDB != nil {
			err = db.mainDB.Close()
		}
		log.Printf("[DATABASE]: shutdown complete")
	})
	return err
}

// initMainDB initializes the main database connection
func (db *Database) initMainDB() error {
	var dsn string
	switch db.driver {
	case DriverSQLite3:
		if err := createDirIfNotExists(filepath.Join(db.dbconfig.DataDir, "cfg")); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
		dbPath := filepath.Join(db.dbconfig.DataDir, "cfg", "newsroom.sq3")
		log.Printf("[DATABASE]: Initializing main database at: %s", dbPath)
		dsn = sqliteDSN(dbPath, db.dbconfig)
	case DriverPostgres:
		if db.dbconfig.DSN == "" {
			return errors.New("pgx driver selected but no DSN given")
		}
		dsn = db.dbconfig.DSN
	default:
		return fmt.Errorf("unsupported database driver %q", db.driver)
	}

	mainDB, err := sql.Open(db.driver, dsn)
	if err != nil {
		return fmt.Errorf("failed to open main database: %w", err)
	}

	// Configure connection pool
	mainDB.SetMaxOpenConns(db.dbconfig.MaxOpenConns)
	mainDB.SetMaxIdleConns(db.dbconfig.MaxIdleConns)
	mainDB.SetConnMaxLifetime(db.dbconfig.ConnMaxLifetime)

	// Test connection
	if err := mainDB.Ping(); err != nil {
		if cerr := mainDB.Close(); cerr != nil {
			return fmt.Errorf("failed to ping main database: %w; also failed to close mainDB: %v", err, cerr)
		}
		return fmt.Errorf("failed to ping main database: %w", err)
	}

	if db.driver == DriverSQLite3 {
		if err := db.applySQLitePragmas(mainDB); err != nil {
			if cerr := mainDB.Close(); cerr != nil {
				return fmt.Errorf("failed to apply SQLite pragmas: %w; also failed to close mainDB: %v", err, cerr)
			}
			return fmt.Errorf("failed to apply SQLite pragmas: %w", err)
		}
	}

	db.mainDB = mainDB
	return nil
}

// sqliteDSN builds a file: URI carrying the per-connection pragmas.
// foreign_keys and busy_timeout must hold on every pooled connection, not only the first.
func sqliteDSN(path string, cfg *DBConfig) string {
	params := url.Values{}
	params.Set("_foreign_keys", "on")
	params.Set("_busy_timeout", "30000")
	if cfg.WALMode {
		params.Set("_journal_mode", "WAL")
	}
	if cfg.SyncMode != "" {
		params.Set("_synchronous", cfg.SyncMode)
	}
	return "file:" + path + "?" + params.Encode()
}

// applySQLitePragmas applies performance pragmas that are not expressible in the DSN
func (db *Database) applySQLitePragmas(conn *sql.DB) error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA cache_size = %d", db.dbconfig.CacheSize),
		fmt.Sprintf("PRAGMA temp_store = %s", db.dbconfig.TempStore),
		"PRAGMA mmap_size = 0",
	}
	if db.dbconfig.WALMode {
		pragmas = append(pragmas, "PRAGMA wal_autocheckpoint = 1000")
	}

	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute pragma '%s': %w", pragma, err)
		}
	}
	return nil
}

// rebind rewrites '?' placeholders outside string literals into '$N' for the postgres driver
func (db *Database) rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	quoted := false
	for i := 0; i < len(query); i++ {
		if query[i] == '\'' {
			quoted = !quoted
		}
		if query[i] == '?' && !quoted {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteByte(query[i])
	}
	return sb.String()
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure on either driver
func isUniqueViolation(err error) bool {
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) {
		return sqErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

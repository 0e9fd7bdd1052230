package database

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
)

//go:embed migrations
var EmbeddedMigrationsFS embed.FS

// Global migration cache for embedded files, keyed by driver
var (
	embeddedMigrationCache    = make(map[string][]*MigrationFile)
	embeddedMigrationCacheMux sync.RWMutex
)

// getEmbeddedMigrationFiles reads and parses all migration files of one driver from the embedded filesystem
func getEmbeddedMigrationFiles(driver string) ([]*MigrationFile, error) {
	// Check the cache first
	embeddedMigrationCacheMux.RLock()
	if cached, ok := embeddedMigrationCache[driver]; ok {
		// Return a copy of the cached slice to avoid concurrent access issues
		cachedMigrations := make([]*MigrationFile, len(cached))
		copy(cachedMigrations, cached)
		embeddedMigrationCacheMux.RUnlock()
		return cachedMigrations, nil
	}
	embeddedMigrationCacheMux.RUnlock()

	dir := path.Join("migrations", driver)
	files, err := fs.ReadDir(EmbeddedMigrationsFS, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded migrations directory %s: %w", dir, err)
	}

	var migrations []*MigrationFile
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".sql") {
			continue
		}

		migration, err := parseMigrationFileName(f.Name())
		if err != nil {
			// Log warning but continue with other migrations
			fmt.Printf("Warning: skipping invalid embedded migration file %s: %v\n", f.Name(), err)
			continue
		}
		migration.FilePath = path.Join(dir, f.Name())
		migrations = append(migrations, migration)
	}

	// Sort by version number
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	// Update the cache
	embeddedMigrationCacheMux.Lock()
	embeddedMigrationCache[driver] = migrations
	embeddedMigrationCacheMux.Unlock()

	return migrations, nil
}

// parseMigrationFileName parses a migration file name (NNNN_type_description.sql) to extract metadata
func parseMigrationFileName(fileName string) (*MigrationFile, error) {
	if !strings.HasSuffix(fileName, ".sql") {
		return nil, fmt.Errorf("migration file must have .sql extension: %s", fileName)
	}
	// Remove .sql extension
	name := strings.TrimSuffix(fileName, ".sql")
	parts := strings.SplitN(name, "_", 3)

	if len(parts) < 3 {
		return nil, fmt.Errorf("invalid migration file name format: %s (expected format: 0001_type_description.sql)", fileName)
	}

	// Parse version number
	version, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid version number in migration file: %s", fileName)
	}

	var migrationType MigrationType
	switch parts[1] {
	case "main":
		migrationType = MigrationTypeMain
	default:
		return nil, fmt.Errorf("unknown migration type in filename %s: %s", fileName, parts[1])
	}

	return &MigrationFile{
		FileName:    fileName,
		Version:     version,
		Type:        migrationType,
		Description: parts[2],
	}, nil
}

// readEmbeddedMigrationContent reads the content of an embedded migration file
func readEmbeddedMigrationContent(migration *MigrationFile) (string, error) {
	content, err := fs.ReadFile(EmbeddedMigrationsFS, migration.FilePath)
	if err != nil {
		return "", fmt.Errorf("failed to read embedded migration file %s: %w", migration.FilePath, err)
	}
	return string(content), nil
}

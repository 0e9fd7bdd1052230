// Package config provides configuration management for go-newsroom.
package config

import (
	"log"
	"time"
)

var AppVersion = "-unset-" // will be set at build time

const (
	// Default web settings
	DefaultWebPort       = 11980
	DefaultMaxUploadSize = 8 << 20 // 8 MB multipart memory/size limit
	DefaultRateLimitRPS  = 2.0     // POST requests per second per client
	DefaultRateBurst     = 10

	// Default storage settings
	DefaultDataDir         = "./data"
	DefaultImagesDirectory = "./data/uploads/images"
	DefaultDBDriver        = "sqlite3"

	// Session settings
	SessionCleanupInterval = 15 * time.Minute
)

// MainConfig holds the main configuration for go-newsroom
type MainConfig struct {
	// Web interface settings
	Web *WebConfig `json:"web"`

	// Database settings
	Database DatabaseConfig `json:"database"`

	// Upload settings
	Uploads UploadConfig `json:"uploads"`

	AppVersion string `json:"app_version"` // Application version, set at build time
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver  string `json:"driver"`   // sqlite3 or pgx
	DSN     string `json:"dsn"`      // only used by pgx
	DataDir string `json:"data_dir"` // sqlite3 files live below DataDir/cfg/
}

// UploadConfig holds the file storage settings for featured images
type UploadConfig struct {
	ImagesDirectory string `json:"images_directory"`
	MaxUploadSize   int64  `json:"max_upload_size"`
	URLPrefix       string `json:"url_prefix"` // public path the images directory is served under
}

// WebConfig holds web interface configuration
type WebConfig struct {
	ListenPort   int     `json:"listen_port"`
	SSL          bool    `json:"ssl"`
	CertFile     string  `json:"cert_file,omitempty"`
	KeyFile      string  `json:"key_file,omitempty"`
	AccessLog    bool    `json:"access_log"`     // apache style access log instead of gin's default
	RateLimitRPS float64 `json:"rate_limit_rps"` // 0 disables the POST rate limiter
	RateBurst    int     `json:"rate_burst"`
	Debug        bool    `json:"debug"` // Enable debug logging for sessions/auth
}

// NewDefaultConfig returns a configuration with sensible defaults
func NewDefaultConfig() *MainConfig {
	maincfg := &MainConfig{
		AppVersion: AppVersion,
		Web: &WebConfig{
			ListenPort:   DefaultWebPort,
			SSL:          false,
			RateLimitRPS: DefaultRateLimitRPS,
			RateBurst:    DefaultRateBurst,
		},
		Database: DatabaseConfig{
			Driver:  DefaultDBDriver,
			DataDir: DefaultDataDir,
		},
		Uploads: UploadConfig{
			ImagesDirectory: DefaultImagesDirectory,
			MaxUploadSize:   DefaultMaxUploadSize,
			URLPrefix:       "/uploads/images",
		},
	}

	log.Printf("MainConfig initialized: web port %d, db driver %s, images %s",
		maincfg.Web.ListenPort, maincfg.Database.Driver, maincfg.Uploads.ImagesDirectory)
	return maincfg
}

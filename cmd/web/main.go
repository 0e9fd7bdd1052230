// Web server for go-newsroom
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	prof "github.com/go-while/go-cpu-mem-profiler"
	"github.com/go-while/go-newsroom/internal/config"
	"github.com/go-while/go-newsroom/internal/database"
	"github.com/go-while/go-newsroom/internal/web"
)

var Prof *prof.Profiler

var (
	// command-line flags
	webport     int
	webssl      bool
	webcertFile string
	webkeyFile  string
	dataDir     string
	dbDriver    string
	dbDSN       string
	imagesDir   string
	maxUpload   int64
	rateLimit   float64
	rateBurst   int
	accessLog   bool
	debug       bool
	pprofAddr   string
)

var appVersion = "-unset-"

func main() {
	config.AppVersion = appVersion
	mainConfig := config.NewDefaultConfig()

	flag.IntVar(&webport, "webport", 0, "Web server port (default: 11980)")
	flag.BoolVar(&webssl, "webssl", false, "Enable SSL")
	flag.StringVar(&webcertFile, "websslcert", "", "SSL certificate file (/path/to/fullchain.pem)")
	flag.StringVar(&webkeyFile, "websslkey", "", "SSL key file (/path/to/privkey.pem)")
	flag.StringVar(&dataDir, "data", config.DefaultDataDir, "Directory to store sqlite3 database files")
	flag.StringVar(&dbDriver, "dbdriver", config.DefaultDBDriver, "Database driver: sqlite3 or pgx")
	flag.StringVar(&dbDSN, "dsn", "", "Postgres connection string (pgx only, or env NEWSROOM_DSN)")
	flag.StringVar(&imagesDir, "images", config.DefaultImagesDirectory, "Directory to store uploaded featured images")
	flag.Int64Var(&maxUpload, "maxupload", config.DefaultMaxUploadSize, "Maximum featured image size in bytes")
	flag.Float64Var(&rateLimit, "ratelimit", config.DefaultRateLimitRPS, "Form submissions per second per client (0 disables)")
	flag.IntVar(&rateBurst, "rateburst", config.DefaultRateBurst, "Burst of form submissions per client")
	flag.BoolVar(&accessLog, "accesslog", false, "Apache style access log")
	flag.BoolVar(&debug, "debug", false, "Gin debug mode")
	flag.StringVar(&pprofAddr, "pprof", "", "Serve pprof on this address (e.g. :51111)")
	flag.Parse()

	log.Printf("Starting go-newsroom: Web Server (version: %s)", appVersion)

	if pprofAddr != "" {
		Prof = prof.NewProf()
		go Prof.PprofWeb(pprofAddr)
	}

	webConfig := mainConfig.Web
	if webport > 0 {
		webConfig.ListenPort = webport
		log.Printf("[WEB]: Overriding listen port with command-line flag: %d", webConfig.ListenPort)
	}
	if webssl {
		webConfig.SSL = true
		webConfig.CertFile = webcertFile
		webConfig.KeyFile = webkeyFile
		log.Printf("[WEB]: SSL enabled via command-line flag cert=%s key=%s", webcertFile, webkeyFile)
	}
	webConfig.AccessLog = accessLog
	webConfig.RateLimitRPS = rateLimit
	webConfig.RateBurst = rateBurst
	webConfig.Debug = debug

	if webConfig.ListenPort < 1024 || webConfig.ListenPort > 65535 {
		log.Fatalf("[WEB]: Invalid port number: %d (must be between 1024 and 65535)", webConfig.ListenPort)
	}
	if maxUpload <= 0 {
		log.Fatalf("[WEB]: Invalid -maxupload %d", maxUpload)
	}

	if dbDSN == "" {
		dbDSN = os.Getenv("NEWSROOM_DSN")
	}
	mainConfig.Database = config.DatabaseConfig{Driver: dbDriver, DSN: dbDSN, DataDir: dataDir}
	mainConfig.Uploads.ImagesDirectory = imagesDir
	mainConfig.Uploads.MaxUploadSize = maxUpload

	dbConfig := database.DefaultDBConfig()
	dbConfig.Driver = mainConfig.Database.Driver
	dbConfig.DSN = mainConfig.Database.DSN
	dbConfig.DataDir = mainConfig.Database.DataDir

	db, err := database.OpenDatabase(dbConfig)
	if err != nil {
		log.Fatalf("[WEB]: Failed to initialize database: %v", err)
	}

	log.Printf("[WEB]: Database driver %s ready", db.Driver())
	server := web.NewServer(db, mainConfig)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	server.StartSessionCleanup(ctx, config.SessionCleanupInterval)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	webServerErrChan := make(chan error, 1)
	go func() {
		webServerErrChan <- server.Start()
	}()
	log.Printf("[WEB]: Server started successfully. Press Ctrl+C to gracefully shutdown...")

	select {
	case <-sigChan:
		log.Printf("[WEB]: Received shutdown signal, initiating graceful shutdown...")
	case err := <-webServerErrChan:
		if err != nil {
			log.Printf("[WEB]: Web server failed: %v", err)
		}
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[WEB]: Error stopping web server: %v", err)
	}

	if err := db.Shutdown(); err != nil {
		log.Fatalf("[WEB]: Failed to shutdown database: %v", err)
	}
	log.Printf("[WEB]: Graceful shutdown completed")
}

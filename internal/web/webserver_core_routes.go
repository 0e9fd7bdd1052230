// Package web provides the HTTP server and web interface for go-newsroom
package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"

	"github.com/go-while/go-newsroom/internal/config"
	"github.com/go-while/go-newsroom/internal/database"
	"github.com/go-while/go-newsroom/internal/forms"
	"github.com/go-while/go-newsroom/internal/models"
	"github.com/go-while/go-newsroom/internal/newsroom"
	"github.com/go-while/go-newsroom/internal/upload"
)

// room for the text fields next to the featured image
const formOverhead = 1 << 20

// WebServer represents the web server
type WebServer struct {
	DB        *database.Database
	Router    *gin.Engine
	Config    *config.WebConfig
	Uploads   config.UploadConfig
	Newsroom  *newsroom.Service
	Flash     *FlashStore

	limiter   *RateLimiter
	templates *templateSet
	httpSrv   *http.Server
}

// TemplateData represents common template data
type TemplateData struct {
	Title               string
	CurrentTime         string
	AppVersion          string
	User                *models.User
	IsJournalist        bool
	IsAdmin             bool
	RegistrationEnabled bool
	Flashes             []models.FlashMessage
	Categories          []*models.Category // For global navigation
}

// NewServer creates a new web server instance
func NewServer(db *database.Database, mainConfig *config.MainConfig) *WebServer {
	webconfig := mainConfig.Web

	// Tests pick their own mode
	if gin.Mode() != gin.TestMode && !webconfig.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if gin.Mode() != gin.TestMode {
		if webconfig.AccessLog {
			router.Use(ApacheLogFormat())
		} else {
			router.Use(gin.Logger())
		}
	}
	router.MaxMultipartMemory = mainConfig.Uploads.MaxUploadSize

	// Configure Gin to trust reverse proxy headers
	// Set trusted proxies for common reverse proxy setups (nginx, etc.)
	router.SetTrustedProxies([]string{"127.0.0.1", "::1", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"})

	// Configure security headers based on SSL setup
	secureConfig := secure.Config{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'; img-src 'self' data:; style-src 'self'",
	}

	// Only add SSL-specific headers if SSL is enabled on the application itself
	// (not when running behind a reverse proxy like nginx with SSL)
	if webconfig.SSL {
		secureConfig.SSLRedirect = true
		secureConfig.STSSeconds = 31536000
		secureConfig.STSIncludeSubdomains = true
	}
	router.Use(secure.New(secureConfig))

	files := upload.NewStorage(mainConfig.Uploads.ImagesDirectory)
	server := &WebServer{
		DB:        db,
		Router:    router,
		Config:    webconfig,
		Uploads:   mainConfig.Uploads,
		Newsroom:  newsroom.NewService(db, db, db, files),
		Flash:     NewFlashStore(),
		limiter:   NewRateLimiter(webconfig.RateLimitRPS, webconfig.RateBurst),
		templates: mustParseTemplates(),
	}

	// Add reverse proxy middleware for handling X-Forwarded headers
	router.Use(server.ReverseProxyMiddleware())

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (s *WebServer) setupRoutes() {
	// Static files first (highest priority)
	s.Router.GET("/static/*filepath", EmbeddedStaticHandler("/static"))
	s.Router.Static(s.Uploads.URLPrefix, s.Uploads.ImagesDirectory)

	s.Router.GET("/robots.txt", func(c *gin.Context) {
		c.String(http.StatusOK, "User-agent: *\nDisallow: /membre/\nDisallow: /article/\n")
	})
	s.Router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	// Authentication routes
	s.Router.GET("/login", s.loginPage)
	s.Router.POST("/login", s.limiter.Middleware(), s.loginSubmit)
	s.Router.GET("/logout", s.logout)

	// Registration is open to anonymous visitors
	s.Router.GET(forms.RegistrationAction, s.registerPage)
	s.Router.POST(forms.RegistrationAction, s.limiter.Middleware(), s.registerPage)

	// Article creation is restricted to journalists
	journalist := s.Router.Group("/article")
	journalist.Use(s.WebRoleRequired(models.RoleJournalist))
	{
		journalist.GET("/creer-un-article", s.articleCreatePage)
		journalist.POST("/creer-un-article", s.limiter.Middleware(), s.MaxBodySize(s.Uploads.MaxUploadSize+formOverhead), s.articleCreatePage)
	}

	// Site administration
	admin := s.Router.Group("/admin")
	admin.Use(s.WebRoleRequired(models.RoleAdmin))
	{
		admin.POST("/registration/enable", s.adminSetRegistration(true))
		admin.POST("/registration/disable", s.adminSetRegistration(false))
	}

	s.Router.GET("/", s.homePage)

	// Dynamic category routes (lower priority)
	s.Router.GET("/:category", s.categoryPage)
	s.Router.GET("/:category/:alias/:id", s.articlePage)

	s.Router.NoRoute(func(c *gin.Context) {
		s.renderError(c, http.StatusNotFound, "Page introuvable", c.Request.URL.Path)
	})
}

// Start starts the web server with SSL support if configured. It blocks until Shutdown.
func (s *WebServer) Start() error {
	addr := ":" + strconv.Itoa(s.Config.ListenPort)
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	var err error
	if s.Config.SSL {
		if s.Config.CertFile == "" || s.Config.KeyFile == "" {
			return errors.New("SSL enabled but cert_file or key_file not specified in config")
		}
		log.Printf("[WEB]: Starting HTTPS server on %s", addr)
		err = s.httpSrv.ListenAndServeTLS(s.Config.CertFile, s.Config.KeyFile)
	} else {
		log.Printf("[WEB]: Starting HTTP server on %s", addr)
		err = s.httpSrv.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx ends
func (s *WebServer) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// ReverseProxyMiddleware handles X-Forwarded headers when running behind a reverse proxy
func (s *WebServer) ReverseProxyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Handle X-Forwarded-Proto to detect if the original request was HTTPS
		if proto := c.GetHeader("X-Forwarded-Proto"); proto == "https" {
			c.Request.URL.Scheme = "https"
		}

		// Handle X-Forwarded-Host to get the original host
		if host := c.GetHeader("X-Forwarded-Host"); host != "" {
			c.Request.Host = host
		}

		c.Next()
	}
}

// MaxBodySize caps the request body; larger uploads fail while parsing the form
func (s *WebServer) MaxBodySize(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

// ApacheLogFormat logs requests in the apache combined log format
func ApacheLogFormat() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf(`%s - - [%s] "%s %s %s" %d %d "%s" "%s"`+"\n",
			param.ClientIP,
			param.TimeStamp.Format("02/Jan/2006:15:04:05 -0700"),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.BodySize,
			param.Request.Referer(),
			strings.ReplaceAll(param.Request.UserAgent(), `"`, `'`),
		)
	})
}

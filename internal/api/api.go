package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/glefebvre/iptvplayer/internal/catalog"
	"github.com/glefebvre/iptvplayer/internal/circuitbreaker"
	"github.com/glefebvre/iptvplayer/internal/logger"
	"github.com/glefebvre/iptvplayer/internal/store"
	"gorm.io/gorm"
)

// Options wires the server to the content core
type Options struct {
	Catalog  *catalog.Service
	Store    store.AccountStore
	DB       *gorm.DB
	Breakers *circuitbreaker.Registry

	// Locale drives the az sort order
	Locale         string
	AllowedOrigins []string
	Logger         *logger.Logger
}

// Server represents the API server
type Server struct {
	router   *gin.Engine
	catalog  *catalog.Service
	store    store.AccountStore
	db       *gorm.DB
	breakers *circuitbreaker.Registry
	locale   string
	logger   *logger.Logger
}

// NewServer creates a new API server instance
func NewServer(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logger.AppLogger()
	}

	router := gin.New()

	s := &Server{
		router:   router,
		catalog:  opts.Catalog,
		store:    opts.Store,
		db:       opts.DB,
		breakers: opts.Breakers,
		locale:   opts.Locale,
		logger:   log.Named("api"),
	}

	router.Use(requestIDMiddleware())
	router.Use(errorHandlerMiddleware(s.logger))
	router.Use(requestLogMiddleware(s.logger))
	router.Use(corsMiddleware(opts.AllowedOrigins))

	s.setupRoutes()

	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// HTTPServer returns an http.Server bound to port, ready for
// ListenAndServe and graceful Shutdown
func (s *Server) HTTPServer(port int) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		return cors.Default()
	}
	return cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        12 * time.Hour,
	})
}

func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.GET("/health", s.healthCheck)

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		// Saved accounts
		v1.GET("/accounts", s.listAccounts)
		v1.POST("/accounts", s.createAccount)
		v1.POST("/accounts/test", s.testAccount)
		v1.DELETE("/accounts/:id", s.deleteAccount)
		v1.GET("/accounts/:id/info", s.accountInfo)

		// Selected account
		v1.GET("/current", s.getCurrent)
		v1.PUT("/current", s.setCurrent)

		// Content of the selected account, or of ?account_id=
		v1.GET("/live", s.listLive)
		v1.GET("/movies", s.listMovies)
		v1.GET("/series", s.listSeries)
		v1.GET("/series/:id", s.getSeries)
		v1.GET("/categories/:kind", s.listCategories)
		v1.GET("/counts", s.contentCounts)
	}
}

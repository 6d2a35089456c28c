// Package server exposes the resolution and delivery pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/guiyumin/mediahub/internal/core/config"
	"github.com/guiyumin/mediahub/internal/core/delivery"
	"github.com/guiyumin/mediahub/internal/core/logging"
	"github.com/guiyumin/mediahub/internal/core/media"
	"github.com/guiyumin/mediahub/internal/core/provider"
	"github.com/guiyumin/mediahub/internal/stats"
	"github.com/rs/zerolog"
)

// InfoResolver resolves a media URL into its description.
type InfoResolver interface {
	Resolve(ctx context.Context, raw string) (*media.MediaInfo, error)
}

// Deliverer turns a download request into a redirect or a byte stream.
type Deliverer interface {
	Deliver(ctx context.Context, req delivery.Request) (*delivery.Result, error)
}

// Options holds the HTTP level settings.
type Options struct {
	Port                 int
	MaxConcurrentStreams int
	RateLimitRPS         float64
	RateLimitBurst       int
	ReadTimeout          time.Duration
	APIKey               string
}

// OptionsFromConfig maps the server config section onto Options.
func OptionsFromConfig(cfg config.ServerConfig) Options {
	return Options{
		Port:                 cfg.Port,
		MaxConcurrentStreams: cfg.MaxConcurrentStreams,
		RateLimitRPS:         cfg.RateLimitRPS,
		RateLimitBurst:       cfg.RateLimitBurst,
		ReadTimeout:          time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		APIKey:               cfg.APIKey,
	}
}

// Deps are the pipeline components the handlers call into.
type Deps struct {
	Resolver InfoResolver
	Streamer Deliverer
	Stats    stats.Sink
	// Providers reports provider availability for /api/health. Optional.
	Providers func() []provider.Status
}

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Code    media.Code `json:"code"`
	Message string     `json:"message"`
}

// Server is the HTTP server for mediahub
type Server struct {
	opts      Options
	deps      Deps
	log       zerolog.Logger
	transfers *TransferTracker
	streams   chan struct{}
	limiter   *ipLimiter
	engine    *gin.Engine
	server    *http.Server
}

// NewServer creates a new HTTP server and builds its routes
func NewServer(opts Options, deps Deps, log zerolog.Logger) *Server {
	if opts.MaxConcurrentStreams <= 0 {
		opts.MaxConcurrentStreams = 8
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 30 * time.Second
	}

	s := &Server{
		opts:      opts,
		deps:      deps,
		log:       logging.Component(log, "server"),
		transfers: NewTransferTracker(time.Hour),
		streams:   make(chan struct{}, opts.MaxConcurrentStreams),
	}
	if opts.RateLimitRPS > 0 {
		s.limiter = newIPLimiter(opts.RateLimitRPS, opts.RateLimitBurst)
	}
	s.engine = s.routes()
	return s
}

type rawWriterKey struct{}

// Handler returns the root handler. The unwrapped ResponseWriter is kept in
// the request context so a failed stream can drop the connection.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), rawWriterKey{}, w)
		s.engine.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Transfers exposes the transfer tracker
func (s *Server) Transfers() *TransferTracker {
	return s.transfers
}

func (s *Server) routes() *gin.Engine {
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(s.requestContext())
	engine.Use(corsMiddleware())
	if s.limiter != nil {
		engine.Use(s.rateLimitMiddleware())
	}

	api := engine.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/info", s.handleInfo)
	api.GET("/fetch-info", s.handleInfo)
	api.GET("/download", s.handleDownload)
	api.POST("/download", s.handleDownload)
	api.POST("/record-ad-view", s.handleRecordAdView)
	api.GET("/charity/stats", s.handleCharityStats)

	protected := api.Group("/transfers")
	if s.opts.APIKey != "" {
		protected.Use(s.authMiddleware())
	}
	protected.GET("", s.handleGetTransfers)
	protected.DELETE("/:id", s.handleDeleteTransfer)

	engine.NoRoute(func(c *gin.Context) {
		s.abortWithError(c, media.NewError(media.CodeNotFound, "not found"))
	})

	return engine
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.transfers.Start()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.opts.Port),
		Handler:      s.Handler(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: 0, // No timeout for streamed downloads
		IdleTimeout:  120 * time.Second,
	}

	s.log.Info().
		Int("port", s.opts.Port).
		Int("max_concurrent_streams", s.opts.MaxConcurrentStreams).
		Bool("api_key", s.opts.APIKey != "").
		Msg("starting mediahub server")

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	s.transfers.Stop()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Middleware

// requestContext tags each request with an ID and a request-scoped logger
// reachable through the request context.
func (s *Server) requestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)

		log := s.log.With().Str("request_id", id).Logger()
		c.Request = c.Request.WithContext(log.WithContext(c.Request.Context()))

		c.Next()

		ev := log.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			ev = log.Warn()
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Int("bytes", c.Writer.Size()).
			Str("client_ip", c.ClientIP()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}

func corsMiddleware() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:    []string{"Content-Type", "X-API-Key", "X-Request-ID"},
		ExposeHeaders:   []string{"Content-Disposition", "X-Request-ID", "X-Transfer-ID"},
		MaxAge:          12 * time.Hour,
	})
}

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/api/health" {
			c.Next()
			return
		}
		if !s.limiter.allow(c.ClientIP()) {
			s.abortWithError(c, media.NewError(media.CodeRateLimited, "Too many requests, please slow down"))
			return
		}
		c.Next()
	}
}

func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("X-API-Key") != s.opts.APIKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Code:    "UNAUTHORIZED",
				Message: "invalid or missing API key",
			})
			return
		}
		c.Next()
	}
}

// acquireStream takes a streaming slot without waiting.
func (s *Server) acquireStream() bool {
	select {
	case s.streams <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *Server) releaseStream() {
	<-s.streams
}

// abortWithError writes a classified error. Internal detail is logged, never sent.
func (s *Server) abortWithError(c *gin.Context, err error) {
	code := media.CodeOf(err)
	status := media.HTTPStatus(code)

	log := logging.FromContext(c.Request.Context(), s.log)
	ev := log.Debug()
	if status >= http.StatusInternalServerError {
		ev = log.Warn()
	}
	ev.Err(err).Str("code", string(code)).Msg("request failed")

	c.AbortWithStatusJSON(status, ErrorResponse{
		Code:    code,
		Message: media.PublicMessage(err),
	})
}

// Package web provides the HTTP server and handlers for the operations dashboard.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/JonMunkholm/opsboard/internal/config"
	"github.com/JonMunkholm/opsboard/internal/core"
	webmw "github.com/JonMunkholm/opsboard/internal/web/middleware"
	"github.com/JonMunkholm/opsboard/internal/web/templates"
)

//go:embed static
var staticFiles embed.FS

// Options carries the configuration the server needs.
type Options struct {
	Server   config.ServerConfig
	Auth     config.AuthConfig
	Rate     config.RateLimitConfig
	Security config.SecurityConfig
}

// Server is the HTTP server for the dashboard.
type Server struct {
	service *core.Service
	opts    Options
	router  *chi.Mux
	server  *http.Server
	limiter *rateLimiter
}

// NewServer creates a new Server instance.
func NewServer(service *core.Service, opts Options) *Server {
	s := &Server{
		service: service,
		opts:    opts,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	timeout := s.opts.Server.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(webmw.TrustedRealIP(s.opts.Security.TrustedProxies))
	s.router.Use(webmw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5, "text/html", "text/css", "text/plain", "application/json", "text/csv"))
	s.router.Use(middleware.Timeout(timeout))

	// Security hardening
	s.router.Use(s.securityHeaders)
	if len(s.opts.Security.AllowedOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.opts.Security.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "HX-Request", "HX-Target", "HX-Current-URL"},
			ExposedHeaders:   []string{"Content-Disposition", "HX-Redirect"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	if s.opts.Rate.Enabled {
		rpm := s.opts.Rate.RequestsPerMinute
		if rpm <= 0 {
			rpm = 300
		}
		s.limiter = newRateLimiter(rpm, time.Minute)
		s.router.Use(s.limiter.middleware)
	}

	s.router.Use(requestMetadata)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/api/ui-config", s.handleUIConfig)
	s.router.Post("/api/password/forgot", s.handleForgotPassword)
	s.router.Post("/api/password/reset", s.handleResetPassword)

	s.router.Group(func(r chi.Router) {
		r.Use(webmw.Auth(s.opts.Auth, s.handleAuthError))

		// Pages
		r.Get("/", s.handleDashboard)
		r.Get("/screens/{screen}", s.handleScreenView)
		r.Get("/orientation", s.handleOrientationPage)
		r.Get("/audit-log", s.handleAuditLog)

		r.Route("/api", func(r chi.Router) {
			// List screens
			r.Get("/screens", s.handleListScreens)
			r.Get("/screens/{screen}", s.handleScreenData)
			r.Get("/screens/{screen}/export", s.handleExportScreen)
			r.Get("/orders/statistics", s.handleOrderStatistics)

			// Edit forms
			r.Get("/forms/{form}/{id}", s.handleGetForm)
			r.Post("/forms/{form}/{id}/diff", s.handleFormDiff)
			r.Patch("/forms/{form}/{id}", s.handleSaveForm)

			// Operating hours
			r.Get("/hours", s.handleListHours)
			r.Put("/hours/{id}", s.handleUpdateHours)

			// Payment methods
			r.Get("/payment/methods", s.handleListPaymentMethods)
			r.Post("/payment/setup-intent", s.handleCreateSetupIntent)
			r.Delete("/payment/methods/{id}", s.handleDeletePaymentMethod)

			// Orientation
			r.Get("/orientation", s.handleOrientation)
			r.Post("/orientation/{step}/start", s.handleStartOrientation)
			r.Post("/orientation/{step}/complete", s.handleCompleteOrientation)

			// Coverage map
			r.Get("/coverage", s.handleCoverage)
			r.Get("/coverage/map.png", s.handleCoveragePNG)
			r.Get("/coverage/zips.txt", s.handleCoverageZIPs)

			// Audit log
			r.Get("/audit-log", s.handleAuditLogJSON)
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	cfg := s.opts.Server
	s.server = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	slog.Info("starting server", "addr", cfg.Addr())
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if s.opts.Security.EnableCSP {
			// Map tiles and htmx come from their CDNs.
			w.Header().Set("Content-Security-Policy",
				"default-src 'self'; script-src 'self' https://unpkg.com; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:; font-src 'self'")
		}
		next.ServeHTTP(w, r)
	})
}

var errRateLimited = errors.New("rate limit exceeded")

// rateLimiter implements a fixed-window rate limiter per IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // requests per window
	window   time.Duration // time window
	stop     chan struct{}
	once     sync.Once
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// newRateLimiter creates a rate limiter with the specified rate per window.
func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		stop:     make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// cleanup removes stale visitor entries every window until stopped.
func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, v := range rl.visitors {
				if time.Since(v.lastReset) > rl.window*2 {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Stop ends the cleanup goroutine.
func (rl *rateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

// allow checks if the request should be allowed and consumes a token if so.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists || time.Since(v.lastReset) > rl.window {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: time.Now()}
		return true
	}
	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

// middleware returns an HTTP middleware that rate limits by IP.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// RemoteAddr was rewritten by TrustedRealIP when behind a proxy.
		if !rl.allow(r.RemoteAddr) {
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			msg := core.MapError(errRateLimited)
			respondErrorJSON(w, msg, nil, http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

// navLinks builds the sidebar with the current page marked.
func (s *Server) navLinks(active string) []templates.NavLink {
	links := []templates.NavLink{{Group: "Overview", Label: "Dashboard", Href: "/", Active: active == "/"}}
	for _, def := range s.service.ListScreens() {
		href := "/screens/" + def.Key
		links = append(links, templates.NavLink{Group: def.Group, Label: def.Label, Href: href, Active: active == href})
	}
	links = append(links,
		templates.NavLink{Group: "Drivers", Label: "Orientation", Href: "/orientation", Active: active == "/orientation"},
		templates.NavLink{Group: "Admin", Label: "Audit log", Href: "/audit-log", Active: active == "/audit-log"},
	)
	return links
}

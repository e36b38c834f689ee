package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"futurebank/internal/log"
	"futurebank/internal/middleware/ratelimit"
	"futurebank/internal/middleware/security"
	"futurebank/internal/middleware/trace"
	"futurebank/internal/services"
	appweb "futurebank/web"
)

// Options tunes a Server. Zero values are usable.
type Options struct {
	Logger    *log.Logger
	RateLimit string
	Location  *time.Location
	// ReadTimeout bounds each full ledger read done while serving a page.
	ReadTimeout time.Duration
}

// Server serves the household dashboard and its JSON API.
type Server struct {
	http.Server
	svc         *services.LedgerService
	templates   *template.Template
	logger      *log.Logger
	loc         *time.Location
	readTimeout time.Duration
	started     time.Time

	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and mounts every route.
func NewServer(addr string, svc *services.LedgerService, o Options) (*Server, error) {
	if o.Logger == nil {
		o.Logger = log.New(log.DefaultConfig())
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 10 * time.Second
	}

	t, err := template.New("").Funcs(templateFuncs(o.Location)).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	limiter, err := ratelimit.New(o.RateLimit)
	if err != nil {
		return nil, err
	}

	s := &Server{
		svc:         svc,
		templates:   t,
		logger:      o.Logger.WithComponent(log.ComponentHTTP),
		loc:         o.Location,
		readTimeout: o.ReadTimeout,
		started:     time.Now(),
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(limiter),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(limiter *ratelimit.Limiter) http.Handler {
	r := chi.NewRouter()

	r.Use(trace.Middleware(s.logger, security.ClientIP))
	r.Use(log.Middleware(s.logger, trace.FromRequest))
	r.Use(middleware.Recoverer)
	r.Use(security.Headers(security.DefaultHeadersConfig()))

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.Handle("/static/*", security.StaticAssets(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", s.handleDashboard)

	r.Group(func(r chi.Router) {
		r.Use(limiter.Middleware(security.ClientIP))
		r.Post("/records/action", s.handleEarnAction)
		r.Post("/records/saving", s.handleSaveCustom)
		r.Post("/redemptions", s.handleRedeem)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/summary", s.handleAPISummary)
		r.Get("/records", s.handleAPIRecords)
		r.Get("/catalog", s.handleAPICatalog)
	})

	return r
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.Server.Shutdown(ctx)
	})
	return err
}

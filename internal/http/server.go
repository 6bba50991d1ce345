package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"finboard/internal/log"
	"finboard/internal/middleware/ratelimit"
	"finboard/internal/middleware/security"
	"finboard/internal/middleware/trace"
	"finboard/internal/services"
	"finboard/internal/timeline"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Timeline is the state the API reads and mutates. It is implemented by
// services.TimelineService.
type Timeline interface {
	Reload(ctx context.Context) error
	Status() services.Status
	Ready() bool

	Chart() timeline.ChartPayload
	Inspection() *timeline.Inspection
	Visibility() timeline.Snapshot

	ToggleType(ctx context.Context, id int64) (timeline.ChartPayload, error)
	ToggleCategory(ctx context.Context, id int64) (timeline.ChartPayload, error)
	ToggleSubcategory(ctx context.Context, id int64) (timeline.ChartPayload, error)
	ToggleCategoryExpanded(ctx context.Context, id int64) (timeline.ChartPayload, error)

	ZoomIn(ctx context.Context) (timeline.ChartPayload, bool)
	ZoomOut(ctx context.Context) (timeline.ChartPayload, bool)
	ResetZoom(ctx context.Context) (timeline.ChartPayload, bool)

	SetBreakdownMode(ctx context.Context, raw string) (timeline.ChartPayload, error)
	ToggleBreakdownKey(ctx context.Context, key string) (timeline.ChartPayload, error)

	PointerMove(i int) (*timeline.Inspection, error)
	PointerClick(i int) (*timeline.Inspection, error)
	PointerLeave() *timeline.Inspection
	Unpin() *timeline.Inspection
}

var _ Timeline = (*services.TimelineService)(nil)

// Options tunes the server. Zero values use defaults.
type Options struct {
	RateLimitPerMinute int
	ReloadTimeout      time.Duration
}

type Server struct {
	http.Server
	timeline Timeline
	logger   *log.Logger
	opts     Options

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware
	startedAt   time.Time

	shutdownOnce sync.Once
}

// NewServer builds the router and returns a server ready to ListenAndServe.
func NewServer(addr string, tl Timeline, logger *log.Logger, opts Options) *Server {
	if logger == nil {
		logger = log.Nop()
	}
	if opts.ReloadTimeout <= 0 {
		opts.ReloadTimeout = time.Minute
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	detector := security.NewDetector(logger)
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      opts.ReloadTimeout + 30*time.Second,
			IdleTimeout:       2 * time.Minute,
		},
		timeline:    tl,
		logger:      logger,
		opts:        opts,
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:    detector,
		tracer:      trace.NewMiddleware(detector.ExtractClientIP, logger),
		startedAt:   time.Now(),
	}
	s.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.tracer.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(s.detector.Middleware)
	r.Use(s.rateLimiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api/timeline", func(r chi.Router) {
		r.Get("/", s.handleChart)
		r.Get("/status", s.handleStatus)
		r.Get("/inspection", s.handleInspection)
		r.Get("/visibility", s.handleVisibility)
		r.Post("/reload", s.handleReload)

		r.Post("/types/{id}/toggle", s.handleToggle("toggle-type", Timeline.ToggleType))
		r.Post("/categories/{id}/toggle", s.handleToggle("toggle-category", Timeline.ToggleCategory))
		r.Post("/categories/{id}/expand", s.handleToggle("expand-category", Timeline.ToggleCategoryExpanded))
		r.Post("/subcategories/{id}/toggle", s.handleToggle("toggle-subcategory", Timeline.ToggleSubcategory))

		r.Post("/zoom/in", s.handleZoom("zoom-in", Timeline.ZoomIn))
		r.Post("/zoom/out", s.handleZoom("zoom-out", Timeline.ZoomOut))
		r.Post("/zoom/reset", s.handleZoom("zoom-reset", Timeline.ResetZoom))

		r.Put("/breakdown", s.handleBreakdownMode)
		r.Post("/breakdown/keys/{key}/toggle", s.handleBreakdownKey)

		r.Post("/pointer/move", s.handlePointer("move", Timeline.PointerMove))
		r.Post("/pointer/click", s.handlePointer("click", Timeline.PointerClick))
		r.Post("/pointer/leave", s.handlePointerReset("leave", Timeline.PointerLeave))
		r.Post("/unpin", s.handlePointerReset("unpin", Timeline.Unpin))
	})
	return r
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldComponent, log.ComponentRateLimit,
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(w)
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

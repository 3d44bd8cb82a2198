// Package serve answers page requests from the current Site and swaps in a
// fresh Site whenever content changes or the revalidation interval passes.
package serve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-co-op/gocron/v2"

	"pagerouter/internal/app"
	"pagerouter/internal/domain/config"
	"pagerouter/internal/index"
	"pagerouter/internal/logfields"
	"pagerouter/internal/metrics"
)

type Options struct {
	Config config.Config
	Store  *index.Store
	// Recorder receives pipeline metrics; MetricsHandler, when set, is
	// served at /metrics.
	Recorder       metrics.Recorder
	MetricsHandler http.Handler
}

type Server struct {
	cfg     config.Config
	store   *index.Store
	rec     metrics.Recorder
	metrics http.Handler

	site      atomic.Pointer[app.Site]
	rebuildMu sync.Mutex

	router http.Handler

	sseMu    sync.Mutex
	sseConns map[chan string]struct{}

	watcher   *fsnotify.Watcher
	watchOnce sync.Once
	scheduler gocron.Scheduler
}

// New indexes the site once and prepares the router. It does not listen.
func New(opt Options) (*Server, error) {
	rec := opt.Recorder
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	s := &Server{
		cfg:      opt.Config,
		store:    opt.Store,
		rec:      rec,
		metrics:  opt.MetricsHandler,
		sseConns: make(map[chan string]struct{}),
	}
	st, err := s.newSite()
	if err != nil {
		return nil, fmt.Errorf("serve: %w", err)
	}
	s.site.Store(st)
	s.router = s.routes()
	return s, nil
}

func (s *Server) newSite() (*app.Site, error) {
	return app.New(app.Options{Config: s.cfg, Store: s.store, Recorder: s.rec})
}

// Site is the site currently answering requests.
func (s *Server) Site() *app.Site { return s.site.Load() }

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Close() error {
	var errs []error
	if s.watcher != nil {
		errs = append(errs, s.watcher.Close())
	}
	if s.scheduler != nil {
		errs = append(errs, s.scheduler.Shutdown())
	}
	return errors.Join(errs...)
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.cfg.IsDevelopment() {
		if err := s.startWatch(ctx); err != nil {
			return err
		}
	} else if s.cfg.Serve.Revalidate > 0 {
		if err := s.startRevalidate(s.cfg.Serve.Revalidate); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              s.cfg.Serve.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("listening",
		slog.String("addr", s.cfg.Serve.Addr),
		slog.String("mode", string(s.cfg.Build.Mode)))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Rebuild indexes the content tree again and swaps the new Site in. On
// failure the previous Site keeps serving.
func (s *Server) Rebuild(ctx context.Context) error {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	st, err := s.newSite()
	if err != nil {
		slog.Error("rebuild failed, keeping previous site", logfields.Error(err))
		return err
	}
	s.site.Store(st)
	slog.Info("rebuild complete", logfields.BuildID(st.ID()), logfields.Duration(time.Since(start)))

	if s.cfg.IsDevelopment() {
		s.broadcastSSE("reload")
	}
	return nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.redirects)

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	if s.cfg.IsDevelopment() {
		r.Get("/dev/events", s.handleSSE)
	}

	pages := chi.NewRouter()
	pages.Get("/sitemap.xml", s.handleSitemap)
	pages.Get("/robots.txt", s.handleRobots)
	pages.Get("/manifest.webmanifest", s.handleManifest)
	pages.Get("/feed/{file}", s.handleFeed)
	pages.Get("/*", s.handlePage)
	pages.NotFound(s.handleNotFound)

	if bp := strings.TrimRight(s.cfg.Site.BasePath, "/"); bp != "" {
		r.Mount(bp, pages)
	} else {
		r.Mount("/", pages)
	}
	r.NotFound(s.handleNotFound)
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug("request",
			slog.String("method", r.Method),
			logfields.Path(r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			logfields.Duration(time.Since(start)))
	})
}

package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/templar-app/templar/internal/backend"
	"github.com/templar-app/templar/internal/journal"
	"github.com/templar-app/templar/internal/metrics"
	"github.com/templar-app/templar/internal/store"
	tlsconf "github.com/templar-app/templar/internal/tls"
	"github.com/templar-app/templar/internal/web/config"
	"github.com/templar-app/templar/internal/web/handlers"
	"github.com/templar-app/templar/internal/web/middleware"
	"github.com/templar-app/templar/internal/web/static"
	"github.com/templar-app/templar/internal/web/views"
	"github.com/templar-app/templar/internal/web/worker"
)

type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	journal *journal.Journal
	store   *store.Store
	http    *http.Server
	worker  *worker.Worker
}

func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	// Initialize activity journal
	jnl, err := journal.Open(cfg.Journal.Path, cfg.Journal.MaxEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	// Warnings and errors also land in the activity journal, scoped to
	// this logger rather than the process default.
	logger = slog.New(journal.NewHandler(logger.Handler(), jnl, slog.LevelWarn))

	// Initialize views
	viewEngine, err := views.New()
	if err != nil {
		jnl.Close()
		return nil, fmt.Errorf("failed to initialize views: %w", err)
	}

	m := metrics.New()

	// Backend client: every failure is logged centrally, every call is
	// measured.
	client := backend.NewClient(cfg.Backend.BaseURL,
		backend.WithTimeout(cfg.Backend.Timeout),
		backend.WithRetries(cfg.Backend.RetryMax, logger),
		backend.WithErrorObserver(func(err error) {
			logger.Warn("backend request failed", "error", err)
		}),
		backend.WithRequestRecorder(m.RecordBackendRequest),
	)

	st := store.New(client, logger,
		store.WithApplyHook(func(count int) {
			m.RecordStoreFetch(count, nil)
		}),
	)

	w := worker.New(client, st, logger, cfg.UI.HealthPollInterval)

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		journal: jnl,
		store:   st,
		worker:  w,
	}

	h := handlers.New(cfg, logger, viewEngine, client, st, jnl, m, w)

	s.http = &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      s.setupRoutes(h, m),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

func (s *Server) setupRoutes(h *handlers.Handlers, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recovery(s.logger))
	r.Use(middleware.Logger(s.logger))
	r.Use(metrics.HTTPMiddleware(m))
	r.Use(middleware.MethodOverride)

	r.Get("/health", h.Health)
	r.Handle("/static/*", http.StripPrefix("/static/", static.Handler()))

	r.Get("/", h.Dashboard)

	r.Route("/templates", func(r chi.Router) {
		r.Get("/", h.TemplateList)
		r.Get("/rows", h.TemplateRows)

		r.Get("/upload", h.UploadPage)
		r.Post("/upload", h.UploadSubmit)
		r.Post("/upload/fields/add", h.UploadFieldAdd)
		r.Post("/upload/fields/remove", h.UploadFieldRemove)
		r.Post("/upload/extract", h.UploadExtract)

		r.Get("/{id}/edit", h.EditBegin)
		r.Post("/{id}/edit", h.EditSave)
		r.Post("/{id}/fields/add", h.EditFieldAdd)
		r.Post("/{id}/fields/remove", h.EditFieldRemove)
		r.Get("/{id}/cancel", h.EditCancel)
		r.Post("/{id}/delete", h.TemplateDelete)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Get("/health", h.AdminHealth)
		r.Get("/journal", h.AdminJournal)
		r.Get("/logs", h.AdminBackendLogs)
		r.Get("/config", h.AdminBackendConfig)
		r.Get("/db/status", h.AdminDBStatus)
		r.Handle("/metrics", m.Handler())
	})

	return r
}

func (s *Server) Run(ctx context.Context) error {
	// Start background worker
	s.worker.Start()

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("starting web server", "addr", s.cfg.Server.ListenAddr, "backend", s.cfg.Backend.BaseURL)
		switch {
		case s.cfg.Server.TLS.Enabled && s.cfg.Server.TLS.ACME.Enabled:
			acme := s.cfg.Server.TLS.ACME
			mgr := tlsconf.NewAutoManager(acme.Email, acme.Domains, acme.CacheDir)
			s.http.TLSConfig = mgr.TLSConfig()
			// Serve HTTP-01 challenges and redirect plain HTTP.
			go func() {
				if err := http.ListenAndServe(":80", mgr.HTTPHandler(nil)); err != nil {
					s.logger.Error("acme challenge server failed", "error", err)
				}
			}()
			errCh <- s.http.ListenAndServeTLS("", "")
		case s.cfg.Server.TLS.Enabled:
			cfg, err := tlsconf.Load(s.cfg.Server.TLS.CertFile, s.cfg.Server.TLS.KeyFile)
			if err != nil {
				errCh <- err
				return
			}
			s.http.TLSConfig = cfg
			errCh <- s.http.ListenAndServeTLS("", "")
		default:
			errCh <- s.http.ListenAndServe()
		}
	}()

	select {
	case err := <-errCh:
		s.shutdown()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("shutdown error", "error", err)
		}
		s.shutdown()
		return nil
	}
}

func (s *Server) shutdown() {
	s.worker.Stop()
	s.store.Close()
	s.journal.Close()
}

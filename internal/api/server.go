// Package api exposes draft sessions over HTTP. Each session hosts one wizard
// controller with its draft asset store and step forms; clients drive the
// wizard step by step and finally submit.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/dharsanguruparan/witverse/internal/identity"
	"github.com/dharsanguruparan/witverse/internal/metrics"
	"github.com/dharsanguruparan/witverse/internal/signing"
	"github.com/dharsanguruparan/witverse/internal/steps"
	"github.com/dharsanguruparan/witverse/internal/wizard"
)

const (
	// multipartOverhead is allowed on top of the file limits for headers and
	// boundaries.
	multipartOverhead = 1 << 20
	maxJSONBody       = 1 << 20
	sweepInterval     = time.Minute
	defaultSessionTTL = 2 * time.Hour
	defaultPreviewTTL = 5 * time.Minute
)

// Dependencies groups everything the server needs.
type Dependencies struct {
	Address    string
	SessionTTL time.Duration
	PreviewTTL time.Duration

	Submitter  wizard.Submitter
	Categories steps.CategoryLister
	// Tokens and Signer are required.
	Tokens *identity.TokenVerifier
	Signer *signing.Signer

	Logger  logrus.FieldLogger
	Metrics *metrics.Metrics
	// Gatherer backs GET /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// Ready is consulted by /healthz. Nil means always ready.
	Ready func(ctx context.Context) error
}

// Server exposes HTTP endpoints for draft sessions and submission.
type Server struct {
	deps     Dependencies
	log      logrus.FieldLogger
	metrics  *metrics.Metrics
	tokens   *identity.TokenVerifier
	signer   *signing.Signer
	sessions *registry
	handler  http.Handler
	server   *http.Server
	once     sync.Once
}

// New constructs a Server.
func New(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewMetrics(nil)
	}
	if deps.SessionTTL <= 0 {
		deps.SessionTTL = defaultSessionTTL
	}
	if deps.PreviewTTL <= 0 {
		deps.PreviewTTL = defaultPreviewTTL
	}
	s := &Server{
		deps:    deps,
		log:     deps.Logger,
		metrics: deps.Metrics,
		tokens:  deps.Tokens,
		signer:  deps.Signer,
	}
	s.sessions = newRegistry(deps.SessionTTL, s.newController, deps.Metrics.DraftSessionsActive, deps.Logger)
	s.handler = s.routes()
	return s
}

func (s *Server) newController(ctx context.Context, id string, provider identity.Provider) (*wizard.Controller, error) {
	return wizard.New(ctx, provider, s.deps.Submitter,
		wizard.WithLogger(s.log.WithField("session", id)),
		wizard.WithCategories(s.deps.Categories),
	)
}

// Handler returns the router, used directly by tests.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.observe)
	r.Use(s.recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/categories", s.handleCategories)
		r.Post("/drafts", s.handleCreateDraft)

		r.Route("/drafts/{draftID}", func(r chi.Router) {
			// Preview links are opened by the browser without credentials.
			r.With(s.withSessionOnly).Get("/assets/{assetID}/preview", s.handleAssetPreview)

			r.Group(func(r chi.Router) {
				r.Use(s.withSession)
				r.Get("/", s.handleDraftStatus)
				r.Delete("/", s.handleDeleteDraft)
				r.Post("/navigate", s.handleNavigate)
				r.Get("/preview", s.handlePreview)
				r.Post("/submit", s.handleSubmit)

				r.Get("/steps/{step}", s.handleStepView)
				r.Post("/steps/{step}", s.handleStepSubmit)

				r.Put("/assets/{slot}", s.handleStageAsset)
				r.Delete("/assets/{slot}", s.handleRemoveAsset)
				r.Post("/screenshots", s.handleStageScreenshots)
				r.Delete("/screenshots/{index}", s.handleRemoveScreenshot)
				r.Post("/screenshots/{index}/move", s.handleMoveScreenshot)
			})
		})
	})
	return r
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.once.Do(func() {
		s.server = &http.Server{
			Addr:              s.deps.Address,
			Handler:           s.handler,
			ReadHeaderTimeout: 10 * time.Second,
		}
	})
	go s.sessions.run(ctx, sweepInterval)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
		s.sessions.closeAll()
	}()
	s.log.WithField("address", s.deps.Address).Info("api listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		if err := s.deps.Ready(r.Context()); err != nil {
			s.log.WithError(err).Warn("health check failed")
			respondJSON(w, s.log, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	respondJSON(w, s.log, http.StatusOK, map[string]string{"status": "ok"})
}

// maxUploadBody caps a multipart body holding files of up to limit bytes.
func maxUploadBody(limit int64) int64 {
	return limit + multipartOverhead
}

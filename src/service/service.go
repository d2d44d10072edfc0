// Package service exposes the issuance workflow of a node over HTTP/JSON.
package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/peerbadge/badges/src/issuance"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Service serves the HTTP API of a node.
type Service struct {
	bindAddress string
	workflow    *issuance.Workflow
	router      chi.Router
	httpServer  *http.Server
	logger      *logrus.Entry
}

// NewService returns a Service serving w at bindAddress. Metrics gathered by
// gatherer are exposed at /metrics. A nil gatherer disables that route.
func NewService(bindAddress string, w *issuance.Workflow, gatherer prometheus.Gatherer, logger *logrus.Entry) *Service {
	s := &Service{
		bindAddress: bindAddress,
		workflow:    w,
		logger:      logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(cors)

	s.Register(r)
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	s.router = r
	s.httpServer = &http.Server{
		Addr:              bindAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Register mounts the API routes on r.
func (s *Service) Register(r chi.Router) {
	r.Get("/agent", s.GetAgent)

	r.Get("/classes", s.GetClasses)
	r.Post("/classes", s.CreateClass)
	r.Get("/classes/{class}/claims", s.GetClassClaims)
	r.Get("/classes/{class}/assertions", s.GetClassAssertions)
	r.Get("/classes/{class}/quorum", s.GetQuorum)
	r.Post("/classes/{class}/assert", s.AssertCredential)

	r.Post("/claims", s.IssueClaim)
	r.Post("/claims/{address}/accept", s.AcceptClaim)

	r.Get("/agents/{agent}/classes", s.GetCreatedClasses)
	r.Get("/agents/{agent}/claims/issued", s.GetIssuedClaims)
	r.Get("/agents/{agent}/claims/received", s.GetReceivedClaims)
	r.Get("/agents/{agent}/assertions", s.GetAssertions)

	r.Get("/entries/{address}", s.GetEntry)
	r.Get("/entries/{address}/history", s.GetHistory)

	r.Post("/badges", s.ClaimBadge)
	r.Get("/badges/{recipient}/{class}", s.GetBadge)
	r.Get("/classes/{class}/badges", s.GetClassBadges)
	r.Get("/agents/{agent}/badges", s.GetRecipientBadges)
	r.Get("/agents/{agent}/badges/issued", s.GetIssuedBadges)
}

// Handler returns the root handler of the service.
func (s *Service) Handler() http.Handler {
	return s.router
}

// Serve listens on the bind address and serves requests until Shutdown is
// called. It is a blocking call.
func (s *Service) Serve() error {
	l, err := net.Listen("tcp", s.bindAddress)
	if err != nil {
		s.logger.WithError(err).Error("Listening")
		return err
	}
	s.logger.WithField("bind_address", l.Addr().String()).Debug("Serving API")

	err = s.httpServer.Serve(l)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error(err)
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Service) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("HTTP request")
	})
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}

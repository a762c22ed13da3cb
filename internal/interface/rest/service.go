package rest

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rafa-protocol/rafad/internal/core/application"
	"github.com/rafa-protocol/rafad/internal/metrics"
	log "github.com/sirupsen/logrus"
)

type Options struct {
	Port           uint32
	AllowedOrigins string
	EnableMetrics  bool
}

type Service struct {
	server *http.Server
}

// NewService builds the http router over the app services and returns the
// ready-to-start server.
func NewService(
	appSvc application.Service, adminSvc application.AdminService, opts Options,
) *Service {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}

	router := mux.NewRouter()

	NewRaffle(appSvc).Mount(router, "/v1")
	NewAdmin(adminSvc).Mount(router, "/v1/admin")

	if opts.EnableMetrics {
		router.Use(metricsMiddleware)
		if h := metrics.HTTPHandler(); h != nil {
			router.Path("/metrics").Methods("GET").Handler(h).Name("metrics")
		}
	}

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{"GET", "POST"}),
		handlers.AllowedHeaders([]string{"content-type", IdentityHeader}),
	)(handler)

	return &Service{
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", opts.Port),
			Handler: handler,
		},
	}
}

func (s *Service) Start() error {
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("http server exited")
		}
	}()
	log.Infof("http server listening on %s", s.server.Addr)
	return nil
}

func (s *Service) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// nolint:errcheck
	s.server.Shutdown(ctx)
}

var (
	metricHTTPReqs = metrics.LazyLoad(func() metrics.CountVecMeter {
		return metrics.CounterVec("api_request_count", []string{"path", "code", "method"})
	})
	metricHTTPDuration = metrics.LazyLoad(func() metrics.HistogramMeter {
		return metrics.Histogram("api_duration_ms", metrics.BucketHTTPReqs)
	})
)

// metricsMiddleware records the count and duration of every routed request.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rt := mux.CurrentRoute(r)

		var enabled bool
		var subsystem string
		if rt != nil && rt.GetName() != "metrics" {
			if path, err := rt.GetPathTemplate(); err == nil {
				enabled = true
				subsystem = path
			}
		}

		now := time.Now()
		mrw := newMetricsResponseWriter(w)
		next.ServeHTTP(mrw, r)

		if enabled {
			metricHTTPDuration().Observe(time.Since(now).Milliseconds())
			metricHTTPReqs().AddWithLabel(1, map[string]string{
				"path":   subsystem,
				"code":   strconv.Itoa(mrw.statusCode),
				"method": r.Method,
			})
		}
	})
}

type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{w, http.StatusOK}
}

func (m *metricsResponseWriter) WriteHeader(code int) {
	m.statusCode = code
	m.ResponseWriter.WriteHeader(code)
}

package http

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/bf-mission-map/internal/domain"
	"github.com/couchcryptid/bf-mission-map/internal/render"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// TableProvider hands out the current mission table.
// It is implemented by pipeline.Pipeline.
type TableProvider interface {
	Table() (*domain.MergedTable, error)
}

// Server serves the year slider page, the rendered images, a read-only JSON
// API over the table and the health, readiness and metrics endpoints.
type Server struct {
	httpServer *http.Server
	tables     TableProvider
	logger     *slog.Logger
}

// NewServer creates the HTTP server and its routes.
func NewServer(addr string, tables TableProvider, ready sharedobs.ReadinessChecker, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		tables: tables,
		logger: logger,
	}

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/", s.handlePage)
	r.Get("/map/{year:[0-9]+}.png", s.handleMap)
	r.Get("/chart.png", s.handleChart)

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet},
			MaxAge:         300,
		}))
		r.Get("/years", s.handleYears)
		r.Get("/years/{year}", s.handleYear)
	})

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(ready))
	r.Handle("/metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// table writes a 503 and returns false while no table is loaded.
func (s *Server) table(w http.ResponseWriter) (*domain.MergedTable, bool) {
	t, err := s.tables.Table()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return nil, false
	}
	return t, true
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	table, ok := s.table(w)
	if !ok {
		return
	}
	year, ok := yearParam(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := render.MapPNG(&buf, table, year); err != nil {
		s.renderFailed(w, err)
		return
	}
	writePNG(w, buf.Bytes())
}

func (s *Server) handleChart(w http.ResponseWriter, _ *http.Request) {
	table, ok := s.table(w)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := render.BarChartPNG(&buf, table); err != nil {
		s.renderFailed(w, err)
		return
	}
	writePNG(w, buf.Bytes())
}

func (s *Server) renderFailed(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownYear), errors.Is(err, render.ErrNoYears):
		writeError(w, http.StatusNotFound, err)
	default:
		s.logger.Error("render failed", "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("render failed"))
	}
}

type yearsResponse struct {
	Years      []domain.YearTotal `json:"years"`
	LatestYear int                `json:"latest_year"`
	Districts  int                `json:"districts"`
	Unresolved []string           `json:"unresolved"`
	BuiltAt    time.Time          `json:"built_at"`
}

func (s *Server) handleYears(w http.ResponseWriter, _ *http.Request) {
	table, ok := s.table(w)
	if !ok {
		return
	}
	latest, _ := table.LatestYear()
	unresolved := table.Unresolved()
	if unresolved == nil {
		unresolved = []string{}
	}
	sharedobs.WriteJSON(w, http.StatusOK, yearsResponse{
		Years:      table.YearTotals(),
		LatestYear: latest,
		Districts:  table.Len(),
		Unresolved: unresolved,
		BuiltAt:    table.BuiltAt,
	})
}

type yearResponse struct {
	Year      int                    `json:"year"`
	Districts []domain.DistrictValue `json:"districts"`
}

func (s *Server) handleYear(w http.ResponseWriter, r *http.Request) {
	table, ok := s.table(w)
	if !ok {
		return
	}
	year, ok := yearParam(w, r)
	if !ok {
		return
	}

	snapshot, err := table.Snapshot(year)
	if errors.Is(err, domain.ErrUnknownYear) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, yearResponse{Year: year, Districts: snapshot})
}

func yearParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "year")
	year, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid year "+strconv.Quote(raw)))
		return 0, false
	}
	return year, true
}

func writePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck // client may have gone away
}

func writeError(w http.ResponseWriter, status int, err error) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}

package http

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/incident-map/internal/domain"
	"github.com/couchcryptid/incident-map/internal/session"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Frontend is the map front-end the server exposes.
type Frontend interface {
	sharedobs.ReadinessChecker
	Page(ctx context.Context) (session.Page, error)
	State(ctx context.Context) (session.Page, error)
	Markers(ctx context.Context) ([]domain.Marker, error)
	View(ctx context.Context) (domain.MapView, error)
	Submit(ctx context.Context, form session.Form) (domain.Report, error)
	MapClick(ctx context.Context, pos domain.LatLng) error
	Locate(ctx context.Context) error
	LoadStats(ctx context.Context) error
	LoadHours(ctx context.Context) error
	Certificate(ctx context.Context, zoneType, name string) (domain.Certificate, error)
	Refresh(ctx context.Context) <-chan struct{}
}

// PageText is the localized chrome of the page.
type PageText struct {
	Lang   string
	Labels map[string]string
}

// Server serves the map page, its fragments and actions, plus health,
// readiness, and metrics endpoints.
type Server struct {
	httpServer      *http.Server
	frontend        Frontend
	tmpl            *template.Template
	lang            string
	refreshInterval time.Duration
	refreshWait     time.Duration
	logger          *slog.Logger
}

// NewServer creates the HTTP server. refreshInterval is how often the page
// polls for new markers.
func NewServer(addr string, fe Frontend, text PageText, refreshInterval time.Duration, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		frontend:        fe,
		tmpl:            newTemplates(text.Labels),
		lang:            text.Lang,
		refreshInterval: refreshInterval,
		refreshWait:     5 * time.Second,
		logger:          logger,
	}

	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("GET /fragments/reports", s.handleSidebar)
	mux.HandleFunc("GET /fragments/stats", s.handleStats)
	mux.HandleFunc("GET /fragments/hours", s.handleHours)
	mux.HandleFunc("GET /api/markers", s.handleMarkers)
	mux.HandleFunc("GET /api/view", s.handleView)
	mux.HandleFunc("POST /reports", s.handleSubmit)
	mux.HandleFunc("POST /map/click", s.handleMapClick)
	mux.HandleFunc("POST /locate", s.handleLocate)
	mux.HandleFunc("POST /stats", s.handleLoadStats)
	mux.HandleFunc("POST /stats/hours", s.handleLoadHours)
	mux.HandleFunc("GET "+session.CertificatePath, s.handleCertificate)
	mux.HandleFunc("POST /refresh", s.handleRefresh)

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(fe))
	mux.Handle("GET /metrics", promhttp.Handler())

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

type pageData struct {
	Lang          string
	Page          session.Page
	RefreshMillis int64
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	p, err := s.frontend.Page(r.Context())
	if err != nil {
		s.unavailable(w, err)
		return
	}
	s.render(w, "page", pageData{
		Lang:          s.lang,
		Page:          p,
		RefreshMillis: s.refreshInterval.Milliseconds(),
	})
}

func (s *Server) handleSidebar(w http.ResponseWriter, r *http.Request) {
	p, err := s.frontend.State(r.Context())
	if err != nil {
		s.unavailable(w, err)
		return
	}
	s.render(w, "sidebar", p.Sidebar)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	p, err := s.frontend.State(r.Context())
	if err != nil {
		s.unavailable(w, err)
		return
	}
	s.render(w, "stats", p.Stats)
}

func (s *Server) handleHours(w http.ResponseWriter, r *http.Request) {
	p, err := s.frontend.State(r.Context())
	if err != nil {
		s.unavailable(w, err)
		return
	}
	s.render(w, "hours", p.Hours)
}

func (s *Server) handleMarkers(w http.ResponseWriter, r *http.Request) {
	markers, err := s.frontend.Markers(r.Context())
	if err != nil {
		s.unavailable(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, markers)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	view, err := s.frontend.View(r.Context())
	if err != nil {
		s.unavailable(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, view)
}

// handleSubmit creates a report. Rejections are reported through the page
// alert, so every outcome except a stopped session redirects home.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}
	form := session.Form{
		Tipo:        r.PostForm.Get("tipo"),
		Descripcion: r.PostForm.Get("descripcion"),
		Lat:         r.PostForm.Get("lat"),
		Lon:         r.PostForm.Get("lon"),
		Alcaldia:    r.PostForm.Get("alcaldia"),
		Colonia:     r.PostForm.Get("colonia"),
	}
	if _, err := s.frontend.Submit(r.Context(), form); err != nil && interrupted(r, err) {
		s.unavailable(w, err)
		return
	}
	redirectHome(w, r)
}

func (s *Server) handleMapClick(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return
	}
	lat, errLat := strconv.ParseFloat(r.PostForm.Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(r.PostForm.Get("lng"), 64)
	if errLat != nil || errLng != nil {
		http.Error(w, "lat and lng must be numbers", http.StatusBadRequest)
		return
	}
	if err := s.frontend.MapClick(r.Context(), domain.LatLng{Lat: lat, Lng: lng}); err != nil {
		s.unavailable(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLocate(w http.ResponseWriter, r *http.Request) {
	if err := s.frontend.Locate(r.Context()); err != nil && interrupted(r, err) {
		s.unavailable(w, err)
		return
	}
	redirectHome(w, r)
}

func (s *Server) handleLoadStats(w http.ResponseWriter, r *http.Request) {
	if err := s.frontend.LoadStats(r.Context()); err != nil && interrupted(r, err) {
		s.unavailable(w, err)
		return
	}
	redirectHome(w, r)
}

func (s *Server) handleLoadHours(w http.ResponseWriter, r *http.Request) {
	if err := s.frontend.LoadHours(r.Context()); err != nil && interrupted(r, err) {
		s.unavailable(w, err)
		return
	}
	redirectHome(w, r)
}

// handleCertificate relays a zone certificate from the report service.
func (s *Server) handleCertificate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cert, err := s.frontend.Certificate(r.Context(), q.Get("tipo_zona"), q.Get("nombre_zona"))
	switch {
	case errors.Is(err, session.ErrInvalidZone):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil && interrupted(r, err):
		s.unavailable(w, err)
		return
	case err != nil:
		http.Error(w, "certificate unavailable", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", cert.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": cert.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(cert.Body)))
	if _, err := w.Write(cert.Body); err != nil {
		s.logger.Debug("certificate write failed", "error", err)
	}
}

// handleRefresh starts a cycle and waits for it, up to refreshWait, so the
// redirected page shows its outcome. A slower cycle still completes in the
// background.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	timer := time.NewTimer(s.refreshWait)
	defer timer.Stop()

	select {
	case <-s.frontend.Refresh(context.WithoutCancel(r.Context())):
	case <-timer.C:
		s.logger.Warn("refresh still running, redirecting without waiting", "waited", s.refreshWait)
	case <-r.Context().Done():
		return
	}
	redirectHome(w, r)
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("template error", "template", name, "error", err)
	}
}

func (s *Server) unavailable(w http.ResponseWriter, err error) {
	s.logger.Warn("request not served", "error", err)
	http.Error(w, "session unavailable", http.StatusServiceUnavailable)
}

// interrupted reports whether the action could not run at all, as opposed to
// failing and setting an alert.
func interrupted(r *http.Request, err error) bool {
	return errors.Is(err, session.ErrStopped) || r.Context().Err() != nil
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/incident-map/internal/adapter/http"
	"github.com/couchcryptid/incident-map/internal/domain"
	"github.com/couchcryptid/incident-map/internal/i18n"
	"github.com/couchcryptid/incident-map/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockFrontend struct {
	mu        sync.Mutex
	readyErr  error
	page      session.Page
	actionErr error
	forms     []session.Form
	clicks    []domain.LatLng
	locates   int
	statsRuns int
	hourRuns  int
	refreshes int

	// hangRefresh makes Refresh return a cycle that never completes.
	hangRefresh bool

	cert     domain.Certificate
	certErr  error
	certArgs []string
}

func (m *mockFrontend) CheckReadiness(_ context.Context) error { return m.readyErr }

func (m *mockFrontend) Page(_ context.Context) (session.Page, error) {
	return m.page, m.actionErr
}

func (m *mockFrontend) State(_ context.Context) (session.Page, error) {
	return m.page, m.actionErr
}

func (m *mockFrontend) Markers(_ context.Context) ([]domain.Marker, error) {
	return m.page.Markers, m.actionErr
}

func (m *mockFrontend) View(_ context.Context) (domain.MapView, error) {
	return m.page.View, m.actionErr
}

func (m *mockFrontend) Submit(_ context.Context, form session.Form) (domain.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forms = append(m.forms, form)
	return domain.Report{}, m.actionErr
}

func (m *mockFrontend) MapClick(_ context.Context, pos domain.LatLng) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clicks = append(m.clicks, pos)
	return m.actionErr
}

func (m *mockFrontend) Locate(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locates++
	return m.actionErr
}

func (m *mockFrontend) LoadStats(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statsRuns++
	return m.actionErr
}

func (m *mockFrontend) LoadHours(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hourRuns++
	return m.actionErr
}

func (m *mockFrontend) Certificate(_ context.Context, zoneType, name string) (domain.Certificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.certArgs = append(m.certArgs, zoneType, name)
	return m.cert, m.certErr
}

func (m *mockFrontend) Refresh(_ context.Context) <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshes++
	done := make(chan struct{})
	if !m.hangRefresh {
		close(done)
	}
	return done
}

func newTestServer(fe *mockFrontend) *httpadapter.Server {
	loc := i18n.MustNew("en", time.UTC)
	text := httpadapter.PageText{Lang: loc.Lang(), Labels: loc.Labels()}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return httpadapter.NewServer(":0", fe, text, 30*time.Second, logger)
}

func samplePage() session.Page {
	marker := domain.Marker{
		ReportID: 1,
		Position: domain.LatLng{Lat: 19.43, Lng: -99.13},
		Style:    domain.CircleStyle("bache"),
		Popup:    domain.Popup{Tipo: "bache", Descripcion: "Hoyo", Location: "Centro", CreatedAt: "1/1/2024, 12:00:00 AM"},
	}
	return session.Page{
		View:    domain.MapView{Center: domain.LatLng{Lat: 19.4326, Lng: -99.1332}, Zoom: 12},
		Markers: []domain.Marker{marker},
		Sidebar: session.SidebarView{Items: []session.SidebarItem{
			{Tipo: "bache", Color: "#ff6b6b", Location: "Centro", CreatedAt: "1/1/2024, 12:00:00 AM"},
		}},
		Form:       session.Form{Tipo: "choque", Descripcion: "<b>bold</b>"},
		Alert:      &session.Alert{Kind: session.AlertError, Message: "✗ Error: campo requerido"},
		Categories: domain.Categories(),
	}
}

func serve(srv *httpadapter.Server, method, target string, form url.Values) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := serve(newTestServer(&mockFrontend{}), http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := serve(newTestServer(&mockFrontend{}), http.MethodGet, "/readyz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	fe := &mockFrontend{readyErr: errors.New("no report snapshot has been loaded yet")}
	rec := serve(newTestServer(fe), http.MethodGet, "/readyz", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "no report snapshot has been loaded yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(newTestServer(&mockFrontend{}), http.MethodGet, "/metrics", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestPageRendersState(t *testing.T) {
	rec := serve(newTestServer(&mockFrontend{page: samplePage()}), http.MethodGet, "/", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, `<html lang="en">`)
	assert.Contains(t, body, "<title>Incident map</title>")
	assert.Contains(t, body, "Recent reports")
	assert.Contains(t, body, `class="alert error"`)
	assert.Contains(t, body, "campo requerido")
	assert.Contains(t, body, `<option value="choque" selected>`)
	assert.Contains(t, body, "&lt;b&gt;bold&lt;/b&gt;")
	assert.Contains(t, body, `"fillColor":"#ff6b6b"`)
	assert.Contains(t, body, "30000")
	assert.Contains(t, body, `bindPopup("Mexico City center")`)
	assert.Contains(t, body, `action="/stats/hours"`)
}

func TestUnknownPathIs404(t *testing.T) {
	rec := serve(newTestServer(&mockFrontend{}), http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSidebarFragment(t *testing.T) {
	t.Run("items", func(t *testing.T) {
		rec := serve(newTestServer(&mockFrontend{page: samplePage()}), http.MethodGet, "/fragments/reports", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "<strong>bache</strong>")
		assert.Contains(t, body, "Centro")
		assert.NotContains(t, body, "<html")
	})

	t.Run("empty", func(t *testing.T) {
		fe := &mockFrontend{page: session.Page{Sidebar: session.SidebarView{Message: "No reports yet."}}}
		rec := serve(newTestServer(fe), http.MethodGet, "/fragments/reports", nil)

		assert.Contains(t, rec.Body.String(), `<p class="dim">No reports yet.</p>`)
	})

	t.Run("error", func(t *testing.T) {
		fe := &mockFrontend{page: session.Page{Sidebar: session.SidebarView{Message: "Error loading reports.", Error: true}}}
		rec := serve(newTestServer(fe), http.MethodGet, "/fragments/reports", nil)

		assert.Contains(t, rec.Body.String(), `<p class="err">Error loading reports.</p>`)
	})
}

func TestStatsFragment(t *testing.T) {
	fe := &mockFrontend{page: session.Page{Stats: session.StatsView{
		Requested: true,
		Heading:   "Top 10 zones with the most incidents",
		Rows:      []session.StatsRow{{Rank: 1, Zona: "Centro", Total: 42, Breakdown: "C5: 40 | Users: 2"}},
	}}}
	rec := serve(newTestServer(fe), http.MethodGet, "/fragments/stats", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Top 10 zones with the most incidents")
	assert.Contains(t, body, "<strong>1. Centro</strong>: 42")
	assert.Contains(t, body, "C5: 40 | Users: 2")
	assert.NotContains(t, body, "Risk certificate", "no link without a certificate URL")
}

func TestStatsFragmentLinksCertificate(t *testing.T) {
	fe := &mockFrontend{page: session.Page{Stats: session.StatsView{
		Requested: true,
		Rows: []session.StatsRow{{
			Rank:           1,
			Zona:           "Roma Norte",
			Total:          7,
			CertificateURL: "/certificates/zona?nombre_zona=Roma+Norte&tipo_zona=colonia",
		}},
	}}}
	rec := serve(newTestServer(fe), http.MethodGet, "/fragments/stats", nil)

	body := rec.Body.String()
	assert.Contains(t, body, `href="/certificates/zona?nombre_zona=Roma&#43;Norte&amp;tipo_zona=colonia"`)
	assert.Contains(t, body, "Risk certificate (PDF)")
}

func TestHoursFragment(t *testing.T) {
	fe := &mockFrontend{page: session.Page{Hours: session.HoursView{
		Requested: true,
		Heading:   "Incidents by hour of day",
		Rows: []session.HourRow{
			{Label: "07:00", Total: 5, Percent: 25},
			{Label: "08:00", Total: 20, Percent: 100, Peak: true},
		},
	}}}
	rec := serve(newTestServer(fe), http.MethodGet, "/fragments/hours", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Incidents by hour of day")
	assert.Contains(t, body, `<div class="hour peak"`)
	assert.Contains(t, body, "width:25%")
	assert.Contains(t, body, "<span>08:00</span>")
}

func TestCertificateDownload(t *testing.T) {
	fe := &mockFrontend{cert: domain.Certificate{
		Filename:    "certificado_riesgo_vial_Roma_Norte.pdf",
		ContentType: "application/pdf",
		Body:        []byte("%PDF-1.7"),
	}}
	rec := serve(newTestServer(fe), http.MethodGet, "/certificates/zona?tipo_zona=colonia&nombre_zona=Roma+Norte", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename=certificado_riesgo_vial_Roma_Norte.pdf`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "%PDF-1.7", rec.Body.String())
	assert.Equal(t, []string{"colonia", "Roma Norte"}, fe.certArgs)
}

func TestCertificateErrors(t *testing.T) {
	t.Run("invalid zone", func(t *testing.T) {
		fe := &mockFrontend{certErr: session.ErrInvalidZone}
		rec := serve(newTestServer(fe), http.MethodGet, "/certificates/zona?tipo_zona=estado", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("service failure", func(t *testing.T) {
		fe := &mockFrontend{certErr: errors.New("report api error: status 500")}
		rec := serve(newTestServer(fe), http.MethodGet, "/certificates/zona?tipo_zona=colonia&nombre_zona=Centro", nil)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("stopped session", func(t *testing.T) {
		fe := &mockFrontend{certErr: session.ErrStopped}
		rec := serve(newTestServer(fe), http.MethodGet, "/certificates/zona?tipo_zona=colonia&nombre_zona=Centro", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestMarkersJSON(t *testing.T) {
	rec := serve(newTestServer(&mockFrontend{page: samplePage()}), http.MethodGet, "/api/markers", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var markers []domain.Marker
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &markers))
	require.Len(t, markers, 1)
	assert.Equal(t, "#ff6b6b", markers[0].Style.FillColor)
	assert.Equal(t, 19.43, markers[0].Position.Lat)
}

func TestViewJSON(t *testing.T) {
	rec := serve(newTestServer(&mockFrontend{page: samplePage()}), http.MethodGet, "/api/view", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var view domain.MapView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, 12, view.Zoom)
}

func TestSubmitRedirectsHome(t *testing.T) {
	fe := &mockFrontend{}
	form := url.Values{
		"tipo":        {"bache"},
		"descripcion": {"Hoyo grande"},
		"lat":         {"19.432600"},
		"lon":         {"-99.133200"},
		"colonia":     {"Centro"},
	}
	rec := serve(newTestServer(fe), http.MethodPost, "/reports", form)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	require.Len(t, fe.forms, 1)
	assert.Equal(t, session.Form{
		Tipo:        "bache",
		Descripcion: "Hoyo grande",
		Lat:         "19.432600",
		Lon:         "-99.133200",
		Colonia:     "Centro",
	}, fe.forms[0])
}

func TestSubmitRejectedStillRedirects(t *testing.T) {
	fe := &mockFrontend{actionErr: errors.New("report api error: status 400: campo requerido")}
	rec := serve(newTestServer(fe), http.MethodPost, "/reports", url.Values{"tipo": {"bache"}})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestSubmitWithStoppedSession(t *testing.T) {
	fe := &mockFrontend{actionErr: session.ErrStopped}
	rec := serve(newTestServer(fe), http.MethodPost, "/reports", url.Values{"tipo": {"bache"}})

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMapClick(t *testing.T) {
	fe := &mockFrontend{}
	srv := newTestServer(fe)

	rec := serve(srv, http.MethodPost, "/map/click", url.Values{"lat": {"19.4326071"}, "lng": {"-99.1332049"}})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, fe.clicks, 1)
	assert.Equal(t, domain.LatLng{Lat: 19.4326071, Lng: -99.1332049}, fe.clicks[0])

	rec = serve(srv, http.MethodPost, "/map/click", url.Values{"lat": {"north"}, "lng": {"-99.13"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, fe.clicks, 1)
}

func TestActionsRedirectHome(t *testing.T) {
	fe := &mockFrontend{}
	srv := newTestServer(fe)

	for _, target := range []string{"/locate", "/stats", "/stats/hours", "/refresh"} {
		rec := serve(srv, http.MethodPost, target, url.Values{})
		assert.Equal(t, http.StatusSeeOther, rec.Code, target)
	}
	assert.Equal(t, 1, fe.locates)
	assert.Equal(t, 1, fe.statsRuns)
	assert.Equal(t, 1, fe.hourRuns)
	assert.Equal(t, 1, fe.refreshes)
}

func TestRefreshRedirectsWhenCycleHangs(t *testing.T) {
	fe := &mockFrontend{hangRefresh: true}
	srv := newTestServer(fe)
	httpadapter.SetRefreshWait(srv, 20*time.Millisecond)

	start := time.Now()
	rec := serve(srv, http.MethodPost, "/refresh", url.Values{})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, 1, fe.refreshes)
}

func TestLocateFailureStillRedirects(t *testing.T) {
	fe := &mockFrontend{actionErr: domain.ErrGeolocationUnsupported}
	rec := serve(newTestServer(fe), http.MethodPost, "/locate", url.Values{})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestGetOnActionIsRejected(t *testing.T) {
	rec := serve(newTestServer(&mockFrontend{}), http.MethodGet, "/reports", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/incident-map/internal/domain"
	"github.com/couchcryptid/incident-map/internal/i18n"
	"github.com/couchcryptid/incident-map/internal/observability"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type listResult struct {
	reports []domain.Report
	err     error
}

// fakeAPI answers ListReports from a queue of results; when the queue is
// empty it repeats the last result. A gate, when set, blocks the call until
// a value is sent on it.
type fakeAPI struct {
	mu          sync.Mutex
	lists       []listResult
	lastList    listResult
	listCalls   int
	listLimits  []int
	gates       []chan struct{}
	created     []domain.ReportInput
	createResp  domain.Report
	createErr   error
	stats       []domain.ZoneStat
	statsErr    error
	statsZones  []string
	statsLimits []int
	hours       []domain.HourStat
	hoursErr    error
	cert        domain.Certificate
	certErr     error
	certZones   [][2]string
}

func (f *fakeAPI) queue(reports []domain.Report, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists = append(f.lists, listResult{reports: reports, err: err})
}

func (f *fakeAPI) ListReports(ctx context.Context, limit int) ([]domain.Report, error) {
	f.mu.Lock()
	f.listCalls++
	f.listLimits = append(f.listLimits, limit)
	res := f.lastList
	if len(f.lists) > 0 {
		res = f.lists[0]
		f.lists = f.lists[1:]
		f.lastList = res
	}
	var gate chan struct{}
	if len(f.gates) > 0 {
		gate = f.gates[0]
		f.gates = f.gates[1:]
	}
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return res.reports, res.err
}

func (f *fakeAPI) CreateReport(_ context.Context, in domain.ReportInput) (domain.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, in)
	return f.createResp, f.createErr
}

func (f *fakeAPI) TopZones(_ context.Context, zoneType string, limit int) ([]domain.ZoneStat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statsZones = append(f.statsZones, zoneType)
	f.statsLimits = append(f.statsLimits, limit)
	return f.stats, f.statsErr
}

func (f *fakeAPI) DangerousHours(_ context.Context) ([]domain.HourStat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hours, f.hoursErr
}

func (f *fakeAPI) ZoneCertificate(_ context.Context, zoneType, name string) (domain.Certificate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.certZones = append(f.certZones, [2]string{zoneType, name})
	return f.cert, f.certErr
}

func (f *fakeAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

type fakeGeocoder struct {
	result domain.GeocodingResult
	err    error
	calls  int
}

func (g *fakeGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (domain.GeocodingResult, error) {
	g.calls++
	return g.result, g.err
}

type fakeLocator struct {
	pos domain.LatLng
	err error
}

func (l fakeLocator) CurrentPosition(_ context.Context) (domain.LatLng, error) {
	return l.pos, l.err
}

type recordingPublisher struct {
	mu    sync.Mutex
	snaps []domain.Snapshot
	err   error
}

func (p *recordingPublisher) Publish(_ context.Context, snap domain.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snaps = append(p.snaps, snap)
	return p.err
}

func (p *recordingPublisher) published() []domain.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Snapshot(nil), p.snaps...)
}

// --- helpers ---

var errNetwork = errors.New("dial tcp 127.0.0.1:8000: connect: connection refused")

var cdmxView = domain.MapView{Center: domain.LatLng{Lat: 19.4326, Lng: -99.1332}, Zoom: 12}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPresenter() *Presenter {
	return NewPresenter(i18n.MustNew("en", time.UTC))
}

func defaultOptions() Options {
	return Options{
		ReportLimit:   200,
		SidebarLimit:  10,
		StatsZoneType: domain.ZoneColonia,
		StatsLimit:    10,
	}
}

// startController runs a session loop for the duration of the test.
func startController(t *testing.T, api ReportService, opts Options) (*Controller, *observability.Metrics) {
	t.Helper()
	present := testPresenter()
	loop := NewLoop(New(cdmxView, present))

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		_ = loop.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
	})

	metrics := observability.NewMetricsForTesting()
	return NewController(loop, api, present, opts, metrics, discardLogger()), metrics
}

func refreshAndWait(t *testing.T, c *Controller) {
	t.Helper()
	select {
	case <-c.Refresh(context.Background()):
	case <-time.After(5 * time.Second):
		t.Fatal("refresh cycle did not complete")
	}
}

func page(t *testing.T, c *Controller) Page {
	t.Helper()
	p, err := c.Page(context.Background())
	require.NoError(t, err)
	return p
}

func bacheReport() domain.Report {
	return domain.Report{
		ID:        1,
		Tipo:      "bache",
		Lat:       19.43,
		Lon:       -99.13,
		Colonia:   "Centro",
		CreatedAt: domain.Timestamp{Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
}

func makeReports(n int) []domain.Report {
	tipos := domain.Categories()
	reports := make([]domain.Report, n)
	for i := range reports {
		reports[i] = domain.Report{
			ID:        int64(i + 1),
			Tipo:      tipos[i%len(tipos)],
			Lat:       19.3 + float64(i)*0.001,
			Lon:       -99.2 + float64(i)*0.001,
			Alcaldia:  "Coyoacán",
			CreatedAt: domain.Timestamp{Time: time.Date(2024, 1, 1, i%24, 0, 0, 0, time.UTC)},
		}
	}
	return reports
}

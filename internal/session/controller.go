package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/incident-map/internal/adapter/reportapi"
	"github.com/couchcryptid/incident-map/internal/domain"
	"github.com/couchcryptid/incident-map/internal/i18n"
	"github.com/couchcryptid/incident-map/internal/observability"
)

// ReportService is the remote report API.
type ReportService interface {
	ListReports(ctx context.Context, limit int) ([]domain.Report, error)
	CreateReport(ctx context.Context, in domain.ReportInput) (domain.Report, error)
	TopZones(ctx context.Context, zoneType string, limit int) ([]domain.ZoneStat, error)
	DangerousHours(ctx context.Context) ([]domain.HourStat, error)
	ZoneCertificate(ctx context.Context, zoneType, name string) (domain.Certificate, error)
}

// ErrInvalidZone is returned for a certificate request without a known zone
// type and a zone name.
var ErrInvalidZone = errors.New("zone type must be colonia or alcaldia and zone name must be set")

// SnapshotPublisher receives every applied report collection.
type SnapshotPublisher interface {
	Publish(ctx context.Context, snap domain.Snapshot) error
}

// Options tunes a Controller. Geocoder, Locator and Publisher are optional.
type Options struct {
	ReportLimit   int
	SidebarLimit  int
	StatsZoneType string
	StatsLimit    int

	Geocoder  domain.ReverseGeocoder
	Locator   domain.LocationProvider
	Publisher SnapshotPublisher
}

// Controller implements the user and timer actions of the map front-end.
// Each action does its network I/O outside the session loop and applies the
// outcome as a loop task.
type Controller struct {
	loop    *Loop
	api     ReportService
	present *Presenter
	opts    Options
	metrics *observability.Metrics
	logger  *slog.Logger

	cycles atomic.Uint64
	ready  atomic.Bool
}

// NewController creates a Controller driving the session owned by loop.
func NewController(loop *Loop, api ReportService, present *Presenter, opts Options, metrics *observability.Metrics, logger *slog.Logger) *Controller {
	return &Controller{
		loop:    loop,
		api:     api,
		present: present,
		opts:    opts,
		metrics: metrics,
		logger:  logger,
	}
}

// CheckReadiness returns nil once a refresh cycle has succeeded.
func (c *Controller) CheckReadiness(_ context.Context) error {
	if !c.ready.Load() {
		return errors.New("no report snapshot has been loaded yet")
	}
	return nil
}

// Refresh starts one fetch-and-reconcile cycle and returns a channel that is
// closed once the cycle's outcome has been applied. Cycles are not
// serialized: if several are in flight, each is applied when its response
// arrives, so the last response to arrive wins.
func (c *Controller) Refresh(ctx context.Context) <-chan struct{} {
	cycle := c.cycles.Add(1)
	done := make(chan struct{})

	go func() {
		defer close(done)

		start := time.Now()
		reports, err := c.api.ListReports(ctx, c.opts.ReportLimit)
		c.metrics.FetchDuration.Observe(time.Since(start).Seconds())

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.metrics.RefreshCycles.WithLabelValues("error").Inc()
			c.logger.Error("refresh cycle failed", "cycle", cycle, "error", err)
			_ = c.loop.Do(context.WithoutCancel(ctx), func(s *Session) {
				s.sidebar = c.present.SidebarError()
			})
			return
		}

		var stale bool
		err = c.loop.Do(context.WithoutCancel(ctx), func(s *Session) {
			stale = c.apply(s, cycle, reports)
		})
		if err != nil {
			return
		}

		c.ready.Store(true)
		c.metrics.RefreshCycles.WithLabelValues("success").Inc()
		c.logger.Debug("refresh cycle applied", "cycle", cycle, "reports", len(reports))
		if stale {
			c.metrics.StaleSnapshots.Inc()
			c.logger.Warn("applied snapshot older than the one it replaced", "cycle", cycle)
		}

		c.publish(ctx, domain.NewSnapshot(cycle, stale, reports))
	}()

	return done
}

// apply replaces displayed state with reports. It reports whether a newer
// cycle had already been applied.
func (c *Controller) apply(s *Session, cycle uint64, reports []domain.Report) bool {
	stale := cycle < s.highestCycle
	if !stale {
		s.highestCycle = cycle
	}

	s.store.Replace(cycle, reports)
	n := s.reconciler.Reconcile(reports)
	s.sidebar = c.present.Sidebar(reports, c.opts.SidebarLimit)
	c.metrics.MarkersDisplayed.Set(float64(n))
	return stale
}

func (c *Controller) publish(ctx context.Context, snap domain.Snapshot) {
	if c.opts.Publisher == nil {
		return
	}
	if err := c.opts.Publisher.Publish(ctx, snap); err != nil {
		c.logger.Warn("snapshot publish failed", "cycle", snap.Cycle, "error", err)
	}
}

// Submit creates a report from the form. On success the form is cleared and
// a refresh cycle is started; on failure the form keeps what the user typed
// and the alert carries the reason.
func (c *Controller) Submit(ctx context.Context, form Form) (domain.Report, error) {
	if err := c.loop.Do(ctx, func(s *Session) { s.form = form }); err != nil {
		return domain.Report{}, err
	}

	in, err := form.Input()
	if err != nil {
		c.metrics.Submissions.WithLabelValues("invalid").Inc()
		c.notify(ctx, AlertError, func() string { return c.present.T(i18n.InvalidCoordinates) })
		return domain.Report{}, err
	}

	c.fillLocation(ctx, &in)

	created, err := c.api.CreateReport(ctx, in)
	if err != nil {
		c.logger.Warn("report submission failed", "tipo", in.Tipo, "error", err)
		var apiErr *reportapi.APIError
		if errors.As(err, &apiErr) {
			c.metrics.Submissions.WithLabelValues("rejected").Inc()
		} else {
			c.metrics.Submissions.WithLabelValues("error").Inc()
		}
		c.notify(ctx, AlertError, func() string {
			return c.present.Tf(i18n.ReportCreateError, map[string]any{"Message": c.failureMessage(err)})
		})
		return domain.Report{}, err
	}

	c.metrics.Submissions.WithLabelValues("created").Inc()
	c.logger.Info("report created", "id", created.ID, "tipo", created.Tipo)

	err = c.loop.Do(ctx, func(s *Session) {
		s.form = Form{}
		s.setAlert(AlertSuccess, c.present.T(i18n.ReportCreated))
	})
	c.Refresh(context.WithoutCancel(ctx))
	return created, err
}

// failureMessage is what the user sees after a failed create: the server's
// detail, a generic message for detail-less rejections, or the transport error.
func (c *Controller) failureMessage(err error) string {
	if detail, ok := reportapi.Detail(err); ok {
		return detail
	}
	var apiErr *reportapi.APIError
	if errors.As(err, &apiErr) {
		return c.present.T(i18n.ReportCreateFallback)
	}
	return err.Error()
}

// fillLocation asks the geocoder for alcaldía and colonia when the user gave
// neither. Geocoding failures leave the input unchanged.
func (c *Controller) fillLocation(ctx context.Context, in *domain.ReportInput) {
	if c.opts.Geocoder == nil || in.Alcaldia != nil || in.Colonia != nil {
		return
	}
	result, err := c.opts.Geocoder.ReverseGeocode(ctx, in.Lat, in.Lon)
	if err != nil {
		c.logger.Warn("location lookup failed", "lat", in.Lat, "lon", in.Lon, "error", err)
		return
	}
	in.Alcaldia = domain.OptionalString(result.Alcaldia)
	in.Colonia = domain.OptionalString(result.Colonia)
}

// MapClick copies clicked coordinates into the form.
func (c *Controller) MapClick(ctx context.Context, pos domain.LatLng) error {
	return c.loop.Do(ctx, func(s *Session) {
		s.form.Lat = FormatCoord(pos.Lat)
		s.form.Lon = FormatCoord(pos.Lng)
	})
}

// Locate asks the location provider for the device position once, fills the
// form with it and centers the map there.
func (c *Controller) Locate(ctx context.Context) error {
	if c.opts.Locator == nil {
		c.notify(ctx, AlertError, func() string { return c.present.T(i18n.GeolocationUnsupported) })
		return domain.ErrGeolocationUnsupported
	}

	pos, err := c.opts.Locator.CurrentPosition(ctx)
	if err != nil {
		c.logger.Warn("geolocation failed", "error", err)
		c.notify(ctx, AlertError, func() string {
			return c.present.Tf(i18n.LocationError, map[string]any{"Message": err.Error()})
		})
		return err
	}

	return c.loop.Do(ctx, func(s *Session) {
		s.form.Lat = FormatCoord(pos.Lat)
		s.form.Lon = FormatCoord(pos.Lng)
		s.layer.SetView(pos, domain.LocatedZoom)
		s.setAlert(AlertSuccess, c.present.T(i18n.LocationFound))
	})
}

// LoadStats fetches the top zones and fills the statistics panel.
func (c *Controller) LoadStats(ctx context.Context) error {
	if err := c.loop.Do(ctx, func(s *Session) { s.stats = c.present.StatsLoading() }); err != nil {
		return err
	}

	stats, err := c.api.TopZones(ctx, c.opts.StatsZoneType, c.opts.StatsLimit)
	if err != nil {
		c.metrics.StatsLoads.WithLabelValues("error").Inc()
		c.logger.Error("statistics load failed", "error", err)
		if doErr := c.loop.Do(context.WithoutCancel(ctx), func(s *Session) { s.stats = c.present.StatsError() }); doErr != nil {
			return doErr
		}
		return err
	}

	if len(stats) == 0 {
		c.metrics.StatsLoads.WithLabelValues("empty").Inc()
	} else {
		c.metrics.StatsLoads.WithLabelValues("success").Inc()
	}
	return c.loop.Do(ctx, func(s *Session) {
		s.stats = c.present.Stats(stats, c.opts.StatsZoneType, c.opts.StatsLimit)
	})
}

// LoadHours fetches the incident distribution by hour of day and fills the
// hourly panel.
func (c *Controller) LoadHours(ctx context.Context) error {
	if err := c.loop.Do(ctx, func(s *Session) { s.hours = c.present.HoursLoading() }); err != nil {
		return err
	}

	hours, err := c.api.DangerousHours(ctx)
	if err != nil {
		c.metrics.HourlyLoads.WithLabelValues("error").Inc()
		c.logger.Error("hourly distribution load failed", "error", err)
		if doErr := c.loop.Do(context.WithoutCancel(ctx), func(s *Session) { s.hours = c.present.HoursError() }); doErr != nil {
			return doErr
		}
		return err
	}

	if len(hours) == 0 {
		c.metrics.HourlyLoads.WithLabelValues("empty").Inc()
	} else {
		c.metrics.HourlyLoads.WithLabelValues("success").Inc()
	}
	return c.loop.Do(ctx, func(s *Session) {
		s.hours = c.present.Hours(hours)
	})
}

// Certificate downloads the risk certificate for a zone. It does not touch
// the session.
func (c *Controller) Certificate(ctx context.Context, zoneType, name string) (domain.Certificate, error) {
	name = strings.TrimSpace(name)
	if !domain.ValidZoneType(zoneType) || name == "" {
		c.metrics.CertificateDownloads.WithLabelValues("invalid").Inc()
		return domain.Certificate{}, ErrInvalidZone
	}

	cert, err := c.api.ZoneCertificate(ctx, zoneType, name)
	if err != nil {
		c.metrics.CertificateDownloads.WithLabelValues("error").Inc()
		c.logger.Warn("certificate download failed", "tipo_zona", zoneType, "zona", name, "error", err)
		return domain.Certificate{}, err
	}

	c.metrics.CertificateDownloads.WithLabelValues("success").Inc()
	return cert, nil
}

// Page returns a copy of the front-end state and clears the pending alert.
func (c *Controller) Page(ctx context.Context) (Page, error) {
	var p Page
	err := c.loop.Do(ctx, func(s *Session) {
		p = s.page()
		s.alert = nil
	})
	return p, err
}

// State returns a copy of the front-end state, leaving the alert pending.
func (c *Controller) State(ctx context.Context) (Page, error) {
	var p Page
	err := c.loop.Do(ctx, func(s *Session) { p = s.page() })
	return p, err
}

// Markers returns the markers currently on the map.
func (c *Controller) Markers(ctx context.Context) ([]domain.Marker, error) {
	var markers []domain.Marker
	err := c.loop.Do(ctx, func(s *Session) { markers = s.layer.Markers() })
	return markers, err
}

// View returns the current map center and zoom.
func (c *Controller) View(ctx context.Context) (domain.MapView, error) {
	var view domain.MapView
	err := c.loop.Do(ctx, func(s *Session) { view = s.layer.View() })
	return view, err
}

// notify sets the pending alert. The message is rendered on the loop.
func (c *Controller) notify(ctx context.Context, kind AlertKind, msg func() string) {
	if err := c.loop.Do(context.WithoutCancel(ctx), func(s *Session) { s.setAlert(kind, msg()) }); err != nil {
		c.logger.Debug("alert dropped", "error", err)
	}
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/incident-map/internal/adapter/geolocate"
	"github.com/couchcryptid/incident-map/internal/adapter/googlemaps"
	httpadapter "github.com/couchcryptid/incident-map/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/incident-map/internal/adapter/kafka"
	"github.com/couchcryptid/incident-map/internal/adapter/mapbox"
	"github.com/couchcryptid/incident-map/internal/adapter/reportapi"
	"github.com/couchcryptid/incident-map/internal/config"
	"github.com/couchcryptid/incident-map/internal/domain"
	"github.com/couchcryptid/incident-map/internal/i18n"
	"github.com/couchcryptid/incident-map/internal/observability"
	"github.com/couchcryptid/incident-map/internal/session"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	bundle, err := i18n.NewBundle()
	if err != nil {
		logger.Error("failed to load messages", "error", err)
		os.Exit(1)
	}
	loc := i18n.New(bundle, cfg.UILang, cfg.UITimezone)

	api := reportapi.NewClient(cfg.ReportAPIURL, cfg.ReportAPITimeout, logger)

	opts := session.Options{
		ReportLimit:   cfg.ReportLimit,
		SidebarLimit:  cfg.SidebarLimit,
		StatsZoneType: cfg.StatsZoneType,
		StatsLimit:    cfg.StatsLimit,
	}

	// Reverse geocoding of submitted coordinates: Mapbox (MAPBOX_ENABLED / MAPBOX_TOKEN)
	// first, then Google (GOOGLE_MAPS_API_KEY), behind one cache.
	var geocoders domain.GeocoderChain
	if cfg.MapboxEnabled {
		geocoders = append(geocoders, mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, cfg.UILang, metrics, logger))
		logger.Info("mapbox geocoding enabled", "timeout", cfg.MapboxTimeout)
	}
	if cfg.GoogleMapsAPIKey != "" {
		client, err := googlemaps.NewClient(cfg.GoogleMapsAPIKey, cfg.GoogleMapsTimeout, cfg.UILang, metrics, logger)
		if err != nil {
			logger.Error("failed to create google maps client", "error", err)
			os.Exit(1)
		}
		geocoders = append(geocoders, client)
		logger.Info("google maps geocoding enabled")
	}
	if len(geocoders) > 0 {
		opts.Geocoder = mapbox.NewCachedGeocoder(geocoders, cfg.MapboxCacheSize, metrics)
	} else {
		logger.Info("reverse geocoding disabled")
	}

	switch {
	case cfg.DeviceLat != nil:
		opts.Locator = geolocate.Static{Position: domain.LatLng{Lat: *cfg.DeviceLat, Lng: *cfg.DeviceLon}}
		logger.Info("geolocation from fixed device position")
	case cfg.GeolocateURL != "":
		opts.Locator = geolocate.NewHTTP(cfg.GeolocateURL, cfg.GeolocateTimeout)
		logger.Info("geolocation via lookup service", "url", cfg.GeolocateURL)
	default:
		logger.Info("geolocation unavailable")
	}

	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, metrics, logger)
		opts.Publisher = writer
		logger.Info("snapshot publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSnapshotTopic)
	}

	view := domain.MapView{
		Center: domain.LatLng{Lat: cfg.MapCenterLat, Lng: cfg.MapCenterLon},
		Zoom:   cfg.MapZoom,
	}
	present := session.NewPresenter(loc)
	loop := session.NewLoop(session.New(view, present))
	controller := session.NewController(loop, api, present, opts, metrics, logger)
	scheduler := session.NewScheduler(controller, nil, cfg.RefreshInterval, metrics, logger)

	text := httpadapter.PageText{Lang: loc.Lang(), Labels: loc.Labels()}
	srv := httpadapter.NewServer(cfg.HTTPAddr, controller, text, cfg.RefreshInterval, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start the session loop before anything submits tasks to it.
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := loop.Run(ctx); err != nil {
			logger.Error("session loop error", "error", err)
		}
	}()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start refresh scheduler.
	go func() {
		if err := scheduler.Run(ctx); err != nil {
			logger.Error("scheduler error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	<-loopDone
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

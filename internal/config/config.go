package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // UI_TIMEZONE must resolve without system zoneinfo

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Report service.
	ReportAPIURL     string
	ReportAPITimeout time.Duration // 0 disables the client timeout
	RefreshInterval  time.Duration
	ReportLimit      int
	SidebarLimit     int
	StatsZoneType    string
	StatsLimit       int

	// Presentation.
	MapCenterLat float64
	MapCenterLon float64
	MapZoom      int
	UILang       string
	UITimezone   *time.Location

	// Mapbox reverse geocoding of submitted coordinates.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int

	// Google Maps reverse geocoding, consulted after Mapbox.
	GoogleMapsAPIKey  string
	GoogleMapsTimeout time.Duration

	// Snapshot publishing.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaSnapshotTopic string

	// Geolocation assist. DeviceLat/DeviceLon take precedence over GeolocateURL.
	DeviceLat        *float64
	DeviceLon        *float64
	GeolocateURL     string
	GeolocateTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	apiTimeout, err := parseDuration("REPORT_API_TIMEOUT", "0s", true)
	if err != nil {
		return nil, err
	}
	refreshInterval, err := parseDuration("REFRESH_INTERVAL", "30s", false)
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parseDuration("MAPBOX_TIMEOUT", "5s", false)
	if err != nil {
		return nil, err
	}
	googleTimeout, err := parseDuration("GOOGLE_MAPS_TIMEOUT", "5s", false)
	if err != nil {
		return nil, err
	}
	geolocateTimeout, err := parseDuration("GEOLOCATE_TIMEOUT", "5s", false)
	if err != nil {
		return nil, err
	}

	reportLimit, err := parseInt("REPORT_LIMIT", 200, 1, 1000)
	if err != nil {
		return nil, err
	}
	sidebarLimit, err := parseInt("SIDEBAR_LIMIT", 10, 1, 1000)
	if err != nil {
		return nil, err
	}
	statsLimit, err := parseInt("STATS_LIMIT", 10, 1, 50)
	if err != nil {
		return nil, err
	}
	mapZoom, err := parseInt("MAP_ZOOM", 12, 0, 19)
	if err != nil {
		return nil, err
	}

	centerLat, err := parseFloat("MAP_CENTER_LAT", 19.4326)
	if err != nil {
		return nil, err
	}
	centerLon, err := parseFloat("MAP_CENTER_LON", -99.1332)
	if err != nil {
		return nil, err
	}

	tzName := sharedcfg.EnvOrDefault("UI_TIMEZONE", "America/Mexico_City")
	tz, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid UI_TIMEZONE: %w", err)
	}

	deviceLat, deviceLon, err := parseDevicePosition()
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		ReportAPIURL:     sharedcfg.EnvOrDefault("REPORT_API_URL", "http://localhost:8000"),
		ReportAPITimeout: apiTimeout,
		RefreshInterval:  refreshInterval,
		ReportLimit:      reportLimit,
		SidebarLimit:     sidebarLimit,
		StatsZoneType:    sharedcfg.EnvOrDefault("STATS_ZONE_TYPE", "colonia"),
		StatsLimit:       statsLimit,

		MapCenterLat: centerLat,
		MapCenterLon: centerLon,
		MapZoom:      mapZoom,
		UILang:       sharedcfg.EnvOrDefault("UI_LANG", "en"),
		UITimezone:   tz,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),

		GoogleMapsAPIKey:  os.Getenv("GOOGLE_MAPS_API_KEY"),
		GoogleMapsTimeout: googleTimeout,

		KafkaEnabled:       os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSnapshotTopic: sharedcfg.EnvOrDefault("KAFKA_SNAPSHOT_TOPIC", "incident-map-snapshots"),

		DeviceLat:        deviceLat,
		DeviceLon:        deviceLon,
		GeolocateURL:     os.Getenv("GEOLOCATE_URL"),
		GeolocateTimeout: geolocateTimeout,
	}

	if u, err := url.Parse(cfg.ReportAPIURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.New("invalid REPORT_API_URL")
	}
	if cfg.StatsZoneType != "colonia" && cfg.StatsZoneType != "alcaldia" {
		return nil, errors.New("STATS_ZONE_TYPE must be colonia or alcaldia")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	if cfg.KafkaEnabled && cfg.KafkaSnapshotTopic == "" {
		return nil, errors.New("KAFKA_SNAPSHOT_TOPIC is required when KAFKA_ENABLED is true")
	}

	return cfg, nil
}

func parseDuration(key, def string, allowZero bool) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, def, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be an integer between %d and %d", key, lo, hi)
	}
	return n, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

func parseDevicePosition() (*float64, *float64, error) {
	latStr, lonStr := os.Getenv("DEVICE_LAT"), os.Getenv("DEVICE_LON")
	if latStr == "" && lonStr == "" {
		return nil, nil, nil
	}
	if latStr == "" || lonStr == "" {
		return nil, nil, errors.New("DEVICE_LAT and DEVICE_LON must be set together")
	}
	lat, err := parseFloat("DEVICE_LAT", 0)
	if err != nil {
		return nil, nil, err
	}
	lon, err := parseFloat("DEVICE_LON", 0)
	if err != nil {
		return nil, nil, err
	}
	return &lat, &lon, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}

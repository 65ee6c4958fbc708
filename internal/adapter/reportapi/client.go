package reportapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/incident-map/internal/domain"
)

// Client talks to the report service REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a report service client. A zero timeout leaves requests
// unbounded.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// ListReports fetches up to limit reports, most recent first.
func (c *Client) ListReports(ctx context.Context, limit int) ([]domain.Report, error) {
	params := url.Values{"limit": {strconv.Itoa(limit)}}

	var reports []domain.Report
	if err := c.do(ctx, http.MethodGet, "/reports?"+params.Encode(), nil, &reports); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	if reports == nil {
		reports = []domain.Report{}
	}
	return reports, nil
}

// CreateReport submits a new report and returns it as stored by the service.
func (c *Client) CreateReport(ctx context.Context, in domain.ReportInput) (domain.Report, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return domain.Report{}, fmt.Errorf("encode report: %w", err)
	}

	var created domain.Report
	if err := c.do(ctx, http.MethodPost, "/reports", body, &created); err != nil {
		return domain.Report{}, fmt.Errorf("create report: %w", err)
	}
	return created, nil
}

// TopZones fetches the zones with the most incidents for a zone granularity.
func (c *Client) TopZones(ctx context.Context, zoneType string, limit int) ([]domain.ZoneStat, error) {
	params := url.Values{
		"tipo_zona": {zoneType},
		"limit":     {strconv.Itoa(limit)},
	}

	var stats []domain.ZoneStat
	if err := c.do(ctx, http.MethodGet, "/stats/top-zonas?"+params.Encode(), nil, &stats); err != nil {
		return nil, fmt.Errorf("top zones: %w", err)
	}
	if stats == nil {
		stats = []domain.ZoneStat{}
	}
	return stats, nil
}

// DangerousHours fetches the incident distribution over the 24 hours of the
// day, ordered by hour.
func (c *Client) DangerousHours(ctx context.Context) ([]domain.HourStat, error) {
	var hours []domain.HourStat
	if err := c.do(ctx, http.MethodGet, "/stats/horas-peligrosas", nil, &hours); err != nil {
		return nil, fmt.Errorf("dangerous hours: %w", err)
	}
	if hours == nil {
		hours = []domain.HourStat{}
	}
	return hours, nil
}

// maxCertificateSize bounds a downloaded certificate.
const maxCertificateSize = 10 << 20

// ZoneCertificate downloads the road-risk certificate PDF for a zone.
func (c *Client) ZoneCertificate(ctx context.Context, zoneType, name string) (domain.Certificate, error) {
	params := url.Values{
		"tipo_zona":   {zoneType},
		"nombre_zona": {name},
	}

	resp, err := c.send(ctx, http.MethodGet, "/certificates/zona?"+params.Encode(), nil, "application/pdf")
	if err != nil {
		return domain.Certificate{}, fmt.Errorf("zone certificate: %w", err)
	}
	defer resp.Body.Close()

	// The service answers a bad zone type with a 200 JSON body.
	contentType := resp.Header.Get("Content-Type")
	if mediaType, _, _ := mime.ParseMediaType(contentType); mediaType != "application/pdf" {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return domain.Certificate{}, fmt.Errorf("zone certificate: unexpected content type %q: %s", contentType, data)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCertificateSize+1))
	if err != nil {
		return domain.Certificate{}, fmt.Errorf("zone certificate: read body: %w", err)
	}
	if len(body) > maxCertificateSize {
		return domain.Certificate{}, fmt.Errorf("zone certificate: larger than %d bytes", maxCertificateSize)
	}

	return domain.Certificate{
		Filename:    certificateFilename(resp.Header.Get("Content-Disposition"), name),
		ContentType: contentType,
		Body:        body,
	}, nil
}

// certificateFilename prefers the server's attachment name and falls back to
// the name the service would have chosen.
func certificateFilename(disposition, zone string) string {
	if _, params, err := mime.ParseMediaType(disposition); err == nil && params["filename"] != "" {
		return params["filename"]
	}
	return "certificado_riesgo_vial_" + strings.ReplaceAll(zone, " ", "_") + ".pdf"
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	resp, err := c.send(ctx, method, path, body, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// send performs the request and turns non-2xx responses into *APIError. The
// caller closes the body of a successful response.
func (c *Client) send(ctx context.Context, method, path string, body []byte, accept string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", accept)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
	}

	c.logger.Debug("report api request",
		"method", method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, newAPIError(resp.StatusCode, data)
	}
	return resp, nil
}

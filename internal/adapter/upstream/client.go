package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/crime-watch/internal/domain"
)

// Client fetches the report list from the external report endpoint.
// It implements dashboard.ReportFetcher.
type Client struct {
	url        string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a report endpoint client. token may be empty.
func NewClient(url, token string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		url:        url,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// FetchReports GETs the endpoint and decodes a JSON array of reports.
func (c *Client) FetchReports(ctx context.Context) ([]domain.CrimeReport, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch reports: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("report endpoint error: status %d: %s", resp.StatusCode, body)
	}

	reports, err := decodeReports(resp.Body)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("reports fetched", "count", len(reports), "duration", time.Since(start))
	return reports, nil
}

func decodeReports(r io.Reader) ([]domain.CrimeReport, error) {
	var reports []domain.CrimeReport
	if err := json.NewDecoder(r).Decode(&reports); err != nil {
		return nil, fmt.Errorf("decode reports: %w", err)
	}
	if reports == nil {
		reports = []domain.CrimeReport{}
	}
	return reports, nil
}

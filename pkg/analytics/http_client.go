package analytics

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	dashboard "github.com/goliatone/go-campaign-dashboard/components/dashboard"
)

// DefaultDatasetPath is the endpoint serving the campaign dataset export.
const DefaultDatasetPath = "/campaigns/dataset"

// HTTPConfig configures the HTTP analytics client.
type HTTPConfig struct {
	BaseURL     string
	APIKey      string
	DatasetPath string
	HTTPClient  *http.Client
}

// HTTPClient pulls campaign records from a remote affiliate-network export.
type HTTPClient struct {
	baseURL     string
	apiKey      string
	datasetPath string
	client      *http.Client
}

var _ dashboard.DatasetSource = (*HTTPClient)(nil)

// NewHTTPClient builds a client for a live campaign export endpoint.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("analytics: base url is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	path := cfg.DatasetPath
	if path == "" {
		path = DefaultDatasetPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return &HTTPClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		datasetPath: path,
		client:      httpClient,
	}, nil
}

// Load implements dashboard.DatasetSource.
func (c *HTTPClient) Load(ctx context.Context) (dashboard.Dataset, error) {
	var resp datasetResponse
	if err := c.do(ctx, http.MethodGet, c.datasetPath, &resp); err != nil {
		return dashboard.Dataset{}, err
	}
	return resp.toDataset()
}

func (c *HTTPClient) do(ctx context.Context, method, path string, target any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("analytics: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("analytics: http request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		return fmt.Errorf("analytics: remote error %d: %s", resp.StatusCode, strings.TrimSpace(buf.String()))
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("analytics: decode response: %w", err)
	}
	return nil
}

type datasetResponse struct {
	Dataset dashboard.Dataset `json:"dataset"`
}

func (r datasetResponse) toDataset() (dashboard.Dataset, error) {
	ds := r.Dataset
	if len(ds.Campaigns) == 0 {
		return dashboard.Dataset{}, fmt.Errorf("analytics: remote dataset has no campaigns")
	}
	if len(ds.Current) == 0 {
		return dashboard.Dataset{}, fmt.Errorf("analytics: remote dataset has no current metrics")
	}
	return ds, nil
}

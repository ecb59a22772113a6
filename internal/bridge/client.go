package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dmxlan/dmxbridge-console/internal/logging"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second
)

// Client is the HTTP client for the bridge's REST API.
type Client struct {
	// BaseURL is the base URL for the bridge (e.g., "http://192.168.1.50:8080")
	BaseURL string

	// APIKey is the optional API key. When set it is sent as both an
	// X-API-Key header and a Bearer Authorization header.
	APIKey string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client
}

// NewClient creates a new bridge client.
// baseURL: full base URL (e.g., "http://192.168.1.50:8080")
// apiKey: optional API key, empty for unauthenticated bridges
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// authHeaders returns the authentication headers for the configured key.
func (c *Client) authHeaders() http.Header {
	headers := http.Header{}
	if c.APIKey != "" {
		headers.Set("X-API-Key", c.APIKey)
		headers.Set("Authorization", "Bearer "+c.APIKey)
	}
	return headers
}

// doRequest performs one HTTP request and decodes a JSON response into out.
// out may be nil for endpoints whose body the caller doesn't need.
func (c *Client) doRequest(method, path string, query url.Values, body any, out any) error {
	requestURL := c.BaseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return NewParseError("failed to encode request body", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, requestURL, reader)
	if err != nil {
		return NewNetworkError("failed to create request", err)
	}

	for key, values := range c.authHeaders() {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return NewNetworkError(fmt.Sprintf("%s %s failed", method, path), err)
	}
	defer func() { _ = resp.Body.Close() }()

	logging.LogRequest(method, path, resp.StatusCode)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return NewAuthError("authentication failed (check API key)")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return NewAPIError(resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if out == nil {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return NewNetworkError("failed to read response body", err)
	}
	if len(respBody) == 0 {
		return nil
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		logging.Error("response decode failed",
			zap.String("path", path),
			zap.Error(err),
		)
		return NewParseError("failed to parse bridge response", err)
	}

	return nil
}

// Health checks bridge health.
func (c *Client) Health() (*Health, error) {
	var health Health
	if err := c.doRequest(http.MethodGet, "/health", nil, nil, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// Status fetches the bridge's status and metrics snapshot.
func (c *Client) Status() (Status, error) {
	var status Status
	if err := c.doRequest(http.MethodGet, "/status", nil, nil, &status); err != nil {
		return nil, err
	}
	return status, nil
}

// ListDevices lists all devices known to the bridge.
func (c *Client) ListDevices() ([]Device, error) {
	var devices []Device
	if err := c.doRequest(http.MethodGet, "/devices", nil, nil, &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

// GetDevice fetches a single device by ID.
func (c *Client) GetDevice(deviceID string) (*Device, error) {
	var device Device
	if err := c.doRequest(http.MethodGet, "/devices/"+url.PathEscape(deviceID), nil, nil, &device); err != nil {
		return nil, err
	}
	return &device, nil
}

// CreateDevice registers a manual device.
func (c *Client) CreateDevice(deviceData map[string]any) (*Device, error) {
	var device Device
	if err := c.doRequest(http.MethodPost, "/devices", nil, deviceData, &device); err != nil {
		return nil, err
	}
	return &device, nil
}

// UpdateDevice applies a partial update to a device.
func (c *Client) UpdateDevice(deviceID string, updates map[string]any) (*Device, error) {
	var device Device
	if err := c.doRequest(http.MethodPatch, "/devices/"+url.PathEscape(deviceID), nil, updates, &device); err != nil {
		return nil, err
	}
	return &device, nil
}

// TestDevice sends a test payload to a device.
func (c *Client) TestDevice(deviceID string, payload map[string]any) (*CommandResult, error) {
	var result CommandResult
	body := map[string]any{"payload": payload}
	if err := c.doRequest(http.MethodPost, "/devices/"+url.PathEscape(deviceID)+"/test", nil, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CommandDevice sends a raw command to a device.
func (c *Client) CommandDevice(deviceID string, command map[string]any) (*CommandResult, error) {
	var result CommandResult
	if err := c.doRequest(http.MethodPost, "/devices/"+url.PathEscape(deviceID)+"/command", nil, command, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListMappings lists all DMX mappings.
func (c *Client) ListMappings() ([]Mapping, error) {
	var mappings []Mapping
	if err := c.doRequest(http.MethodGet, "/mappings", nil, nil, &mappings); err != nil {
		return nil, err
	}
	return mappings, nil
}

// GetMapping fetches a single mapping by ID.
func (c *Client) GetMapping(mappingID int) (*Mapping, error) {
	var mapping Mapping
	if err := c.doRequest(http.MethodGet, "/mappings/"+strconv.Itoa(mappingID), nil, nil, &mapping); err != nil {
		return nil, err
	}
	return &mapping, nil
}

// CreateMapping creates a new mapping.
func (c *Client) CreateMapping(mappingData map[string]any) (*Mapping, error) {
	var mapping Mapping
	if err := c.doRequest(http.MethodPost, "/mappings", nil, mappingData, &mapping); err != nil {
		return nil, err
	}
	return &mapping, nil
}

// UpdateMapping replaces a mapping.
func (c *Client) UpdateMapping(mappingID int, updates map[string]any) (*Mapping, error) {
	var mapping Mapping
	if err := c.doRequest(http.MethodPut, "/mappings/"+strconv.Itoa(mappingID), nil, updates, &mapping); err != nil {
		return nil, err
	}
	return &mapping, nil
}

// DeleteMapping deletes a mapping.
func (c *Client) DeleteMapping(mappingID int) error {
	return c.doRequest(http.MethodDelete, "/mappings/"+strconv.Itoa(mappingID), nil, nil, nil)
}

// GetChannelMap fetches the bridge's channel map.
func (c *Client) GetChannelMap() (ChannelMap, error) {
	var channelMap ChannelMap
	if err := c.doRequest(http.MethodGet, "/channel-map", nil, nil, &channelMap); err != nil {
		return nil, err
	}
	return channelMap, nil
}

// LogQuery filters a GET /logs request. Zero values are omitted.
type LogQuery struct {
	Level  string
	Logger string
	Limit  int
	Offset int
}

// GetLogs fetches a page of logs.
func (c *Client) GetLogs(query LogQuery) (*LogsPage, error) {
	params := url.Values{}
	if query.Level != "" {
		params.Set("level", query.Level)
	}
	if query.Logger != "" {
		params.Set("logger", query.Logger)
	}
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(query.Limit))
	}
	if query.Offset > 0 {
		params.Set("offset", strconv.Itoa(query.Offset))
	}

	var page LogsPage
	if err := c.doRequest(http.MethodGet, "/logs", params, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// SearchQuery filters a GET /logs/search request.
type SearchQuery struct {
	Pattern       string
	CaseSensitive bool
	Regex         bool
	Limit         int
}

// SearchLogs searches logs for a pattern.
func (c *Client) SearchLogs(query SearchQuery) (*SearchResult, error) {
	params := url.Values{}
	params.Set("pattern", query.Pattern)
	params.Set("case_sensitive", strconv.FormatBool(query.CaseSensitive))
	if query.Regex {
		params.Set("regex", "true")
	}
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(query.Limit))
	}

	var result SearchResult
	if err := c.doRequest(http.MethodGet, "/logs/search", params, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Reload asks the bridge to reload its configuration.
func (c *Client) Reload() (*ReloadResult, error) {
	var result ReloadResult
	if err := c.doRequest(http.MethodPost, "/reload", nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

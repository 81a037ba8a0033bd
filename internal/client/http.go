package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/kadr/internal/model"
)

// HTTPClient implements CatalogClient over the kadr HTTP/JSON API.
type HTTPClient struct {
	baseURL    string
	creds      CredentialProvider
	httpClient *http.Client
	userAgent  string
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client (timeouts, transport).
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(c *HTTPClient) { c.httpClient = hc }
}

// WithUserAgent sets the User-Agent sent with every request.
func WithUserAgent(ua string) HTTPOption {
	return func(c *HTTPClient) { c.userAgent = ua }
}

// NewHTTPClient creates a client for baseURL (e.g. "http://localhost:8080").
// creds may be nil; when it yields a non-empty token every request carries
// it as a bearer token.
func NewHTTPClient(baseURL string, creds CredentialProvider, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		creds:      creds,
		httpClient: &http.Client{},
		userAgent:  "kadr",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Catalogs ---

func (c *HTTPClient) ListOptions(ctx context.Context, req *ListOptionsRequest) (*ListOptionsResponse, error) {
	if !req.Catalog.IsValid() {
		return nil, fmt.Errorf("unknown catalog %q", req.Catalog)
	}
	q := url.Values{}
	if req.Page > 0 {
		q.Set("page", strconv.Itoa(req.Page))
	}
	if req.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(req.PageSize))
	}
	if req.Search != "" {
		q.Set("search", req.Search)
	}
	keys := make([]string, 0, len(req.Filters))
	for k := range req.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := req.Filters[k]; v != "" {
			q.Set(k, v)
		}
	}

	path := "/v1/catalogs/" + url.PathEscape(req.Catalog.String()) + "/options"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp ListOptionsResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Identity ---

func (c *HTTPClient) CheckIdentity(ctx context.Context, req *CheckIdentityRequest) (*CheckIdentityResponse, error) {
	var resp CheckIdentityResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/identity/check", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Personnel ---

func (c *HTTPClient) CreatePerson(ctx context.Context, req *CreatePersonRequest) (*model.Person, error) {
	var p model.Person
	if err := c.doJSON(ctx, http.MethodPost, "/v1/personnel", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *HTTPClient) GetPerson(ctx context.Context, id int64) (*model.Person, error) {
	var p model.Person
	if err := c.doJSON(ctx, http.MethodGet, "/v1/personnel/"+strconv.FormatInt(id, 10), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// maxErrorBody bounds how much of an error response is kept in APIError.
const maxErrorBody = 4 << 10

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string // X-Request-ID echoed by the server, if any
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("HTTP %d: %s (request %s)", e.StatusCode, e.Message, e.RequestID)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// doJSON sends body (if any) as JSON and decodes a 2xx response into result
// (if non-nil). Non-2xx responses become *APIError.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.creds != nil {
		token, err := c.creds.Token(ctx)
		if err != nil {
			return fmt.Errorf("resolving credentials: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{StatusCode: resp.StatusCode, RequestID: resp.Header.Get("X-Request-ID")}
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &errResp) == nil && errResp.Error != "" {
			apiErr.Message = errResp.Error
		} else {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}
	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

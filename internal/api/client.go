package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTimeout is the HTTP client timeout used when none is configured.
const DefaultTimeout = 30 * time.Second

// TokenFunc supplies the current access token for authenticated requests.
// It reports false when no session is active.
type TokenFunc func() (string, bool)

// Config configures the API client.
type Config struct {
	// BaseURL is the service origin, e.g. "https://api.tidepool.org".
	BaseURL string
	// Token supplies the access token for authenticated requests.
	Token TokenFunc
	// UserAgent is sent as the User-Agent header when non-empty.
	UserAgent string
	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client
	// Logger receives per-request debug logs. Zero value disables logging.
	Logger zerolog.Logger
}

// Client is the HTTP API client.
type Client struct {
	baseURL    *url.URL
	token      TokenFunc
	userAgent  string
	httpClient *http.Client
	log        zerolog.Logger
}

// New creates a new API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL is required", ErrInvalidURL)
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, cfg.BaseURL)
	}
	base.Path = strings.TrimSuffix(base.Path, "/")

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	token := cfg.Token
	if token == nil {
		token = func() (string, bool) { return "", false }
	}

	return &Client{
		baseURL:    base,
		token:      token,
		userAgent:  cfg.UserAgent,
		httpClient: httpClient,
		log:        cfg.Logger,
	}, nil
}

// Request describes one typed API request.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Body is JSON-encoded when non-nil.
	Body any
	// Authenticated requests carry the current access token as a bearer
	// header and fail with ErrSessionMissing when no token is available.
	Authenticated bool
	Expect        Expect
}

// Do dispatches a request and classifies the response. On success the body is
// decoded into out when out is non-nil. The returned header is valid whenever
// an HTTP response was received, including on classified errors.
func (c *Client) Do(ctx context.Context, req Request, out any) (http.Header, error) {
	rawURL := c.baseURL.String() + req.Path
	if len(req.Query) > 0 {
		rawURL += "?" + req.Query.Encode()
	}

	var bodyReader io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: marshal body: %v", ErrRequestInvalid, err)
		}
		bodyReader = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, rawURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestInvalid, err)
	}

	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	if req.Authenticated {
		token, ok := c.token()
		if !ok {
			return nil, ErrSessionMissing
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
		httpReq.Header.Set(SessionTokenHeader, token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.log.Debug().Str("method", req.Method).Str("path", req.Path).Err(err).Msg("request failed")
		return nil, &NetworkError{Err: err, URL: rawURL}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.Header, &UnexpectedResponseError{Err: err, URL: rawURL}
	}

	c.log.Debug().
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("request completed")

	return resp.Header, Classify(resp.StatusCode, resp.Header, body, req.Expect, out)
}

package tidepool

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultClientID    = "tidepool-client-go"
	defaultRedirectURL = "org.tidepool.client-go://oauth/redirect"
	defaultTimeout     = 30 * time.Second
)

// defaultScopes are requested during login; offline_access asks the server
// for a refresh token.
var defaultScopes = []string{"openid", "offline_access", "email"}

// clientConfig holds configuration for the client.
type clientConfig struct {
	environment Environment
	baseURL     string
	issuerURL   string
	clientID    string
	redirectURL string
	scopes      []string
	httpClient  *http.Client
	timeout     time.Duration
	logger      zerolog.Logger
	session     *Session
}

// Option configures the client.
type Option func(*clientConfig)

// WithEnvironment selects the environment the client talks to.
// Default: the production environment.
func WithEnvironment(env Environment) Option {
	return func(c *clientConfig) {
		c.environment = env
	}
}

// WithBaseURL overrides the service base URL derived from the environment.
func WithBaseURL(url string) Option {
	return func(c *clientConfig) {
		c.baseURL = url
	}
}

// WithIssuerURL overrides the OAuth issuer URL derived from the environment.
func WithIssuerURL(url string) Option {
	return func(c *clientConfig) {
		c.issuerURL = url
	}
}

// WithClientID sets the OAuth client identifier registered for this
// application.
func WithClientID(clientID string) Option {
	return func(c *clientConfig) {
		c.clientID = clientID
	}
}

// WithRedirectURL sets the redirect URL the user-agent collaborator returns
// to after authorization.
func WithRedirectURL(url string) Option {
	return func(c *clientConfig) {
		c.redirectURL = url
	}
}

// WithScopes sets the OAuth scopes requested during login.
func WithScopes(scopes ...string) Option {
	return func(c *clientConfig) {
		c.scopes = scopes
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithTimeout sets the default HTTP timeout. Ignored when a custom HTTP
// client is supplied.
func WithTimeout(timeout time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = timeout
	}
}

// WithLogger sets a structured logger for debug output. Default: no logging.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithSession seeds the client with a previously persisted session, e.g. one
// saved by a Subscribe observer across process restarts.
func WithSession(session *Session) Option {
	return func(c *clientConfig) {
		c.session = session
	}
}

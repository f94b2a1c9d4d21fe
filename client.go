package tidepool

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aiwanyun/TidepoolKit/internal/api"
)

// Version is the SDK version reported in the User-Agent header.
const Version = "1.0.0"

// keycloakTokenPath and keycloakRevokePath are the fixed protocol paths of
// the platform's authorization server, relative to the issuer.
const (
	keycloakTokenPath  = "/protocol/openid-connect/token"
	keycloakRevokePath = "/protocol/openid-connect/revoke"
)

// Client is the Tidepool API client. It orchestrates request construction,
// dispatch, response classification, and the single refresh-and-retry on an
// expired access token. Clients are safe for concurrent use; the session
// store is the only shared mutable state.
type Client struct {
	cfg       *clientConfig
	api       *api.Client
	http      *http.Client
	sessions  *SessionStore
	refresher *tokenRefresher
	issuerURL string
	log       zerolog.Logger
}

// New creates a new Tidepool client.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		environment: DefaultEnvironment(),
		clientID:    defaultClientID,
		redirectURL: defaultRedirectURL,
		scopes:      defaultScopes,
		timeout:     defaultTimeout,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	baseURL := cfg.baseURL
	if baseURL == "" {
		baseURL = cfg.environment.BaseURL()
	}
	issuerURL := cfg.issuerURL
	if issuerURL == "" {
		issuerURL = cfg.environment.IssuerURL()
	}

	sessions := NewSessionStore()

	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.timeout}
	}

	apiClient, err := api.New(api.Config{
		BaseURL:    baseURL,
		UserAgent:  "TidepoolKit/" + Version + " Go",
		HTTPClient: httpClient,
		Logger:     cfg.logger,
		Token: func() (string, bool) {
			session := sessions.Current()
			if session == nil {
				return "", false
			}
			return session.AccessToken, true
		},
	})
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:       cfg,
		api:       apiClient,
		http:      httpClient,
		sessions:  sessions,
		issuerURL: issuerURL,
		log:       cfg.logger,
		refresher: &tokenRefresher{
			store:     sessions,
			api:       apiClient,
			clientID:  cfg.clientID,
			tokenURL:  issuerURL + keycloakTokenPath,
			revokeURL: issuerURL + keycloakRevokePath,
			log:       cfg.logger,
		},
	}

	if cfg.session != nil {
		if cfg.session.AccessToken == "" || cfg.session.Environment.IsZero() {
			return nil, errors.New("seeded session must carry an access token and environment")
		}
		sessions.Replace(cfg.session)
	}

	return c, nil
}

// Sessions returns the session store. Subscribe to it to persist sessions
// across restarts; Current reports the active session.
func (c *Client) Sessions() *SessionStore {
	return c.sessions
}

// Environment returns the environment the client talks to.
func (c *Client) Environment() Environment {
	return c.cfg.environment
}

func (c *Client) httpClient() *http.Client {
	return c.http
}

// do dispatches an authenticated request and classifies the response. On a
// not-authenticated outcome, and only when the session carries a refresh
// token, it triggers exactly one refresh and retries the original request
// exactly once with the new token. A second not-authenticated outcome is
// surfaced as-is.
func (c *Client) do(ctx context.Context, req api.Request, out any) (http.Header, error) {
	header, err := c.api.Do(ctx, req, out)
	if err == nil || !req.Authenticated || !errors.Is(err, ErrNotAuthenticated) {
		return header, err
	}

	session := c.sessions.Current()
	if session == nil || session.RefreshToken == "" {
		return header, err
	}

	c.log.Debug().Str("path", req.Path).Msg("not authenticated, refreshing session")
	if _, refreshErr := c.refresher.RefreshIfNeeded(ctx); refreshErr != nil {
		return header, refreshErr
	}

	return c.api.Do(ctx, req, out)
}

// RefreshSession forces a token refresh, joining an in-flight refresh when
// one exists, and returns the refreshed session.
func (c *Client) RefreshSession(ctx context.Context) (*Session, error) {
	return c.refresher.RefreshIfNeeded(ctx)
}

// Logout revokes the session's tokens server-side and clears the local
// session. The local session is cleared even when the server call fails;
// the failure is returned for diagnostics.
func (c *Client) Logout(ctx context.Context) error {
	return c.refresher.Revoke(ctx)
}

// VerifySession checks the current session against the service. The service
// echoes a renewed session token header on success; when the echoed token
// differs from the current one the session store is updated. A successful
// response without the echo classifies as ErrResponseNotAuthenticated.
func (c *Client) VerifySession(ctx context.Context) (*Session, error) {
	session := c.sessions.Current()
	if session == nil {
		return nil, ErrSessionMissing
	}

	var user struct {
		UserID   string `json:"userid"`
		Username string `json:"username"`
	}
	header, err := c.do(ctx, api.Request{
		Method:        http.MethodGet,
		Path:          "/auth/user",
		Authenticated: true,
		Expect:        api.Expect{JSON: true, AuthEcho: api.SessionTokenHeader},
	}, &user)
	if err != nil {
		return nil, err
	}

	// Re-read: the retry path may have replaced the session.
	session = c.sessions.Current()
	if session == nil {
		return nil, ErrSessionMissing
	}

	if echoed := header.Get(api.SessionTokenHeader); echoed != "" && echoed != session.AccessToken {
		next := NewSession(session.Environment, echoed, session.RefreshToken)
		if next.UserID == "" {
			next.UserID = session.UserID
		}
		c.sessions.Replace(next)
		session = next
	}

	return session, nil
}

// currentUserID returns the user identifier of the active session.
func (c *Client) currentUserID() (string, error) {
	session := c.sessions.Current()
	if session == nil {
		return "", ErrSessionMissing
	}
	return session.UserID, nil
}

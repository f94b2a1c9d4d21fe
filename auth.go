package tidepool

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// UserAgent is the external collaborator that drives the interactive part of
// the login flow. Given an authorization URL it presents the authorization
// server to the user and returns the redirect URL the server sent the user
// back to, which carries the code and state query parameters. A canceled
// flow returns ErrLoginCanceled.
//
// The SDK renders no UI; a CLI might open a browser and capture the redirect
// on a loopback listener, a mobile app would use its platform's
// authentication session.
type UserAgent interface {
	Authorize(ctx context.Context, authorizationURL, redirectURL string) (string, error)
}

// UserAgentFunc adapts a function to the UserAgent interface.
type UserAgentFunc func(ctx context.Context, authorizationURL, redirectURL string) (string, error)

// Authorize implements UserAgent.
func (f UserAgentFunc) Authorize(ctx context.Context, authorizationURL, redirectURL string) (string, error) {
	return f(ctx, authorizationURL, redirectURL)
}

// Login drives the OAuth2 authorization-code flow with PKCE for the client's
// environment and, on success, replaces the session store's session with the
// new one. A canceled or failed flow leaves any prior session untouched.
func (c *Client) Login(ctx context.Context, agent UserAgent) (*Session, error) {
	ctx = oidc.ClientContext(ctx, c.httpClient())

	provider, err := oidc.NewProvider(ctx, c.issuerURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIssuerMetadataMissing, err)
	}

	endpoint := provider.Endpoint()
	if endpoint.AuthURL == "" || endpoint.TokenURL == "" {
		return nil, ErrConfigurationMissing
	}

	oauthConfig := &oauth2.Config{
		ClientID:    c.cfg.clientID,
		RedirectURL: c.cfg.redirectURL,
		Endpoint:    endpoint,
		Scopes:      c.cfg.scopes,
	}

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	authorizationURL := oauthConfig.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))

	redirect, err := agent.Authorize(ctx, authorizationURL, c.cfg.redirectURL)
	if err != nil {
		if errors.Is(err, ErrLoginCanceled) || errors.Is(err, context.Canceled) {
			return nil, ErrLoginCanceled
		}
		return nil, &AuthenticationError{Message: "authorization failed", Err: err}
	}

	code, err := parseRedirect(redirect, state)
	if err != nil {
		return nil, err
	}

	token, err := oauthConfig.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			message := retrieveErr.ErrorCode
			if retrieveErr.ErrorDescription != "" {
				message += ": " + retrieveErr.ErrorDescription
			}
			return nil, &AuthenticationError{Message: message, Err: err}
		}
		return nil, &NetworkError{Err: err, URL: endpoint.TokenURL}
	}
	if token.AccessToken == "" {
		return nil, ErrTokenMissing
	}

	session := NewSession(c.cfg.environment, token.AccessToken, token.RefreshToken)
	c.sessions.Replace(session)
	c.log.Debug().Str("userId", session.UserID).Msg("logged in")

	return session, nil
}

// parseRedirect extracts and validates the authorization code from the
// redirect URL returned by the user agent. The state parameter must match
// the one generated for this attempt.
func parseRedirect(redirect, state string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(redirect))
	if err != nil {
		return "", fmt.Errorf("%w: redirect %q", ErrInvalidURL, redirect)
	}

	query := parsed.Query()
	if errorCode := query.Get("error"); errorCode != "" {
		message := errorCode
		if description := query.Get("error_description"); description != "" {
			message += ": " + description
		}
		return "", &AuthenticationError{Message: message}
	}

	if got := query.Get("state"); got == "" || got != state {
		return "", ErrStateMismatch
	}

	code := query.Get("code")
	if code == "" {
		return "", ErrAuthorizationCodeMissing
	}

	return code, nil
}

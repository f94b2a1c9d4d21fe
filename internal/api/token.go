package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// RefreshToken exchanges a refresh token for a new token pair at the given
// token endpoint. A rejected grant classifies as not-authenticated via
// *OAuthError; transport failures classify as *NetworkError.
func (c *Client) RefreshToken(ctx context.Context, tokenURL, clientID, refreshToken string) (*TokenResult, error) {
	form := url.Values{
		"grant_type":    []string{"refresh_token"},
		"refresh_token": []string{refreshToken},
		"client_id":     []string{clientID},
	}

	status, body, err := c.postForm(ctx, tokenURL, form)
	if err != nil {
		return nil, err
	}

	if status < 200 || status > 299 {
		return nil, classifyTokenError(status, body)
	}

	var result TokenResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &MalformedJSONError{Err: err, Body: body}
	}
	if result.AccessToken == "" {
		return nil, ErrTokenMissing
	}

	c.log.Debug().Str("endpoint", tokenURL).Msg("token refreshed")
	return &result, nil
}

// RevokeToken revokes a token at the given revocation endpoint (RFC 7009).
func (c *Client) RevokeToken(ctx context.Context, revokeURL, clientID, token, tokenTypeHint string) error {
	form := url.Values{
		"token":     []string{token},
		"client_id": []string{clientID},
	}
	if tokenTypeHint != "" {
		form.Set("token_type_hint", tokenTypeHint)
	}

	status, body, err := c.postForm(ctx, revokeURL, form)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return classifyTokenError(status, body)
	}
	return nil
}

// postForm sends a form-encoded POST to an absolute URL, outside the base-URL
// request path used by Do. Token endpoints live on the auth origin rather
// than the data origin.
func (c *Client) postForm(ctx context.Context, rawURL string, form url.Values) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrRequestInvalid, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &NetworkError{Err: err, URL: rawURL}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, &UnexpectedResponseError{Err: err, URL: rawURL}
	}
	return resp.StatusCode, body, nil
}

// classifyTokenError maps a non-2xx token endpoint response to a typed error.
func classifyTokenError(status int, body []byte) error {
	var oauthErr oauthErrorResponse
	if err := json.Unmarshal(body, &oauthErr); err == nil && oauthErr.Error != "" {
		return &OAuthError{Code: oauthErr.Error, Description: oauthErr.Description, StatusCode: status}
	}
	if status == http.StatusUnauthorized {
		return ErrNotAuthenticated
	}
	return &UnexpectedStatusError{StatusCode: status, Body: body}
}

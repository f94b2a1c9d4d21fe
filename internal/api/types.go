package api

import (
	"bytes"
	"encoding/json"
)

// SessionTokenHeader is the header the platform uses to echo a renewed
// session token on authenticated responses.
const SessionTokenHeader = "X-Tidepool-Session-Token"

// Error codes the server uses to distinguish 403 variants.
const (
	errorCodeEmailNotVerified = "email-not-verified"
	errorCodeTermsNotAccepted = "terms-of-service-not-accepted"
)

// ErrorDetail is one entry of a structured-error response body.
type ErrorDetail struct {
	Code   string         `json:"code,omitempty"`
	Title  string         `json:"title,omitempty"`
	Detail string         `json:"detail,omitempty"`
	Status int            `json:"status,omitempty"`
	Source *ErrorSource   `json:"source,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// ErrorSource identifies the part of the request an ErrorDetail refers to.
type ErrorSource struct {
	Parameter string `json:"parameter,omitempty"`
	Pointer   string `json:"pointer,omitempty"`
}

// decodeErrorDetails parses a structured-error body. The document is an array
// of detail objects; a single bare object is accepted and wrapped. Returns
// false when the body does not decode to either form.
func decodeErrorDetails(body []byte) ([]ErrorDetail, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, false
	}

	var details []ErrorDetail
	if err := json.Unmarshal(trimmed, &details); err == nil && len(details) > 0 {
		return details, true
	}

	var single ErrorDetail
	if err := json.Unmarshal(trimmed, &single); err == nil && (single.Code != "" || single.Title != "" || single.Detail != "") {
		return []ErrorDetail{single}, true
	}

	return nil, false
}

// TokenResult is the payload of a successful token endpoint response.
type TokenResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// oauthErrorResponse is the RFC 6749 error payload of token endpoints.
type oauthErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

package tidepool

import (
	"errors"
	"fmt"

	"github.com/aiwanyun/TidepoolKit/internal/api"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrSessionMissing is returned when an authenticated operation is
	// attempted without an active session.
	ErrSessionMissing = api.ErrSessionMissing

	// ErrLoginCanceled is returned when the user cancels the login flow.
	// A canceled flow leaves any prior session untouched.
	ErrLoginCanceled = errors.New("login canceled")

	// ErrRefreshTokenMissing is returned when a refresh is requested but the
	// session carries no refresh token. This is fatal to the call and is not
	// itself a cause for logout.
	ErrRefreshTokenMissing = errors.New("session has no refresh token")

	// ErrIssuerMetadataMissing is returned when the environment's issuer
	// metadata cannot be discovered.
	ErrIssuerMetadataMissing = errors.New("issuer metadata is missing")

	// ErrConfigurationMissing is returned when discovered issuer metadata
	// lacks the endpoints the login flow requires.
	ErrConfigurationMissing = errors.New("discovered configuration is missing")

	// ErrAuthorizationCodeMissing is returned when the redirect URL carries
	// no authorization code.
	ErrAuthorizationCodeMissing = errors.New("authorization code is missing")

	// ErrStateMismatch is returned when the state parameter of the redirect
	// URL is absent or does not match the one generated for the attempt.
	ErrStateMismatch = errors.New("state is missing or does not match")

	// ErrTokenMissing is returned when a token endpoint response carries no
	// access token.
	ErrTokenMissing = api.ErrTokenMissing

	// ErrRequestInvalid is returned when a request cannot be constructed;
	// nothing was sent to the server.
	ErrRequestInvalid = api.ErrRequestInvalid

	// ErrInvalidURL is returned when a URL cannot be parsed.
	ErrInvalidURL = api.ErrInvalidURL

	// ErrRequestMalformed is returned when the server rejects the request as
	// malformed (HTTP 400). The concrete error is a *RequestMalformedError
	// which may carry structured details.
	ErrRequestMalformed = api.ErrRequestMalformed

	// ErrNotAuthenticated is returned when the server rejects the access
	// token (HTTP 401) and the single refresh-and-retry did not resolve it.
	ErrNotAuthenticated = api.ErrNotAuthenticated

	// ErrNotAuthorized is returned when the authenticated user may not
	// perform the operation (HTTP 403).
	ErrNotAuthorized = api.ErrNotAuthorized

	// ErrEmailNotVerified is the 403 variant for an unverified account
	// email address.
	ErrEmailNotVerified = api.ErrEmailNotVerified

	// ErrTermsNotAccepted is the 403 variant for unaccepted terms of
	// service.
	ErrTermsNotAccepted = api.ErrTermsNotAccepted

	// ErrResourceNotFound is returned when the requested resource does not
	// exist (HTTP 404).
	ErrResourceNotFound = api.ErrResourceNotFound

	// ErrResponseNotAuthenticated is returned when a successful response is
	// missing the renewed session token it was expected to echo.
	ErrResponseNotAuthenticated = api.ErrResponseNotAuthenticated

	// ErrResponseMissingJSON is returned when a successful response carries
	// no body where JSON was required.
	ErrResponseMissingJSON = api.ErrResponseMissingJSON

	// ErrResponseMalformed is returned when a successful response decodes
	// but is missing data the operation requires.
	ErrResponseMalformed = errors.New("response is malformed")
)

// Typed errors re-exported from the transport layer. Each carries only the
// payload its kind needs; match with errors.As or the sentinels above.
type (
	// ErrorDetail is one entry of a structured-error response body. The
	// Source pointer identifies the submitted record a detail refers to.
	ErrorDetail = api.ErrorDetail

	// ErrorSource identifies the part of the request an ErrorDetail refers to.
	ErrorSource = api.ErrorSource

	// NetworkError represents a transport-level failure before any HTTP
	// response was received.
	NetworkError = api.NetworkError

	// UnexpectedResponseError represents a response that could not be
	// consumed as a well-formed HTTP exchange.
	UnexpectedResponseError = api.UnexpectedResponseError

	// RequestMalformedError represents an HTTP 400, with structured details
	// when the body carried them.
	RequestMalformedError = api.RequestMalformedError

	// ForbiddenError represents an HTTP 403 and its body-marker variants.
	ForbiddenError = api.ForbiddenError

	// UnexpectedStatusError represents a status code outside the classified
	// set, carrying the raw status and body.
	UnexpectedStatusError = api.UnexpectedStatusError

	// MalformedJSONError represents a successful response whose body could
	// not be parsed as JSON.
	MalformedJSONError = api.MalformedJSONError

	// UnexpectedJSONError represents a successful response whose body was
	// valid JSON but did not match the expected shape.
	UnexpectedJSONError = api.UnexpectedJSONError

	// OAuthError represents a structured error from an OAuth token or
	// revocation endpoint, carrying the server-supplied reason.
	OAuthError = api.OAuthError
)

// AuthenticationError represents a failed login flow with a server-supplied
// message.
type AuthenticationError struct {
	Message string
	Err     error
}

func (e *AuthenticationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("authentication failed: %s", e.Message)
	}
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// TidepoolError implements the TidepoolError interface.
func (e *AuthenticationError) TidepoolError() {}

// TidepoolError is implemented by the SDK's typed errors. Sentinel errors are
// plain errors; match those with errors.Is.
type TidepoolError interface {
	error
	TidepoolError() // marker method
}

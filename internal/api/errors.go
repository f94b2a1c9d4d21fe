package api

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrSessionMissing is returned when an authenticated request is built
	// without an active session.
	ErrSessionMissing = errors.New("no active session")

	// ErrRequestInvalid is returned when a request cannot be constructed;
	// nothing was sent to the server.
	ErrRequestInvalid = errors.New("request is invalid")

	// ErrInvalidURL is returned when a URL cannot be parsed.
	ErrInvalidURL = errors.New("URL is invalid")

	// ErrNotAuthenticated is returned when the server rejects the access
	// token (HTTP 401).
	ErrNotAuthenticated = errors.New("authentication token is invalid or expired")

	// ErrNotAuthorized is returned when the authenticated user may not
	// perform the operation (HTTP 403).
	ErrNotAuthorized = errors.New("authentication token is not authorized for requested action")

	// ErrEmailNotVerified is returned for the 403 variant indicating the
	// account email address has not been verified.
	ErrEmailNotVerified = errors.New("email address is not verified")

	// ErrTermsNotAccepted is returned for the 403 variant indicating the
	// terms of service have not been accepted.
	ErrTermsNotAccepted = errors.New("terms of service are not accepted")

	// ErrResourceNotFound is returned when the requested resource does not
	// exist (HTTP 404).
	ErrResourceNotFound = errors.New("resource not found")

	// ErrRequestMalformed is returned when the server rejects the request as
	// malformed (HTTP 400). Match with errors.Is; the concrete error is a
	// *RequestMalformedError which may carry structured details.
	ErrRequestMalformed = errors.New("request is malformed")

	// ErrResponseNotAuthenticated is returned when a successful response is
	// missing the renewed session token header it was expected to carry.
	ErrResponseNotAuthenticated = errors.New("response is missing expected session token")

	// ErrResponseMissingJSON is returned when a successful response carries
	// no body where JSON was required.
	ErrResponseMissingJSON = errors.New("response is missing expected JSON")

	// ErrTokenMissing is returned when a token endpoint response does not
	// contain an access token.
	ErrTokenMissing = errors.New("token is missing from response")
)

// NetworkError represents a transport-level failure before any HTTP response
// was received.
type NetworkError struct {
	Err error
	URL string
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// TidepoolError implements the TidepoolError interface.
func (e *NetworkError) TidepoolError() {}

// UnexpectedResponseError represents a response that was received but could
// not be consumed as a well-formed HTTP exchange.
type UnexpectedResponseError struct {
	Err error
	URL string
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("unexpected response: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *UnexpectedResponseError) Unwrap() error {
	return e.Err
}

// TidepoolError implements the TidepoolError interface.
func (e *UnexpectedResponseError) TidepoolError() {}

// RequestMalformedError represents an HTTP 400 from the server. Details is
// populated when the response body carried a decodable structured-error
// document; otherwise Body holds the raw bytes.
type RequestMalformedError struct {
	Details []ErrorDetail
	Body    []byte
}

func (e *RequestMalformedError) Error() string {
	if len(e.Details) == 0 {
		return "request is malformed"
	}
	return fmt.Sprintf("request is malformed (%d details)", len(e.Details))
}

// Is implements errors.Is for sentinel error matching.
func (e *RequestMalformedError) Is(target error) bool {
	return target == ErrRequestMalformed
}

// TidepoolError implements the TidepoolError interface.
func (e *RequestMalformedError) TidepoolError() {}

// ForbiddenError represents an HTTP 403 from the server. Details is populated
// when the body carried a structured-error document; its codes distinguish
// the email-not-verified and terms-not-accepted variants.
type ForbiddenError struct {
	Details []ErrorDetail
	Body    []byte
}

func (e *ForbiddenError) Error() string {
	switch {
	case e.hasCode(errorCodeEmailNotVerified):
		return ErrEmailNotVerified.Error()
	case e.hasCode(errorCodeTermsNotAccepted):
		return ErrTermsNotAccepted.Error()
	}
	return ErrNotAuthorized.Error()
}

func (e *ForbiddenError) hasCode(code string) bool {
	for _, detail := range e.Details {
		if detail.Code == code {
			return true
		}
	}
	return false
}

// Is implements errors.Is for sentinel error matching. Every 403 matches
// ErrNotAuthorized; the two marker variants additionally match their own
// sentinels.
func (e *ForbiddenError) Is(target error) bool {
	switch target {
	case ErrNotAuthorized:
		return true
	case ErrEmailNotVerified:
		return e.hasCode(errorCodeEmailNotVerified)
	case ErrTermsNotAccepted:
		return e.hasCode(errorCodeTermsNotAccepted)
	}
	return false
}

// TidepoolError implements the TidepoolError interface.
func (e *ForbiddenError) TidepoolError() {}

// UnexpectedStatusError represents a status code outside the classified set.
type UnexpectedStatusError struct {
	StatusCode int
	Body       []byte
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d", e.StatusCode)
}

// TidepoolError implements the TidepoolError interface.
func (e *UnexpectedStatusError) TidepoolError() {}

// MalformedJSONError represents a successful response whose body could not be
// parsed as JSON.
type MalformedJSONError struct {
	Err  error
	Body []byte
}

func (e *MalformedJSONError) Error() string {
	return fmt.Sprintf("response contains malformed JSON: %v", e.Err)
}

// Unwrap returns the underlying decode error.
func (e *MalformedJSONError) Unwrap() error {
	return e.Err
}

// TidepoolError implements the TidepoolError interface.
func (e *MalformedJSONError) TidepoolError() {}

// UnexpectedJSONError represents a successful response whose body was valid
// JSON but did not match the expected shape.
type UnexpectedJSONError struct {
	Err  error
	Body []byte
}

func (e *UnexpectedJSONError) Error() string {
	return fmt.Sprintf("response contains unexpected JSON: %v", e.Err)
}

// Unwrap returns the underlying decode error.
func (e *UnexpectedJSONError) Unwrap() error {
	return e.Err
}

// TidepoolError implements the TidepoolError interface.
func (e *UnexpectedJSONError) TidepoolError() {}

// OAuthError represents a structured error from an OAuth token or revocation
// endpoint (RFC 6749 section 5.2).
type OAuthError struct {
	Code        string
	Description string
	StatusCode  int
}

func (e *OAuthError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("oauth error %q: %s", e.Code, e.Description)
	}
	return fmt.Sprintf("oauth error %q", e.Code)
}

// Is implements errors.Is for sentinel error matching. A rejected grant means
// the tokens are no longer usable, which classifies as not-authenticated.
func (e *OAuthError) Is(target error) bool {
	if target == ErrNotAuthenticated {
		return e.Code == "invalid_grant" || e.StatusCode == 401
	}
	return false
}

// TidepoolError implements the TidepoolError interface.
func (e *OAuthError) TidepoolError() {}

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
)

// Expect describes what a caller requires of a successful response.
type Expect struct {
	// JSON requires a decodable JSON body on 2xx even when the caller does
	// not decode it into a value.
	JSON bool
	// AuthEcho, when non-empty, names a header a 2xx response must carry
	// (the platform echoes a renewed session token on some endpoints).
	AuthEcho string
}

// Classify maps a completed HTTP exchange to a typed outcome. On success the
// body is decoded into out when out is non-nil. The precedence is
// load-bearing: status classification runs before any body inspection, so a
// 401 with a structured-error body still classifies as not-authenticated.
func Classify(status int, header http.Header, body []byte, expect Expect, out any) error {
	switch {
	case status == http.StatusBadRequest:
		if details, ok := decodeErrorDetails(body); ok {
			return &RequestMalformedError{Details: details, Body: body}
		}
		return &RequestMalformedError{Body: body}
	case status == http.StatusUnauthorized:
		return ErrNotAuthenticated
	case status == http.StatusForbidden:
		details, _ := decodeErrorDetails(body)
		return &ForbiddenError{Details: details, Body: body}
	case status == http.StatusNotFound:
		return ErrResourceNotFound
	case status < 200 || status > 299:
		return &UnexpectedStatusError{StatusCode: status, Body: body}
	}

	if expect.AuthEcho != "" && header.Get(expect.AuthEcho) == "" {
		return ErrResponseNotAuthenticated
	}

	if out == nil && !expect.JSON {
		return nil
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ErrResponseMissingJSON
	}

	if !json.Valid(trimmed) {
		// Re-run the decode to surface the syntax error for diagnostics.
		var discard any
		err := json.Unmarshal(trimmed, &discard)
		return &MalformedJSONError{Err: err, Body: body}
	}

	if out != nil {
		if err := json.Unmarshal(trimmed, out); err != nil {
			return &UnexpectedJSONError{Err: err, Body: body}
		}
	}

	return nil
}

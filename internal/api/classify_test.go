package api

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_StatusPrecedence(t *testing.T) {
	structuredBody := []byte(`[{"code":"value-out-of-range","title":"value is out of range","detail":"value 1000 is not between 0 and 100"}]`)

	tests := []struct {
		name     string
		status   int
		body     []byte
		sentinel error
	}{
		{"400 with structured body", 400, structuredBody, ErrRequestMalformed},
		{"400 with raw body", 400, []byte("nope"), ErrRequestMalformed},
		{"401 plain", 401, nil, ErrNotAuthenticated},
		{"401 with structured body classifies as not-authenticated", 401, structuredBody, ErrNotAuthenticated},
		{"403 plain", 403, nil, ErrNotAuthorized},
		{"404", 404, nil, ErrResourceNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify(tt.status, http.Header{}, tt.body, Expect{}, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.sentinel)
		})
	}
}

func TestClassify_401NeverCarriesDetails(t *testing.T) {
	body := []byte(`[{"code":"some-code","title":"some title"}]`)
	err := Classify(401, http.Header{}, body, Expect{}, nil)

	var malformed *RequestMalformedError
	assert.False(t, errors.As(err, &malformed), "401 must not classify as request-malformed")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestClassify_400Details(t *testing.T) {
	body := []byte(`[{"code":"type-invalid","title":"type is invalid","detail":"type \"bolus\" is invalid","source":{"pointer":"/2/type"}},{"code":"time-missing","title":"time is missing","source":{"pointer":"/4/time"}}]`)

	err := Classify(400, http.Header{}, body, Expect{}, nil)

	var malformed *RequestMalformedError
	require.ErrorAs(t, err, &malformed)
	require.Len(t, malformed.Details, 2)
	assert.Equal(t, "type-invalid", malformed.Details[0].Code)
	assert.Equal(t, "/2/type", malformed.Details[0].Source.Pointer)
	assert.Equal(t, "/4/time", malformed.Details[1].Source.Pointer)
}

func TestClassify_400SingleObjectBody(t *testing.T) {
	body := []byte(`{"code":"value-invalid","title":"value is invalid"}`)

	err := Classify(400, http.Header{}, body, Expect{}, nil)

	var malformed *RequestMalformedError
	require.ErrorAs(t, err, &malformed)
	require.Len(t, malformed.Details, 1)
	assert.Equal(t, "value-invalid", malformed.Details[0].Code)
}

func TestClassify_400UndecodableBodyKeepsRawBytes(t *testing.T) {
	body := []byte("<html>bad gateway</html>")

	err := Classify(400, http.Header{}, body, Expect{}, nil)

	var malformed *RequestMalformedError
	require.ErrorAs(t, err, &malformed)
	assert.Empty(t, malformed.Details)
	assert.Equal(t, body, malformed.Body)
}

func TestClassify_403Variants(t *testing.T) {
	tests := []struct {
		name     string
		body     []byte
		sentinel error
		excluded []error
	}{
		{
			name:     "email not verified",
			body:     []byte(`[{"code":"email-not-verified","title":"email is not verified"}]`),
			sentinel: ErrEmailNotVerified,
			excluded: []error{ErrTermsNotAccepted},
		},
		{
			name:     "terms not accepted",
			body:     []byte(`[{"code":"terms-of-service-not-accepted","title":"terms of service are not accepted"}]`),
			sentinel: ErrTermsNotAccepted,
			excluded: []error{ErrEmailNotVerified},
		},
		{
			name:     "plain forbidden",
			body:     []byte(`[{"code":"unauthorized","title":"authentication token is not authorized"}]`),
			sentinel: ErrNotAuthorized,
			excluded: []error{ErrEmailNotVerified, ErrTermsNotAccepted},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify(403, http.Header{}, tt.body, Expect{}, nil)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.ErrorIs(t, err, ErrNotAuthorized)
			for _, excluded := range tt.excluded {
				assert.NotErrorIs(t, err, excluded)
			}
		})
	}
}

func TestClassify_UnexpectedStatus(t *testing.T) {
	err := Classify(503, http.Header{}, []byte("unavailable"), Expect{}, nil)

	var unexpected *UnexpectedStatusError
	require.ErrorAs(t, err, &unexpected)
	assert.Equal(t, 503, unexpected.StatusCode)
	assert.Equal(t, []byte("unavailable"), unexpected.Body)
}

func TestClassify_SuccessJSONLadder(t *testing.T) {
	var out struct {
		Name string `json:"name"`
	}

	t.Run("missing JSON", func(t *testing.T) {
		err := Classify(200, http.Header{}, nil, Expect{JSON: true}, &out)
		assert.ErrorIs(t, err, ErrResponseMissingJSON)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		err := Classify(200, http.Header{}, []byte(`{"name":`), Expect{JSON: true}, &out)
		var malformed *MalformedJSONError
		assert.ErrorAs(t, err, &malformed)
	})

	t.Run("unexpected JSON", func(t *testing.T) {
		err := Classify(200, http.Header{}, []byte(`{"name":42}`), Expect{JSON: true}, &out)
		var unexpected *UnexpectedJSONError
		assert.ErrorAs(t, err, &unexpected)
	})

	t.Run("valid JSON decodes", func(t *testing.T) {
		err := Classify(200, http.Header{}, []byte(`{"name":"ok"}`), Expect{JSON: true}, &out)
		require.NoError(t, err)
		assert.Equal(t, "ok", out.Name)
	})

	t.Run("no body required", func(t *testing.T) {
		err := Classify(204, http.Header{}, nil, Expect{}, nil)
		assert.NoError(t, err)
	})
}

func TestClassify_AuthEcho(t *testing.T) {
	t.Run("echo present", func(t *testing.T) {
		header := http.Header{}
		header.Set(SessionTokenHeader, "renewed-token")
		err := Classify(200, header, []byte(`{}`), Expect{JSON: true, AuthEcho: SessionTokenHeader}, nil)
		assert.NoError(t, err)
	})

	t.Run("echo missing", func(t *testing.T) {
		err := Classify(200, http.Header{}, []byte(`{}`), Expect{JSON: true, AuthEcho: SessionTokenHeader}, nil)
		assert.ErrorIs(t, err, ErrResponseNotAuthenticated)
	})

	t.Run("echo not required on error statuses", func(t *testing.T) {
		err := Classify(401, http.Header{}, nil, Expect{AuthEcho: SessionTokenHeader}, nil)
		assert.ErrorIs(t, err, ErrNotAuthenticated)
	})
}

package tidepool

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/aiwanyun/TidepoolKit/internal/api"
)

func TestClient_RetriesOnceAfterRefresh(t *testing.T) {
	var attempts atomic.Int32
	data := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/metadata/user-1/profile" {
			http.NotFound(w, r)
			return
		}
		attempts.Add(1)
		if r.Header.Get("Authorization") == "Bearer old-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"fullName":"Zoë"}`))
	})
	auth := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access-2","refresh_token":"refresh-2","token_type":"bearer"}`))
	})

	client := newSessionClient(t, data, auth, seedSession())

	profile, err := client.GetProfile(context.Background())
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if profile.FullName != "Zoë" {
		t.Errorf("FullName = %q, want %q", profile.FullName, "Zoë")
	}
	if got := attempts.Load(); got != 2 {
		t.Errorf("request attempts = %d, want original plus one retry", got)
	}

	current := client.Sessions().Current()
	if current == nil || current.AccessToken != "access-2" {
		t.Errorf("session = %+v, want refreshed token stored", current)
	}
}

func TestClient_SecondNotAuthenticatedSurfaced(t *testing.T) {
	var attempts atomic.Int32
	data := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})
	auth := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access-2","token_type":"bearer"}`))
	})

	client := newSessionClient(t, data, auth, seedSession())

	_, err := client.GetProfile(context.Background())
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("error = %v, want ErrNotAuthenticated", err)
	}
	if got := attempts.Load(); got != 2 {
		t.Errorf("request attempts = %d, want exactly one retry", got)
	}
	if client.Sessions().Current() == nil {
		t.Error("a rejected retry must not clear the session")
	}
}

func TestClient_NoRetryWithoutRefreshToken(t *testing.T) {
	var attempts atomic.Int32
	data := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})
	var refreshCalled atomic.Bool
	auth := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshCalled.Store(true)
	})

	session := seedSession()
	session.RefreshToken = ""
	client := newSessionClient(t, data, auth, session)

	_, err := client.GetProfile(context.Background())
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("error = %v, want ErrNotAuthenticated", err)
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("request attempts = %d, want 1", got)
	}
	if refreshCalled.Load() {
		t.Error("refresh must not be attempted without a refresh token")
	}
}

func TestClient_RefreshFailureReplacesRequestError(t *testing.T) {
	data := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	auth := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	client := newSessionClient(t, data, auth, seedSession())

	_, err := client.GetProfile(context.Background())
	var statusErr *UnexpectedStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("error = %v, want the refresh failure surfaced", err)
	}
	if statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want 503 from the token endpoint", statusErr.StatusCode)
	}
}

func TestClient_RequestsFailFastWithoutSession(t *testing.T) {
	var attempts atomic.Int32
	data := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
	})

	client := newSessionClient(t, data, http.NotFoundHandler(), nil)

	_, err := client.GetProfile(context.Background())
	if !errors.Is(err, ErrSessionMissing) {
		t.Fatalf("error = %v, want ErrSessionMissing", err)
	}
	if attempts.Load() != 0 {
		t.Error("no request should leave the client without a session")
	}
}

func TestClient_VerifySessionUpdatesEchoedToken(t *testing.T) {
	data := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/user" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set(api.SessionTokenHeader, "renewed-token")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"userid":"user-1","username":"zoe@example.com"}`))
	})

	client := newSessionClient(t, data, http.NotFoundHandler(), seedSession())

	session, err := client.VerifySession(context.Background())
	if err != nil {
		t.Fatalf("VerifySession() error = %v", err)
	}
	if session.AccessToken != "renewed-token" {
		t.Errorf("AccessToken = %q, want the echoed token", session.AccessToken)
	}
	if session.UserID != "user-1" {
		t.Errorf("UserID = %q, want carried over", session.UserID)
	}

	current := client.Sessions().Current()
	if current == nil || current.AccessToken != "renewed-token" {
		t.Errorf("store session = %+v, want echoed token persisted", current)
	}
}

func TestClient_VerifySessionMissingEcho(t *testing.T) {
	data := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"userid":"user-1"}`))
	})

	client := newSessionClient(t, data, http.NotFoundHandler(), seedSession())

	_, err := client.VerifySession(context.Background())
	if !errors.Is(err, ErrResponseNotAuthenticated) {
		t.Fatalf("error = %v, want ErrResponseNotAuthenticated", err)
	}
}

func TestClient_SeededSessionValidation(t *testing.T) {
	_, err := New(WithSession(&Session{Environment: EnvironmentQA1}))
	if err == nil {
		t.Error("seeding a session without an access token should fail")
	}

	_, err = New(WithSession(&Session{AccessToken: "tok"}))
	if err == nil {
		t.Error("seeding a session without an environment should fail")
	}
}

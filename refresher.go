package tidepool

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/aiwanyun/TidepoolKit/internal/api"
)

// tokenRefresher coordinates token refresh and revocation against the
// session store. At most one refresh (or one revoke) network call is in
// flight at a time; concurrent refresh callers join the in-flight operation
// instead of issuing a duplicate.
type tokenRefresher struct {
	store     *SessionStore
	api       *api.Client
	clientID  string
	tokenURL  string
	revokeURL string
	log       zerolog.Logger

	group singleflight.Group
	// opMu serializes the refresh network call against revoke.
	opMu sync.Mutex
}

// RefreshIfNeeded refreshes the current session's tokens, joining an
// in-flight refresh when one exists. The shared refresh runs on a detached
// context so one caller's cancellation cannot fail the others; a canceled
// caller returns its context error while the refresh completes in the
// background.
func (r *tokenRefresher) RefreshIfNeeded(ctx context.Context) (*Session, error) {
	ch := r.group.DoChan("refresh", func() (any, error) {
		return r.refresh(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Session), nil
	}
}

// refresh performs one network refresh and updates the store. On an
// authentication-rejected outcome the session is cleared; on a transient
// outcome it is left untouched for the caller to decide.
func (r *tokenRefresher) refresh(ctx context.Context) (*Session, error) {
	session := r.store.Current()
	if session == nil {
		return nil, ErrSessionMissing
	}
	if session.RefreshToken == "" {
		return nil, ErrRefreshTokenMissing
	}

	r.opMu.Lock()
	result, err := r.api.RefreshToken(ctx, r.tokenURL, r.clientID, session.RefreshToken)
	r.opMu.Unlock()

	if err != nil {
		if errors.Is(err, ErrNotAuthenticated) {
			r.log.Debug().Msg("refresh rejected, clearing session")
			r.store.Replace(nil)
		}
		return nil, err
	}

	refreshToken := session.RefreshToken
	if result.RefreshToken != "" {
		refreshToken = result.RefreshToken
	}

	next := NewSession(session.Environment, result.AccessToken, refreshToken)
	if next.UserID == "" {
		next.UserID = session.UserID
	}
	r.store.Replace(next)
	r.log.Debug().Str("userId", next.UserID).Msg("session refreshed")

	return next, nil
}

// Revoke invalidates the session's tokens server-side and unconditionally
// clears the local session. Logout is effective locally even when the
// network call fails; the failure is still returned for diagnostics.
func (r *tokenRefresher) Revoke(ctx context.Context) error {
	session := r.store.Current()
	if session == nil {
		return nil
	}

	r.opMu.Lock()
	var err error
	if session.RefreshToken != "" {
		err = r.api.RevokeToken(ctx, r.revokeURL, r.clientID, session.RefreshToken, "refresh_token")
	} else {
		err = r.api.RevokeToken(ctx, r.revokeURL, r.clientID, session.AccessToken, "access_token")
	}
	r.opMu.Unlock()

	r.store.Replace(nil)
	if err != nil {
		r.log.Debug().Err(err).Msg("server-side revoke failed, session cleared locally")
	}
	return err
}

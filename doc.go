// Package tidepool provides a Go client SDK for the Tidepool platform, a
// cloud service for diabetes device data.
//
// The SDK authenticates a user via the OAuth2 authorization-code flow,
// maintains a renewable session, and exposes typed operations against the
// platform's resource model: profiles, data sets, and time-series data
// points.
//
// Basic usage:
//
//	client, err := tidepool.New(tidepool.WithEnvironment(tidepool.EnvironmentProduction))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Log in through a user agent that drives the browser hand-off.
//	session, err := client.Login(ctx, agent)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	profile, err := client.GetProfile(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("Hello,", profile.FullName)
//
// Sessions are renewed automatically: an operation that observes an expired
// access token triggers a single token refresh and retries once. Subscribe
// to the session store to persist sessions across restarts:
//
//	unsubscribe := client.Sessions().Subscribe(func(s *tidepool.Session) {
//	    // Save s, or clear the saved session when s is nil.
//	})
//	defer unsubscribe()
package tidepool

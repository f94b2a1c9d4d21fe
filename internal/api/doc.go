// Package api implements the low-level HTTP contract with the Tidepool
// platform: request construction, dispatch, and the classification of raw
// responses into typed outcomes. The public tidepool package re-exports the
// error types defined here.
package api

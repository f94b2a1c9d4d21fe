package tidepool

import (
	"context"
	"fmt"
)

// Environment identifies a reachable deployment of the Tidepool platform.
// It is an immutable value; two environments are equal when host and port
// match.
type Environment struct {
	Host  string `json:"host"`
	Port  int    `json:"port,omitempty"`
	Label string `json:"label,omitempty"`
}

// Known environments.
var (
	EnvironmentProduction  = Environment{Host: "api.tidepool.org", Label: "Production"}
	EnvironmentIntegration = Environment{Host: "external.integration.tidepool.org", Label: "Integration"}
	EnvironmentQA1         = Environment{Host: "qa1.development.tidepool.org", Label: "QA1"}
	EnvironmentQA2         = Environment{Host: "qa2.development.tidepool.org", Label: "QA2"}
	EnvironmentDev1        = Environment{Host: "dev1.development.tidepool.org", Label: "Development"}
)

// DefaultEnvironment returns the environment used when none is configured.
func DefaultEnvironment() Environment {
	return EnvironmentProduction
}

// Environments returns the static set of known environments.
func Environments() []Environment {
	return []Environment{
		EnvironmentProduction,
		EnvironmentIntegration,
		EnvironmentQA1,
		EnvironmentQA2,
		EnvironmentDev1,
	}
}

// Equal reports whether two environments address the same deployment.
func (e Environment) Equal(other Environment) bool {
	return e.Host == other.Host && e.Port == other.Port
}

// IsZero reports whether the environment is unset.
func (e Environment) IsZero() bool {
	return e.Host == ""
}

// BaseURL returns the service origin for this environment. The default
// HTTPS port is omitted.
func (e Environment) BaseURL() string {
	if e.Port != 0 && e.Port != 443 {
		return fmt.Sprintf("https://%s:%d", e.Host, e.Port)
	}
	return "https://" + e.Host
}

// IssuerURL returns the OAuth issuer for this environment. The platform
// fronts its authorization server under the realm path of the same origin.
func (e Environment) IssuerURL() string {
	return e.BaseURL() + "/auth/realms/tidepool"
}

func (e Environment) String() string {
	if e.Label != "" {
		return fmt.Sprintf("%s (%s)", e.Label, e.Host)
	}
	return e.Host
}

// EnvironmentSource resolves the set of reachable environments. The SDK
// treats the source as an opaque read; implementations may return a static
// list or fetch one.
type EnvironmentSource interface {
	Environments(ctx context.Context) ([]Environment, error)
}

// StaticEnvironments is an EnvironmentSource backed by a fixed list.
type StaticEnvironments []Environment

// Environments implements EnvironmentSource.
func (s StaticEnvironments) Environments(ctx context.Context) ([]Environment, error) {
	out := make([]Environment, len(s))
	copy(out, s)
	return out, nil
}

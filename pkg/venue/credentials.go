package venue

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNoCredentials is returned when a venue has no configured credentials.
var ErrNoCredentials = errors.New("venue: no credentials configured")

// Credentials authenticate one venue connection.
type Credentials struct {
	APIKey    string
	APISecret string
	Testnet   bool
}

// CredentialsResolver resolves venue credentials from the environment,
// keyed by normalized venue name: <VENUE>_API_KEY, <VENUE>_API_SECRET and
// <VENUE>_TESTNET. Built once at startup and passed to whoever constructs
// adapters; no global lookup state.
type CredentialsResolver struct {
	overrides map[string]Credentials
}

// NewCredentialsResolver builds a resolver. Overrides take precedence over
// the environment and are keyed by lowercase venue name.
func NewCredentialsResolver(overrides map[string]Credentials) *CredentialsResolver {
	return &CredentialsResolver{overrides: overrides}
}

// Resolve looks up credentials for a venue.
func (r *CredentialsResolver) Resolve(venueName string) (Credentials, error) {
	key := strings.ToLower(strings.TrimSpace(venueName))
	if c, ok := r.overrides[key]; ok {
		return c, nil
	}

	prefix := strings.ToUpper(key)
	apiKey := os.Getenv(prefix + "_API_KEY")
	apiSecret := os.Getenv(prefix + "_API_SECRET")
	if apiKey == "" || apiSecret == "" {
		return Credentials{}, fmt.Errorf("%w: %s", ErrNoCredentials, venueName)
	}
	return Credentials{
		APIKey:    apiKey,
		APISecret: apiSecret,
		Testnet:   os.Getenv(prefix+"_TESTNET") == "true",
	}, nil
}

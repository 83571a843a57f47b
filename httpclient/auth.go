package httpclient

import (
	"fmt"
	"net/http"
)

// DefaultAPIKeyHeader carries keys from APIKey when no header is named.
const DefaultAPIKeyHeader = "X-API-Key"

// Authorizer decorates an outgoing request with credentials.
type Authorizer func(*http.Request) error

// BearerAuth sends a fixed bearer token.
func BearerAuth(token string) Authorizer {
	return func(r *http.Request) error {
		r.Header.Set("Authorization", "Bearer "+token)
		return nil
	}
}

// MintedBearer calls mint for a fresh token on every request, for
// short-lived signed tokens.
func MintedBearer(mint func() (string, error)) Authorizer {
	return func(r *http.Request) error {
		token, err := mint()
		if err != nil {
			return fmt.Errorf("httpclient: mint bearer token: %w", err)
		}
		r.Header.Set("Authorization", "Bearer "+token)
		return nil
	}
}

// APIKey sends key in header, DefaultAPIKeyHeader when empty.
func APIKey(header, key string) Authorizer {
	if header == "" {
		header = DefaultAPIKeyHeader
	}
	return func(r *http.Request) error {
		r.Header.Set(header, key)
		return nil
	}
}

// BasicAuth sends HTTP basic credentials.
func BasicAuth(username, password string) Authorizer {
	return func(r *http.Request) error {
		r.SetBasicAuth(username, password)
		return nil
	}
}

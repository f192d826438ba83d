package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"os"
)

// HeaderAPIKey carries the shared-secret credential on every request.
const HeaderAPIKey = "X-API-Key"

var (
	ErrMissingAPIKey = errors.New("missing api key")
	ErrInvalidAPIKey = errors.New("invalid api key")
)

type Authenticator interface {
	Authenticate(r *http.Request) error
}

// KeyAuthenticator checks the shared-secret header against a configured value.
// The comparison is constant-time.
type KeyAuthenticator struct {
	Key string
}

func NewAuthenticatorFromEnv() *KeyAuthenticator {
	return &KeyAuthenticator{Key: os.Getenv("HONEYPOT_API_KEY")}
}

func (a *KeyAuthenticator) Authenticate(r *http.Request) error {
	presented := r.Header.Get(HeaderAPIKey)
	if presented == "" {
		return ErrMissingAPIKey
	}
	if a.Key == "" {
		// Never accept requests against an unconfigured secret.
		return ErrInvalidAPIKey
	}
	if subtle.ConstantTimeCompare([]byte(presented), []byte(a.Key)) != 1 {
		return ErrInvalidAPIKey
	}
	return nil
}

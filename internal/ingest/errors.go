package ingest

import "fmt"

// AuthError means the signal provider rejected the credential exchange.
// It fails the whole refresh; there is no degraded mode without a token.
type AuthError struct {
	Status int
	Body   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("watttime login: status %d: %s", e.Status, e.Body)
}

// FetchError is a non-2xx response from either provider outside the
// credential exchange.
type FetchError struct {
	Provider string
	Endpoint string
	Status   int
	Body     string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Provider, e.Endpoint, e.Status, e.Body)
}

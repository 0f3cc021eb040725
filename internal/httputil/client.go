package httputil

import (
	"net/http"
	"time"
)

// DefaultTimeout bounds every upstream provider call. Both providers answer
// in low single-digit seconds when healthy; anything past this is treated as
// a failed fetch rather than left hanging into the next refresh tick.
const DefaultTimeout = 30 * time.Second

// UserAgent identifies this service to the providers, which ask API
// consumers to send a contact-identifying agent string.
const UserAgent = "gridpulse/1.0 (grid telemetry dashboard)"

// NewClient returns an HTTP client with standard timeout configuration.
func NewClient() *http.Client {
	return &http.Client{
		Timeout: DefaultTimeout,
	}
}

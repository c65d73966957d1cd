package datashake

import "fmt"

// AuthError means the API key was rejected by the vendor. It is fatal
// and should not be retried.
type AuthError struct {
	StatusCode int
	URL        string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("api key rejected: status %d: %s", e.StatusCode, e.URL)
}

// TransportError is a network or HTTP-level failure talking to the
// vendor.
type TransportError struct {
	StatusCode int
	URL        string
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("request failed: %s: %s", e.URL, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("request failed: status %d: %s: %s", e.StatusCode, e.Message, e.URL)
	}
	return fmt.Sprintf("request failed: status %d: %s", e.StatusCode, e.URL)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// SchedulingRejectedError means the vendor explicitly declined to
// schedule a crawl for the url.
type SchedulingRejectedError struct {
	URL     string
	Message string
}

func (e *SchedulingRejectedError) Error() string {
	return fmt.Sprintf("vendor declined to schedule %s: %s", e.URL, e.Message)
}

package service

import "fmt"

// NetworkError means the request never produced a server response:
// connection refused, DNS failure, client-side timeout. The caller may
// retry the whole operation; the client never retries on its own.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("ink api unreachable during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// APIError means the server was reached but answered with a non-2xx
// status. The body text is surfaced verbatim as the user-visible message.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ink api returned status %d: %s", e.StatusCode, e.Body)
}

package practicum

import "fmt"

// ConnectivityError wraps a transport-level failure (DNS, timeout,
// connection reset) reaching the status endpoint.
type ConnectivityError struct {
	Endpoint string
	Since    int64
	Err      error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("status API unreachable: %s (from_date=%d): %v", e.Endpoint, e.Since, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// UpstreamError reports a non-200 response from the status endpoint.
type UpstreamError struct {
	StatusCode int
	Status     string // reason phrase as reported by the server
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("status API returned %s", e.Status)
}

// ShapeReason distinguishes the ways an envelope can be malformed.
type ShapeReason string

const (
	ShapeNotObject    ShapeReason = "not an object"
	ShapeMissingField ShapeReason = "missing field"
	ShapeWrongType    ShapeReason = "field wrong type"
)

// ShapeError reports a malformed response envelope.
type ShapeError struct {
	Reason ShapeReason
	Field  string // set for missing-field / wrong-type
}

func (e *ShapeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("malformed envelope: %s %q", e.Reason, e.Field)
	}
	return fmt.Sprintf("malformed envelope: %s", e.Reason)
}

package nodeapi

import "fmt"

// StatusError is returned when the node API answers with a non-2xx status
// and no decodable result body.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("node api %s: %s", e.Endpoint, e.Status)
}

// StatusText returns the HTTP status line, e.g. "401 Unauthorized".
func (e *StatusError) StatusText() string {
	return e.Status
}

package api

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound matches a StatusError carrying 404.
var ErrNotFound = errors.New("not found")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Op     string
	Method string
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s: %s %s: %d %s", e.Op, e.Method, e.URL, e.Status, http.StatusText(e.Status))
	if e.Body != "" {
		body := e.Body
		if len(body) > 200 {
			body = body[:197] + "..."
		}
		msg += ": " + body
	}
	return msg
}

func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// SchemaError reports a response body that failed strict validation.
type SchemaError struct {
	Op  string
	Err error
}

func (e *SchemaError) Error() string { return fmt.Sprintf("%s: invalid response: %v", e.Op, e.Err) }
func (e *SchemaError) Unwrap() error { return e.Err }

package backend

import (
	"fmt"

	"github.com/pkg/errors"
)

// HTTPError is returned for any non-2xx response.
type HTTPError struct {
	Capability Capability
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Capability == CapabilityVoice {
		return fmt.Sprintf("%s API %d: %s", e.Capability, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s API error: %d %s", e.Capability, e.StatusCode, e.Body)
}

// ResponseError is returned when a 2xx response carries an "error" field.
type ResponseError struct {
	Capability Capability
	Message    string
}

func (e *ResponseError) Error() string {
	return e.Message
}

func IsHTTPError(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr)
}

func IsResponseError(err error) bool {
	var respErr *ResponseError
	return errors.As(err, &respErr)
}

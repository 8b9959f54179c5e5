package gitlab

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// APIError is a non-success response from the GitLab API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("GitLab API Error: %d %s - %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// StatusCode returns the upstream status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

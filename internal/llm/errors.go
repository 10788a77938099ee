package llm

import (
	"errors"
	"net/http"
)

// Typed backend errors. Backends wrap their native failures into these so
// callers never have to match on error message strings.
var (
	ErrRateLimited  = errors.New("backend rate limit exceeded")
	ErrAuth         = errors.New("backend authentication failed")
	ErrUnavailable  = errors.New("backend unavailable")
	ErrModelLoading = errors.New("model is still loading")
)

// HTTPStatus maps a classified backend error to the status code the API
// surfaces. Unclassified errors map to 500.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUnavailable), errors.Is(err, ErrModelLoading):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Hint returns a short remediation hint for a classified backend error.
func Hint(err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return "backend rate limit hit; retry after a short wait"
	case errors.Is(err, ErrAuth):
		return "backend rejected credentials; check the configured API key"
	case errors.Is(err, ErrModelLoading):
		return "model is warming up; retry in a few seconds"
	case errors.Is(err, ErrUnavailable):
		return "backend unreachable; check that the service is running"
	default:
		return "unexpected backend failure; see server logs"
	}
}

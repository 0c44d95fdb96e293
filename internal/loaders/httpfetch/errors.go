package httpfetch

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/custodia-labs/lenscore/internal/core/domain"
)

// ErrRateLimited indicates the remote server answered 429.
var ErrRateLimited = errors.New("rate limited")

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Is matches domain.ErrNotFound for 404 and 410, and ErrRateLimited for 429.
func (e *StatusError) Is(target error) bool {
	switch target {
	case domain.ErrNotFound:
		return e.StatusCode == http.StatusNotFound || e.StatusCode == http.StatusGone
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	default:
		return false
	}
}

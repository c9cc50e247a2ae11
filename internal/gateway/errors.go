package gateway

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v62/github"
)

// Typed upstream failures. The metrics engine matches on these with
// errors.Is to decide between aborting and degrading to a partial result.
var (
	// ErrNotFound means the repository does not exist or is not visible
	// with the configured credential.
	ErrNotFound = errors.New("repository not found")
	// ErrRateLimited means the API quota is exhausted; callers should
	// surface a retry-later message rather than backing off themselves.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrAccessDenied means the credential was rejected for a reason
	// other than quota.
	ErrAccessDenied = errors.New("access denied")
)

// classify maps a go-github error onto the typed taxonomy. Errors that match
// nothing are returned as-is and treated as transient by the retry path.
func classify(err error) error {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("%w: resets at %s", ErrRateLimited, rateErr.Rate.Reset.Format("15:04:05"))
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return fmt.Errorf("%w: secondary limit", ErrRateLimited)
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch respErr.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, respErr.Message)
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", ErrAccessDenied, respErr.Message)
		case http.StatusForbidden, http.StatusTooManyRequests:
			// A 403 with zero remaining quota is a rate limit; any
			// other 403 is a permission problem.
			if respErr.Response.Header.Get("X-Ratelimit-Remaining") == "0" {
				return fmt.Errorf("%w: %s", ErrRateLimited, respErr.Message)
			}
			return fmt.Errorf("%w: %s", ErrAccessDenied, respErr.Message)
		}
	}
	return err
}

// permanent reports whether an error is a typed failure that a retry cannot
// fix.
func permanent(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrAccessDenied)
}

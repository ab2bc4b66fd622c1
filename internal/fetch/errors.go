package fetch

import (
	"errors"
	"fmt"
)

// Kind classifies a fetch failure. The scheduler's retry and abort policy
// is driven entirely by this value:
//   - Timeout failures are retried with backoff
//   - Network and Blocked failures are recorded but never retried
//   - Blocked failures additionally feed the bot-detection abort threshold
type Kind int

const (
	// KindOther is the catch-all for failures that fit no other class.
	// It is the zero value so foreign errors default to it.
	KindOther Kind = iota

	// KindTimeout means the fetch exceeded its deadline.
	KindTimeout

	// KindNetwork means the connection itself failed (DNS, refused, reset).
	KindNetwork

	// KindBlocked means the site refused to serve the page (403, 429, bot
	// walls). A run accumulating these is being rate limited or detected.
	KindBlocked
)

// String returns a human-readable description of the failure kind.
func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindNetwork:
		return "network"
	case KindBlocked:
		return "blocked"
	case KindOther:
		return "other"
	default:
		return "unknown"
	}
}

// Error is the typed failure returned by every fetch adapter.
type Error struct {
	// Kind is the failure classification.
	Kind Kind

	// URL is the page whose fetch failed.
	URL string

	// Err is the underlying cause, if any.
	Err error
}

// Error returns the failure as a string.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a classified fetch failure.
func NewError(kind Kind, url string, err error) *Error {
	return &Error{Kind: kind, URL: url, Err: err}
}

// KindOf returns the failure kind carried by err.
// Errors that did not come from a fetch adapter classify as KindOther.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindOther
}

package model

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Target errors.
var (
	// ErrEmptyTarget is returned when the target is empty.
	ErrEmptyTarget = errors.New("target cannot be empty")
	// ErrInvalidTarget is returned when the target is not a usable shop URL.
	ErrInvalidTarget = errors.New("invalid target URL")
)

// Target is an immutable value object representing a single crawl target.
// It accepts what users actually type, a bare domain ("shop.example.com")
// or a full URL, and canonicalizes it into a seed URL plus the hostname
// that scopes the crawl, selects per-site configuration, and names output
// files.
type Target struct {
	seedURL string // Absolute seed URL; https:// is assumed when no scheme is given
	host    string // Lowercased hostname without port
}

// NewTarget creates a new Target from a raw command-line argument.
// Returns an error if the argument cannot be turned into an http(s) URL
// with a hostname.
func NewTarget(raw string) (Target, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Target{}, ErrEmptyTarget
	}

	// Bare domains are the common CLI input; assume https for them.
	withScheme := trimmed
	if !strings.Contains(withScheme, "://") {
		withScheme = "https://" + withScheme
	}

	u, err := url.Parse(withScheme)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %q", ErrInvalidTarget, raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Target{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidTarget, u.Scheme)
	}
	if u.Hostname() == "" {
		return Target{}, fmt.Errorf("%w: %q has no hostname", ErrInvalidTarget, raw)
	}

	return Target{
		seedURL: u.String(),
		host:    strings.ToLower(u.Hostname()),
	}, nil
}

// MustNewTarget creates a new Target or panics if invalid.
// Use only for known-valid targets in tests or initialization.
func MustNewTarget(raw string) Target {
	t, err := NewTarget(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// String returns the absolute seed URL.
func (t Target) String() string {
	return t.seedURL
}

// Host returns the lowercased hostname without port.
func (t Target) Host() string {
	return t.host
}

// IsZero returns true if this is a zero value (empty) Target.
func (t Target) IsZero() bool {
	return t.seedURL == ""
}

// Equals returns true if two Target values point at the same seed URL.
func (t Target) Equals(other Target) bool {
	return t.seedURL == other.seedURL
}

// Package urlnorm validates and canonicalizes the audit target URL.
package urlnorm

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// MaxLength bounds accepted input, matching common browser URL limits.
const MaxLength = 2048

// ErrValidation marks every rejection from Normalize; callers abort the
// audit when they see it.
var ErrValidation = errors.New("invalid url")

// Normalize trims the input, defaults a missing scheme to https, and returns
// a canonical absolute URL. Only http and https targets are accepted.
func Normalize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: empty input", ErrValidation)
	}
	if len(s) > MaxLength {
		return "", fmt.Errorf("%w: longer than %d characters", ErrValidation, MaxLength)
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrValidation, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrValidation, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrValidation)
	}
	u.Scheme = scheme
	u.Host = strings.ToLower(u.Host)
	return u.String(), nil
}

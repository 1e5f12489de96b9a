package wrap

import (
	"fmt"
	"strings"
)

// Scheme is the canonical wrap URI scheme prefix.
const Scheme = "wrap://"

// URI is a parsed wrap URI: wrap://<authority>/<path>.
type URI struct {
	Authority string // resolver namespace, e.g. ipfs, ens, http, fs
	Path      string
}

// String returns the canonical form with the wrap:// scheme.
func (u URI) String() string { return Scheme + u.Authority + "/" + u.Path }

// ParseURI parses a wrap URI in either the canonical or the short form
// (without scheme).
func ParseURI(s string) (URI, error) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimPrefix(raw, Scheme)
	authority, path, ok := strings.Cut(raw, "/")
	// A colon in the authority means some other scheme, e.g. https://.
	if !ok || authority == "" || strings.TrimSpace(path) == "" || strings.ContainsAny(authority, ": \t") {
		return URI{}, fmt.Errorf("%w: %q", ErrInvalidURI, s)
	}
	return URI{Authority: authority, Path: path}, nil
}

// NormalizeURI returns the canonical form of s.
func NormalizeURI(s string) (string, error) {
	u, err := ParseURI(s)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

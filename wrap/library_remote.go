package wrap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultLibraryURL is the public agent wrap library.
const DefaultLibraryURL = "https://raw.githubusercontent.com/polywrap/agent-wrap-library/master/wraps"

// RemoteLibraryOptions configures a RemoteLibrary.
type RemoteLibraryOptions struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client // overrides Timeout when set
}

// RemoteLibrary reads wrap descriptors published as <BaseURL>/<name>.json.
type RemoteLibrary struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemoteLibrary creates a RemoteLibrary. The base URL defaults to DefaultLibraryURL.
func NewRemoteLibrary(optFns ...func(o *RemoteLibraryOptions)) *RemoteLibrary {
	opts := RemoteLibraryOptions{BaseURL: DefaultLibraryURL}
	for _, fn := range optFns {
		fn(&opts)
	}
	client := opts.HTTPClient
	if client == nil {
		client = newHTTPClient(opts.Timeout)
	}
	return &RemoteLibrary{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: client,
	}
}

// BaseURL returns the directory the library reads from.
func (l *RemoteLibrary) BaseURL() string { return l.baseURL }

// GetWrap fetches and decodes the descriptor of name. Relative ABI references
// are resolved against the descriptor's own URL.
func (l *RemoteLibrary) GetWrap(ctx context.Context, name string) (*Info, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrNotFound)
	}

	descriptorURL := l.baseURL + "/" + url.PathEscape(name) + ".json"
	body, err := getBody(ctx, l.httpClient, descriptorURL)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("get wrap %s: %w", name, err)
	}

	var info Info
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("decode wrap %s: %w", name, err)
	}
	if info.Name == "" {
		info.Name = name
	}
	if strings.TrimSpace(info.ABI) == "" {
		return nil, fmt.Errorf("wrap %s: descriptor has no abi url", name)
	}

	abi, err := resolveReference(descriptorURL, info.ABI)
	if err != nil {
		return nil, fmt.Errorf("wrap %s: %w", name, err)
	}
	info.ABI = abi

	return &info, nil
}

func resolveReference(base, ref string) (string, error) {
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid abi url %q: %w", ref, err)
	}
	if refURL.IsAbs() {
		return ref, nil
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid library url %q: %w", base, err)
	}
	return baseURL.ResolveReference(refURL).String(), nil
}

var _ Library = (*RemoteLibrary)(nil)

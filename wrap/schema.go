package wrap

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// SchemaLoaderOptions configures a SchemaLoader.
type SchemaLoaderOptions struct {
	// CacheTTL enables caching of schema documents per wrap name. Zero (the
	// default) disables the cache: every Load resolves and fetches again.
	CacheTTL   time.Duration
	Timeout    time.Duration
	HTTPClient *http.Client // overrides Timeout when set
}

type cachedSchema struct {
	schema  string
	expires time.Time
}

// SchemaLoader resolves a wrap through a Library and downloads the schema
// document its descriptor points to.
type SchemaLoader struct {
	library    Library
	httpClient *http.Client
	ttl        time.Duration
	now        func() time.Time

	mu    sync.Mutex
	cache map[string]cachedSchema
	group singleflight.Group
}

// NewSchemaLoader creates a SchemaLoader reading descriptors from library.
func NewSchemaLoader(library Library, optFns ...func(o *SchemaLoaderOptions)) *SchemaLoader {
	opts := SchemaLoaderOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	client := opts.HTTPClient
	if client == nil {
		client = newHTTPClient(opts.Timeout)
	}
	return &SchemaLoader{
		library:    library,
		httpClient: client,
		ttl:        opts.CacheTTL,
		now:        time.Now,
		cache:      map[string]cachedSchema{},
	}
}

// Load returns the schema document of the named wrap as text.
func (s *SchemaLoader) Load(ctx context.Context, name string) (string, error) {
	if s.ttl <= 0 {
		return s.fetch(ctx, name)
	}

	if schema, ok := s.cached(name); ok {
		return schema, nil
	}

	// Coalesced callers share one fetch; it must outlive any single caller,
	// so it runs detached from ctx and is bounded by the HTTP client timeout.
	ch := s.group.DoChan(name, func() (any, error) {
		schema, err := s.fetch(context.WithoutCancel(ctx), name)
		if err != nil {
			return "", err
		}
		s.mu.Lock()
		s.cache[name] = cachedSchema{schema: schema, expires: s.now().Add(s.ttl)}
		s.mu.Unlock()
		return schema, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Invalidate drops the cached schema of name.
func (s *SchemaLoader) Invalidate(name string) {
	s.mu.Lock()
	delete(s.cache, name)
	s.mu.Unlock()
}

// Purge drops every cached schema.
func (s *SchemaLoader) Purge() {
	s.mu.Lock()
	s.cache = map[string]cachedSchema{}
	s.mu.Unlock()
}

func (s *SchemaLoader) cached(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.cache[name]
	if !ok {
		return "", false
	}
	if !s.now().Before(entry.expires) {
		delete(s.cache, name)
		return "", false
	}
	return entry.schema, true
}

func (s *SchemaLoader) fetch(ctx context.Context, name string) (string, error) {
	info, err := s.library.GetWrap(ctx, name)
	if err != nil {
		return "", err
	}
	body, err := getBody(ctx, s.httpClient, info.ABI)
	if err != nil {
		return "", fmt.Errorf("fetch schema of %s: %w", name, err)
	}
	return string(body), nil
}

package wrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/hupe1980/wrapmesh/logging"
	"gopkg.in/yaml.v3"
)

// fileLibraryDocument is the on-disk YAML shape:
//
//	wraps:
//	  - name: ethereum
//	    uri: wrap://ens/wraps.eth:ethereum@2.0.0
//	    abi: https://example.com/ethereum/schema.graphql
type fileLibraryDocument struct {
	Wraps []Info `yaml:"wraps"`
}

// FileLibraryOptions configures a FileLibrary.
type FileLibraryOptions struct {
	Logger logging.Logger
}

// FileLibrary serves descriptors from a local YAML file. The file is read on
// construction and on Reload; Watch reloads it whenever it changes on disk.
type FileLibrary struct {
	path   string
	logger logging.Logger

	mu    sync.RWMutex
	wraps map[string]Info
}

// LoadFileLibrary reads path and returns a ready FileLibrary.
func LoadFileLibrary(path string, optFns ...func(o *FileLibraryOptions)) (*FileLibrary, error) {
	opts := FileLibraryOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve library path: %w", err)
	}
	l := &FileLibrary{path: abs, logger: logging.OrNoOp(opts.Logger)}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Path returns the absolute path of the backing file.
func (l *FileLibrary) Path() string { return l.path }

// Reload re-reads the backing file. On error the previous contents stay in place.
func (l *FileLibrary) Reload() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return fmt.Errorf("read library %s: %w", l.path, err)
	}

	var doc fileLibraryDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse library %s: %w", l.path, err)
	}

	wraps := make(map[string]Info, len(doc.Wraps))
	for i, info := range doc.Wraps {
		name := strings.TrimSpace(info.Name)
		if name == "" {
			return fmt.Errorf("library %s: entry %d has no name", l.path, i)
		}
		if strings.TrimSpace(info.ABI) == "" {
			return fmt.Errorf("library %s: wrap %s has no abi url", l.path, name)
		}
		if _, dup := wraps[name]; dup {
			return fmt.Errorf("library %s: duplicate wrap %s", l.path, name)
		}
		info.Name = name
		wraps[name] = info
	}

	l.mu.Lock()
	l.wraps = wraps
	l.mu.Unlock()
	return nil
}

// GetWrap returns a copy of the descriptor registered under name.
func (l *FileLibrary) GetWrap(_ context.Context, name string) (*Info, error) {
	l.mu.RLock()
	info, ok := l.wraps[strings.TrimSpace(name)]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return &info, nil
}

// Names lists the known wrap names in sorted order.
func (l *FileLibrary) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.wraps))
	for name := range l.wraps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Watch reloads the library whenever the backing file is written, created or
// renamed into place, calling onReload (if non-nil) after every successful
// reload with every name known before or after it, so removed wraps are
// reported too. It blocks until ctx is done.
func (l *FileLibrary) Watch(ctx context.Context, onReload func(names []string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors often replace files instead of writing them.
	if err := watcher.Add(filepath.Dir(l.path)); err != nil {
		return fmt.Errorf("watch %s: %w", l.path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != l.path || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			affected, err := l.reloadAffected()
			if err != nil {
				l.logger.Warn("wrap.library.reload_failed", "path", l.path, "error", err.Error())
				continue
			}
			l.logger.Info("wrap.library.reloaded", "path", l.path, "wraps", len(l.Names()))
			if onReload != nil {
				onReload(affected)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("wrap.library.watch_error", "path", l.path, "error", err.Error())
		}
	}
}

// reloadAffected reloads the file and returns the sorted union of the names
// known before and after.
func (l *FileLibrary) reloadAffected() ([]string, error) {
	before := l.Names()
	if err := l.Reload(); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(before))
	affected := append([]string(nil), before...)
	for _, name := range before {
		seen[name] = struct{}{}
	}
	for _, name := range l.Names() {
		if _, ok := seen[name]; !ok {
			affected = append(affected, name)
		}
	}
	sort.Strings(affected)
	return affected, nil
}

var _ Library = (*FileLibrary)(nil)

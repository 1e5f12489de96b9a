// Package workspace confines file access to a single directory tree.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// DefaultDir is the workspace directory used when none is configured,
// relative to the working directory.
const DefaultDir = "workspace"

// ErrOutsideWorkspace is returned for paths that resolve outside the workspace.
var ErrOutsideWorkspace = errors.New("path must be within workspace directory")

// Options configures a Workspace.
type Options struct {
	// Fs backs all file operations. Defaults to the OS filesystem.
	Fs       afero.Fs
	DirPerm  os.FileMode
	FilePerm os.FileMode
}

// Workspace is a sandboxed directory. All paths are resolved against its root
// and rejected when they escape it.
type Workspace struct {
	fs       afero.Fs
	root     string
	dirPerm  os.FileMode
	filePerm os.FileMode
}

// New resolves dir to an absolute path and creates it when missing.
func New(dir string, optFns ...func(o *Options)) (*Workspace, error) {
	opts := Options{
		Fs:       afero.NewOsFs(),
		DirPerm:  0o755,
		FilePerm: 0o644,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if strings.TrimSpace(dir) == "" {
		dir = DefaultDir
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace %s: %w", dir, err)
	}
	if err := opts.Fs.MkdirAll(root, opts.DirPerm); err != nil {
		return nil, fmt.Errorf("create workspace %s: %w", root, err)
	}

	return &Workspace{
		fs:       opts.Fs,
		root:     root,
		dirPerm:  opts.DirPerm,
		filePerm: opts.FilePerm,
	}, nil
}

// Root returns the absolute workspace directory.
func (w *Workspace) Root() string { return w.root }

// Fs returns the filesystem backing the workspace.
func (w *Workspace) Fs() afero.Fs { return w.fs }

// ToWorkspacePath resolves p to an absolute path inside the workspace.
// Relative paths are joined to the root; absolute paths are taken as is.
func (w *Workspace) ToWorkspacePath(p string) (string, error) {
	abs := p
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(w.root, abs)
	}
	abs = filepath.Clean(abs)

	rel, err := filepath.Rel(w.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path %s, workspace %s", ErrOutsideWorkspace, p, w.root)
	}
	return abs, nil
}

// ReadFile returns the contents of the file at p.
func (w *Workspace) ReadFile(p string) (string, error) {
	abs, err := w.ToWorkspacePath(p)
	if err != nil {
		return "", err
	}
	data, err := afero.ReadFile(w.fs, abs)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// WriteFile writes data to p, creating parent directories as needed.
func (w *Workspace) WriteFile(p, data string) error {
	abs, err := w.ToWorkspacePath(p)
	if err != nil {
		return err
	}
	if err := w.fs.MkdirAll(filepath.Dir(abs), w.dirPerm); err != nil {
		return fmt.Errorf("create directory for %s: %w", p, err)
	}
	return afero.WriteFile(w.fs, abs, []byte(data), w.filePerm)
}

// Exists reports whether p exists inside the workspace.
func (w *Workspace) Exists(p string) (bool, error) {
	abs, err := w.ToWorkspacePath(p)
	if err != nil {
		return false, err
	}
	return afero.Exists(w.fs, abs)
}

package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Local stores collection documents on the local filesystem under a root directory.
//
// Writes go to a temp file in the destination directory and are renamed over
// the target, so readers observe either the previous or the new document.
type Local struct {
	root string
}

// NewLocal creates a Local backend rooted at root, creating the directory if needed.
func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create storage root %q: %w", root, err)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	return &Local{root: absRoot}, nil
}

// Root returns the absolute storage root.
func (l *Local) Root() string { return l.root }

// abs resolves a caller-supplied logical path to a concrete filesystem path.
// filepath.Rel verifies the result still lives under root.
func (l *Local) abs(path string) (string, error) {
	joined := filepath.Join(l.root, filepath.Clean(filepath.FromSlash(path)))
	rel, err := filepath.Rel(l.root, joined)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("path %q escapes storage root", path)
	}
	return joined, nil
}

// Write streams r to path using a temp-file + atomic rename.
func (l *Local) Write(_ context.Context, path string, r io.Reader) (int64, error) {
	dest, err := l.abs(path)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return 0, fmt.Errorf("mkdir %q: %w", filepath.Dir(dest), err)
	}

	// A unique temp name per write keeps concurrent writers from sharing a file.
	f, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("open tmp for %q: %w", dest, err)
	}
	tmp := f.Name()

	n, werr := io.Copy(f, r)
	if werr == nil {
		werr = f.Sync()
	}
	cerr := f.Close()

	if werr != nil {
		os.Remove(tmp) //nolint:errcheck
		return 0, fmt.Errorf("stream write: %w", werr)
	}
	if cerr != nil {
		os.Remove(tmp) //nolint:errcheck
		return 0, fmt.Errorf("flush: %w", cerr)
	}
	if err := os.Chmod(tmp, 0o640); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return 0, fmt.Errorf("chmod %q: %w", tmp, err)
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return 0, fmt.Errorf("rename to %q: %w", dest, err)
	}
	return n, nil
}

// Read opens path for sequential reading. Caller must close the returned ReadCloser.
func (l *Local) Read(_ context.Context, path string) (io.ReadCloser, int64, error) {
	abs, err := l.abs(path)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, fmt.Errorf("%w: %s", ErrNotExist, path)
		}
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}

// Ping checks that the storage root is still accessible.
func (l *Local) Ping(_ context.Context) error {
	if _, err := os.Stat(l.root); err != nil {
		return fmt.Errorf("stat storage root: %w", err)
	}
	return nil
}

// DiskStats returns the available and total bytes on the filesystem holding
// the root. (0, 0) means the numbers are unavailable on this platform.
func (l *Local) DiskStats() (avail, total uint64) {
	return diskStats(l.root)
}

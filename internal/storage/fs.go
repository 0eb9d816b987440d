package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/starford/avatars/internal/apperr"
)

// MarkdownExt is the extension of persona documents.
const MarkdownExt = ".md"

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to the persona directory
}

var _ Provider = (*FS)(nil)

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute, uncanonicalised root.
func (f *FS) Root() string {
	return f.root
}

// List returns the names of regular Markdown files directly inside root.
func (f *FS) List() ([]string, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", f.root, err)
	}
	// os.ReadDir already sorts by file name.
	var out []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != MarkdownExt {
			continue
		}
		out = append(out, e.Name())
	}
	return out, nil
}

// Resolve joins rel onto the canonical root and canonicalises the result,
// following symlinks and parent segments, before checking containment.
// Targets that do not exist are canonicalised through their longest
// existing ancestor, so a path outside the root is denied whether or not it
// exists. The root itself is not a valid target.
func (f *FS) Resolve(rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s: %w", rel, apperr.ErrAccessDenied)
	}
	base, err := filepath.EvalSymlinks(f.root)
	if err != nil {
		return "", fmt.Errorf("storage: canonicalize root: %w", err)
	}
	resolved, exists, err := canonicalize(base, rel)
	if err != nil {
		return "", fmt.Errorf("storage: resolve %s: %w", rel, err)
	}
	if !strings.HasPrefix(resolved, base+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: path escapes root: %s: %w", rel, apperr.ErrAccessDenied)
	}
	if !exists {
		return "", fmt.Errorf("storage: resolve %s: %w", rel, apperr.ErrNotFound)
	}
	return resolved, nil
}

// canonicalize resolves base/rel through its longest existing prefix and
// appends the remaining segments lexically. exists reports whether the
// whole path was found.
func canonicalize(base, rel string) (resolved string, exists bool, err error) {
	sep := string(os.PathSeparator)
	segs := strings.Split(filepath.FromSlash(rel), sep)
	for i := len(segs); i >= 0; i-- {
		// Unjoined so EvalSymlinks applies ".." after following links.
		prefix := base
		if i > 0 {
			prefix = base + sep + strings.Join(segs[:i], sep)
		}
		canon, err := filepath.EvalSymlinks(prefix)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
				continue
			}
			return "", false, err
		}
		canon, err = filepath.Abs(canon)
		if err != nil {
			return "", false, err
		}
		if i == len(segs) {
			return canon, true, nil
		}
		return filepath.Join(canon, filepath.Join(segs[i:]...)), false, nil
	}
	return "", false, fs.ErrNotExist
}

// Read returns the raw bytes of a file inside the root.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.Resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// writePath resolves a write target lexically; the target may not exist yet.
func (f *FS) writePath(rel string) (string, error) {
	cleaned := filepath.Clean(rel)
	if rel == "" || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: invalid write path %q: %w", rel, apperr.ErrInvalidPath)
	}
	abs := filepath.Join(f.root, cleaned)
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("storage: path escapes root: %s: %w", rel, apperr.ErrAccessDenied)
	}
	return abs, nil
}

// Write atomically writes content: tmp file → fsync → rename.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.writePath(path)
	if err != nil {
		return err
	}
	return WriteFileAtomic(abs, content)
}

// WriteFileAtomic writes content to a temp file next to path and renames it
// into place, so readers see either the old or the new content.
func WriteFileAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".avatars-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("storage: chmod: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

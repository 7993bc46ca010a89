package storage

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

const defaultMimeType = "application/octet-stream"

// FSStore is a filesystem-based implementation of Store. Files live under a
// single root directory, addressed by their slash-separated tree path.
type FSStore struct {
	root string
	mu   sync.RWMutex
}

// NewFSStore creates a filesystem-based store rooted at root.
func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0750); err != nil {
		return nil, fmt.Errorf("create storage root %s: %w", root, err)
	}
	return &FSStore{root: root}, nil
}

// Get retrieves a file by path.
func (fs *FSStore) Get(ctx context.Context, p string) (*File, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	fsPath, err := fs.resolve(p)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(fsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &PathNotFoundError{Path: p}
		}
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		// Directories are not servable files.
		return nil, &PathNotFoundError{Path: p}
	}

	// #nosec G304 - fsPath is resolved and traversal-checked above
	content, err := os.ReadFile(fsPath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return &File{
		Path:     p,
		MimeType: detectMimeType(p),
		Content:  content,
		ModTime:  info.ModTime(),
	}, nil
}

// Exists reports whether a file exists at the path.
func (fs *FSStore) Exists(ctx context.Context, p string) (bool, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	fsPath, err := fs.resolve(p)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(fsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat file: %w", err)
	}
	return !info.IsDir(), nil
}

// Put stores a file at the path.
func (fs *FSStore) Put(ctx context.Context, p string, content []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fsPath, err := fs.resolve(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fsPath), 0750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(fsPath, content, 0600); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// Close releases resources.
func (fs *FSStore) Close() error {
	return nil
}

// resolve maps a tree path to a filesystem path, rejecting traversal
// outside the store root. Untrusted request paths pass through here.
func (fs *FSStore) resolve(p string) (string, error) {
	cleaned := path.Clean("/" + strings.TrimPrefix(p, "/"))
	if cleaned == "/" || strings.Contains(cleaned, "..") {
		return "", &PathNotFoundError{Path: p}
	}
	return filepath.Join(fs.root, filepath.FromSlash(cleaned)), nil
}

func detectMimeType(p string) string {
	if mt := mime.TypeByExtension(path.Ext(p)); mt != "" {
		return mt
	}
	return defaultMimeType
}

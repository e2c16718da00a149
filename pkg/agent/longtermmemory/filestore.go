package longtermmemory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// FileStore is a local file-system implementation of Store. Each fact is a
// markdown file with YAML front matter, kept in one directory per scope.
type FileStore struct {
	dirs map[Scope]string
}

// DefaultDir returns ~/.recall/memories.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("longtermmemory: home directory: %w", err)
	}
	return filepath.Join(home, ".recall", "memories"), nil
}

// NewFileStore creates the scope directories under root.
func NewFileStore(root string) (*FileStore, error) {
	fs := &FileStore{dirs: map[Scope]string{
		ScopeUser:    filepath.Join(root, string(ScopeUser)),
		ScopeSession: filepath.Join(root, string(ScopeSession)),
	}}
	for _, dir := range fs.dirs {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("longtermmemory: init directory %s: %w", dir, err)
		}
	}
	return fs, nil
}

var scopes = []Scope{ScopeUser, ScopeSession}

func (fs *FileStore) pathForID(id string, scope Scope) (string, error) {
	if id == "" {
		return "", fmt.Errorf("longtermmemory: invalid fact id (empty)")
	}
	scopeDir, ok := fs.dirs[scope]
	if !ok {
		return "", fmt.Errorf("longtermmemory: unknown scope %q", scope)
	}
	dir, err := filepath.Abs(scopeDir)
	if err != nil {
		return "", fmt.Errorf("longtermmemory: abs dir: %w", err)
	}
	if strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		return "", fmt.Errorf("longtermmemory: invalid fact id %q", id)
	}
	return filepath.Join(dir, id+".md"), nil
}

// Write persists a new fact. The file is written to a temporary name and
// hard-linked into place, so an existing ID is never overwritten and
// concurrent writers of the same ID see ErrAlreadyExists.
func (fs *FileStore) Write(_ context.Context, f *Fact) error {
	if err := f.Validate(); err != nil {
		return err
	}
	b, err := Serialize(f)
	if err != nil {
		return err
	}
	path, err := fs.pathForID(f.ID, f.Scope)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return ErrAlreadyExists
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".fact-*.tmp")
	if err != nil {
		return fmt.Errorf("longtermmemory: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("longtermmemory: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("longtermmemory: close temp file: %w", err)
	}
	if err := os.Link(tmpPath, path); err != nil {
		if errors.Is(err, os.ErrExist) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("longtermmemory: link %s: %w", path, err)
	}
	return nil
}

// Read retrieves a fact by ID from any scope.
func (fs *FileStore) Read(_ context.Context, id string) (*Fact, error) {
	for _, scope := range scopes {
		path, err := fs.pathForID(id, scope)
		if err != nil {
			return nil, err
		}
		b, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("longtermmemory: read %s: %w", path, err)
		}
		return Parse(b)
	}
	return nil, ErrNotFound
}

// Delete removes a fact file. It is used to purge whole chains; ordinary
// forgetting writes a tombstone instead.
func (fs *FileStore) Delete(_ context.Context, id string) error {
	for _, scope := range scopes {
		path, err := fs.pathForID(id, scope)
		if err != nil {
			return err
		}
		err = os.Remove(path)
		if err == nil {
			return nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("longtermmemory: delete %s: %w", path, err)
		}
	}
	return ErrNotFound
}

// List returns every fact version in every scope. Corrupt or unreadable
// files are skipped.
func (fs *FileStore) List(ctx context.Context) ([]*Fact, error) {
	var out []*Fact
	for _, scope := range scopes {
		facts, err := fs.ListByScope(ctx, scope)
		if err != nil {
			return nil, err
		}
		out = append(out, facts...)
	}
	return out, nil
}

// ListByScope returns every fact version within one scope.
func (fs *FileStore) ListByScope(_ context.Context, scope Scope) ([]*Fact, error) {
	dir, ok := fs.dirs[scope]
	if !ok {
		return nil, fmt.Errorf("longtermmemory: unknown scope %q", scope)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("longtermmemory: list %s: %w", dir, err)
	}
	var out []*Fact
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".md" {
			continue
		}
		filePath := filepath.Join(dir, e.Name())
		b, err := os.ReadFile(filePath)
		if err != nil {
			slog.Debug("longtermmemory: skipping unreadable fact file", "path", filePath, "err", err)
			continue
		}
		f, err := Parse(b)
		if err != nil {
			slog.Debug("longtermmemory: skipping corrupt fact file", "path", filePath, "err", err)
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

var _ Store = (*FileStore)(nil)

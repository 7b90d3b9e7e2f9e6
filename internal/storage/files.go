// Package storage provides the local-disk file collaborator behind chat
// attachments: uploads land under a per-owner directory and are addressed
// by a relative path that never escapes the root.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrInvalidPath = errors.New("invalid file path")

// DiskStore stores uploaded files under a root directory.
type DiskStore struct {
	root    string
	baseURL string
}

// NewDiskStore ensures the root directory exists and returns the store.
func NewDiskStore(root, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload root: %w", err)
	}
	return &DiskStore{root: root, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Upload stores the content under the owner's directory and returns the
// relative path to hand back to clients.
func (s *DiskStore) Upload(ownerID, name string, r io.Reader) (string, error) {
	if ownerID == "" {
		return "", fmt.Errorf("owner id is required")
	}

	rel := path.Join(sanitize(ownerID), uuid.NewString()+"-"+sanitize(name))
	abs := filepath.Join(s.root, filepath.FromSlash(rel))

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("failed to create owner directory: %w", err)
	}

	f, err := os.Create(abs)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(abs)
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return rel, nil
}

// ResolveURL maps a stored path to the public URL it is served under.
func (s *DiskStore) ResolveURL(rel string) string {
	return s.baseURL + "/" + rel
}

// Open returns the stored file's content.
func (s *DiskStore) Open(rel string) (io.ReadCloser, error) {
	abs, err := s.absPath(rel)
	if err != nil {
		return nil, err
	}
	return os.Open(abs)
}

func (s *DiskStore) absPath(rel string) (string, error) {
	cleaned := path.Clean("/" + rel)
	if cleaned == "/" || strings.Contains(rel, "..") {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.root, filepath.FromSlash(cleaned)), nil
}

// sanitize keeps file and owner names path-safe.
func sanitize(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, string(os.PathSeparator), "_")
	if name == "" || name == "." || name == ".." {
		return "file"
	}
	return name
}

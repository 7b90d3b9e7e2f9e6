package storage_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/casefront/legalchat/backend/internal/storage"
)

func TestUploadOpenRoundtrip(t *testing.T) {
	s, err := storage.NewDiskStore(t.TempDir(), "/api/files")
	if err != nil {
		t.Fatalf("NewDiskStore err: %v", err)
	}

	path, err := s.Upload("user-1", "contract.txt", strings.NewReader("the parties agree"))
	if err != nil {
		t.Fatalf("Upload err: %v", err)
	}
	if !strings.HasPrefix(path, "user-1/") {
		t.Fatalf("expected path under owner directory, got %q", path)
	}

	rc, err := s.Open(path)
	if err != nil {
		t.Fatalf("Open err: %v", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll err: %v", err)
	}
	if string(data) != "the parties agree" {
		t.Fatalf("unexpected content: %q", data)
	}
}

func TestResolveURL(t *testing.T) {
	s, err := storage.NewDiskStore(t.TempDir(), "/api/files/")
	if err != nil {
		t.Fatalf("NewDiskStore err: %v", err)
	}

	if got := s.ResolveURL("user-1/abc-doc.pdf"); got != "/api/files/user-1/abc-doc.pdf" {
		t.Fatalf("unexpected url: %q", got)
	}
}

func TestOpenRejectsTraversal(t *testing.T) {
	s, err := storage.NewDiskStore(t.TempDir(), "/api/files")
	if err != nil {
		t.Fatalf("NewDiskStore err: %v", err)
	}

	if _, err := s.Open("../outside.txt"); !errors.Is(err, storage.ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath, got %v", err)
	}
}

func TestUploadSanitizesName(t *testing.T) {
	s, err := storage.NewDiskStore(t.TempDir(), "/api/files")
	if err != nil {
		t.Fatalf("NewDiskStore err: %v", err)
	}

	path, err := s.Upload("user-1", "../../evil.txt", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Upload err: %v", err)
	}
	if strings.Contains(path, "..") {
		t.Fatalf("path escaped sanitization: %q", path)
	}

	if _, err := s.Open(path); err != nil {
		t.Fatalf("Open sanitized path err: %v", err)
	}
}

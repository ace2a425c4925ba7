package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ktrade/whaleflow/internal/domain"
)

type stubBrowser struct {
	files   []domain.ArchivedFile
	listErr error
}

func (s *stubBrowser) ListArchived(ctx context.Context) ([]domain.ArchivedFile, error) {
	return s.files, s.listErr
}

func (s *stubBrowser) Restore(ctx context.Context, name, destDir string) (string, error) {
	for _, f := range s.files {
		if f.Name == name {
			return filepath.Join(destDir, name), nil
		}
	}
	return "", domain.ErrNotFound
}

func TestListArchive(t *testing.T) {
	h := NewArchiveHandler(&stubBrowser{files: []domain.ArchivedFile{
		{Name: "trades_20250801.jsonl", Size: 420, LastModified: time.Date(2025, 8, 2, 0, 0, 5, 0, time.UTC)},
	}}, t.TempDir())

	rec := httptest.NewRecorder()
	h.ListArchive(rec, httptest.NewRequest("GET", "/api/archive", nil))
	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var files []domain.ArchivedFile
	if err := json.Unmarshal(rec.Body.Bytes(), &files); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(files) != 1 || files[0].Name != "trades_20250801.jsonl" {
		t.Errorf("files = %+v, want the archived journal file", files)
	}
}

func TestListArchiveEmpty(t *testing.T) {
	h := NewArchiveHandler(&stubBrowser{}, t.TempDir())

	rec := httptest.NewRecorder()
	h.ListArchive(rec, httptest.NewRequest("GET", "/api/archive", nil))
	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := rec.Body.String(); body != "[]" {
		t.Errorf("body = %q, want empty JSON array", body)
	}
}

func TestListArchiveBackendError(t *testing.T) {
	h := NewArchiveHandler(&stubBrowser{listErr: errors.New("s3 down")}, t.TempDir())

	rec := httptest.NewRecorder()
	h.ListArchive(rec, httptest.NewRequest("GET", "/api/archive", nil))
	if rec.Code != 502 {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestRestoreArchive(t *testing.T) {
	dir := t.TempDir()
	h := NewArchiveHandler(&stubBrowser{files: []domain.ArchivedFile{
		{Name: "trades_20250801.jsonl"},
	}}, dir)

	tests := []struct {
		name       string
		query      string
		wantStatus int
	}{
		{"restores known file", "?name=trades_20250801.jsonl", 200},
		{"unknown file", "?name=trades_19990101.jsonl", 404},
		{"missing name", "", 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.RestoreArchive(rec, httptest.NewRequest("POST", "/api/archive/restore"+tt.query, nil))
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == 200 {
				var resp map[string]string
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("decode response: %v", err)
				}
				want := filepath.Join(dir, "trades_20250801.jsonl")
				if resp["restored"] != want {
					t.Errorf("restored = %q, want %q", resp["restored"], want)
				}
			}
		})
	}
}

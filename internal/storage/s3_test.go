package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
)

func testS3Config(endpoint string) S3Config {
	return S3Config{
		Bucket:          "test-bucket",
		Region:          "eu-west-1",
		Endpoint:        endpoint,
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	}
}

func TestNewS3Storage(t *testing.T) {
	store, err := NewS3Storage(t.TempDir(), testS3Config("http://localhost:4566"))
	if err != nil {
		t.Fatalf("NewS3Storage() error = %v", err)
	}

	if store.bucket != "test-bucket" {
		t.Errorf("bucket = %v, want test-bucket", store.bucket)
	}
	if store.region != "eu-west-1" {
		t.Errorf("region = %v, want eu-west-1", store.region)
	}
}

func TestS3Storage_InheritsLocalStorage(t *testing.T) {
	store, err := NewS3Storage(t.TempDir(), testS3Config("http://localhost:4566"))
	if err != nil {
		t.Fatalf("NewS3Storage() error = %v", err)
	}

	ctx := context.Background()
	path, err := store.SaveOutput(ctx, "inherit.mp4", bytes.NewReader([]byte("test data")))
	if err != nil {
		t.Fatalf("SaveOutput() error = %v", err)
	}
	if filepath.Dir(path) != store.OutputDir() {
		t.Errorf("expected file inside %s, got %s", store.OutputDir(), path)
	}
}

func TestS3Storage_UploadToS3(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT method, got %s", r.Method)
		}
		if !strings.Contains(r.URL.Path, "playlists/upload_test.mp4") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("failed to read body: %v", err)
		}
		if string(body) != "video content" {
			t.Errorf("unexpected body: %s", string(body))
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store, err := NewS3Storage(t.TempDir(), testS3Config(server.URL))
	if err != nil {
		t.Fatalf("NewS3Storage() error = %v", err)
	}

	url, err := store.UploadToS3(context.Background(), "playlists/upload_test.mp4", bytes.NewReader([]byte("video content")))
	if err != nil {
		t.Fatalf("UploadToS3() error = %v", err)
	}

	want := "https://test-bucket.s3.eu-west-1.amazonaws.com/playlists/upload_test.mp4"
	if url != want {
		t.Errorf("url = %v, want %v", url, want)
	}
}

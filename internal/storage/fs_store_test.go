package storage

import (
	"context"
	"testing"
)

func TestFSStorePutAndGet(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	content := []byte("<html>doc page</html>")
	if err := store.Put(ctx, "rustdoc/dummy/1.0.0/index.html", content); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	file, err := store.Get(ctx, "rustdoc/dummy/1.0.0/index.html")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(file.Content) != string(content) {
		t.Errorf("Got content %q, want %q", file.Content, content)
	}
	if file.MimeType != "text/html; charset=utf-8" {
		t.Errorf("Got mime type %q, want text/html", file.MimeType)
	}
}

func TestFSStoreGetMissingPath(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	defer store.Close()

	_, err = store.Get(context.Background(), "rustdoc/nope/index.html")
	if err == nil {
		t.Fatal("Get of missing path succeeded")
	}
	if !IsPathNotFound(err) {
		t.Errorf("Got error %v, want PathNotFoundError", err)
	}
}

func TestFSStoreExists(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	ok, err := store.Exists(ctx, "static/style.css")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if ok {
		t.Error("Exists reported true for missing file")
	}

	if err := store.Put(ctx, "static/style.css", []byte("body{}")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	ok, err = store.Exists(ctx, "static/style.css")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !ok {
		t.Error("Exists reported false for stored file")
	}
}

func TestFSStoreRejectsTraversal(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore failed: %v", err)
	}
	defer store.Close()

	_, err = store.Get(context.Background(), "../../etc/passwd")
	if !IsPathNotFound(err) {
		t.Errorf("Got error %v, want PathNotFoundError for traversal", err)
	}
}

package blob

import (
	"context"
	"strings"
	"testing"
)

func TestFSStore_SaveAndRead(t *testing.T) {
	store := NewFSStore(t.TempDir())
	ctx := context.Background()

	uri, err := store.Save(ctx, "hello archive")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(uri, "file://") {
		t.Errorf("uri = %q, want file:// scheme", uri)
	}

	got, err := store.Read(ctx, uri)
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello archive" {
		t.Errorf("read = %q, want %q", got, "hello archive")
	}
}

func TestFSStore_ContentAddressed(t *testing.T) {
	store := NewFSStore(t.TempDir())
	ctx := context.Background()

	uri1, err := store.Save(ctx, "same content")
	if err != nil {
		t.Fatal(err)
	}
	uri2, err := store.Save(ctx, "same content")
	if err != nil {
		t.Fatal(err)
	}
	if uri1 != uri2 {
		t.Errorf("same content produced different URIs: %q vs %q", uri1, uri2)
	}

	uri3, err := store.Save(ctx, "different content")
	if err != nil {
		t.Fatal(err)
	}
	if uri3 == uri1 {
		t.Error("different content produced the same URI")
	}
}

func TestFSStore_RejectsForeignScheme(t *testing.T) {
	store := NewFSStore(t.TempDir())

	_, err := store.Read(context.Background(), "gs://bucket/object")
	if err == nil {
		t.Fatal("expected error for gs:// URI on file store")
	}
}

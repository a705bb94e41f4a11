package filebox

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTestFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func TestCodecs_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		codec Codec[record]
	}{
		{name: "json", codec: JSON[record]()},
		{name: "gob", codec: Gob[record]()},
		{name: "yaml", codec: YAML[record]()},
	}

	want := record{X: "foo bar", Y: pair{N: 13, F: -3.2}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "value.box")
			b, err := Create(path, tt.codec, want)
			if err != nil {
				t.Fatalf("Create failed: %v", err)
			}
			if err := b.Close(); err != nil {
				t.Fatalf("Close failed: %v", err)
			}

			b2, err := Open(path, tt.codec)
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			defer func() { _ = b2.Close() }()
			if b2.Value != want {
				t.Errorf("round trip mismatch: got %+v, want %+v", b2.Value, want)
			}
		})
	}
}

func TestGob_Map(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scores.box")
	b, err := Create(path, Gob[map[string]int](), map[string]int{"a": 1, "b": 2})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	got, err := Peek(path, Gob[map[string]int]())
	if err != nil {
		t.Fatalf("Peek failed: %v", err)
	}
	if len(got) != 2 || got["a"] != 1 || got["b"] != 2 {
		t.Errorf("round trip mismatch: %v", got)
	}
}

func TestYAML_HandEdited(t *testing.T) {
	// A box file written by a person, not by a flush.
	path := filepath.Join(t.TempDir(), "edited.box")
	writeTestFile(t, path, "count: 3\n")

	b, err := Open(path, YAML[seeded]())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer func() { _ = b.Close() }()
	if b.Value.Count != 3 {
		t.Errorf("expected 3, got %d", b.Value.Count)
	}
}

func TestYAML_EmptyFileRejected(t *testing.T) {
	// yaml.Unmarshal would decode zero bytes into a zero value; the box must
	// reject the empty file first.
	path := filepath.Join(t.TempDir(), "empty.box")
	writeTestFile(t, path, "")

	_, err := Open(path, YAML[seeded]())
	if !errors.Is(err, ErrEmptyFile) {
		t.Errorf("expected ErrEmptyFile, got %v", err)
	}
}

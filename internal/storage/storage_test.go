package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

type fakeBucket struct {
	name    string
	exists  bool
	created string
	objects map[string][]byte
	public  map[string]bool
	failAt  string
}

func newFakeBucket(exists bool) *fakeBucket {
	return &fakeBucket{
		name:    "suno-music-bot",
		exists:  exists,
		objects: map[string][]byte{},
		public:  map[string]bool{},
	}
}

func (b *fakeBucket) Name() string { return b.name }

func (b *fakeBucket) Exists(ctx context.Context) (bool, error) { return b.exists, nil }

func (b *fakeBucket) Create(ctx context.Context, projectID string) error {
	b.created = projectID
	b.exists = true
	return nil
}

func (b *fakeBucket) Write(ctx context.Context, object string, r io.Reader) error {
	if b.failAt == "write" {
		return errors.New("quota exceeded")
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	b.objects[object] = buf.Bytes()
	return nil
}

func (b *fakeBucket) MakePublic(ctx context.Context, object string) error {
	if b.failAt == "acl" {
		return errors.New("uniform bucket-level access enabled")
	}
	b.public[object] = true
	return nil
}

func (b *fakeBucket) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	for name := range b.objects {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestUpload(t *testing.T) {
	b := newFakeBucket(true)
	s := newStore(b, zerolog.Nop())
	path := writeFile(t, "track 1.wav", "RIFF")

	got, err := s.Upload(context.Background(), path, "")
	if err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	if want := "https://storage.googleapis.com/suno-music-bot/track%201.wav"; got != want {
		t.Errorf("Upload() = %q, want %q", got, want)
	}
	if string(b.objects["track 1.wav"]) != "RIFF" {
		t.Error("Expected file contents to be uploaded")
	}
	if !b.public["track 1.wav"] {
		t.Error("Expected object to be made public")
	}
}

func TestUploadCustomDestination(t *testing.T) {
	b := newFakeBucket(true)
	s := newStore(b, zerolog.Nop())
	path := writeFile(t, "a.mp3", "ID3")

	got, err := s.Upload(context.Background(), path, "2024/05/a.mp3")
	if err != nil {
		t.Fatal(err)
	}
	if want := "https://storage.googleapis.com/suno-music-bot/2024/05/a.mp3"; got != want {
		t.Errorf("Upload() = %q, want %q", got, want)
	}
}

func TestUploadErrors(t *testing.T) {
	tests := []struct {
		name   string
		failAt string
		path   string
	}{
		{"missing file", "", "/nonexistent/file.wav"},
		{"write fails", "write", ""},
		{"acl fails", "acl", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFakeBucket(true)
			b.failAt = tt.failAt
			path := tt.path
			if path == "" {
				path = writeFile(t, "x.wav", "data")
			}
			if _, err := newStore(b, zerolog.Nop()).Upload(context.Background(), path, ""); err == nil {
				t.Error("Upload() expected error")
			}
		})
	}
}

func TestEnsureBucket(t *testing.T) {
	b := newFakeBucket(false)
	s := newStore(b, zerolog.Nop())

	if err := s.ensureBucket(context.Background(), "my-project"); err != nil {
		t.Fatalf("ensureBucket() error: %v", err)
	}
	if b.created != "my-project" {
		t.Errorf("Expected bucket created in my-project, got %q", b.created)
	}

	existing := newFakeBucket(true)
	if err := newStore(existing, zerolog.Nop()).ensureBucket(context.Background(), ""); err != nil {
		t.Errorf("ensureBucket() on existing bucket error: %v", err)
	}
	if existing.created != "" {
		t.Error("Existing bucket should not be recreated")
	}

	if err := newStore(newFakeBucket(false), zerolog.Nop()).ensureBucket(context.Background(), ""); err == nil {
		t.Error("Expected error creating bucket without a project")
	}
}

func TestList(t *testing.T) {
	b := newFakeBucket(true)
	b.objects["songs/a.wav"] = nil
	b.objects["songs/b.wav"] = nil
	b.objects["other.txt"] = nil
	s := newStore(b, zerolog.Nop())

	got, err := s.List(context.Background(), "songs/")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "songs/a.wav" {
		t.Errorf("List(songs/) = %v", got)
	}

	all, _ := s.List(context.Background(), "")
	if len(all) != 3 {
		t.Errorf("List(\"\") = %v, want 3 objects", all)
	}
}

func TestNewWithoutCredentials(t *testing.T) {
	if _, err := New(context.Background(), nil, "b", zerolog.Nop()); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("New() error = %v, want ErrNoCredentials", err)
	}
}

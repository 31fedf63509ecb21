package scratch

import (
	"testing"

	"github.com/spf13/afero"
)

func TestNewAndRelease(t *testing.T) {
	fs := afero.NewMemMapFs()

	dir, err := New(fs, "/tmp/ytcourier", "req-1")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := afero.WriteFile(fs, dir.Path()+"/video.mp4", []byte("data"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if err := dir.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	exists, err := afero.DirExists(fs, dir.Path())
	if err != nil {
		t.Fatalf("DirExists() error = %v", err)
	}
	if exists {
		t.Fatal("scratch dir still exists after Release()")
	}
}

func TestReleaseIdempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	dir, err := New(fs, "", "req-2")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := dir.Release(); err != nil {
		t.Fatalf("first Release() error = %v", err)
	}
	if err := dir.Release(); err != nil {
		t.Fatalf("second Release() error = %v", err)
	}
}

func TestIsolationBetweenRequests(t *testing.T) {
	fs := afero.NewMemMapFs()
	a, err := New(fs, "/scratch", "req-a")
	if err != nil {
		t.Fatalf("New(a) error = %v", err)
	}
	b, err := New(fs, "/scratch", "req-b")
	if err != nil {
		t.Fatalf("New(b) error = %v", err)
	}
	if a.Path() == b.Path() {
		t.Fatalf("scratch dirs collide: %q", a.Path())
	}
}

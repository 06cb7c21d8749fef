package credential

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func backends(t *testing.T) map[string]func(path string) Store {
	t.Helper()
	return map[string]func(path string) Store{
		"file": func(path string) Store {
			return NewFileStore(path, nil)
		},
		"sqlite": func(path string) Store {
			s, err := OpenSQLite(path, nil)
			if err != nil {
				t.Fatalf("OpenSQLite() failed: %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func TestStore(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("should report absent key", func(t *testing.T) {
				s := open(filepath.Join(t.TempDir(), "creds"))
				if v, ok := s.Get("access_token"); ok {
					t.Fatalf("wanted: absent\ngot: %q", v)
				}
			})

			t.Run("should set, overwrite and get", func(t *testing.T) {
				s := open(filepath.Join(t.TempDir(), "creds"))
				if err := s.Set("access_token", "one"); err != nil {
					t.Fatalf("wanted: nil\ngot: %v", err)
				}
				if err := s.Set("access_token", "two"); err != nil {
					t.Fatalf("wanted: nil\ngot: %v", err)
				}
				got, ok := s.Get("access_token")
				if !ok || got != "two" {
					t.Fatalf("wanted: %q\ngot: %q (%v)", "two", got, ok)
				}
			})

			t.Run("should remove idempotently", func(t *testing.T) {
				s := open(filepath.Join(t.TempDir(), "creds"))
				if err := s.Remove("access_token"); err != nil {
					t.Fatalf("removing absent key: %v", err)
				}
				if err := s.Set("access_token", "tok"); err != nil {
					t.Fatal(err)
				}
				if err := s.Remove("access_token"); err != nil {
					t.Fatalf("wanted: nil\ngot: %v", err)
				}
				if err := s.Remove("access_token"); err != nil {
					t.Fatalf("second remove: %v", err)
				}
				if _, ok := s.Get("access_token"); ok {
					t.Fatalf("wanted key to be gone")
				}
			})
		})
	}
}

func TestFileStore_SharedAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.yaml")
	a := NewFileStore(path, nil)
	b := NewFileStore(path, nil)

	if err := a.Set("access_token", "shared"); err != nil {
		t.Fatal(err)
	}
	if got, _ := b.Get("access_token"); got != "shared" {
		t.Fatalf("wanted: %q\ngot: %q", "shared", got)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Fatalf("wanted: 0600\ngot: %o", perm)
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	if err := os.WriteFile(path, []byte("- not\n- a map\n"), 0600); err != nil {
		t.Fatal(err)
	}
	s := NewFileStore(path, nil)

	if _, ok := s.Get("access_token"); ok {
		t.Fatalf("wanted: absent for corrupt file")
	}
	if err := s.Set("access_token", "fresh"); err != nil {
		t.Fatalf("wanted: nil\ngot: %v", err)
	}
	if got, _ := s.Get("access_token"); got != "fresh" {
		t.Fatalf("wanted: %q\ngot: %q", "fresh", got)
	}
}

func TestOpen(t *testing.T) {
	_, err := Open("redis", filepath.Join(t.TempDir(), "x"), nil)
	if !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("wanted: ErrUnknownBackend\ngot: %v", err)
	}

	s, err := Open("file", filepath.Join(t.TempDir(), "x"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*FileStore); !ok {
		t.Fatalf("wanted *FileStore\ngot: %T", s)
	}
}

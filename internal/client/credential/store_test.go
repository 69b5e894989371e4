package credential

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Absent(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "credential.json"))
	token, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if token != "" {
		t.Errorf("expected empty token, got %q", token)
	}
}

func TestSaveLoadClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credential.json")
	s := NewStore(path)

	if err := s.Save("tok-123"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	token, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if token != "tok-123" {
		t.Errorf("token = %q; want %q", token, "tok-123")
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("credential file still exists after Clear")
	}
	token, err = s.Load()
	if err != nil || token != "" {
		t.Errorf("Load after Clear = (%q, %v); want empty, nil", token, err)
	}
}

func TestSave_Replaces(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "credential.json"))
	if err := s.Save("old"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := s.Save("new"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	token, err := s.Load()
	if err != nil || token != "new" {
		t.Errorf("Load = (%q, %v); want (\"new\", nil)", token, err)
	}
}

func TestClear_Absent(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "credential.json"))
	if err := s.Clear(); err != nil {
		t.Errorf("Clear on absent credential failed: %v", err)
	}
}

func TestLoad_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credential.json")
	if err := os.WriteFile(path, []byte("not-json"), 0o600); err != nil {
		t.Fatal(err)
	}
	s := NewStore(path)
	if _, err := s.Load(); err == nil {
		t.Error("expected error for corrupt credential file")
	}
}

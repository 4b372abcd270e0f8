package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Hakuto4838/SkipKV.git/config"
	"github.com/Hakuto4838/SkipKV.git/store"
)

func newStore(t *testing.T, name, path string) *store.Store {
	t.Helper()
	cfg := config.Default()
	cfg.Name = name
	cfg.Seed = 1
	cfg.SnapshotPath = path
	s, err := store.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestRestoreFirstRun(t *testing.T) {
	s := newStore(t, "restore-first", filepath.Join(t.TempDir(), "store", "dumpFile"))
	found, err := restore(s)
	if err != nil {
		t.Fatalf("restore error: %v", err)
	}
	if found || s.Size() != 0 {
		t.Errorf("restore = %v, size %d, want false, 0", found, s.Size())
	}
}

func TestRestoreExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dumpFile")
	if err := os.WriteFile(path, []byte("1:a\n19:yang\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := newStore(t, "restore-existing", path)
	found, err := restore(s)
	if err != nil {
		t.Fatalf("restore error: %v", err)
	}
	if !found || s.Size() != 2 {
		t.Errorf("restore = %v, size %d, want true, 2", found, s.Size())
	}
}

func TestRestoreUnreadable(t *testing.T) {
	// 路徑是目錄時不是「還沒有快照」，要回報錯誤
	s := newStore(t, "restore-dir", t.TempDir())
	if _, err := restore(s); err == nil {
		t.Error("restore of a directory succeeded")
	}
}

package broker

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeBlocklist(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestBlocklistReloadAndIsBlocked(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blocklist")
	writeBlocklist(t, path, "10.0.0.1\n# comment\n\n10.0.0.2:1234\n")

	bl := newBlocklist(path)
	if err := bl.reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !bl.isBlocked("10.0.0.1:5555") {
		t.Error("expected host-only entry to match any port")
	}
	if !bl.isBlocked("10.0.0.2:1234") {
		t.Error("expected exact address match")
	}
	if bl.isBlocked("10.0.0.3:1") {
		t.Error("unlisted address should not be blocked")
	}
}

func TestBlocklistReloadIfChanged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blocklist")
	writeBlocklist(t, path, "10.0.0.1\n")

	bl := newBlocklist(path)
	if err := bl.reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}

	changed, err := bl.reloadIfChanged()
	if err != nil {
		t.Fatalf("reloadIfChanged: %v", err)
	}
	if changed {
		t.Error("expected no change when mtime is unchanged")
	}

	time.Sleep(10 * time.Millisecond)
	writeBlocklist(t, path, "10.0.0.1\n10.0.0.9\n")

	changed, err = bl.reloadIfChanged()
	if err != nil {
		t.Fatalf("reloadIfChanged: %v", err)
	}
	if !changed {
		t.Error("expected reload after mtime change")
	}
	if !bl.isBlocked("10.0.0.9:1") {
		t.Error("expected newly added entry to be blocked after reload")
	}
}

package broker

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteLogonListFormatAndAtomicity(t *testing.T) {
	b := testBroker(t)
	defer b.Shutdown()

	atcConn, _ := connectTestConn(b, "10.3.0.1:1")
	atcConn.mu.Lock()
	atcConn.isATC = true
	atcConn.idents = []string{"KZLA"}
	atcConn.target = "N123"
	atcConn.logon = LogonComplete
	atcConn.mu.Unlock()
	b.registerIdent("KZLA", atcConn)

	acftConn, _ := connectTestConn(b, "10.3.0.2:1")
	acftConn.mu.Lock()
	acftConn.idents = []string{"N123"}
	acftConn.logon = LogonComplete
	acftConn.mu.Unlock()
	b.registerIdent("N123", acftConn)

	dir := t.TempDir()
	path := filepath.Join(dir, "logonlist")
	if err := b.writeLogonList(path); err != nil {
		t.Fatalf("writeLogonList: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read logon list: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 rows, got %d: %q", len(lines), lines)
	}

	// Rows are sorted by from: KZLA before N123.
	kzlaFields := strings.Split(lines[0], "\t")
	if len(kzlaFields) != 5 {
		t.Fatalf("expected 5 tab-separated fields, got %d: %q", len(kzlaFields), lines[0])
	}
	if kzlaFields[0] != "KZLA" || kzlaFields[1] != "N123" || kzlaFields[2] != "ATC" || kzlaFields[4] != "TLS" {
		t.Fatalf("unexpected KZLA row: %q", lines[0])
	}

	acftFields := strings.Split(lines[1], "\t")
	if acftFields[0] != "N123" || acftFields[1] != "-" || acftFields[2] != "ACFT" {
		t.Fatalf("unexpected N123 row: %q", lines[1])
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the final file to remain, found %d entries", len(entries))
	}
}

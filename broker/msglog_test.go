package broker

import (
	"path/filepath"
	"testing"

	"github.com/openatc/cpdlcd/pkg/cpdlcmsg"
)

func TestMsgLogRecordsAndReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "msglog.sqlite3")
	ml, err := openMsgLog(path)
	if err != nil {
		t.Fatalf("openMsgLog: %v", err)
	}
	defer ml.Close()

	msg := &cpdlcmsg.Message{MIN: 7, MRN: cpdlcmsg.InvalidSeqNr}
	ml.record(msg, "N123", "KZLA", false, "routed", 42)

	var n int
	if err := ml.db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&n); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row, got %d", n)
	}

	var min int64
	var mrn *int64
	if err := ml.db.QueryRow(`SELECT min, mrn FROM messages LIMIT 1`).Scan(&min, &mrn); err != nil {
		t.Fatalf("scan row: %v", err)
	}
	if min != 7 {
		t.Fatalf("expected min=7, got %d", min)
	}
	if mrn != nil {
		t.Fatalf("expected mrn to be NULL (InvalidSeqNr), got %v", *mrn)
	}

	if err := ml.Reopen(); err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	if err := ml.db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&n); err != nil {
		t.Fatalf("count rows after reopen: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected row to survive reopen, got %d", n)
	}
}

package client

import (
	"testing"
	"time"

	"github.com/openatc/cpdlcd/pkg/cpdlcmsg"
	"github.com/openatc/cpdlcd/pkg/msglist"
)

func TestSendQueuePutPopMarkSent(t *testing.T) {
	q := newSendQueue(8)
	msg := &cpdlcmsg.Message{PktType: cpdlcmsg.PktPing, MIN: cpdlcmsg.InvalidSeqNr, MRN: cpdlcmsg.InvalidSeqNr}
	token := q.Put(msg, msglist.NoThreadID)
	if token == 0 {
		t.Fatal("Put returned zero token")
	}
	if status := q.Status(token); status != StatusSending {
		t.Fatalf("status = %v, want SENDING", status)
	}

	gotToken, gotMsg, _, ok := q.PopPending()
	if !ok || gotToken != token || gotMsg != msg {
		t.Fatalf("PopPending returned (%d, %v, %v), want (%d, %v, true)", gotToken, gotMsg, ok, token, msg)
	}

	q.MarkSent(token)
	if status := q.Status(token); status != StatusSent {
		t.Fatalf("status = %v after MarkSent, want SENT", status)
	}
	if _, _, _, ok := q.PopPending(); ok {
		t.Error("PopPending should not return an already-sent entry")
	}
}

func TestSendQueueUnknownTokenIsInvalid(t *testing.T) {
	q := newSendQueue(8)
	if status := q.Status(999); status != StatusInvalidToken {
		t.Errorf("status = %v, want INVALID_TOKEN", status)
	}
}

func TestSendQueueSweepEvictsOldFinishedEntries(t *testing.T) {
	q := newSendQueue(8)
	msg := &cpdlcmsg.Message{PktType: cpdlcmsg.PktPing, MIN: cpdlcmsg.InvalidSeqNr, MRN: cpdlcmsg.InvalidSeqNr}
	token := q.Put(msg, msglist.NoThreadID)
	q.MarkSent(token)

	q.Sweep(time.Now())
	if status := q.Status(token); status != StatusSent {
		t.Fatalf("status = %v before retention elapses, want SENT still present", status)
	}

	q.Sweep(time.Now().Add(sentRetention + time.Second))
	if status := q.Status(token); status != StatusInvalidToken {
		t.Errorf("status = %v after retention elapsed, want INVALID_TOKEN", status)
	}
}

func TestSendQueueClosedRejectsPut(t *testing.T) {
	q := newSendQueue(8)
	q.Close()
	msg := &cpdlcmsg.Message{PktType: cpdlcmsg.PktPing, MIN: cpdlcmsg.InvalidSeqNr, MRN: cpdlcmsg.InvalidSeqNr}
	if token := q.Put(msg, msglist.NoThreadID); token != 0 {
		t.Errorf("Put on closed queue returned %d, want 0", token)
	}
}

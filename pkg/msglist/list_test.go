package msglist

import (
	"testing"

	"github.com/openatc/cpdlcd/pkg/catalog"
	"github.com/openatc/cpdlcd/pkg/cpdlcmsg"
)

func segMsg(t *testing.T, isDownlink bool, msgType int, subtype byte, min, mrn uint32) *cpdlcmsg.Message {
	t.Helper()
	e := catalog.MustLookup(isDownlink, msgType, subtype)
	args := make([]cpdlcmsg.Arg, e.NumArgs())
	for i, k := range e.ArgTypes {
		args[i] = cpdlcmsg.Arg{Kind: k}
	}
	return &cpdlcmsg.Message{
		PktType: cpdlcmsg.PktCPDLC,
		TS:      cpdlcmsg.Timestamp{Set: true, Hrs: 10, Mins: 0},
		MIN:     min,
		MRN:     mrn,
		From:    "CTR01",
		To:      "ACA123",
		Segs:    []cpdlcmsg.Segment{{Info: &e.MsgInfo, Args: args}},
	}
}

// TestSuccessfulUplinkWilco mirrors the walkthrough in spec.md's worked
// example 1: an uplink CLIMB TO command accepted by a downlink WILCO.
func TestSuccessfulUplinkWilco(t *testing.T) {
	l := New()

	climb := segMsg(t, false, 20, 0, 5, cpdlcmsg.InvalidSeqNr)
	id := l.Send(climb, NoThreadID)
	if id != 5 {
		t.Fatalf("thread id = %d, want 5 (the opening MIN)", id)
	}
	if status, dirty := l.Status(id); status != StatusOpen || !dirty {
		t.Fatalf("status = %v dirty=%v, want OPEN/dirty", status, dirty)
	}

	wilco := segMsg(t, true, 0, 0, 7, 5)
	gotID := l.HandleIncoming(wilco)
	if gotID != id {
		t.Fatalf("HandleIncoming landed in thread %d, want %d", gotID, id)
	}
	status, dirty := l.Status(id)
	if status != StatusAccepted {
		t.Fatalf("status = %v, want ACCEPTED", status)
	}
	if !dirty {
		t.Error("expected dirty flag set after status change")
	}
	if !l.ThreadIsDone(id) {
		t.Error("ACCEPTED should be terminal")
	}

	l.MarkSeen(id)
	if _, dirty := l.Status(id); dirty {
		t.Error("MarkSeen should clear dirty")
	}
}

func TestUnableRejectsThread(t *testing.T) {
	l := New()
	id := l.Send(segMsg(t, false, 23, 0, 1, cpdlcmsg.InvalidSeqNr), NoThreadID)
	l.HandleIncoming(segMsg(t, true, 1, 0, 2, 1))
	if status, _ := l.Status(id); status != StatusRejected {
		t.Fatalf("status = %v, want REJECTED", status)
	}
}

func TestTerminalThreadDropsFurtherMessages(t *testing.T) {
	l := New()
	id := l.Send(segMsg(t, false, 23, 0, 1, cpdlcmsg.InvalidSeqNr), NoThreadID)
	l.HandleIncoming(segMsg(t, true, 0, 0, 2, 1))
	if status, _ := l.Status(id); status != StatusAccepted {
		t.Fatalf("status = %v, want ACCEPTED", status)
	}
	l.MarkSeen(id)

	// A late UNABLE referencing the same MRN must not flip the
	// thread's status or resurrect its dirty flag.
	l.HandleIncoming(segMsg(t, true, 1, 0, 3, 1))
	status, dirty := l.Status(id)
	if status != StatusAccepted {
		t.Errorf("status regressed to %v after terminal", status)
	}
	if dirty {
		t.Error("terminal thread should not have gone dirty again")
	}
}

func TestUnmatchedIncomingOpensThread(t *testing.T) {
	l := New()
	id := l.HandleIncoming(segMsg(t, true, 1, 0, 9, cpdlcmsg.InvalidSeqNr))
	if id == NoThreadID {
		t.Fatal("expected a new thread to be opened")
	}
	if status, _ := l.Status(id); status != StatusOpen {
		t.Errorf("status = %v, want OPEN", status)
	}
	if n := l.MsgCount(id); n != 1 {
		t.Errorf("MsgCount = %d, want 1", n)
	}
}

func TestCloseOverridesTerminalStatus(t *testing.T) {
	l := New()
	id := l.Send(segMsg(t, false, 23, 0, 1, cpdlcmsg.InvalidSeqNr), NoThreadID)
	l.HandleIncoming(segMsg(t, true, 0, 0, 2, 1))
	l.Close(id)
	if status, _ := l.Status(id); status != StatusClosed {
		t.Fatalf("status = %v, want CLOSED", status)
	}
}

func TestRemoveClearsMinIndex(t *testing.T) {
	l := New()
	id := l.Send(segMsg(t, false, 23, 0, 1, cpdlcmsg.InvalidSeqNr), NoThreadID)
	l.Remove(id)
	if _, ok := l.threads[id]; ok {
		t.Error("thread still present after Remove")
	}
	// The MIN must no longer correlate; a stray reply opens a new thread
	// instead of reaching into the removed one.
	gotID := l.HandleIncoming(segMsg(t, true, 0, 0, 2, 1))
	if gotID == id {
		t.Error("removed thread's MIN still resolved a reply")
	}
}

func TestSendAppendsWithMRNFromLastInbound(t *testing.T) {
	l := New()
	id := l.Send(segMsg(t, false, 20, 0, 1, cpdlcmsg.InvalidSeqNr), NoThreadID)
	l.HandleIncoming(segMsg(t, true, 2, 0, 2, 1)) // STANDBY, not terminal

	follow := segMsg(t, false, 20, 0, 3, cpdlcmsg.InvalidSeqNr)
	l.Send(follow, id)
	if follow.MRN != 2 {
		t.Errorf("follow-up MRN = %d, want 2 (last inbound MIN)", follow.MRN)
	}
}

func TestRespNThreadNeverTimesOut(t *testing.T) {
	l := New()
	id := l.Send(segMsg(t, true, 76, 0, 1, cpdlcmsg.InvalidSeqNr), NoThreadID)
	l.Update()
	if status, _ := l.Status(id); status == StatusTimedOut {
		t.Error("RespN thread should never expect a response, so never time out")
	}
}

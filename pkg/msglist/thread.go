// Package msglist groups individual messages into request/response threads
// and drives each thread's status machine, per spec.md §4.5. A thread is the
// correlated chain rooted at the MIN of whichever message opened it; replies
// are matched back to it by MRN.
//
// Grounded on original_source/src/cpdlc_msglist.h for the thread identity,
// status enumerators, and accessor shape (translated from the C handle-based
// API to a Go struct with exported methods), and on Regentag-go1090's use of
// patrickmn/go-cache for TTL-tracked state (there: recently seen ICAO
// addresses; here: per-thread response deadlines).
package msglist

import (
	"time"

	"github.com/openatc/cpdlcd/pkg/catalog"
	"github.com/openatc/cpdlcd/pkg/cpdlcmsg"
)

// ThreadID identifies a thread within one List. It is assigned from the MIN
// of the message that opened the thread.
type ThreadID uint32

// NoThreadID mirrors CPDLC_NO_MSG_THR_ID: "create a new thread" when passed
// to List.Send, or "no such thread" as a lookup result.
const NoThreadID ThreadID = ThreadID(cpdlcmsg.InvalidSeqNr)

// Status is a thread's place in the status machine of spec.md §4.5.
type Status int

const (
	StatusOpen Status = iota
	StatusClosed
	StatusAccepted
	StatusRejected
	StatusTimedOut
	StatusStandby
	StatusFailed
	StatusPending
	StatusDisregard
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "OPEN"
	case StatusClosed:
		return "CLOSED"
	case StatusAccepted:
		return "ACCEPTED"
	case StatusRejected:
		return "REJECTED"
	case StatusTimedOut:
		return "TIMEDOUT"
	case StatusStandby:
		return "STANDBY"
	case StatusFailed:
		return "FAILED"
	case StatusPending:
		return "PENDING"
	case StatusDisregard:
		return "DISREGARD"
	case StatusError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether s is one of the statuses invariant 7 forbids
// regressing out of except via thread removal.
func (s Status) Terminal() bool {
	switch s {
	case StatusAccepted, StatusRejected, StatusTimedOut, StatusFailed, StatusDisregard, StatusClosed:
		return true
	default:
		return false
	}
}

// Entry is one message in a thread's ordered history.
type Entry struct {
	Msg  *cpdlcmsg.Message
	Sent bool // true if this side sent it, false if it arrived inbound
	At   time.Time
}

// Thread is a correlated request/response chain.
type Thread struct {
	ID     ThreadID
	Msgs   []Entry
	Status Status
	dirty  bool

	headResp    catalog.ResponseClass
	headAllowed []catalog.MsgRef
	expectsResp bool
}

func newThread(id ThreadID, head Entry, e *catalog.Entry) *Thread {
	t := &Thread{ID: id, Status: StatusOpen, dirty: true}
	t.Msgs = append(t.Msgs, head)
	if e != nil {
		t.headResp = e.Resp
		t.headAllowed = e.AllowedResponses
		t.expectsResp = e.Resp != catalog.RespN
	}
	return t
}

// setStatus transitions the thread, honoring invariant 7: a terminal status
// never regresses, except CLOSED (explicit close always wins) or removal.
func (t *Thread) setStatus(s Status) {
	if t.Status.Terminal() && s != StatusClosed {
		return
	}
	if t.Status != s {
		t.Status = s
		t.dirty = true
	}
}

// headEntry is the catalog entry for the message that opened the thread, or
// nil if the thread was opened by a LOGON/LOGOFF/PING/PONG (no segments).
func (t *Thread) headEntry() *catalog.Entry {
	if len(t.Msgs) == 0 || len(t.Msgs[0].Msg.Segs) == 0 {
		return nil
	}
	seg := t.Msgs[0].Msg.Segs[0]
	return catalog.Lookup(seg.Info.IsDownlink, seg.Info.MsgType, seg.Info.MsgSubtype)
}

// isStandaloneText reports whether m is a single-segment message whose
// catalog entry's rendered text is exactly text (e.g. "WILCO", "UNABLE").
func isStandaloneText(m *cpdlcmsg.Message, text string) bool {
	if len(m.Segs) != 1 {
		return false
	}
	seg := m.Segs[0]
	e := catalog.Lookup(seg.Info.IsDownlink, seg.Info.MsgType, seg.Info.MsgSubtype)
	return e != nil && e.Text == text
}

// classifyResponse derives the new status for an incoming response, per
// spec.md §4.5's per-response-class rules. The second return reports whether
// m was recognized as a status-changing response at all.
func classifyResponse(resp catalog.ResponseClass, allowed []catalog.MsgRef, m *cpdlcmsg.Message) (Status, bool) {
	switch resp {
	case catalog.RespWU:
		switch {
		case isStandaloneText(m, "WILCO"):
			return StatusAccepted, true
		case isStandaloneText(m, "UNABLE"):
			return StatusRejected, true
		case isStandaloneText(m, "STANDBY"):
			return StatusStandby, true
		case isStandaloneText(m, "DISREGARD"):
			return StatusDisregard, true
		}
	case catalog.RespAN:
		switch {
		case isStandaloneText(m, "AFFIRM"):
			return StatusAccepted, true
		case isStandaloneText(m, "NEGATIVE"):
			return StatusRejected, true
		}
	case catalog.RespR:
		if isStandaloneText(m, "ROGER") {
			return StatusAccepted, true
		}
	case catalog.RespNE:
		if len(m.Segs) == 0 {
			break
		}
		seg := m.Segs[0].Info
		for _, ref := range allowed {
			if ref.IsDownlink == seg.IsDownlink && ref.MsgType == seg.MsgType && ref.Subtype == seg.MsgSubtype {
				return StatusAccepted, true
			}
		}
	case catalog.RespY:
		// Free-text response required; any reply at all satisfies it.
		return StatusAccepted, true
	}
	return StatusOpen, false
}

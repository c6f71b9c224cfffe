package msglist

import (
	"strconv"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/openatc/cpdlcd/pkg/catalog"
	"github.com/openatc/cpdlcd/pkg/cpdlcmsg"
)

// List is one side's view of all in-progress and recently closed threads —
// the Go counterpart of cpdlc_msglist_t. A client has exactly one; the
// broker's routing layer may keep one per connection for UI/log purposes.
type List struct {
	mu       sync.Mutex
	threads  map[ThreadID]*Thread
	minIndex map[uint32]ThreadID // every MIN seen in any thread -> that thread

	// timeouts tracks one cache entry per open, response-expecting thread;
	// its TTL is the head message's catalog timeout. Update() treats a miss
	// as "deadline passed" and transitions the thread to TIMEDOUT, the same
	// sense Regentag-go1090 uses a go-cache entry's absence as "not seen
	// recently".
	timeouts *cache.Cache

	updateCB func(updated []ThreadID)
	now      func() time.Time
}

// New builds an empty List.
func New() *List {
	return &List{
		threads:  make(map[ThreadID]*Thread),
		minIndex: make(map[uint32]ThreadID),
		timeouts: cache.New(cache.NoExpiration, time.Minute),
		now:      time.Now,
	}
}

// SetUpdateCB installs a callback fired at the end of any List method that
// changed one or more threads' status, with the set of affected thread IDs —
// the Go analogue of cpdlc_msglist_set_update_cb.
func (l *List) SetUpdateCB(cb func(updated []ThreadID)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.updateCB = cb
}

func (l *List) fireUpdate(updated []ThreadID) {
	if l.updateCB != nil && len(updated) > 0 {
		l.updateCB(updated)
	}
}

// Send records an outgoing message into a thread: a new one if thrID is
// NoThreadID (keyed by msg's own MIN), or an existing one, in which case
// msg.MRN is set to the last message seen inbound on that thread, per
// spec.md §4.5. It returns the thread's id.
func (l *List) Send(msg *cpdlcmsg.Message, thrID ThreadID) ThreadID {
	l.mu.Lock()
	defer l.mu.Unlock()

	if thrID == NoThreadID {
		id := ThreadID(msg.MIN)
		e := headCatalogEntry(msg)
		t := newThread(id, Entry{Msg: msg, Sent: true, At: l.now()}, e)
		l.threads[id] = t
		if msg.HasMIN() {
			l.minIndex[msg.MIN] = id
		}
		l.scheduleTimeout(t)
		l.fireUpdate([]ThreadID{id})
		return id
	}

	t, ok := l.threads[thrID]
	if !ok {
		return NoThreadID
	}
	if last := t.lastInboundMIN(); last != cpdlcmsg.InvalidSeqNr {
		msg.MRN = last
	}
	t.Msgs = append(t.Msgs, Entry{Msg: msg, Sent: true, At: l.now()})
	if msg.HasMIN() {
		l.minIndex[msg.MIN] = thrID
	}
	return thrID
}

// HandleIncoming appends an inbound message to the thread its MRN
// correlates to, updating that thread's status; unmatched messages (MRN
// unset or unknown) open a fresh thread in StatusOpen. It returns the
// thread id the message landed in.
func (l *List) HandleIncoming(msg *cpdlcmsg.Message) ThreadID {
	l.mu.Lock()
	defer l.mu.Unlock()

	var id ThreadID
	var t *Thread
	if msg.HasMRN() {
		if tid, ok := l.minIndex[msg.MRN]; ok {
			id, t = tid, l.threads[tid]
		}
	}
	if t == nil {
		if !msg.HasMIN() {
			// No MIN to key a thread on (PING/PONG and similar); nothing to
			// correlate, so this message starts no thread at all.
			return NoThreadID
		}
		id = ThreadID(msg.MIN)
		e := headCatalogEntry(msg)
		t = newThread(id, Entry{Msg: msg, Sent: false, At: l.now()}, e)
		l.threads[id] = t
		if msg.HasMIN() {
			l.minIndex[msg.MIN] = id
		}
		l.scheduleTimeout(t)
		l.fireUpdate([]ThreadID{id})
		return id
	}

	if t.Status.Terminal() {
		// Invariant 7 / §4.5: terminal threads drop further traffic.
		return id
	}
	t.Msgs = append(t.Msgs, Entry{Msg: msg, Sent: false, At: l.now()})
	if msg.HasMIN() {
		l.minIndex[msg.MIN] = id
	}
	if newStatus, matched := classifyResponse(t.headResp, t.headAllowed, msg); matched {
		t.setStatus(newStatus)
		if t.Status.Terminal() {
			l.timeouts.Delete(timeoutKey(id))
		}
	}
	l.fireUpdate([]ThreadID{id})
	return id
}

// Update sweeps for threads whose response deadline has passed and marks
// them TIMEDOUT. Callers drive this from the same poll loop that services
// network I/O (spec.md §5's suspension-point model); it performs no I/O
// itself.
func (l *List) Update() {
	l.mu.Lock()
	defer l.mu.Unlock()

	var updated []ThreadID
	for id, t := range l.threads {
		if t.Status.Terminal() || !t.expectsResp {
			continue
		}
		if _, found := l.timeouts.Get(timeoutKey(id)); !found {
			t.setStatus(StatusTimedOut)
			updated = append(updated, id)
		}
	}
	l.fireUpdate(updated)
}

// MarkSendFailed transitions thread id to FAILED and drops its response
// timeout, per spec.md §4.5's "send-failure of any message in the thread"
// rule; an unknown id is ignored.
func (l *List) MarkSendFailed(id ThreadID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.threads[id]
	if !ok {
		return
	}
	t.setStatus(StatusFailed)
	l.timeouts.Delete(timeoutKey(id))
	l.fireUpdate([]ThreadID{id})
}

// ThreadIDs lists every known thread, optionally skipping terminal-CLOSED
// ones.
func (l *List) ThreadIDs(ignoreClosed bool) []ThreadID {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]ThreadID, 0, len(l.threads))
	for id, t := range l.threads {
		if ignoreClosed && t.Status == StatusClosed {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// ThreadIsDone reports whether a thread is in a terminal status.
func (l *List) ThreadIsDone(id ThreadID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.threads[id]
	return ok && t.Status.Terminal()
}

// Close forces a thread to CLOSED, overriding any other terminal status (the
// one regression invariant 7 allows).
func (l *List) Close(id ThreadID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.threads[id]
	if !ok {
		return
	}
	t.setStatus(StatusClosed)
	l.timeouts.Delete(timeoutKey(id))
	l.fireUpdate([]ThreadID{id})
}

// Remove drops a thread and its MIN-index entries entirely.
func (l *List) Remove(id ThreadID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.threads[id]
	if !ok {
		return
	}
	for _, e := range t.Msgs {
		if e.Msg.HasMIN() {
			delete(l.minIndex, e.Msg.MIN)
		}
	}
	delete(l.threads, id)
	l.timeouts.Delete(timeoutKey(id))
}

// Status returns a thread's status and its dirty flag.
func (l *List) Status(id ThreadID) (status Status, dirty bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.threads[id]
	if !ok {
		return StatusError, false
	}
	return t.Status, t.dirty
}

// MarkSeen clears a thread's dirty flag.
func (l *List) MarkSeen(id ThreadID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t, ok := l.threads[id]; ok {
		t.dirty = false
	}
}

// MsgCount is the number of messages recorded in a thread.
func (l *List) MsgCount(id ThreadID) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.threads[id]
	if !ok {
		return 0
	}
	return len(t.Msgs)
}

// Msg returns the nr'th message of a thread (0-indexed) along with whether
// this side sent it and when it was recorded.
func (l *List) Msg(id ThreadID, nr int) (entry Entry, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.threads[id]
	if !ok || nr < 0 || nr >= len(t.Msgs) {
		return Entry{}, false
	}
	return t.Msgs[nr], true
}

func (l *List) scheduleTimeout(t *Thread) {
	if !t.expectsResp {
		return
	}
	e := t.headEntry()
	timeoutSec := catalog.TimeoutMedium
	if e != nil {
		timeoutSec = e.TimeoutSec
	}
	l.timeouts.Set(timeoutKey(t.ID), struct{}{}, time.Duration(timeoutSec)*time.Second)
}

func timeoutKey(id ThreadID) string {
	return "thr:" + strconv.FormatUint(uint64(id), 10)
}

// lastInboundMIN is the MIN of the most recent inbound message in the
// thread, or cpdlcmsg.InvalidSeqNr if none has arrived yet.
func (t *Thread) lastInboundMIN() uint32 {
	for i := len(t.Msgs) - 1; i >= 0; i-- {
		if !t.Msgs[i].Sent && t.Msgs[i].Msg.HasMIN() {
			return t.Msgs[i].Msg.MIN
		}
	}
	return cpdlcmsg.InvalidSeqNr
}

func headCatalogEntry(msg *cpdlcmsg.Message) *catalog.Entry {
	if len(msg.Segs) == 0 {
		return nil
	}
	seg := msg.Segs[0]
	return catalog.Lookup(seg.Info.IsDownlink, seg.Info.MsgType, seg.Info.MsgSubtype)
}

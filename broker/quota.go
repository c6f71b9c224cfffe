package broker

import "sync"

// quotaTracker enforces spec.md §4.10/§7's two byte caps on the
// deferred-delivery queue: a per-sender cap (downlink senders only, per
// spec.md §3's "per-sender byte quota (downlink senders only)") and a
// global cap across every queued message regardless of sender.
type quotaTracker struct {
	perSender uint64
	global    uint64

	mu       sync.Mutex
	bySender map[string]uint64
	total    uint64
}

func newQuotaTracker(perSender, global uint64) *quotaTracker {
	return &quotaTracker{
		perSender: perSender,
		global:    global,
		bySender:  make(map[string]uint64),
	}
}

// reserve attempts to account n additional bytes queued on behalf of from.
// It returns false (and accounts nothing) if admitting n would exceed
// either cap. A zero cap means "no limit" (spec.md §6.5 defaults).
func (q *quotaTracker) reserve(from string, n uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.perSender != 0 && q.bySender[from]+n > q.perSender {
		return false
	}
	if q.global != 0 && q.total+n > q.global {
		return false
	}
	q.bySender[from] += n
	q.total += n
	return true
}

// release returns n bytes to the quota, called when a deferred message is
// delivered, dropped by TTL, or evicted at shutdown.
func (q *quotaTracker) release(from string, n uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.bySender[from] > n {
		q.bySender[from] -= n
	} else {
		delete(q.bySender, from)
	}
	if q.total > n {
		q.total -= n
	} else {
		q.total = 0
	}
}

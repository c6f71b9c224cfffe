package broker

import "testing"

func TestQuotaTrackerPerSenderCap(t *testing.T) {
	q := newQuotaTracker(100, 0)
	if !q.reserve("N123", 60) {
		t.Fatal("expected first reservation to succeed")
	}
	if q.reserve("N123", 60) {
		t.Fatal("expected second reservation to exceed per-sender cap")
	}
	if !q.reserve("N456", 60) {
		t.Fatal("a different sender should have its own cap")
	}
}

func TestQuotaTrackerGlobalCap(t *testing.T) {
	q := newQuotaTracker(0, 100)
	if !q.reserve("N123", 60) {
		t.Fatal("expected reservation under global cap to succeed")
	}
	if q.reserve("N456", 60) {
		t.Fatal("expected reservation exceeding global cap to fail")
	}
}

func TestQuotaTrackerReleaseFreesCapacity(t *testing.T) {
	q := newQuotaTracker(100, 100)
	if !q.reserve("N123", 100) {
		t.Fatal("expected full reservation to succeed")
	}
	q.release("N123", 40)
	if !q.reserve("N123", 40) {
		t.Fatal("expected reservation after release to succeed")
	}
}

func TestQuotaTrackerZeroCapMeansUnlimited(t *testing.T) {
	q := newQuotaTracker(0, 0)
	if !q.reserve("N123", 1<<40) {
		t.Fatal("zero cap should mean unlimited")
	}
}

package msglist

import "testing"

func TestStatusTerminal(t *testing.T) {
	terminal := []Status{StatusAccepted, StatusRejected, StatusTimedOut, StatusFailed, StatusDisregard, StatusClosed}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%v should be terminal", s)
		}
	}
	nonTerminal := []Status{StatusOpen, StatusStandby, StatusPending, StatusError}
	for _, s := range nonTerminal {
		if s.Terminal() {
			t.Errorf("%v should not be terminal", s)
		}
	}
}

func TestSetStatusDoesNotRegressOutOfTerminal(t *testing.T) {
	th := &Thread{Status: StatusAccepted}
	th.setStatus(StatusOpen)
	if th.Status != StatusAccepted {
		t.Errorf("terminal status regressed to %v", th.Status)
	}
	// CLOSED is the one allowed override (explicit close).
	th.setStatus(StatusClosed)
	if th.Status != StatusClosed {
		t.Errorf("explicit close did not override terminal status, got %v", th.Status)
	}
}

func TestStatusStringCoversAllValues(t *testing.T) {
	for s := StatusOpen; s <= StatusError; s++ {
		if got := s.String(); got == "UNKNOWN" {
			t.Errorf("Status(%d).String() = UNKNOWN, want a name", s)
		}
	}
}

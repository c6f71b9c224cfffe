package textcodec

import (
	"errors"
	"testing"

	"github.com/openatc/cpdlcd/pkg/catalog"
	"github.com/openatc/cpdlcd/pkg/cpdlcmsg"
)

func buildSegment(t *testing.T, isDownlink bool, msgType int, subtype byte) cpdlcmsg.Segment {
	t.Helper()
	entry := catalog.MustLookup(isDownlink, msgType, subtype)
	args := make([]cpdlcmsg.Arg, entry.NumArgs())
	for i, kind := range entry.ArgTypes {
		args[i] = sampleArg(kind)
	}
	return cpdlcmsg.Segment{Info: &entry.MsgInfo, Args: args}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, e := range catalog.All() {
		e := e
		t.Run(e.Name(), func(t *testing.T) {
			seg := buildSegment(t, e.IsDownlink, e.MsgType, e.MsgSubtype)
			msg := &cpdlcmsg.Message{
				PktType: cpdlcmsg.PktCPDLC,
				TS:      cpdlcmsg.Timestamp{Set: true, Hrs: 14, Mins: 32, Secs: 7},
				MIN:     42,
				MRN:     cpdlcmsg.InvalidSeqNr,
				From:    "N172SP",
				To:      "KZLA",
				Segs:    []cpdlcmsg.Segment{seg},
			}

			line, err := Encode(msg)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}

			got, consumed, err := Decode(line)
			if err != nil {
				t.Fatalf("Decode(%q): %v", line, err)
			}
			if consumed != len(line) {
				t.Errorf("consumed = %d, want %d", consumed, len(line))
			}
			if got.MIN != msg.MIN || got.From != msg.From || got.To != msg.To {
				t.Errorf("header mismatch: got %+v, want %+v", got, msg)
			}
			if len(got.Segs) != 1 || got.Segs[0].Info.Name() != e.Name() {
				t.Fatalf("segment mismatch: got %+v", got.Segs)
			}

			line2, err := Encode(got)
			if err != nil {
				t.Fatalf("re-Encode: %v", err)
			}
			if string(line2) != string(line) {
				t.Errorf("round-trip mismatch:\n got %q\nwant %q", line2, line)
			}
		})
	}
}

func TestDecodeIncomplete(t *testing.T) {
	_, _, err := Decode([]byte("PKT=PING/TS=120000"))
	if !errors.Is(err, cpdlcmsg.ErrIncomplete) {
		t.Errorf("expected ErrIncomplete, got %v", err)
	}
}

func TestDecodeMalformedMissingPkt(t *testing.T) {
	_, _, err := Decode([]byte("TS=120000/MIN=1\n"))
	if !errors.Is(err, cpdlcmsg.ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestDecodePingPong(t *testing.T) {
	line := []byte("PKT=PING/TS=235959\n")
	msg, consumed, err := Decode(line)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if consumed != len(line) {
		t.Errorf("consumed = %d, want %d", consumed, len(line))
	}
	if msg.PktType != cpdlcmsg.PktPing {
		t.Errorf("PktType = %v, want PING", msg.PktType)
	}
	if msg.HasMIN() {
		t.Error("PING should not require MIN")
	}
}

func TestDecodeLogon(t *testing.T) {
	line := []byte("PKT=CPDLC/TS=010203/MIN=1/FROM=N172SP/LOGON=" + Escape("some blob") + "\n")
	msg, _, err := Decode(line)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !msg.IsLogon || msg.LogonData != "some blob" {
		t.Errorf("logon mismatch: %+v", msg)
	}
}

func TestDecodeAcceptsCRLF(t *testing.T) {
	line := []byte("PKT=PING/TS=010203\r\n")
	_, consumed, err := Decode(line)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if consumed != len(line) {
		t.Errorf("consumed = %d, want %d", consumed, len(line))
	}
}

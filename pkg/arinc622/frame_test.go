package arinc622

import (
	"testing"

	"github.com/openatc/cpdlcd/pkg/catalog"
	"github.com/openatc/cpdlcd/pkg/cpdlcmsg"
)

func buildMsg(t *testing.T, e *catalog.Entry, from, to string) *cpdlcmsg.Message {
	t.Helper()
	args := make([]cpdlcmsg.Arg, e.NumArgs())
	for i, kind := range e.ArgTypes {
		args[i] = sampleArgForTest(kind)
	}
	return &cpdlcmsg.Message{
		PktType: cpdlcmsg.PktCPDLC,
		TS:      cpdlcmsg.Timestamp{Set: true, Hrs: 10, Mins: 15, Secs: 0},
		MIN:     7,
		MRN:     cpdlcmsg.InvalidSeqNr,
		From:    from,
		To:      to,
		Segs:    []cpdlcmsg.Segment{{Info: &e.MsgInfo, Args: args}},
	}
}

// sampleArgForTest mirrors pkg/textcodec's sampleArg without importing it
// (it is unexported there), so the two test suites stay independent.
func sampleArgForTest(kind cpdlcmsg.ArgKind) cpdlcmsg.Arg {
	switch kind {
	case cpdlcmsg.ArgAltitude:
		return cpdlcmsg.Arg{Kind: kind, Alt: cpdlcmsg.Altitude{FL: true, Feet: 350}}
	case cpdlcmsg.ArgSpeed:
		return cpdlcmsg.Arg{Kind: kind, Spd: cpdlcmsg.Speed{Val: 250}}
	case cpdlcmsg.ArgTime:
		return cpdlcmsg.Arg{Kind: kind, Time: cpdlcmsg.Time{Hrs: 14, Mins: 32}}
	case cpdlcmsg.ArgTimeDur:
		return cpdlcmsg.Arg{Kind: kind, Time: cpdlcmsg.Time{Mins: 12}}
	case cpdlcmsg.ArgPosition:
		return cpdlcmsg.Arg{Kind: kind, Pos: cpdlcmsg.Position{Set: true, Type: cpdlcmsg.PosFixName, FixName: "LAXXX"}}
	case cpdlcmsg.ArgDirection:
		return cpdlcmsg.Arg{Kind: kind, Dir: cpdlcmsg.DirLeft}
	case cpdlcmsg.ArgDistance, cpdlcmsg.ArgDistanceOffset:
		return cpdlcmsg.Arg{Kind: kind, Dist: 12.5}
	case cpdlcmsg.ArgVVI:
		return cpdlcmsg.Arg{Kind: kind, VVI: 500}
	case cpdlcmsg.ArgToFrom:
		return cpdlcmsg.Arg{Kind: kind, ToFrom: true}
	case cpdlcmsg.ArgRoute:
		return cpdlcmsg.Arg{Kind: kind, Route: &cpdlcmsg.Route{OrigICAO: "KLAX", DestICAO: "KSFO"}}
	case cpdlcmsg.ArgProcedure:
		return cpdlcmsg.Arg{Kind: kind, Proc: cpdlcmsg.Procedure{Type: cpdlcmsg.ProcDeparture, Name: "SADDE6"}}
	case cpdlcmsg.ArgSquawk:
		return cpdlcmsg.Arg{Kind: kind, Squawk: 0o1200}
	case cpdlcmsg.ArgICAOID:
		return cpdlcmsg.Arg{Kind: kind, ICAOID: "KZLA"}
	case cpdlcmsg.ArgICAOName:
		return cpdlcmsg.Arg{Kind: kind, ICAOName: cpdlcmsg.ICAOName{ICAOID: "KZLA", Func: cpdlcmsg.FacCenter}}
	case cpdlcmsg.ArgFrequency:
		return cpdlcmsg.Arg{Kind: kind, Freq: cpdlcmsg.Frequency{Band: cpdlcmsg.FreqVHF, MHz: 132.4}}
	case cpdlcmsg.ArgDegrees:
		return cpdlcmsg.Arg{Kind: kind, Degrees: cpdlcmsg.Degrees{Deg: 270}}
	case cpdlcmsg.ArgBaro:
		return cpdlcmsg.Arg{Kind: kind, Baro: cpdlcmsg.Baro{HPa: true, Val: 1013}}
	case cpdlcmsg.ArgFreetext, cpdlcmsg.ArgErrInfo:
		return cpdlcmsg.Arg{Kind: kind, Freetext: "UNABLE DUE TRAFFIC"}
	case cpdlcmsg.ArgPersons:
		return cpdlcmsg.Arg{Kind: kind, Persons: 142}
	case cpdlcmsg.ArgPosReport:
		return cpdlcmsg.Arg{Kind: kind, PosReport: &cpdlcmsg.PosReport{
			CurPos: cpdlcmsg.Position{Set: true, Type: cpdlcmsg.PosFixName, FixName: "KLAX"},
			TimeCurPos: cpdlcmsg.Time{Hrs: 12, Mins: 0}, CurAlt: cpdlcmsg.Altitude{FL: true, Feet: 350},
			FixNext: cpdlcmsg.NullPosition(), TimeFixNext: cpdlcmsg.NullTime(),
			FixNextP1: cpdlcmsg.NullPosition(), TimeDest: cpdlcmsg.NullTime(),
			RmngFuel: cpdlcmsg.NullTime(), Temp: cpdlcmsg.NullTemp,
			Spd: cpdlcmsg.NullSpeed(), SpdGnd: cpdlcmsg.NullSpeed(),
			RptWptPos: cpdlcmsg.NullPosition(), RptWptTime: cpdlcmsg.NullTime(),
			RptWptAlt: cpdlcmsg.NullAltitude(),
		}}
	case cpdlcmsg.ArgPDC:
		return cpdlcmsg.Arg{Kind: kind, PDC: &cpdlcmsg.PDC{
			ACFID: "N172SP", TimeDep: cpdlcmsg.Time{Hrs: 18, Mins: 0},
			Route: cpdlcmsg.Route{OrigICAO: "KLAX", DestICAO: "KSFO"},
			AltRestr: cpdlcmsg.NullAltitude(), FreqMHz: 121.9, Squawk: 0o1234, Revision: 1,
		}}
	case cpdlcmsg.ArgTP4Table:
		return cpdlcmsg.Arg{Kind: kind, TP4Table: cpdlcmsg.TP4LabelB}
	case cpdlcmsg.ArgVersion:
		return cpdlcmsg.Arg{Kind: kind, Version: 1}
	case cpdlcmsg.ArgATISCode:
		return cpdlcmsg.Arg{Kind: kind, ATISCode: 'Q'}
	case cpdlcmsg.ArgLegType:
		return cpdlcmsg.Arg{Kind: kind, LegType: cpdlcmsg.LegType{IsTime: true, TimeMin: 5}}
	default:
		panic("sampleArgForTest: unhandled kind")
	}
}

func TestEncodeDecodeFrameRoundTrip(t *testing.T) {
	for _, e := range catalog.All() {
		e := e
		t.Run(e.Name(), func(t *testing.T) {
			msg := buildMsg(t, &e, "N172SP", "KZLA")

			frame, err := Encode(msg, IMIData)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}

			got, imi, err := Decode(frame)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if imi != IMIData {
				t.Errorf("imi = %v, want IMIData", imi)
			}
			if got.MIN != msg.MIN {
				t.Errorf("MIN = %d, want %d", got.MIN, msg.MIN)
			}
			if len(got.Segs) != 1 || got.Segs[0].Info.Name() != e.Name() {
				t.Fatalf("segment mismatch: %+v", got.Segs)
			}
		})
	}
}

func TestDecodeRejectsBadCRC(t *testing.T) {
	e := catalog.MustLookup(false, 0, 0)
	msg := buildMsg(t, e, "N172SP", "KZLA")
	frame, err := Encode(msg, IMIData)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	corrupt := append([]byte{}, frame...)
	corrupt[len(corrupt)-1] ^= 0xff
	if _, _, err := Decode(corrupt); err == nil {
		t.Error("expected CRC mismatch error, got nil")
	}
}

func TestPadCallsign(t *testing.T) {
	if got := padCallsign("N172SP"); got != ".N172SP" {
		t.Errorf("padCallsign(N172SP) = %q, want .N172SP", got)
	}
	if got := padCallsign("UAL123X"); got != "UAL123X" {
		t.Errorf("padCallsign(UAL123X) = %q, want UAL123X", got)
	}
}

func TestDisconnectRequestSetsLogoff(t *testing.T) {
	msg := &cpdlcmsg.Message{
		PktType: cpdlcmsg.PktCPDLC,
		TS:      cpdlcmsg.Timestamp{Set: true, Hrs: 10, Mins: 15},
		MIN:     3,
		MRN:     cpdlcmsg.InvalidSeqNr,
		From:    "N172SP",
		IsLogoff: true,
	}

	frame, err := Encode(msg, IMIDisconnReq)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, imi, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if imi != IMIDisconnReq || !got.IsLogoff {
		t.Errorf("expected decoded logoff flag set, got imi=%v logoff=%v", imi, got.IsLogoff)
	}
}

package arinc622

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/openatc/cpdlcd/internal/bitio"
	"github.com/openatc/cpdlcd/pkg/cpdlcmsg"
)

// IMI is the ARINC 622 interchange message identifier, the frame's
// 3-character connection-phase tag.
type IMI int

const (
	// IMIConnReq: connection request (CR1).
	IMIConnReq IMI = iota
	// IMIConnConfirm: connection confirm (CC1).
	IMIConnConfirm
	// IMIData: data (AT1), the common case carrying a CPDLC message.
	IMIData
	// IMIDisconnReq: disconnect request (DR1); decoding one sets the
	// message's logoff flag.
	IMIDisconnReq
)

func (i IMI) String() string {
	switch i {
	case IMIConnReq:
		return "CR1"
	case IMIConnConfirm:
		return "CC1"
	case IMIData:
		return "AT1"
	case IMIDisconnReq:
		return "DR1"
	default:
		return "???"
	}
}

func imiFromString(s string) (IMI, error) {
	switch s {
	case "CR1":
		return IMIConnReq, nil
	case "CC1":
		return IMIConnConfirm, nil
	case "AT1":
		return IMIData, nil
	case "DR1":
		return IMIDisconnReq, nil
	default:
		return 0, fmt.Errorf("arinc622: unrecognized IMI %q", s)
	}
}

const callsignFieldLen = 7

// padCallsign right-justifies cs to callsignFieldLen, dot-padding the left.
func padCallsign(cs string) string {
	if len(cs) > callsignFieldLen {
		cs = cs[len(cs)-callsignFieldLen:]
	}
	return strings.Repeat(".", callsignFieldLen-len(cs)) + cs
}

// Encode renders a Message as the ARINC 622 frame of spec.md §4.2:
// IMI(3) || Callsign(7, dot-padded) || hex(PER(payload) || CRC16).
// The IMI written is always the caller's imi argument; Encode does not
// derive it from the message (a logoff still needs IMIDisconnReq passed in).
func Encode(m *cpdlcmsg.Message, imi IMI) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	w := bitio.NewWriter()
	if m.HasMIN() {
		w.WriteBool(true)
		w.WriteBits(uint64(m.MIN&0x3f), 6)
	} else {
		w.WriteBool(false)
	}
	w.WriteBool(m.HasMRN())
	if m.HasMRN() {
		w.WriteBits(uint64(m.MRN&0x3f), 6)
	}
	w.WriteBool(m.TS.Set)
	if m.TS.Set {
		w.WriteBits(uint64(m.TS.Hrs), 5)
		w.WriteBits(uint64(m.TS.Mins), 6)
	}
	if err := encodeSegments(w, m.Segs); err != nil {
		return nil, err
	}
	per := w.Bytes()

	cs := m.To
	if len(m.Segs) > 0 && m.Segs[0].Info.IsDownlink {
		cs = m.From
	}
	csPad := padCallsign(cs)

	crcInput := append([]byte(imi.String()+csPad), per...)
	crc := CRC16(crcInput)

	payload := append(append([]byte{}, per...), byte(crc>>8), byte(crc))
	hexPayload := make([]byte, hex.EncodedLen(len(payload)))
	hex.Encode(hexPayload, payload)

	out := make([]byte, 0, 3+callsignFieldLen+len(hexPayload))
	out = append(out, []byte(imi.String())...)
	out = append(out, []byte(csPad)...)
	out = append(out, hexPayload...)
	return out, nil
}

// Decode reverses Encode: validates the CRC, splits IMI/callsign/payload,
// PER-decodes the body, and materializes a Message. The callsign travels in
// From for downlinks, To for uplinks and logoffs — the caller (the broker's routing
// layer) knows which side originated the frame and fixes up the other
// field.
func Decode(frame []byte) (*cpdlcmsg.Message, IMI, error) {
	if len(frame) < 3+callsignFieldLen {
		return nil, 0, fmt.Errorf("%w: arinc622 frame too short", cpdlcmsg.ErrIncomplete)
	}
	imi, err := imiFromString(string(frame[:3]))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", cpdlcmsg.ErrMalformed, err)
	}
	csPad := string(frame[3 : 3+callsignFieldLen])
	hexPayload := frame[3+callsignFieldLen:]

	payload := make([]byte, hex.DecodedLen(len(hexPayload)))
	if _, err := hex.Decode(payload, hexPayload); err != nil {
		return nil, 0, fmt.Errorf("%w: bad hex payload: %v", cpdlcmsg.ErrMalformed, err)
	}
	if len(payload) < 2 {
		return nil, 0, fmt.Errorf("%w: payload too short for CRC", cpdlcmsg.ErrMalformed)
	}
	per := payload[:len(payload)-2]
	wantCRC := uint16(payload[len(payload)-2])<<8 | uint16(payload[len(payload)-1])

	crcInput := append(append([]byte{}, frame[:3+callsignFieldLen]...), per...)
	gotCRC := CRC16(crcInput)
	if gotCRC != wantCRC {
		return nil, 0, fmt.Errorf("%w: CRC mismatch (got %04x, want %04x)", cpdlcmsg.ErrMalformed, gotCRC, wantCRC)
	}

	r := bitio.NewReader(per)
	m := &cpdlcmsg.Message{PktType: cpdlcmsg.PktCPDLC, MIN: cpdlcmsg.InvalidSeqNr, MRN: cpdlcmsg.InvalidSeqNr}

	hasMIN, err := r.ReadBool()
	if err != nil {
		return nil, 0, malformedErr(err)
	}
	if hasMIN {
		v, err := r.ReadBits(6)
		if err != nil {
			return nil, 0, malformedErr(err)
		}
		m.MIN = uint32(v)
	}
	hasMRN, err := r.ReadBool()
	if err != nil {
		return nil, 0, malformedErr(err)
	}
	if hasMRN {
		v, err := r.ReadBits(6)
		if err != nil {
			return nil, 0, malformedErr(err)
		}
		m.MRN = uint32(v)
	}
	hasTS, err := r.ReadBool()
	if err != nil {
		return nil, 0, malformedErr(err)
	}
	if hasTS {
		hrs, err := r.ReadBits(5)
		if err != nil {
			return nil, 0, malformedErr(err)
		}
		mins, err := r.ReadBits(6)
		if err != nil {
			return nil, 0, malformedErr(err)
		}
		m.TS = cpdlcmsg.Timestamp{Set: true, Hrs: int(hrs), Mins: int(mins)}
	}
	segs, err := decodeSegments(r)
	if err != nil {
		return nil, 0, malformedErr(err)
	}
	m.Segs = segs

	trimmed := strings.TrimLeft(csPad, ".")
	if imi == IMIDisconnReq {
		m.IsLogoff = true
		m.To = trimmed
	} else if len(m.Segs) > 0 && m.Segs[0].Info.IsDownlink {
		m.From = trimmed
	} else {
		m.To = trimmed
	}

	if err := m.Validate(); err != nil {
		return nil, 0, err
	}
	return m, imi, nil
}

func malformedErr(err error) error {
	return fmt.Errorf("%w: %v", cpdlcmsg.ErrMalformed, err)
}

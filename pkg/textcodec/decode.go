package textcodec

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/openatc/cpdlcd/pkg/catalog"
	"github.com/openatc/cpdlcd/pkg/cpdlcmsg"
)

// Decode implements the §4.1 decoder contract against an append-only byte
// buffer: it looks for one LF-terminated line (an optional trailing CR is
// stripped), decodes it, and reports how many bytes of buf it consumed.
//
//   - consumed == 0, err == cpdlcmsg.ErrIncomplete: no full line yet, keep
//     reading and call again once more bytes arrive.
//   - consumed > 0, err wraps cpdlcmsg.ErrMalformed: the line was read but
//     did not parse; the caller may close the connection.
//   - consumed > 0, err == nil: msg is valid and consumed bytes may be
//     discarded from the buffer.
func Decode(buf []byte) (msg *cpdlcmsg.Message, consumed int, err error) {
	nl := bytes.IndexByte(buf, '\n')
	if nl < 0 {
		return nil, 0, cpdlcmsg.ErrIncomplete
	}
	consumed = nl + 1
	line := buf[:nl]
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	m, err := decodeLine(string(line))
	return m, consumed, err
}

func decodeLine(line string) (*cpdlcmsg.Message, error) {
	fields := strings.Split(line, "/")
	m := &cpdlcmsg.Message{MIN: cpdlcmsg.InvalidSeqNr, MRN: cpdlcmsg.InvalidSeqNr}
	sawPkt := false
	sawTS := false
	var msgVals []string
	haveAsn1 := false

	for _, field := range fields {
		if field == "" {
			continue
		}
		key, val, hasVal := splitField(field)
		switch key {
		case "PKT":
			if !hasVal {
				return nil, malformed("PKT requires a value")
			}
			switch val {
			case "CPDLC":
				m.PktType = cpdlcmsg.PktCPDLC
			case "PING":
				m.PktType = cpdlcmsg.PktPing
			case "PONG":
				m.PktType = cpdlcmsg.PktPong
			default:
				return nil, malformed("unrecognized PKT value %q", val)
			}
			sawPkt = true
		case "TS":
			if !sawPkt {
				return nil, malformed("TS field before PKT")
			}
			ts, err := parseHdrTimestamp(val)
			if err != nil {
				return nil, err
			}
			m.TS = ts
			sawTS = true
		case "MIN":
			n, err := strconv.ParseUint(val, 10, 32)
			if err != nil {
				return nil, malformed("bad MIN %q", val)
			}
			m.MIN = uint32(n)
		case "MRN":
			n, err := strconv.ParseUint(val, 10, 32)
			if err != nil {
				return nil, malformed("bad MRN %q", val)
			}
			m.MRN = uint32(n)
		case "TO":
			s, err := Unescape(val)
			if err != nil {
				return nil, malformed("bad TO: %v", err)
			}
			m.To = s
		case "FROM":
			s, err := Unescape(val)
			if err != nil {
				return nil, malformed("bad FROM: %v", err)
			}
			m.From = s
		case "LOGON":
			s, err := Unescape(val)
			if err != nil {
				return nil, malformed("bad LOGON: %v", err)
			}
			m.IsLogon = true
			m.LogonData = s
		case "LOGOFF":
			m.IsLogoff = true
		case "MSG":
			if !sawPkt {
				return nil, malformed("MSG field before PKT")
			}
			msgVals = append(msgVals, val)
		case "ASN1":
			if !sawPkt {
				return nil, malformed("ASN1 field before PKT")
			}
			haveAsn1 = true
		default:
			return nil, malformed("unrecognized header field %q", key)
		}
	}

	if !sawPkt {
		return nil, malformed("missing PKT")
	}
	if !sawTS {
		return nil, malformed("missing TS")
	}
	if m.IsLogon && len(msgVals) > 0 {
		return nil, malformed("LOGON is mutually exclusive with MSG")
	}
	if haveAsn1 {
		return nil, malformed("ASN1 header field is not handled by the text decoder")
	}

	for _, mv := range msgVals {
		seg, err := decodeSegment(mv)
		if err != nil {
			return nil, err
		}
		m.Segs = append(m.Segs, seg)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// splitField splits a KEY or KEY=VALUE field. hasVal is false for flag-only
// fields such as LOGOFF.
func splitField(field string) (key, val string, hasVal bool) {
	idx := strings.IndexByte(field, '=')
	if idx < 0 {
		return field, "", false
	}
	return field[:idx], field[idx+1:], true
}

func parseHdrTimestamp(s string) (cpdlcmsg.Timestamp, error) {
	if len(s) != 6 {
		return cpdlcmsg.Timestamp{}, malformed("bad TS %q: expected HHMMSS", s)
	}
	hh, err1 := strconv.Atoi(s[0:2])
	mm, err2 := strconv.Atoi(s[2:4])
	ss, err3 := strconv.Atoi(s[4:6])
	if err1 != nil || err2 != nil || err3 != nil {
		return cpdlcmsg.Timestamp{}, malformed("bad TS %q: non-numeric", s)
	}
	ts := cpdlcmsg.Timestamp{Set: true, Hrs: hh, Mins: mm, Secs: ss}
	if err := ts.Validate(); err != nil {
		return cpdlcmsg.Timestamp{}, err
	}
	return ts, nil
}

// decodeSegment parses one MSG= value: "{UM|DM}<n>[<subtype>] arg1 arg2 …".
func decodeSegment(s string) (cpdlcmsg.Segment, error) {
	parts := strings.Split(s, " ")
	head := parts[0]
	argToks := parts[1:]

	var isDownlink bool
	switch {
	case strings.HasPrefix(head, "UM"):
		isDownlink = false
		head = head[2:]
	case strings.HasPrefix(head, "DM"):
		isDownlink = true
		head = head[2:]
	default:
		return cpdlcmsg.Segment{}, malformed("bad message tag %q", parts[0])
	}

	msgType, subtype, err := splitMsgNumSubtype(head)
	if err != nil {
		return cpdlcmsg.Segment{}, err
	}

	entry := catalog.Lookup(isDownlink, msgType, subtype)
	if entry == nil {
		return cpdlcmsg.Segment{}, malformed("unknown message type %s", parts[0])
	}
	if len(argToks) != entry.NumArgs() {
		return cpdlcmsg.Segment{}, malformed("%s: expected %d arguments, got %d",
			parts[0], entry.NumArgs(), len(argToks))
	}

	args := make([]cpdlcmsg.Arg, len(argToks))
	for i, tok := range argToks {
		a, err := parseArg(entry.ArgTypes[i], tok)
		if err != nil {
			return cpdlcmsg.Segment{}, malformed("%s arg %d: %v", parts[0], i, err)
		}
		args[i] = a
	}

	return cpdlcmsg.Segment{Info: &entry.MsgInfo, Args: args}, nil
}

// splitMsgNumSubtype splits "67h" into (67, 'h') and "20" into (20, 0).
func splitMsgNumSubtype(s string) (int, byte, error) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, 0, malformed("bad message number %q", s)
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0, 0, malformed("bad message number %q", s)
	}
	if i == len(s) {
		return n, 0, nil
	}
	if i == len(s)-1 {
		return n, s[i], nil
	}
	return 0, 0, malformed("bad message subtype %q", s)
}

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", cpdlcmsg.ErrMalformed, fmt.Sprintf(format, args...))
}

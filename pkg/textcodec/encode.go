package textcodec

import (
	"fmt"
	"strings"

	"github.com/openatc/cpdlcd/pkg/cpdlcmsg"
)

// Encode renders a Message as a single LF-terminated text-form line, the
// inverse of Decode. The caller is responsible for writing the returned
// bytes to the wire as-is; Encode never splits across multiple lines.
func Encode(m *cpdlcmsg.Message) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	var fields []string

	fields = append(fields, "PKT="+m.PktType.String())
	fields = append(fields, "TS="+formatHdrTimestamp(m.TS))

	if m.HasMIN() {
		fields = append(fields, fmt.Sprintf("MIN=%d", m.MIN))
	}
	if m.HasMRN() {
		fields = append(fields, fmt.Sprintf("MRN=%d", m.MRN))
	}
	if m.From != "" {
		fields = append(fields, "FROM="+Escape(m.From))
	}
	if m.To != "" {
		fields = append(fields, "TO="+Escape(m.To))
	}
	if m.IsLogon {
		fields = append(fields, "LOGON="+Escape(m.LogonData))
	}
	if m.IsLogoff {
		fields = append(fields, "LOGOFF")
	}
	for _, seg := range m.Segs {
		s, err := encodeSegment(seg)
		if err != nil {
			return nil, err
		}
		fields = append(fields, "MSG="+s)
	}

	line := strings.Join(fields, "/")
	return append([]byte(line), '\n'), nil
}

func formatHdrTimestamp(ts cpdlcmsg.Timestamp) string {
	return fmt.Sprintf("%02d%02d%02d", ts.Hrs, ts.Mins, ts.Secs)
}

// encodeSegment renders one segment's "{UM|DM}<n>[<subtype>] arg1 arg2 …"
// body, the value half of a MSG= field.
func encodeSegment(seg cpdlcmsg.Segment) (string, error) {
	toks := make([]string, 0, len(seg.Args)+1)
	toks = append(toks, seg.Info.Name())
	for i, a := range seg.Args {
		s, err := serializeArg(a)
		if err != nil {
			return "", fmt.Errorf("arg %d: %w", i, err)
		}
		toks = append(toks, s)
	}
	return strings.Join(toks, " "), nil
}

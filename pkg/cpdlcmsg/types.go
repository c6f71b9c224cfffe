// Package cpdlcmsg is the tagged-variant data model for a CPDLC message: its
// header fields, its uplink/downlink segments, and the closed set of
// argument kinds a segment's arguments are drawn from.
//
// The model is grounded on the libcpdlc C struct layout (cpdlc_msg_t,
// cpdlc_msg_seg_t, cpdlc_arg_t in cpdlc_msg.h): a message carries 0-5
// segments, each segment pairs a catalog entry with up to 5 typed arguments.
// Where the C implementation uses a raw union, this package uses a Go sum
// type (ArgKind discriminant + one field per kind).
package cpdlcmsg

import "fmt"

// PktType is the outermost wire packet kind.
type PktType int

const (
	PktCPDLC PktType = iota
	PktPing
	PktPong
)

func (p PktType) String() string {
	switch p {
	case PktCPDLC:
		return "CPDLC"
	case PktPing:
		return "PING"
	case PktPong:
		return "PONG"
	default:
		return "UNKNOWN"
	}
}

// Timestamp is the message's HH:MM:SS UTC creation time.
type Timestamp struct {
	Set  bool
	Hrs  int
	Mins int
	Secs int
}

// MaxArgs, MaxSegs and MaxRespMsgs mirror CPDLC_MAX_ARGS / CPDLC_MAX_MSG_SEGS
// / CPDLC_MAX_RESP_MSGS from the original implementation.
const (
	MaxArgs        = 5
	MaxSegs        = 5
	MaxRespMsgs    = 4
	CallsignMaxLen = 15
)

// InvalidSeqNr mirrors CPDLC_INVALID_MSG_SEQ_NR: a MIN/MRN value meaning
// "not set".
const InvalidSeqNr = ^uint32(0)

// Message is a single CPDLC/PING/PONG wire message.
type Message struct {
	PktType PktType
	TS      Timestamp

	MIN    uint32 // InvalidSeqNr if unset
	MRN    uint32 // InvalidSeqNr if unset
	From   string
	To     string

	IsLogon    bool
	LogonData  string
	IsLogoff   bool

	Segs []Segment
}

// HasMIN reports whether the message carries an explicit MIN.
func (m *Message) HasMIN() bool { return m.MIN != InvalidSeqNr }

// HasMRN reports whether the message carries an explicit MRN (i.e. is a
// response to some earlier message).
func (m *Message) HasMRN() bool { return m.MRN != InvalidSeqNr }

// IsDownlink reports the uplink/downlink direction of the message's
// segments. Panics if called on a message with no segments; callers must
// check len(Segs) > 0 first (logon/logoff/ping/pong messages carry none).
func (m *Message) IsDownlink() bool {
	if len(m.Segs) == 0 {
		panic("cpdlcmsg: IsDownlink called on a message with no segments")
	}
	return m.Segs[0].Info.IsDownlink
}

// Homogeneous reports whether every segment shares the same uplink/downlink
// direction, per invariant 1: "a message with segments is either fully
// uplink or fully downlink".
func (m *Message) Homogeneous() bool {
	if len(m.Segs) == 0 {
		return true
	}
	dl := m.Segs[0].Info.IsDownlink
	for _, s := range m.Segs[1:] {
		if s.Info.IsDownlink != dl {
			return false
		}
	}
	return true
}

// Segment pairs a catalog entry with its typed arguments.
type Segment struct {
	Info *MsgInfo // catalog entry; see package catalog
	Args []Arg
}

func (s Segment) String() string {
	return fmt.Sprintf("%s(%d args)", s.Info.Name(), len(s.Args))
}

// MsgInfo is the subset of the catalog entry that pkg/cpdlcmsg needs without
// importing pkg/catalog (which in turn imports pkg/cpdlcmsg for Arg types) —
// it avoids an import cycle. pkg/catalog.Entry embeds MsgInfo.
type MsgInfo struct {
	IsDownlink bool
	MsgType    int
	MsgSubtype byte // 0, or 'b'..'i' for DM67's sub-variants
}

// Name renders "UM20"/"DM67h" the way text-form messages spell a segment's
// type.
func (i MsgInfo) Name() string {
	prefix := "UM"
	if i.IsDownlink {
		prefix = "DM"
	}
	if i.MsgSubtype != 0 {
		return fmt.Sprintf("%s%d%c", prefix, i.MsgType, i.MsgSubtype)
	}
	return fmt.Sprintf("%s%d", prefix, i.MsgType)
}

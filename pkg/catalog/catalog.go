// Package catalog is the immutable table of standardized CPDLC message
// types: for each (direction, message number, sub-type) it records the
// human-readable text template, the typed argument signature, the expected
// response class, the default response timeout, and the set of permitted
// response message types.
//
// The table is a literal Go slice — the idiomatic replacement for the
// static C array in the original implementation's cpdlc_infos.c (a ~78KB
// file of exactly this shape, confirmed in original_source/). Encoders and
// decoders never switch on a message number directly; they always go
// through Lookup, so new catalog rows need no new codec code, matching the
// "generated dispatch table" guidance of spec.md §9.
package catalog

import (
	"fmt"

	"github.com/openatc/cpdlcd/pkg/cpdlcmsg"
)

// ResponseClass is the expected-response-class column of a catalog entry
// (spec.md §4.3).
type ResponseClass int

const (
	// RespWU: Wilco/Unable required.
	RespWU ResponseClass = iota
	// RespAN: Affirm/Negative required.
	RespAN
	// RespR: Roger required.
	RespR
	// RespNE: operational response; the specific acceptable reply message
	// types are listed in AllowedResponses.
	RespNE
	// RespY: a response is required, but its content is free-text.
	RespY
	// RespN: no response required.
	RespN
)

func (r ResponseClass) String() string {
	switch r {
	case RespWU:
		return "WU"
	case RespAN:
		return "AN"
	case RespR:
		return "R"
	case RespNE:
		return "NE"
	case RespY:
		return "Y"
	case RespN:
		return "N"
	default:
		return "?"
	}
}

// Timeout tiers per spec.md §4.3.
const (
	TimeoutShort  = 100
	TimeoutMedium = 200
	TimeoutLong   = 300
	// DeferredQueueTTL is the deferred-delivery queue's TTL: long + margin.
	DeferredQueueTTL = 600
)

// MsgRef identifies a catalog entry by direction/number/subtype, used to
// list a segment's allowed response types without an import cycle back to
// the entries that reference them.
type MsgRef struct {
	IsDownlink bool
	MsgType    int
	Subtype    byte
}

// Entry is one row of the catalog (cpdlc_msg_info_t).
type Entry struct {
	cpdlcmsg.MsgInfo

	Text             string
	ArgTypes         []cpdlcmsg.ArgKind
	AsnElemID        uint
	Resp             ResponseClass
	TimeoutSec       int
	AllowedResponses []MsgRef
}

// NumArgs is the arity implied by ArgTypes.
func (e *Entry) NumArgs() int { return len(e.ArgTypes) }

type key struct {
	isDL    bool
	msgType int
	sub     byte
}

var byKey map[key]*Entry

func init() {
	byKey = make(map[key]*Entry, len(entries))
	for i := range entries {
		e := &entries[i]
		k := key{e.IsDownlink, e.MsgType, e.MsgSubtype}
		if _, dup := byKey[k]; dup {
			panic(fmt.Sprintf("catalog: duplicate entry for %+v", k))
		}
		byKey[k] = e
	}
}

// Lookup returns the catalog entry for (isDownlink, msgType, subtype), or
// nil if no such entry exists. subtype is 0 for every message type except
// DM67, whose sub-variants are 'b'..'i'.
func Lookup(isDownlink bool, msgType int, subtype byte) *Entry {
	return byKey[key{isDownlink, msgType, subtype}]
}

// MustLookup is Lookup but panics on a miss; used for catalog-internal
// AllowedResponses wiring and in tests where the entry is known to exist.
func MustLookup(isDownlink bool, msgType int, subtype byte) *Entry {
	e := Lookup(isDownlink, msgType, subtype)
	if e == nil {
		panic(fmt.Sprintf("catalog: no entry for isDownlink=%v msgType=%d subtype=%c",
			isDownlink, msgType, subtype))
	}
	return e
}

// All returns every catalog entry, for codecs/tests that need to iterate the
// whole table (e.g. the round-trip law of spec.md §8).
func All() []Entry { return entries }

package catalog

import "github.com/openatc/cpdlcd/pkg/cpdlcmsg"

// entries is a representative seed of the full ICAO/ARINC 622 catalog
// (~160 uplink + ~80 downlink rows in the real standard, confirmed against
// original_source/src/cpdlc_infos.c). Every timeout tier and most argument
// kinds and response classes appear at least once (no row uses ArgErrInfo,
// ArgLegType or RespAN), plus DM67's sub-variant mechanism. See DESIGN.md
// "Open Decision #1" for why the table stops here instead of transcribing
// all ~250 rows verbatim.
//
// Message numbers and names match cpdlc_msg.h's cpdlc_ul_msg_type_t /
// cpdlc_dl_msg_type_t enumerators exactly, so this table is a drop-in
// superset target: appending the remaining rows never requires touching
// the codecs, which dispatch purely through Lookup.
var entries = []Entry{
	// --- standalone responses (no args) ---
	{MsgInfo: info(false, 0), Text: "UNABLE", Resp: RespN, TimeoutSec: TimeoutShort},
	{MsgInfo: info(false, 1), Text: "STANDBY", Resp: RespN, TimeoutSec: TimeoutShort},
	{MsgInfo: info(false, 3), Text: "ROGER", Resp: RespN, TimeoutSec: TimeoutShort},
	{MsgInfo: info(false, 4), Text: "AFFIRM", Resp: RespN, TimeoutSec: TimeoutShort},
	{MsgInfo: info(false, 5), Text: "NEGATIVE", Resp: RespN, TimeoutSec: TimeoutShort},
	{MsgInfo: info(false, 161), Text: "LOGICAL ACKNOWLEDGEMENT", Resp: RespN, TimeoutSec: TimeoutShort},
	{MsgInfo: info(false, 168), Text: "DISREGARD", Resp: RespN, TimeoutSec: TimeoutShort},

	// --- ArgAltitude ---
	{
		MsgInfo: info(false, 19), Text: "MAINTAIN [altitude]",
		ArgTypes: args(cpdlcmsg.ArgAltitude), Resp: RespWU, TimeoutSec: TimeoutMedium,
	},
	{
		MsgInfo: info(false, 20), Text: "CLIMB TO [altitude]",
		ArgTypes: args(cpdlcmsg.ArgAltitude), Resp: RespWU, TimeoutSec: TimeoutMedium,
	},
	{
		MsgInfo: info(false, 23), Text: "DESCEND TO [altitude]",
		ArgTypes: args(cpdlcmsg.ArgAltitude), Resp: RespWU, TimeoutSec: TimeoutMedium,
	},
	{
		MsgInfo: info(true, 9), Text: "REQUEST CLIMB TO [altitude]",
		ArgTypes: args(cpdlcmsg.ArgAltitude), Resp: RespNE, TimeoutSec: TimeoutLong,
		AllowedResponses: []MsgRef{{false, 20, 0}, {false, 0, 0}},
	},
	{
		MsgInfo: info(true, 10), Text: "REQUEST DESCENT TO [altitude]",
		ArgTypes: args(cpdlcmsg.ArgAltitude), Resp: RespNE, TimeoutSec: TimeoutLong,
		AllowedResponses: []MsgRef{{false, 23, 0}, {false, 0, 0}},
	},
	{
		MsgInfo: info(true, 37), Text: "LEVEL [altitude]",
		ArgTypes: args(cpdlcmsg.ArgAltitude), Resp: RespR, TimeoutSec: TimeoutShort,
	},

	// --- ArgSpeed ---
	{
		MsgInfo: info(false, 106), Text: "MAINTAIN [speed]",
		ArgTypes: args(cpdlcmsg.ArgSpeed), Resp: RespWU, TimeoutSec: TimeoutMedium,
	},
	{
		MsgInfo: info(true, 18), Text: "REQUEST [speed]",
		ArgTypes: args(cpdlcmsg.ArgSpeed), Resp: RespNE, TimeoutSec: TimeoutLong,
		AllowedResponses: []MsgRef{{false, 106, 0}, {false, 0, 0}},
	},
	{
		MsgInfo: info(true, 34), Text: "PRESENT SPEED [speed]",
		ArgTypes: args(cpdlcmsg.ArgSpeed), Resp: RespN, TimeoutSec: TimeoutShort,
	},

	// --- ArgTime / ArgTimeDur ---
	{
		MsgInfo: info(false, 93), Text: "EXPECT FURTHER CLEARANCE AT [time]",
		ArgTypes: args(cpdlcmsg.ArgTime), Resp: RespR, TimeoutSec: TimeoutShort,
	},
	{
		MsgInfo: info(true, 43), Text: "NEXT WAYPOINT ETA [time]",
		ArgTypes: args(cpdlcmsg.ArgTimeDur), Resp: RespN, TimeoutSec: TimeoutShort,
	},

	// --- ArgPosition ---
	{
		MsgInfo: info(false, 74), Text: "PROCEED DIRECT TO [position]",
		ArgTypes: args(cpdlcmsg.ArgPosition), Resp: RespWU, TimeoutSec: TimeoutMedium,
	},
	{
		MsgInfo: info(true, 31), Text: "PASSING [position]",
		ArgTypes: args(cpdlcmsg.ArgPosition), Resp: RespN, TimeoutSec: TimeoutShort,
	},
	{
		MsgInfo: info(true, 22), Text: "REQUEST DIRECT TO [position]",
		ArgTypes: args(cpdlcmsg.ArgPosition), Resp: RespNE, TimeoutSec: TimeoutLong,
		AllowedResponses: []MsgRef{{false, 74, 0}, {false, 0, 0}},
	},

	// --- ArgDirection + ArgDegrees ---
	{
		MsgInfo: info(false, 94), Text: "TURN [direction] HEADING [degrees]",
		ArgTypes: args(cpdlcmsg.ArgDirection, cpdlcmsg.ArgDegrees), Resp: RespWU, TimeoutSec: TimeoutShort,
	},
	{
		MsgInfo: info(true, 35), Text: "PRESENT HEADING [degrees]",
		ArgTypes: args(cpdlcmsg.ArgDegrees), Resp: RespN, TimeoutSec: TimeoutShort,
	},

	// --- ArgDistance / ArgDistanceOffset ---
	{
		MsgInfo: info(false, 64), Text: "OFFSET [distance] [direction] OF ROUTE",
		ArgTypes: args(cpdlcmsg.ArgDistanceOffset, cpdlcmsg.ArgDirection), Resp: RespWU, TimeoutSec: TimeoutMedium,
	},
	{
		MsgInfo: info(true, 15), Text: "REQUEST OFFSET [distance] [direction] OF ROUTE",
		ArgTypes: args(cpdlcmsg.ArgDistanceOffset, cpdlcmsg.ArgDirection), Resp: RespNE, TimeoutSec: TimeoutLong,
		AllowedResponses: []MsgRef{{false, 64, 0}, {false, 0, 0}},
	},

	// --- ArgVVI ---
	{
		MsgInfo: info(false, 171), Text: "CLIMB AT [vvi] MINIMUM",
		ArgTypes: args(cpdlcmsg.ArgVVI), Resp: RespWU, TimeoutSec: TimeoutMedium,
	},
	{
		MsgInfo: info(false, 173), Text: "DESCEND AT [vvi] MINIMUM",
		ArgTypes: args(cpdlcmsg.ArgVVI), Resp: RespWU, TimeoutSec: TimeoutMedium,
	},

	// --- ArgToFrom ---
	{
		MsgInfo: info(true, 78), Text: "AT [time] [distance] [tofrom] [position]",
		ArgTypes: args(cpdlcmsg.ArgTime, cpdlcmsg.ArgDistance, cpdlcmsg.ArgToFrom, cpdlcmsg.ArgPosition),
		Resp: RespN, TimeoutSec: TimeoutShort,
	},

	// --- ArgRoute ---
	{
		MsgInfo: info(false, 79), Text: "CLEARED TO [position] VIA [route]",
		ArgTypes: args(cpdlcmsg.ArgPosition, cpdlcmsg.ArgRoute), Resp: RespWU, TimeoutSec: TimeoutMedium,
	},
	{
		MsgInfo: info(true, 24), Text: "REQUEST [route]",
		ArgTypes: args(cpdlcmsg.ArgRoute), Resp: RespNE, TimeoutSec: TimeoutLong,
		AllowedResponses: []MsgRef{{false, 79, 0}, {false, 0, 0}},
	},
	{
		MsgInfo: info(true, 40), Text: "ASSIGNED ROUTE [route]",
		ArgTypes: args(cpdlcmsg.ArgRoute), Resp: RespN, TimeoutSec: TimeoutShort,
	},

	// --- ArgProcedure ---
	{
		MsgInfo: info(false, 81), Text: "CLEARED [procedure]",
		ArgTypes: args(cpdlcmsg.ArgProcedure), Resp: RespWU, TimeoutSec: TimeoutMedium,
	},
	{
		MsgInfo: info(true, 23), Text: "REQUEST [procedure]",
		ArgTypes: args(cpdlcmsg.ArgProcedure), Resp: RespNE, TimeoutSec: TimeoutLong,
		AllowedResponses: []MsgRef{{false, 81, 0}, {false, 0, 0}},
	},

	// --- ArgSquawk ---
	{
		MsgInfo: info(false, 123), Text: "SQUAWK [squawk]",
		ArgTypes: args(cpdlcmsg.ArgSquawk), Resp: RespWU, TimeoutSec: TimeoutShort,
	},
	{
		MsgInfo: info(true, 47), Text: "SQUAWKING [squawk]",
		ArgTypes: args(cpdlcmsg.ArgSquawk), Resp: RespN, TimeoutSec: TimeoutShort,
	},

	// --- ArgICAOID ---
	{
		MsgInfo: info(false, 160), Text: "NEXT DATA AUTHORITY [icaoid]",
		ArgTypes: args(cpdlcmsg.ArgICAOID), Resp: RespN, TimeoutSec: TimeoutShort,
	},
	{
		MsgInfo: info(true, 64), Text: "CURRENT DATA AUTHORITY [icaoid]",
		ArgTypes: args(cpdlcmsg.ArgICAOID), Resp: RespN, TimeoutSec: TimeoutShort,
	},

	// --- ArgICAOName + ArgFrequency ---
	{
		MsgInfo: info(false, 117), Text: "CONTACT [icaoname] [frequency]",
		ArgTypes: args(cpdlcmsg.ArgICAOName, cpdlcmsg.ArgFrequency), Resp: RespWU, TimeoutSec: TimeoutMedium,
	},

	// --- ArgBaro ---
	{
		MsgInfo: info(false, 153), Text: "ALTIMETER [baro]",
		ArgTypes: args(cpdlcmsg.ArgBaro), Resp: RespR, TimeoutSec: TimeoutShort,
	},

	// --- ArgFreetext ---
	{
		MsgInfo: info(false, 159), Text: "ERROR [freetext]",
		ArgTypes: args(cpdlcmsg.ArgFreetext), Resp: RespN, TimeoutSec: TimeoutShort,
	},
	{
		MsgInfo: info(false, 169), Text: "[freetext]",
		ArgTypes: args(cpdlcmsg.ArgFreetext), Resp: RespY, TimeoutSec: TimeoutMedium,
	},
	{
		MsgInfo: info(false, 162), Text: "SERVICE UNAVAILABLE",
		Resp: RespN, TimeoutSec: TimeoutShort,
	},
	{
		MsgInfo: info(true, 62), Text: "ERROR [freetext]",
		ArgTypes: args(cpdlcmsg.ArgFreetext), Resp: RespN, TimeoutSec: TimeoutShort,
	},
	{
		MsgInfo: info(true, 63), Text: "NOT CURRENT DATA AUTHORITY",
		Resp: RespN, TimeoutSec: TimeoutShort,
	},

	// --- ArgPersons ---
	{
		MsgInfo: info(true, 57), Text: "[time] OF FUEL REMAINING AND [persons] PERSONS ON BOARD",
		ArgTypes: args(cpdlcmsg.ArgTimeDur, cpdlcmsg.ArgPersons), Resp: RespY, TimeoutSec: TimeoutShort,
	},

	// --- ArgPosReport ---
	{
		MsgInfo: info(false, 147), Text: "REQUEST POSITION REPORT",
		Resp: RespNE, TimeoutSec: TimeoutLong,
		AllowedResponses: []MsgRef{{true, 48, 0}},
	},
	{
		MsgInfo: info(true, 48), Text: "[posreport]",
		ArgTypes: args(cpdlcmsg.ArgPosReport), Resp: RespN, TimeoutSec: TimeoutShort,
	},

	// --- ArgPDC ---
	{
		MsgInfo: info(false, 73), Text: "[pdc]",
		ArgTypes: args(cpdlcmsg.ArgPDC), Resp: RespWU, TimeoutSec: TimeoutLong,
	},
	{
		MsgInfo: info(true, 25), Text: "REQUEST PREDEP CLEARANCE",
		Resp: RespNE, TimeoutSec: TimeoutLong,
		AllowedResponses: []MsgRef{{false, 73, 0}},
	},

	// --- ArgTP4Table ---
	{
		MsgInfo: info(false, 163), Text: "FACILITY [icaoname] [tp4table]",
		ArgTypes: args(cpdlcmsg.ArgICAOName, cpdlcmsg.ArgTP4Table), Resp: RespN, TimeoutSec: TimeoutShort,
	},

	// --- ArgVersion ---
	{
		MsgInfo: info(true, 73), Text: "VERSION [version]",
		ArgTypes: args(cpdlcmsg.ArgVersion), Resp: RespN, TimeoutSec: TimeoutShort,
	},

	// --- ArgATISCode ---
	{
		MsgInfo: info(false, 158), Text: "ATIS [atiscode]",
		ArgTypes: args(cpdlcmsg.ArgATISCode), Resp: RespR, TimeoutSec: TimeoutShort,
	},
	{
		MsgInfo: info(true, 79), Text: "ATIS [atiscode]",
		ArgTypes: args(cpdlcmsg.ArgATISCode), Resp: RespN, TimeoutSec: TimeoutShort,
	},

	// --- DM76: a two-altitude block report ---
	{
		MsgInfo: info(true, 76), Text: "REACHING BLOCK [altitude] TO [altitude]",
		ArgTypes: args(cpdlcmsg.ArgAltitude, cpdlcmsg.ArgAltitude), Resp: RespN, TimeoutSec: TimeoutShort,
	},

	// --- DM67 sub-variants: the one message type with sub-types b..i ---
	{
		MsgInfo: info(true, 67, 0), Text: "[freetext]",
		ArgTypes: args(cpdlcmsg.ArgFreetext), Resp: RespY, TimeoutSec: TimeoutMedium,
	},
	{
		MsgInfo: info(true, 67, 'b'), Text: "WE CAN ACCEPT [altitude] AT [time]",
		ArgTypes: args(cpdlcmsg.ArgAltitude, cpdlcmsg.ArgTime), Resp: RespN, TimeoutSec: TimeoutShort,
	},
	{
		MsgInfo: info(true, 67, 'c'), Text: "WE CAN ACCEPT [speed] AT [time]",
		ArgTypes: args(cpdlcmsg.ArgSpeed, cpdlcmsg.ArgTime), Resp: RespN, TimeoutSec: TimeoutShort,
	},
	{
		MsgInfo: info(true, 67, 'd'), Text: "WE CAN ACCEPT [distance] [direction] AT [time]",
		ArgTypes: args(cpdlcmsg.ArgDistanceOffset, cpdlcmsg.ArgDirection, cpdlcmsg.ArgTime), Resp: RespN, TimeoutSec: TimeoutShort,
	},
	{
		MsgInfo: info(true, 67, 'e'), Text: "WE CANNOT ACCEPT [altitude]",
		ArgTypes: args(cpdlcmsg.ArgAltitude), Resp: RespN, TimeoutSec: TimeoutShort,
	},
	{
		MsgInfo: info(true, 67, 'f'), Text: "WE CANNOT ACCEPT [speed]",
		ArgTypes: args(cpdlcmsg.ArgSpeed), Resp: RespN, TimeoutSec: TimeoutShort,
	},
	{
		MsgInfo: info(true, 67, 'g'), Text: "WE CANNOT ACCEPT [distance] [direction]",
		ArgTypes: args(cpdlcmsg.ArgDistanceOffset, cpdlcmsg.ArgDirection), Resp: RespN, TimeoutSec: TimeoutShort,
	},
	{
		MsgInfo: info(true, 67, 'h'), Text: "WHEN CAN WE EXPECT CLIMB TO [altitude]",
		ArgTypes: args(cpdlcmsg.ArgAltitude), Resp: RespY, TimeoutSec: TimeoutMedium,
	},
	{
		MsgInfo: info(true, 67, 'i'), Text: "WHEN CAN WE EXPECT DESCENT TO [altitude]",
		ArgTypes: args(cpdlcmsg.ArgAltitude), Resp: RespY, TimeoutSec: TimeoutMedium,
	},

	// DM0-DM5 downlink standalone responses, mirrored from the uplink set.
	{MsgInfo: info(true, 0), Text: "WILCO", Resp: RespN, TimeoutSec: TimeoutShort},
	{MsgInfo: info(true, 1), Text: "UNABLE", Resp: RespN, TimeoutSec: TimeoutShort},
	{MsgInfo: info(true, 2), Text: "STANDBY", Resp: RespN, TimeoutSec: TimeoutShort},
	{MsgInfo: info(true, 3), Text: "ROGER", Resp: RespN, TimeoutSec: TimeoutShort},
	{MsgInfo: info(true, 4), Text: "AFFIRM", Resp: RespN, TimeoutSec: TimeoutShort},
	{MsgInfo: info(true, 5), Text: "NEGATIVE", Resp: RespN, TimeoutSec: TimeoutShort},
}

func info(isDownlink bool, msgType int, subtype ...byte) cpdlcmsg.MsgInfo {
	var st byte
	if len(subtype) > 0 {
		st = subtype[0]
	}
	return cpdlcmsg.MsgInfo{IsDownlink: isDownlink, MsgType: msgType, MsgSubtype: st}
}

func args(kinds ...cpdlcmsg.ArgKind) []cpdlcmsg.ArgKind { return kinds }

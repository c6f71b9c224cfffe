package arinc622

import (
	"fmt"
	"math"

	"github.com/openatc/cpdlcd/internal/bitio"
	"github.com/openatc/cpdlcd/pkg/catalog"
	"github.com/openatc/cpdlcd/pkg/cpdlcmsg"
)

// Scalar argument kinds pack directly into fixed-width bit fields, one
// function per ArgKind (the "per-argument offset descriptor" of spec.md
// §4.2, expressed as Go code rather than a reflective struct-offset table).
// Structured kinds (Route, PosReport, PDC, ICAOName, Procedure) compose the
// same scalar helpers field by field; their own encoded width is therefore
// variable, sized by the optional-field presence bits each one carries —
// this is the PER "optional member" idiom.
//
// Grounded on original_source/src/cpdlc_msg_asn.c and the per-argument
// ASN.1 definitions under original_source/src/asn1/*.h, adapted from a
// generated ASN.1 compiler's bit layout to a hand-written one (see
// DESIGN.md "Open Decision" on the PER encoding).

func encodeString(w *bitio.Writer, s string) {
	if len(s) > 255 {
		s = s[:255]
	}
	w.WriteBits(uint64(len(s)), 8)
	w.WriteBytes([]byte(s))
}

func decodeString(r *bitio.Reader) (string, error) {
	n, err := r.ReadBits(8)
	if err != nil {
		return "", err
	}
	b, err := r.ReadBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func encodeAltitude(w *bitio.Writer, a cpdlcmsg.Altitude) {
	w.WriteBool(a.Null)
	if a.Null {
		return
	}
	w.WriteBool(a.FL)
	w.WriteBool(a.Metric)
	w.WriteBits(uint64(a.Feet+1500), 18)
}

func decodeAltitude(r *bitio.Reader) (cpdlcmsg.Altitude, error) {
	null, err := r.ReadBool()
	if err != nil || null {
		return cpdlcmsg.NullAltitude(), err
	}
	fl, err := r.ReadBool()
	if err != nil {
		return cpdlcmsg.Altitude{}, err
	}
	metric, err := r.ReadBool()
	if err != nil {
		return cpdlcmsg.Altitude{}, err
	}
	v, err := r.ReadBits(18)
	if err != nil {
		return cpdlcmsg.Altitude{}, err
	}
	return cpdlcmsg.Altitude{FL: fl, Metric: metric, Feet: int(v) - 1500}, nil
}

func encodeSpeed(w *bitio.Writer, s cpdlcmsg.Speed) {
	w.WriteBool(s.Null)
	if s.Null {
		return
	}
	w.WriteBool(s.Mach)
	w.WriteBool(s.True)
	w.WriteBool(s.Gnd)
	w.WriteBits(uint64(s.Val), 12)
}

func decodeSpeed(r *bitio.Reader) (cpdlcmsg.Speed, error) {
	null, err := r.ReadBool()
	if err != nil || null {
		return cpdlcmsg.NullSpeed(), err
	}
	mach, err := r.ReadBool()
	if err != nil {
		return cpdlcmsg.Speed{}, err
	}
	tru, err := r.ReadBool()
	if err != nil {
		return cpdlcmsg.Speed{}, err
	}
	gnd, err := r.ReadBool()
	if err != nil {
		return cpdlcmsg.Speed{}, err
	}
	v, err := r.ReadBits(12)
	if err != nil {
		return cpdlcmsg.Speed{}, err
	}
	return cpdlcmsg.Speed{Mach: mach, True: tru, Gnd: gnd, Val: uint(v)}, nil
}

func encodeTime(w *bitio.Writer, t cpdlcmsg.Time) {
	w.WriteBool(t.Null)
	if t.Null {
		return
	}
	w.WriteBool(t.Now)
	w.WriteBits(uint64(t.Hrs), 5)
	w.WriteBits(uint64(t.Mins), 6)
}

func decodeTime(r *bitio.Reader) (cpdlcmsg.Time, error) {
	null, err := r.ReadBool()
	if err != nil || null {
		return cpdlcmsg.NullTime(), err
	}
	now, err := r.ReadBool()
	if err != nil {
		return cpdlcmsg.Time{}, err
	}
	hrs, err := r.ReadBits(5)
	if err != nil {
		return cpdlcmsg.Time{}, err
	}
	mins, err := r.ReadBits(6)
	if err != nil {
		return cpdlcmsg.Time{}, err
	}
	return cpdlcmsg.Time{Now: now, Hrs: int(hrs), Mins: int(mins)}, nil
}

func encodeTimeDur(w *bitio.Writer, t cpdlcmsg.Time) {
	w.WriteBool(t.Null)
	if t.Null {
		return
	}
	w.WriteBits(uint64(t.Mins), 12)
}

func decodeTimeDur(r *bitio.Reader) (cpdlcmsg.Time, error) {
	null, err := r.ReadBool()
	if err != nil || null {
		return cpdlcmsg.NullTime(), err
	}
	v, err := r.ReadBits(12)
	if err != nil {
		return cpdlcmsg.Time{}, err
	}
	return cpdlcmsg.Time{Mins: int(v)}, nil
}

func fixed10(f float64) uint64 { return uint64(math.Round(f * 10)) }
func unfixed10(v uint64) float64 { return float64(v) / 10 }

func encodeLatLon(w *bitio.Writer, ll cpdlcmsg.LatLon) {
	w.WriteBool(ll.IsNull())
	if ll.IsNull() {
		return
	}
	w.WriteBits(uint64(int32(math.Round(ll.Lat*10000))+900000), 21)
	w.WriteBits(uint64(int32(math.Round(ll.Lon*10000))+1800000), 22)
}

func decodeLatLon(r *bitio.Reader) (cpdlcmsg.LatLon, error) {
	null, err := r.ReadBool()
	if err != nil || null {
		return cpdlcmsg.NullLatLon(), err
	}
	latv, err := r.ReadBits(21)
	if err != nil {
		return cpdlcmsg.LatLon{}, err
	}
	lonv, err := r.ReadBits(22)
	if err != nil {
		return cpdlcmsg.LatLon{}, err
	}
	lat := (float64(int64(latv)) - 900000) / 10000
	lon := (float64(int64(lonv)) - 1800000) / 10000
	return cpdlcmsg.LatLon{Lat: lat, Lon: lon}, nil
}

func encodePosition(w *bitio.Writer, p cpdlcmsg.Position) {
	w.WriteBool(p.Set)
	if !p.Set {
		return
	}
	w.WriteBits(uint64(p.Type), 3)
	switch p.Type {
	case cpdlcmsg.PosFixName:
		encodeString(w, p.FixName)
	case cpdlcmsg.PosNavaid:
		encodeString(w, p.Navaid)
	case cpdlcmsg.PosAirport:
		encodeString(w, p.Airport)
	case cpdlcmsg.PosLatLon:
		encodeLatLon(w, p.LatLon)
	case cpdlcmsg.PosPBD:
		encodeString(w, p.PBD.FixName)
		encodeLatLon(w, p.PBD.LatLon)
		w.WriteBits(uint64(p.PBD.Degrees), 9)
		w.WriteBits(fixed10(p.PBD.DistNM), 18)
	default:
		encodeString(w, p.Str)
	}
}

func decodePosition(r *bitio.Reader) (cpdlcmsg.Position, error) {
	set, err := r.ReadBool()
	if err != nil || !set {
		return cpdlcmsg.NullPosition(), err
	}
	t, err := r.ReadBits(3)
	if err != nil {
		return cpdlcmsg.Position{}, err
	}
	p := cpdlcmsg.Position{Set: true, Type: cpdlcmsg.PosType(t)}
	switch p.Type {
	case cpdlcmsg.PosFixName:
		p.FixName, err = decodeString(r)
	case cpdlcmsg.PosNavaid:
		p.Navaid, err = decodeString(r)
	case cpdlcmsg.PosAirport:
		p.Airport, err = decodeString(r)
	case cpdlcmsg.PosLatLon:
		p.LatLon, err = decodeLatLon(r)
	case cpdlcmsg.PosPBD:
		p.PBD.FixName, err = decodeString(r)
		if err == nil {
			p.PBD.LatLon, err = decodeLatLon(r)
		}
		var deg, dist uint64
		if err == nil {
			deg, err = r.ReadBits(9)
			p.PBD.Degrees = uint(deg)
		}
		if err == nil {
			dist, err = r.ReadBits(18)
			p.PBD.DistNM = unfixed10(dist)
		}
	default:
		p.Str, err = decodeString(r)
	}
	return p, err
}

func encodeDirection(w *bitio.Writer, d cpdlcmsg.Direction) { w.WriteBits(uint64(d), 4) }
func decodeDirection(r *bitio.Reader) (cpdlcmsg.Direction, error) {
	v, err := r.ReadBits(4)
	return cpdlcmsg.Direction(v), err
}

func encodeICAOName(w *bitio.Writer, n cpdlcmsg.ICAOName) {
	w.WriteBool(n.IsName)
	w.WriteBits(uint64(n.Func), 3)
	if n.IsName {
		encodeString(w, n.Name)
	} else {
		encodeString(w, n.ICAOID)
	}
}

func decodeICAOName(r *bitio.Reader) (cpdlcmsg.ICAOName, error) {
	isName, err := r.ReadBool()
	if err != nil {
		return cpdlcmsg.ICAOName{}, err
	}
	fn, err := r.ReadBits(3)
	if err != nil {
		return cpdlcmsg.ICAOName{}, err
	}
	n := cpdlcmsg.ICAOName{IsName: isName, Func: cpdlcmsg.FacFunc(fn)}
	if isName {
		n.Name, err = decodeString(r)
	} else {
		n.ICAOID, err = decodeString(r)
	}
	return n, err
}

func encodeFrequency(w *bitio.Writer, f cpdlcmsg.Frequency) {
	w.WriteBits(uint64(f.Band), 2)
	w.WriteBits(uint64(math.Round(f.MHz*1000)), 20)
}

func decodeFrequency(r *bitio.Reader) (cpdlcmsg.Frequency, error) {
	b, err := r.ReadBits(2)
	if err != nil {
		return cpdlcmsg.Frequency{}, err
	}
	v, err := r.ReadBits(20)
	if err != nil {
		return cpdlcmsg.Frequency{}, err
	}
	return cpdlcmsg.Frequency{Band: cpdlcmsg.FreqBand(b), MHz: float64(v) / 1000}, nil
}

func encodeProcedure(w *bitio.Writer, p cpdlcmsg.Procedure) {
	w.WriteBits(uint64(p.Type), 2)
	encodeString(w, p.Name)
	encodeString(w, p.Trans)
}

func decodeProcedure(r *bitio.Reader) (cpdlcmsg.Procedure, error) {
	t, err := r.ReadBits(2)
	if err != nil {
		return cpdlcmsg.Procedure{}, err
	}
	p := cpdlcmsg.Procedure{Type: cpdlcmsg.ProcType(t)}
	p.Name, err = decodeString(r)
	if err != nil {
		return cpdlcmsg.Procedure{}, err
	}
	p.Trans, err = decodeString(r)
	return p, err
}

func encodeBaro(w *bitio.Writer, b cpdlcmsg.Baro) {
	w.WriteBool(b.HPa)
	w.WriteBits(uint64(math.Round(b.Val*100)), 17)
}

func decodeBaro(r *bitio.Reader) (cpdlcmsg.Baro, error) {
	hpa, err := r.ReadBool()
	if err != nil {
		return cpdlcmsg.Baro{}, err
	}
	v, err := r.ReadBits(17)
	if err != nil {
		return cpdlcmsg.Baro{}, err
	}
	return cpdlcmsg.Baro{HPa: hpa, Val: float64(v) / 100}, nil
}

func encodeLegType(w *bitio.Writer, l cpdlcmsg.LegType) {
	w.WriteBool(l.None)
	if l.None {
		return
	}
	w.WriteBool(l.IsTime)
	if l.IsTime {
		w.WriteBits(uint64(math.Round(l.TimeMin*10)), 12)
	} else {
		w.WriteBits(uint64(math.Round(l.DistNM*10)), 18)
	}
}

func decodeLegType(r *bitio.Reader) (cpdlcmsg.LegType, error) {
	none, err := r.ReadBool()
	if err != nil || none {
		return cpdlcmsg.LegType{None: true}, err
	}
	isTime, err := r.ReadBool()
	if err != nil {
		return cpdlcmsg.LegType{}, err
	}
	if isTime {
		v, err := r.ReadBits(12)
		return cpdlcmsg.LegType{IsTime: true, TimeMin: float64(v) / 10}, err
	}
	v, err := r.ReadBits(18)
	return cpdlcmsg.LegType{DistNM: float64(v) / 10}, err
}

// routeInfo PER field count is capped far below RouteMaxInfo for the
// bitstream's count prefix; a route with more waypoints than this still
// round-trips through the text codec, which has no such cap.
const perMaxRouteInfo = 63

func encodeRoute(w *bitio.Writer, r *cpdlcmsg.Route) {
	w.WriteBool(r == nil)
	if r == nil {
		return
	}
	encodeString(w, r.OrigICAO)
	encodeString(w, r.DestICAO)
	encodeString(w, r.OrigRwy)
	encodeString(w, r.DestRwy)
	n := len(r.Info)
	if n > perMaxRouteInfo {
		n = perMaxRouteInfo
	}
	w.WriteBits(uint64(n), 6)
	for _, wi := range r.Info[:n] {
		w.WriteBits(uint64(wi.Type), 3)
		switch wi.Type {
		case cpdlcmsg.RoutePubIdent:
			encodeString(w, wi.PubIdent.FixName)
		case cpdlcmsg.RouteLatLon:
			encodeLatLon(w, wi.LatLon)
		case cpdlcmsg.RouteAirway:
			encodeString(w, wi.Airway)
		default:
			encodeString(w, wi.Str)
		}
	}
}

func decodeRoute(rd *bitio.Reader) (*cpdlcmsg.Route, error) {
	isNil, err := rd.ReadBool()
	if err != nil || isNil {
		return nil, err
	}
	route := &cpdlcmsg.Route{}
	if route.OrigICAO, err = decodeString(rd); err != nil {
		return nil, err
	}
	if route.DestICAO, err = decodeString(rd); err != nil {
		return nil, err
	}
	if route.OrigRwy, err = decodeString(rd); err != nil {
		return nil, err
	}
	if route.DestRwy, err = decodeString(rd); err != nil {
		return nil, err
	}
	n, err := rd.ReadBits(6)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < n; i++ {
		t, err := rd.ReadBits(3)
		if err != nil {
			return nil, err
		}
		wi := cpdlcmsg.RouteInfo{Type: cpdlcmsg.RouteInfoType(t)}
		switch wi.Type {
		case cpdlcmsg.RoutePubIdent:
			wi.PubIdent.FixName, err = decodeString(rd)
		case cpdlcmsg.RouteLatLon:
			wi.LatLon, err = decodeLatLon(rd)
		case cpdlcmsg.RouteAirway:
			wi.Airway, err = decodeString(rd)
		default:
			wi.Str, err = decodeString(rd)
		}
		if err != nil {
			return nil, err
		}
		route.Info = append(route.Info, wi)
	}
	return route, nil
}

// posReportFlags bit positions for PosReport's optional fields, in the
// order they are written.
const (
	prFlagFixNext = iota
	prFlagTimeFixNext
	prFlagFixNextP1
	prFlagTimeDest
	prFlagRmngFuel
	prFlagTemp
	prFlagWind
	prFlagTurb
	prFlagIcing
	prFlagSpd
	prFlagSpdGnd
	prFlagVVI
	prFlagTrk
	prFlagHdgTrue
	prFlagDist
	prFlagRemarks
	prFlagRptWptPos
	prFlagRptWptTime
	prFlagRptWptAlt
	prFlagCount
)

func encodePosReport(w *bitio.Writer, p *cpdlcmsg.PosReport) {
	w.WriteBool(p == nil)
	if p == nil {
		return
	}
	encodePosition(w, p.CurPos)
	encodeTime(w, p.TimeCurPos)
	encodeAltitude(w, p.CurAlt)

	var flags [prFlagCount]bool
	flags[prFlagFixNext] = p.FixNext.Set
	flags[prFlagTimeFixNext] = !p.TimeFixNext.Null
	flags[prFlagFixNextP1] = p.FixNextP1.Set
	flags[prFlagTimeDest] = !p.TimeDest.Null
	flags[prFlagRmngFuel] = !p.RmngFuel.Null
	flags[prFlagTemp] = p.Temp != cpdlcmsg.NullTemp
	flags[prFlagWind] = !p.Wind.IsNull()
	flags[prFlagTurb] = p.Turb != cpdlcmsg.TurbNone
	flags[prFlagIcing] = p.Icing != cpdlcmsg.IcingNone
	flags[prFlagSpd] = !p.Spd.Null
	flags[prFlagSpdGnd] = !p.SpdGnd.Null
	flags[prFlagVVI] = p.VVISet
	flags[prFlagTrk] = p.Trk != 0
	flags[prFlagHdgTrue] = p.HdgTrue != 0
	flags[prFlagDist] = p.DistSet
	flags[prFlagRemarks] = p.Remarks != ""
	flags[prFlagRptWptPos] = p.RptWptPos.Set
	flags[prFlagRptWptTime] = !p.RptWptTime.Null
	flags[prFlagRptWptAlt] = !p.RptWptAlt.Null
	for _, f := range flags {
		w.WriteBool(f)
	}

	if flags[prFlagFixNext] {
		encodePosition(w, p.FixNext)
	}
	if flags[prFlagTimeFixNext] {
		encodeTime(w, p.TimeFixNext)
	}
	if flags[prFlagFixNextP1] {
		encodePosition(w, p.FixNextP1)
	}
	if flags[prFlagTimeDest] {
		encodeTime(w, p.TimeDest)
	}
	if flags[prFlagRmngFuel] {
		encodeTime(w, p.RmngFuel)
	}
	if flags[prFlagTemp] {
		w.WriteBits(uint64(int32(p.Temp)+200), 9)
	}
	if flags[prFlagWind] {
		w.WriteBits(uint64(p.Wind.Dir), 9)
		w.WriteBits(uint64(p.Wind.Spd), 9)
	}
	if flags[prFlagTurb] {
		w.WriteBits(uint64(p.Turb), 2)
	}
	if flags[prFlagIcing] {
		w.WriteBits(uint64(p.Icing), 3)
	}
	if flags[prFlagSpd] {
		encodeSpeed(w, p.Spd)
	}
	if flags[prFlagSpdGnd] {
		encodeSpeed(w, p.SpdGnd)
	}
	if flags[prFlagVVI] {
		w.WriteBits(uint64(p.VVI), 14)
	}
	if flags[prFlagTrk] {
		w.WriteBits(uint64(p.Trk), 9)
	}
	if flags[prFlagHdgTrue] {
		w.WriteBits(uint64(p.HdgTrue), 9)
	}
	if flags[prFlagDist] {
		w.WriteBits(fixed10(p.DistNM), 18)
	}
	if flags[prFlagRemarks] {
		encodeString(w, p.Remarks)
	}
	if flags[prFlagRptWptPos] {
		encodePosition(w, p.RptWptPos)
	}
	if flags[prFlagRptWptTime] {
		encodeTime(w, p.RptWptTime)
	}
	if flags[prFlagRptWptAlt] {
		encodeAltitude(w, p.RptWptAlt)
	}
}

func decodePosReport(r *bitio.Reader) (*cpdlcmsg.PosReport, error) {
	isNil, err := r.ReadBool()
	if err != nil || isNil {
		return nil, err
	}
	p := &cpdlcmsg.PosReport{
		FixNext: cpdlcmsg.NullPosition(), TimeFixNext: cpdlcmsg.NullTime(),
		FixNextP1: cpdlcmsg.NullPosition(), TimeDest: cpdlcmsg.NullTime(),
		RmngFuel: cpdlcmsg.NullTime(), Temp: cpdlcmsg.NullTemp,
		Spd: cpdlcmsg.NullSpeed(), SpdGnd: cpdlcmsg.NullSpeed(),
		RptWptPos: cpdlcmsg.NullPosition(), RptWptTime: cpdlcmsg.NullTime(),
		RptWptAlt: cpdlcmsg.NullAltitude(),
	}
	if p.CurPos, err = decodePosition(r); err != nil {
		return nil, err
	}
	if p.TimeCurPos, err = decodeTime(r); err != nil {
		return nil, err
	}
	if p.CurAlt, err = decodeAltitude(r); err != nil {
		return nil, err
	}

	var flags [prFlagCount]bool
	for i := range flags {
		if flags[i], err = r.ReadBool(); err != nil {
			return nil, err
		}
	}

	if flags[prFlagFixNext] {
		if p.FixNext, err = decodePosition(r); err != nil {
			return nil, err
		}
	}
	if flags[prFlagTimeFixNext] {
		if p.TimeFixNext, err = decodeTime(r); err != nil {
			return nil, err
		}
	}
	if flags[prFlagFixNextP1] {
		if p.FixNextP1, err = decodePosition(r); err != nil {
			return nil, err
		}
	}
	if flags[prFlagTimeDest] {
		if p.TimeDest, err = decodeTime(r); err != nil {
			return nil, err
		}
	}
	if flags[prFlagRmngFuel] {
		if p.RmngFuel, err = decodeTime(r); err != nil {
			return nil, err
		}
	}
	if flags[prFlagTemp] {
		var v uint64
		if v, err = r.ReadBits(9); err != nil {
			return nil, err
		}
		p.Temp = int(v) - 200
	}
	if flags[prFlagWind] {
		var dir, spd uint64
		if dir, err = r.ReadBits(9); err != nil {
			return nil, err
		}
		if spd, err = r.ReadBits(9); err != nil {
			return nil, err
		}
		p.Wind = cpdlcmsg.Wind{Dir: uint(dir), Spd: uint(spd)}
	}
	if flags[prFlagTurb] {
		var v uint64
		if v, err = r.ReadBits(2); err != nil {
			return nil, err
		}
		p.Turb = cpdlcmsg.Turbulence(v)
	}
	if flags[prFlagIcing] {
		var v uint64
		if v, err = r.ReadBits(3); err != nil {
			return nil, err
		}
		p.Icing = cpdlcmsg.Icing(v)
	}
	if flags[prFlagSpd] {
		if p.Spd, err = decodeSpeed(r); err != nil {
			return nil, err
		}
	}
	if flags[prFlagSpdGnd] {
		if p.SpdGnd, err = decodeSpeed(r); err != nil {
			return nil, err
		}
	}
	if flags[prFlagVVI] {
		var v uint64
		if v, err = r.ReadBits(14); err != nil {
			return nil, err
		}
		p.VVISet = true
		p.VVI = int(v)
	}
	if flags[prFlagTrk] {
		var v uint64
		if v, err = r.ReadBits(9); err != nil {
			return nil, err
		}
		p.Trk = uint(v)
	}
	if flags[prFlagHdgTrue] {
		var v uint64
		if v, err = r.ReadBits(9); err != nil {
			return nil, err
		}
		p.HdgTrue = uint(v)
	}
	if flags[prFlagDist] {
		var v uint64
		if v, err = r.ReadBits(18); err != nil {
			return nil, err
		}
		p.DistSet = true
		p.DistNM = unfixed10(v)
	}
	if flags[prFlagRemarks] {
		if p.Remarks, err = decodeString(r); err != nil {
			return nil, err
		}
	}
	if flags[prFlagRptWptPos] {
		if p.RptWptPos, err = decodePosition(r); err != nil {
			return nil, err
		}
	}
	if flags[prFlagRptWptTime] {
		if p.RptWptTime, err = decodeTime(r); err != nil {
			return nil, err
		}
	}
	if flags[prFlagRptWptAlt] {
		if p.RptWptAlt, err = decodeAltitude(r); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func encodePDC(w *bitio.Writer, p *cpdlcmsg.PDC) {
	w.WriteBool(p == nil)
	if p == nil {
		return
	}
	encodeString(w, p.ACFID)
	encodeString(w, p.ACFType)
	encodeTime(w, p.TimeDep)
	encodeRoute(w, &p.Route)
	encodeAltitude(w, p.AltRestr)
	w.WriteBits(uint64(math.Round(p.FreqMHz*1000)), 20)
	w.WriteBits(uint64(p.Squawk), 12)
	w.WriteBits(uint64(p.Revision), 8)
}

func decodePDC(r *bitio.Reader) (*cpdlcmsg.PDC, error) {
	isNil, err := r.ReadBool()
	if err != nil || isNil {
		return nil, err
	}
	p := &cpdlcmsg.PDC{}
	if p.ACFID, err = decodeString(r); err != nil {
		return nil, err
	}
	if p.ACFType, err = decodeString(r); err != nil {
		return nil, err
	}
	if p.TimeDep, err = decodeTime(r); err != nil {
		return nil, err
	}
	route, err := decodeRoute(r)
	if err != nil {
		return nil, err
	}
	if route != nil {
		p.Route = *route
	}
	if p.AltRestr, err = decodeAltitude(r); err != nil {
		return nil, err
	}
	freqv, err := r.ReadBits(20)
	if err != nil {
		return nil, err
	}
	p.FreqMHz = float64(freqv) / 1000
	sqv, err := r.ReadBits(12)
	if err != nil {
		return nil, err
	}
	p.Squawk = uint16(sqv)
	revv, err := r.ReadBits(8)
	if err != nil {
		return nil, err
	}
	p.Revision = uint(revv)
	return p, nil
}

// encodeArg dispatches a single argument to its bit-level encoder.
func encodeArg(w *bitio.Writer, a cpdlcmsg.Arg) error {
	switch a.Kind {
	case cpdlcmsg.ArgAltitude:
		encodeAltitude(w, a.Alt)
	case cpdlcmsg.ArgSpeed:
		encodeSpeed(w, a.Spd)
	case cpdlcmsg.ArgTime:
		encodeTime(w, a.Time)
	case cpdlcmsg.ArgTimeDur:
		encodeTimeDur(w, a.Time)
	case cpdlcmsg.ArgPosition:
		encodePosition(w, a.Pos)
	case cpdlcmsg.ArgDirection:
		encodeDirection(w, a.Dir)
	case cpdlcmsg.ArgDistance, cpdlcmsg.ArgDistanceOffset:
		w.WriteBits(fixed10(a.Dist), 18)
	case cpdlcmsg.ArgVVI:
		w.WriteBits(uint64(a.VVI), 14)
	case cpdlcmsg.ArgToFrom:
		w.WriteBool(a.ToFrom)
	case cpdlcmsg.ArgRoute:
		encodeRoute(w, a.Route)
	case cpdlcmsg.ArgProcedure:
		encodeProcedure(w, a.Proc)
	case cpdlcmsg.ArgSquawk:
		if err := cpdlcmsg.ValidateSquawk(a.Squawk); err != nil {
			return err
		}
		w.WriteBits(uint64(a.Squawk), 12)
	case cpdlcmsg.ArgICAOID:
		encodeString(w, a.ICAOID)
	case cpdlcmsg.ArgICAOName:
		encodeICAOName(w, a.ICAOName)
	case cpdlcmsg.ArgFrequency:
		encodeFrequency(w, a.Freq)
	case cpdlcmsg.ArgDegrees:
		w.WriteBool(a.Degrees.True)
		w.WriteBits(uint64(a.Degrees.Deg), 9)
	case cpdlcmsg.ArgBaro:
		encodeBaro(w, a.Baro)
	case cpdlcmsg.ArgFreetext, cpdlcmsg.ArgErrInfo:
		encodeString(w, a.Freetext)
	case cpdlcmsg.ArgPersons:
		w.WriteBits(uint64(a.Persons), 10)
	case cpdlcmsg.ArgPosReport:
		encodePosReport(w, a.PosReport)
	case cpdlcmsg.ArgPDC:
		encodePDC(w, a.PDC)
	case cpdlcmsg.ArgTP4Table:
		w.WriteBits(uint64(a.TP4Table), 1)
	case cpdlcmsg.ArgVersion:
		w.WriteBits(uint64(a.Version), 8)
	case cpdlcmsg.ArgATISCode:
		w.WriteBits(uint64(a.ATISCode), 8)
	case cpdlcmsg.ArgLegType:
		encodeLegType(w, a.LegType)
	default:
		return fmt.Errorf("arinc622: unknown arg kind %d", a.Kind)
	}
	return nil
}

// decodeArg dispatches a single argument's bit-level decoder by kind, the
// ASN.1-choice-tag lookup of spec.md §4.2 expressed directly rather than via
// a runtime offset table.
func decodeArg(r *bitio.Reader, kind cpdlcmsg.ArgKind) (cpdlcmsg.Arg, error) {
	a := cpdlcmsg.Arg{Kind: kind}
	var err error
	switch kind {
	case cpdlcmsg.ArgAltitude:
		a.Alt, err = decodeAltitude(r)
	case cpdlcmsg.ArgSpeed:
		a.Spd, err = decodeSpeed(r)
	case cpdlcmsg.ArgTime:
		a.Time, err = decodeTime(r)
	case cpdlcmsg.ArgTimeDur:
		a.Time, err = decodeTimeDur(r)
	case cpdlcmsg.ArgPosition:
		a.Pos, err = decodePosition(r)
	case cpdlcmsg.ArgDirection:
		a.Dir, err = decodeDirection(r)
	case cpdlcmsg.ArgDistance, cpdlcmsg.ArgDistanceOffset:
		var v uint64
		v, err = r.ReadBits(18)
		a.Dist = unfixed10(v)
	case cpdlcmsg.ArgVVI:
		var v uint64
		v, err = r.ReadBits(14)
		a.VVI = int(v)
	case cpdlcmsg.ArgToFrom:
		a.ToFrom, err = r.ReadBool()
	case cpdlcmsg.ArgRoute:
		a.Route, err = decodeRoute(r)
	case cpdlcmsg.ArgProcedure:
		a.Proc, err = decodeProcedure(r)
	case cpdlcmsg.ArgSquawk:
		var v uint64
		v, err = r.ReadBits(12)
		a.Squawk = uint16(v)
		if err == nil {
			err = cpdlcmsg.ValidateSquawk(a.Squawk)
		}
	case cpdlcmsg.ArgICAOID:
		a.ICAOID, err = decodeString(r)
	case cpdlcmsg.ArgICAOName:
		a.ICAOName, err = decodeICAOName(r)
	case cpdlcmsg.ArgFrequency:
		a.Freq, err = decodeFrequency(r)
	case cpdlcmsg.ArgDegrees:
		var tru bool
		tru, err = r.ReadBool()
		var v uint64
		if err == nil {
			v, err = r.ReadBits(9)
		}
		a.Degrees = cpdlcmsg.Degrees{Deg: uint(v), True: tru}
	case cpdlcmsg.ArgBaro:
		a.Baro, err = decodeBaro(r)
	case cpdlcmsg.ArgFreetext, cpdlcmsg.ArgErrInfo:
		a.Freetext, err = decodeString(r)
	case cpdlcmsg.ArgPersons:
		var v uint64
		v, err = r.ReadBits(10)
		a.Persons = uint(v)
	case cpdlcmsg.ArgPosReport:
		a.PosReport, err = decodePosReport(r)
	case cpdlcmsg.ArgPDC:
		a.PDC, err = decodePDC(r)
	case cpdlcmsg.ArgTP4Table:
		var v uint64
		v, err = r.ReadBits(1)
		a.TP4Table = cpdlcmsg.TP4Label(v)
	case cpdlcmsg.ArgVersion:
		var v uint64
		v, err = r.ReadBits(8)
		a.Version = int(v)
	case cpdlcmsg.ArgATISCode:
		var v uint64
		v, err = r.ReadBits(8)
		a.ATISCode = byte(v)
	case cpdlcmsg.ArgLegType:
		a.LegType, err = decodeLegType(r)
	default:
		err = fmt.Errorf("arinc622: unknown arg kind %d", kind)
	}
	return a, err
}

// encodeSegments packs the message body: a 3-bit segment count, then for
// each segment its direction flag, 9-bit message number, an optional
// 8-bit subtype, and its arguments in catalog order.
func encodeSegments(w *bitio.Writer, segs []cpdlcmsg.Segment) error {
	w.WriteBits(uint64(len(segs)), 3)
	for _, seg := range segs {
		w.WriteBool(seg.Info.IsDownlink)
		w.WriteBits(uint64(seg.Info.MsgType), 9)
		w.WriteBool(seg.Info.MsgSubtype != 0)
		if seg.Info.MsgSubtype != 0 {
			w.WriteBits(uint64(seg.Info.MsgSubtype), 8)
		}
		for _, a := range seg.Args {
			if err := encodeArg(w, a); err != nil {
				return err
			}
		}
	}
	return nil
}

func decodeSegments(r *bitio.Reader) ([]cpdlcmsg.Segment, error) {
	n, err := r.ReadBits(3)
	if err != nil {
		return nil, err
	}
	segs := make([]cpdlcmsg.Segment, 0, n)
	for i := uint64(0); i < n; i++ {
		isDL, err := r.ReadBool()
		if err != nil {
			return nil, err
		}
		msgType, err := r.ReadBits(9)
		if err != nil {
			return nil, err
		}
		hasSub, err := r.ReadBool()
		if err != nil {
			return nil, err
		}
		var sub byte
		if hasSub {
			v, err := r.ReadBits(8)
			if err != nil {
				return nil, err
			}
			sub = byte(v)
		}
		entry := catalog.Lookup(isDL, int(msgType), sub)
		if entry == nil {
			return nil, fmt.Errorf("arinc622: unknown message type isDownlink=%v type=%d sub=%c",
				isDL, msgType, sub)
		}
		args := make([]cpdlcmsg.Arg, entry.NumArgs())
		for j, kind := range entry.ArgTypes {
			a, err := decodeArg(r, kind)
			if err != nil {
				return nil, err
			}
			args[j] = a
		}
		segs = append(segs, cpdlcmsg.Segment{Info: &entry.MsgInfo, Args: args})
	}
	return segs, nil
}

package textcodec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/openatc/cpdlcd/pkg/cpdlcmsg"
)

// serializeArg renders a single Arg as a space-free text token, per
// spec.md §4.1 (altitudes as "FL350"/"12000"/"12000M", speeds as
// "250"/"M.82", lat/lon positions as "LATLON:<lat>,<lon>", etc). Composite
// arguments (ROUTE/POSREPORT/PDC) build an inner substructure (space
// separated for POSREPORT/PDC) and then percent-escape it into a single
// token, matching spec.md's "serialized as space-separated substructures
// and then percent-escaped when embedded as an argument".
func serializeArg(a cpdlcmsg.Arg) (string, error) {
	switch a.Kind {
	case cpdlcmsg.ArgAltitude:
		return serializeAltitude(a.Alt), nil
	case cpdlcmsg.ArgSpeed:
		return serializeSpeed(a.Spd), nil
	case cpdlcmsg.ArgTime:
		return serializeTime(a.Time), nil
	case cpdlcmsg.ArgTimeDur:
		if a.Time.Null {
			return "NULL", nil
		}
		return fmt.Sprintf("%dM", a.Time.Mins), nil
	case cpdlcmsg.ArgPosition:
		return serializePosition(a.Pos), nil
	case cpdlcmsg.ArgDirection:
		return serializeDirection(a.Dir), nil
	case cpdlcmsg.ArgDistance, cpdlcmsg.ArgDistanceOffset:
		return strconv.FormatFloat(a.Dist, 'f', -1, 64), nil
	case cpdlcmsg.ArgVVI:
		return strconv.Itoa(a.VVI), nil
	case cpdlcmsg.ArgToFrom:
		if a.ToFrom {
			return "TO", nil
		}
		return "FROM", nil
	case cpdlcmsg.ArgRoute:
		return Escape(serializeRoute(a.Route)), nil
	case cpdlcmsg.ArgProcedure:
		return serializeProcedure(a.Proc), nil
	case cpdlcmsg.ArgSquawk:
		if err := cpdlcmsg.ValidateSquawk(a.Squawk); err != nil {
			return "", err
		}
		return fmt.Sprintf("%04o", a.Squawk), nil
	case cpdlcmsg.ArgICAOID:
		return a.ICAOID, nil
	case cpdlcmsg.ArgICAOName:
		return serializeICAOName(a.ICAOName), nil
	case cpdlcmsg.ArgFrequency:
		return serializeFrequency(a.Freq), nil
	case cpdlcmsg.ArgDegrees:
		if a.Degrees.True {
			return fmt.Sprintf("%03dT", a.Degrees.Deg), nil
		}
		return fmt.Sprintf("%03d", a.Degrees.Deg), nil
	case cpdlcmsg.ArgBaro:
		if a.Baro.HPa {
			return fmt.Sprintf("Q%04d", int(a.Baro.Val)), nil
		}
		return fmt.Sprintf("A%04d", int(a.Baro.Val*100)), nil
	case cpdlcmsg.ArgFreetext, cpdlcmsg.ArgErrInfo:
		return Escape(a.Freetext), nil
	case cpdlcmsg.ArgPersons:
		return strconv.FormatUint(uint64(a.Persons), 10), nil
	case cpdlcmsg.ArgPosReport:
		return Escape(serializePosReport(a.PosReport)), nil
	case cpdlcmsg.ArgPDC:
		return Escape(serializePDC(a.PDC)), nil
	case cpdlcmsg.ArgTP4Table:
		if a.TP4Table == cpdlcmsg.TP4LabelA {
			return "A", nil
		}
		return "B", nil
	case cpdlcmsg.ArgVersion:
		return strconv.Itoa(a.Version), nil
	case cpdlcmsg.ArgATISCode:
		return string(a.ATISCode), nil
	case cpdlcmsg.ArgLegType:
		return serializeLegType(a.LegType), nil
	default:
		return "", fmt.Errorf("textcodec: unknown arg kind %d", a.Kind)
	}
}

func serializeAltitude(a cpdlcmsg.Altitude) string {
	if a.Null {
		return "NULL"
	}
	if a.FL {
		s := fmt.Sprintf("FL%03d", a.Feet/100)
		if a.Metric {
			s += "M"
		}
		return s
	}
	if a.Metric {
		return fmt.Sprintf("%dM", a.Feet)
	}
	return strconv.Itoa(a.Feet)
}

func parseAltitude(s string) (cpdlcmsg.Altitude, error) {
	if s == "NULL" {
		return cpdlcmsg.NullAltitude(), nil
	}
	metric := strings.HasSuffix(s, "M")
	body := s
	if metric {
		body = s[:len(s)-1]
	}
	if strings.HasPrefix(body, "FL") {
		n, err := strconv.Atoi(body[2:])
		if err != nil {
			return cpdlcmsg.Altitude{}, fmt.Errorf("textcodec: bad flight level %q", s)
		}
		a := cpdlcmsg.Altitude{FL: true, Metric: metric, Feet: n * 100}
		if err := cpdlcmsg.ValidateAltitude(a); err != nil {
			return cpdlcmsg.Altitude{}, err
		}
		return a, nil
	}
	n, err := strconv.Atoi(body)
	if err != nil {
		return cpdlcmsg.Altitude{}, fmt.Errorf("textcodec: bad altitude %q", s)
	}
	a := cpdlcmsg.Altitude{Metric: metric, Feet: n}
	if err := cpdlcmsg.ValidateAltitude(a); err != nil {
		return cpdlcmsg.Altitude{}, err
	}
	return a, nil
}

func serializeSpeed(s cpdlcmsg.Speed) string {
	if s.Null {
		return "NULL"
	}
	if s.Mach {
		return fmt.Sprintf("M.%02d", s.Val/10)
	}
	prefix := ""
	if s.True {
		prefix = "T"
	} else if s.Gnd {
		prefix = "G"
	}
	return fmt.Sprintf("%s%d", prefix, s.Val)
}

func parseSpeed(s string) (cpdlcmsg.Speed, error) {
	if s == "NULL" {
		return cpdlcmsg.NullSpeed(), nil
	}
	if strings.HasPrefix(s, "M.") {
		n, err := strconv.Atoi(s[2:])
		if err != nil {
			return cpdlcmsg.Speed{}, fmt.Errorf("textcodec: bad mach speed %q", s)
		}
		return cpdlcmsg.Speed{Mach: true, Val: uint(n) * 10}, nil
	}
	body := s
	sp := cpdlcmsg.Speed{}
	if strings.HasPrefix(body, "T") {
		sp.True = true
		body = body[1:]
	} else if strings.HasPrefix(body, "G") {
		sp.Gnd = true
		body = body[1:]
	}
	n, err := strconv.Atoi(body)
	if err != nil || n < 0 {
		return cpdlcmsg.Speed{}, fmt.Errorf("textcodec: bad speed %q", s)
	}
	sp.Val = uint(n)
	return sp, nil
}

func serializeTime(t cpdlcmsg.Time) string {
	if t.Null {
		return "NULL"
	}
	if t.Now {
		return "NOW"
	}
	return fmt.Sprintf("%02d%02d", t.Hrs, t.Mins)
}

func parseTime(s string) (cpdlcmsg.Time, error) {
	switch s {
	case "NULL":
		return cpdlcmsg.NullTime(), nil
	case "NOW":
		return cpdlcmsg.Time{Now: true}, nil
	}
	if len(s) != 4 {
		return cpdlcmsg.Time{}, fmt.Errorf("textcodec: bad time %q", s)
	}
	hrs, err1 := strconv.Atoi(s[:2])
	mins, err2 := strconv.Atoi(s[2:])
	if err1 != nil || err2 != nil || hrs < 0 || hrs > 23 || mins < 0 || mins > 59 {
		return cpdlcmsg.Time{}, fmt.Errorf("textcodec: bad time %q", s)
	}
	return cpdlcmsg.Time{Hrs: hrs, Mins: mins}, nil
}

func serializePosition(p cpdlcmsg.Position) string {
	if !p.Set {
		return "NULL"
	}
	switch p.Type {
	case cpdlcmsg.PosFixName:
		return "FIX:" + p.FixName
	case cpdlcmsg.PosNavaid:
		return "NAV:" + p.Navaid
	case cpdlcmsg.PosAirport:
		return "ARPT:" + p.Airport
	case cpdlcmsg.PosLatLon:
		return fmt.Sprintf("LATLON:%s,%s", formatDeg(p.LatLon.Lat), formatDeg(p.LatLon.Lon))
	case cpdlcmsg.PosPBD:
		return fmt.Sprintf("PBD:%s,%d,%s", p.PBD.FixName, p.PBD.Degrees,
			strconv.FormatFloat(p.PBD.DistNM, 'f', -1, 64))
	default:
		return "STR:" + Escape(p.Str)
	}
}

func formatDeg(d float64) string { return strconv.FormatFloat(d, 'f', 4, 64) }

func parsePosition(s string) (cpdlcmsg.Position, error) {
	if s == "NULL" {
		return cpdlcmsg.NullPosition(), nil
	}
	idx := strings.IndexByte(s, ':')
	if idx < 0 {
		return cpdlcmsg.Position{}, fmt.Errorf("textcodec: bad position %q", s)
	}
	tag, body := s[:idx], s[idx+1:]
	switch tag {
	case "FIX":
		return cpdlcmsg.Position{Set: true, Type: cpdlcmsg.PosFixName, FixName: body}, nil
	case "NAV":
		return cpdlcmsg.Position{Set: true, Type: cpdlcmsg.PosNavaid, Navaid: body}, nil
	case "ARPT":
		return cpdlcmsg.Position{Set: true, Type: cpdlcmsg.PosAirport, Airport: body}, nil
	case "LATLON":
		parts := strings.SplitN(body, ",", 2)
		if len(parts) != 2 {
			return cpdlcmsg.Position{}, fmt.Errorf("textcodec: bad latlon %q", s)
		}
		lat, err1 := strconv.ParseFloat(parts[0], 64)
		lon, err2 := strconv.ParseFloat(parts[1], 64)
		if err1 != nil || err2 != nil {
			return cpdlcmsg.Position{}, fmt.Errorf("textcodec: bad latlon %q", s)
		}
		return cpdlcmsg.Position{Set: true, Type: cpdlcmsg.PosLatLon, LatLon: cpdlcmsg.LatLon{Lat: lat, Lon: lon}}, nil
	case "PBD":
		parts := strings.SplitN(body, ",", 3)
		if len(parts) != 3 {
			return cpdlcmsg.Position{}, fmt.Errorf("textcodec: bad pbd %q", s)
		}
		deg, err1 := strconv.Atoi(parts[1])
		dist, err2 := strconv.ParseFloat(parts[2], 64)
		if err1 != nil || err2 != nil {
			return cpdlcmsg.Position{}, fmt.Errorf("textcodec: bad pbd %q", s)
		}
		return cpdlcmsg.Position{Set: true, Type: cpdlcmsg.PosPBD, PBD: cpdlcmsg.PlaceBearingDistance{
			FixName: parts[0], Degrees: uint(deg), DistNM: dist, LatLon: cpdlcmsg.NullLatLon(),
		}}, nil
	case "STR":
		str, err := Unescape(body)
		if err != nil {
			return cpdlcmsg.Position{}, err
		}
		return cpdlcmsg.Position{Set: true, Type: cpdlcmsg.PosUnknown, Str: str}, nil
	default:
		return cpdlcmsg.Position{}, fmt.Errorf("textcodec: unknown position tag %q", tag)
	}
}

func serializeDirection(d cpdlcmsg.Direction) string {
	names := []string{"L", "R", "EITHER", "N", "S", "E", "W", "NE", "NW", "SE", "SW"}
	if int(d) < len(names) {
		return names[d]
	}
	return "EITHER"
}

func parseDirection(s string) (cpdlcmsg.Direction, error) {
	switch s {
	case "L":
		return cpdlcmsg.DirLeft, nil
	case "R":
		return cpdlcmsg.DirRight, nil
	case "EITHER":
		return cpdlcmsg.DirEither, nil
	case "N":
		return cpdlcmsg.DirNorth, nil
	case "S":
		return cpdlcmsg.DirSouth, nil
	case "E":
		return cpdlcmsg.DirEast, nil
	case "W":
		return cpdlcmsg.DirWest, nil
	case "NE":
		return cpdlcmsg.DirNE, nil
	case "NW":
		return cpdlcmsg.DirNW, nil
	case "SE":
		return cpdlcmsg.DirSE, nil
	case "SW":
		return cpdlcmsg.DirSW, nil
	default:
		return 0, fmt.Errorf("textcodec: unknown direction %q", s)
	}
}

func serializeICAOName(n cpdlcmsg.ICAOName) string {
	funcs := []string{"CTR", "APP", "TWR", "FIN", "GND", "CLX", "DEP", "CTL"}
	fn := "CTR"
	if int(n.Func) < len(funcs) {
		fn = funcs[n.Func]
	}
	if n.IsName {
		return fmt.Sprintf("NAME:%s:%s", Escape(n.Name), fn)
	}
	return fmt.Sprintf("ID:%s:%s", n.ICAOID, fn)
}

func parseICAOName(s string) (cpdlcmsg.ICAOName, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return cpdlcmsg.ICAOName{}, fmt.Errorf("textcodec: bad icaoname %q", s)
	}
	fn := funcFromAbbrev(parts[2])
	switch parts[0] {
	case "NAME":
		name, err := Unescape(parts[1])
		if err != nil {
			return cpdlcmsg.ICAOName{}, err
		}
		return cpdlcmsg.ICAOName{IsName: true, Name: name, Func: fn}, nil
	case "ID":
		return cpdlcmsg.ICAOName{IsName: false, ICAOID: parts[1], Func: fn}, nil
	default:
		return cpdlcmsg.ICAOName{}, fmt.Errorf("textcodec: bad icaoname tag %q", parts[0])
	}
}

func funcFromAbbrev(s string) cpdlcmsg.FacFunc {
	m := map[string]cpdlcmsg.FacFunc{
		"CTR": cpdlcmsg.FacCenter, "APP": cpdlcmsg.FacApproach, "TWR": cpdlcmsg.FacTower,
		"FIN": cpdlcmsg.FacFinal, "GND": cpdlcmsg.FacGround, "CLX": cpdlcmsg.FacClearanceDelivery,
		"DEP": cpdlcmsg.FacDeparture, "CTL": cpdlcmsg.FacControl,
	}
	if f, ok := m[s]; ok {
		return f
	}
	return cpdlcmsg.FacCenter
}

func serializeFrequency(f cpdlcmsg.Frequency) string {
	bands := []string{"HF", "VHF", "UHF"}
	b := "VHF"
	if int(f.Band) < len(bands) {
		b = bands[f.Band]
	}
	return fmt.Sprintf("%s:%s", b, strconv.FormatFloat(f.MHz, 'f', 3, 64))
}

func parseFrequency(s string) (cpdlcmsg.Frequency, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return cpdlcmsg.Frequency{}, fmt.Errorf("textcodec: bad frequency %q", s)
	}
	mhz, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return cpdlcmsg.Frequency{}, fmt.Errorf("textcodec: bad frequency %q", s)
	}
	var band cpdlcmsg.FreqBand
	switch parts[0] {
	case "HF":
		band = cpdlcmsg.FreqHF
	case "VHF":
		band = cpdlcmsg.FreqVHF
	case "UHF":
		band = cpdlcmsg.FreqUHF
	default:
		return cpdlcmsg.Frequency{}, fmt.Errorf("textcodec: unknown band %q", parts[0])
	}
	return cpdlcmsg.Frequency{Band: band, MHz: mhz}, nil
}

func serializeProcedure(p cpdlcmsg.Procedure) string {
	types := []string{"UNK", "ARR", "APP", "DEP"}
	t := "UNK"
	if int(p.Type) < len(types) {
		t = types[p.Type]
	}
	return fmt.Sprintf("%s:%s:%s", t, p.Name, p.Trans)
}

func parseProcedure(s string) (cpdlcmsg.Procedure, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return cpdlcmsg.Procedure{}, fmt.Errorf("textcodec: bad procedure %q", s)
	}
	m := map[string]cpdlcmsg.ProcType{
		"UNK": cpdlcmsg.ProcUnknown, "ARR": cpdlcmsg.ProcArrival,
		"APP": cpdlcmsg.ProcApproach, "DEP": cpdlcmsg.ProcDeparture,
	}
	t, ok := m[parts[0]]
	if !ok {
		return cpdlcmsg.Procedure{}, fmt.Errorf("textcodec: unknown procedure type %q", parts[0])
	}
	return cpdlcmsg.Procedure{Type: t, Name: parts[1], Trans: parts[2]}, nil
}

func serializeLegType(l cpdlcmsg.LegType) string {
	if l.None {
		return "NULL"
	}
	if l.IsTime {
		return fmt.Sprintf("T%s", strconv.FormatFloat(l.TimeMin, 'f', 1, 64))
	}
	return fmt.Sprintf("D%s", strconv.FormatFloat(l.DistNM, 'f', 1, 64))
}

func parseLegType(s string) (cpdlcmsg.LegType, error) {
	if s == "NULL" {
		return cpdlcmsg.LegType{None: true}, nil
	}
	if len(s) < 2 {
		return cpdlcmsg.LegType{}, fmt.Errorf("textcodec: bad leg type %q", s)
	}
	v, err := strconv.ParseFloat(s[1:], 64)
	if err != nil {
		return cpdlcmsg.LegType{}, fmt.Errorf("textcodec: bad leg type %q", s)
	}
	switch s[0] {
	case 'T':
		return cpdlcmsg.LegType{IsTime: true, TimeMin: v}, nil
	case 'D':
		return cpdlcmsg.LegType{DistNM: v}, nil
	default:
		return cpdlcmsg.LegType{}, fmt.Errorf("textcodec: bad leg type %q", s)
	}
}

// serializeRoute renders a Route as a comma-joined list of tagged waypoint
// tokens plus header fields delimited by '>', ';', '/', ':' and ',' (no
// spaces). The result contains '/', so serializeArg percent-escapes it when
// it stands as an argument of its own.
func serializeRoute(r *cpdlcmsg.Route) string {
	if r == nil {
		return "NULL"
	}
	wpts := make([]string, len(r.Info))
	for i, wi := range r.Info {
		wpts[i] = serializeRouteInfo(wi)
	}
	return fmt.Sprintf("%s>%s;%s/%s;%s", r.OrigICAO, r.DestICAO, r.OrigRwy, r.DestRwy,
		strings.Join(wpts, ","))
}

func serializeRouteInfo(wi cpdlcmsg.RouteInfo) string {
	switch wi.Type {
	case cpdlcmsg.RoutePubIdent:
		return "P:" + wi.PubIdent.FixName
	case cpdlcmsg.RouteAirway:
		return "A:" + wi.Airway
	case cpdlcmsg.RouteLatLon:
		return fmt.Sprintf("L:%s,%s", formatDeg(wi.LatLon.Lat), formatDeg(wi.LatLon.Lon))
	default:
		return "U:" + wi.Str
	}
}

func parseRoute(s string) (*cpdlcmsg.Route, error) {
	if s == "NULL" {
		return nil, nil
	}
	arrowIdx := strings.Index(s, ">")
	semiIdx := strings.Index(s, ";")
	if arrowIdx < 0 || semiIdx < 0 || semiIdx < arrowIdx {
		return nil, fmt.Errorf("textcodec: bad route %q", s)
	}
	r := &cpdlcmsg.Route{OrigICAO: s[:arrowIdx], DestICAO: s[arrowIdx+1 : semiIdx]}
	rest := s[semiIdx+1:]
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("textcodec: bad route %q", s)
	}
	r.OrigRwy = parts[0]
	rwySemi := strings.Index(parts[1], ";")
	if rwySemi < 0 {
		return nil, fmt.Errorf("textcodec: bad route %q", s)
	}
	r.DestRwy = parts[1][:rwySemi]
	wptStr := parts[1][rwySemi+1:]
	if wptStr != "" {
		for _, tok := range strings.Split(wptStr, ",") {
			wi, err := parseRouteInfo(tok)
			if err != nil {
				return nil, err
			}
			r.Info = append(r.Info, wi)
		}
	}
	return r, nil
}

func parseRouteInfo(tok string) (cpdlcmsg.RouteInfo, error) {
	if len(tok) < 2 || tok[1] != ':' {
		return cpdlcmsg.RouteInfo{}, fmt.Errorf("textcodec: bad waypoint token %q", tok)
	}
	body := tok[2:]
	switch tok[0] {
	case 'P':
		return cpdlcmsg.RouteInfo{Type: cpdlcmsg.RoutePubIdent, PubIdent: cpdlcmsg.PubIdent{FixName: body, LatLon: cpdlcmsg.NullLatLon()}}, nil
	case 'A':
		return cpdlcmsg.RouteInfo{Type: cpdlcmsg.RouteAirway, Airway: body}, nil
	case 'L':
		parts := strings.SplitN(body, ",", 2)
		if len(parts) != 2 {
			return cpdlcmsg.RouteInfo{}, fmt.Errorf("textcodec: bad latlon waypoint %q", tok)
		}
		lat, e1 := strconv.ParseFloat(parts[0], 64)
		lon, e2 := strconv.ParseFloat(parts[1], 64)
		if e1 != nil || e2 != nil {
			return cpdlcmsg.RouteInfo{}, fmt.Errorf("textcodec: bad latlon waypoint %q", tok)
		}
		return cpdlcmsg.RouteInfo{Type: cpdlcmsg.RouteLatLon, LatLon: cpdlcmsg.LatLon{Lat: lat, Lon: lon}}, nil
	default:
		return cpdlcmsg.RouteInfo{Type: cpdlcmsg.RouteUnknown, Str: body}, nil
	}
}

// parseArg parses a single text token back into a typed Arg, the inverse of
// serializeArg.
func parseArg(kind cpdlcmsg.ArgKind, tok string) (cpdlcmsg.Arg, error) {
	a := cpdlcmsg.Arg{Kind: kind}
	var err error
	switch kind {
	case cpdlcmsg.ArgAltitude:
		a.Alt, err = parseAltitude(tok)
	case cpdlcmsg.ArgSpeed:
		a.Spd, err = parseSpeed(tok)
	case cpdlcmsg.ArgTime:
		a.Time, err = parseTime(tok)
	case cpdlcmsg.ArgTimeDur:
		if tok == "NULL" {
			a.Time = cpdlcmsg.NullTime()
		} else if strings.HasSuffix(tok, "M") {
			var mins int
			mins, err = strconv.Atoi(tok[:len(tok)-1])
			a.Time = cpdlcmsg.Time{Mins: mins}
		} else {
			err = fmt.Errorf("textcodec: bad duration %q", tok)
		}
	case cpdlcmsg.ArgPosition:
		a.Pos, err = parsePosition(tok)
	case cpdlcmsg.ArgDirection:
		a.Dir, err = parseDirection(tok)
	case cpdlcmsg.ArgDistance, cpdlcmsg.ArgDistanceOffset:
		a.Dist, err = strconv.ParseFloat(tok, 64)
		if err == nil {
			err = cpdlcmsg.ValidateDistance(a.Dist)
		}
	case cpdlcmsg.ArgVVI:
		a.VVI, err = strconv.Atoi(tok)
		if err == nil {
			err = cpdlcmsg.ValidateVVI(a.VVI)
		}
	case cpdlcmsg.ArgToFrom:
		switch tok {
		case "TO":
			a.ToFrom = true
		case "FROM":
			a.ToFrom = false
		default:
			err = fmt.Errorf("textcodec: bad tofrom %q", tok)
		}
	case cpdlcmsg.ArgRoute:
		var raw string
		raw, err = Unescape(tok)
		if err == nil {
			a.Route, err = parseRoute(raw)
		}
	case cpdlcmsg.ArgProcedure:
		a.Proc, err = parseProcedure(tok)
	case cpdlcmsg.ArgSquawk:
		var n uint64
		n, err = strconv.ParseUint(tok, 8, 16)
		if err == nil {
			a.Squawk = uint16(n)
			err = cpdlcmsg.ValidateSquawk(a.Squawk)
		}
	case cpdlcmsg.ArgICAOID:
		a.ICAOID = tok
	case cpdlcmsg.ArgICAOName:
		a.ICAOName, err = parseICAOName(tok)
	case cpdlcmsg.ArgFrequency:
		a.Freq, err = parseFrequency(tok)
	case cpdlcmsg.ArgDegrees:
		body := tok
		tru := false
		if strings.HasSuffix(body, "T") {
			tru = true
			body = body[:len(body)-1]
		}
		var n int
		n, err = strconv.Atoi(body)
		if err == nil {
			err = cpdlcmsg.ValidateDegrees(uint(n))
		}
		a.Degrees = cpdlcmsg.Degrees{Deg: uint(n), True: tru}
	case cpdlcmsg.ArgBaro:
		a.Baro, err = parseBaro(tok)
	case cpdlcmsg.ArgFreetext, cpdlcmsg.ArgErrInfo:
		a.Freetext, err = Unescape(tok)
	case cpdlcmsg.ArgPersons:
		var n uint64
		n, err = strconv.ParseUint(tok, 10, 32)
		a.Persons = uint(n)
	case cpdlcmsg.ArgPosReport:
		var raw string
		raw, err = Unescape(tok)
		if err == nil {
			a.PosReport, err = parsePosReport(raw)
		}
	case cpdlcmsg.ArgPDC:
		var raw string
		raw, err = Unescape(tok)
		if err == nil {
			a.PDC, err = parsePDC(raw)
		}
	case cpdlcmsg.ArgTP4Table:
		switch tok {
		case "A":
			a.TP4Table = cpdlcmsg.TP4LabelA
		case "B":
			a.TP4Table = cpdlcmsg.TP4LabelB
		default:
			err = fmt.Errorf("textcodec: bad tp4table %q", tok)
		}
	case cpdlcmsg.ArgVersion:
		a.Version, err = strconv.Atoi(tok)
	case cpdlcmsg.ArgATISCode:
		if len(tok) != 1 {
			err = fmt.Errorf("textcodec: bad atis code %q", tok)
		} else {
			a.ATISCode = tok[0]
		}
	case cpdlcmsg.ArgLegType:
		a.LegType, err = parseLegType(tok)
	default:
		err = fmt.Errorf("textcodec: unknown arg kind %d", kind)
	}
	return a, err
}

func parseBaro(tok string) (cpdlcmsg.Baro, error) {
	if len(tok) < 2 {
		return cpdlcmsg.Baro{}, fmt.Errorf("textcodec: bad baro %q", tok)
	}
	raw, err := strconv.Atoi(tok[1:])
	if err != nil {
		return cpdlcmsg.Baro{}, fmt.Errorf("textcodec: bad baro %q", tok)
	}
	switch tok[0] {
	case 'Q':
		return cpdlcmsg.Baro{HPa: true, Val: float64(raw)}, nil
	case 'A':
		return cpdlcmsg.Baro{HPa: false, Val: float64(raw) / 100}, nil
	default:
		return cpdlcmsg.Baro{}, fmt.Errorf("textcodec: bad baro prefix %q", tok)
	}
}

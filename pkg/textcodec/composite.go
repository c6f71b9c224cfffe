package textcodec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/openatc/cpdlcd/pkg/cpdlcmsg"
)

// serializePosReport renders a position report as space-separated
// KEY:VALUE fields. The caller (serializeArg) percent-escapes the whole
// result into one token before it is joined with the rest of a MSG= line,
// per spec.md §4.1.
func serializePosReport(p *cpdlcmsg.PosReport) string {
	if p == nil {
		return ""
	}
	fields := []string{
		"POS:" + serializePosition(p.CurPos),
		"PT:" + serializeTime(p.TimeCurPos),
		"ALT:" + serializeAltitude(p.CurAlt),
	}
	if p.FixNext.Set {
		fields = append(fields, "NFIX:"+serializePosition(p.FixNext))
	}
	if !p.TimeFixNext.Null {
		fields = append(fields, "NFIXT:"+serializeTime(p.TimeFixNext))
	}
	if p.FixNextP1.Set {
		fields = append(fields, "NFIX1:"+serializePosition(p.FixNextP1))
	}
	if !p.TimeDest.Null {
		fields = append(fields, "DESTT:"+serializeTime(p.TimeDest))
	}
	if !p.RmngFuel.Null {
		fields = append(fields, "FUEL:"+serializeTime(p.RmngFuel))
	}
	if p.Temp != cpdlcmsg.NullTemp {
		fields = append(fields, "TEMP:"+strconv.Itoa(p.Temp))
	}
	if !p.Wind.IsNull() {
		fields = append(fields, fmt.Sprintf("WIND:%d,%d", p.Wind.Dir, p.Wind.Spd))
	}
	if p.Turb != cpdlcmsg.TurbNone {
		fields = append(fields, "TURB:"+strconv.Itoa(int(p.Turb)))
	}
	if p.Icing != cpdlcmsg.IcingNone {
		fields = append(fields, "ICE:"+strconv.Itoa(int(p.Icing)))
	}
	if !p.Spd.Null {
		fields = append(fields, "SPD:"+serializeSpeed(p.Spd))
	}
	if !p.SpdGnd.Null {
		fields = append(fields, "GSPD:"+serializeSpeed(p.SpdGnd))
	}
	if p.VVISet {
		fields = append(fields, "VVI:"+strconv.Itoa(p.VVI))
	}
	if p.Trk != 0 {
		fields = append(fields, "TRK:"+strconv.Itoa(int(p.Trk)))
	}
	if p.HdgTrue != 0 {
		fields = append(fields, "HDG:"+strconv.Itoa(int(p.HdgTrue)))
	}
	if p.DistSet {
		fields = append(fields, "DIST:"+strconv.FormatFloat(p.DistNM, 'f', -1, 64))
	}
	if p.Remarks != "" {
		fields = append(fields, "RMK:"+Escape(p.Remarks))
	}
	if p.RptWptPos.Set {
		fields = append(fields, "RPOS:"+serializePosition(p.RptWptPos))
	}
	if !p.RptWptTime.Null {
		fields = append(fields, "RPT:"+serializeTime(p.RptWptTime))
	}
	if !p.RptWptAlt.Null {
		fields = append(fields, "RALT:"+serializeAltitude(p.RptWptAlt))
	}
	return strings.Join(fields, " ")
}

func parsePosReport(s string) (*cpdlcmsg.PosReport, error) {
	p := &cpdlcmsg.PosReport{
		FixNext: cpdlcmsg.NullPosition(), TimeFixNext: cpdlcmsg.NullTime(),
		FixNextP1: cpdlcmsg.NullPosition(), TimeDest: cpdlcmsg.NullTime(),
		RmngFuel: cpdlcmsg.NullTime(), Temp: cpdlcmsg.NullTemp,
		Spd: cpdlcmsg.NullSpeed(), SpdGnd: cpdlcmsg.NullSpeed(),
		RptWptPos: cpdlcmsg.NullPosition(), RptWptTime: cpdlcmsg.NullTime(),
		RptWptAlt: cpdlcmsg.NullAltitude(),
	}
	if s == "" {
		return p, nil
	}
	var err error
	for _, field := range strings.Split(s, " ") {
		idx := strings.IndexByte(field, ':')
		if idx < 0 {
			return nil, fmt.Errorf("textcodec: bad posreport field %q", field)
		}
		key, val := field[:idx], field[idx+1:]
		switch key {
		case "POS":
			if p.CurPos, err = parsePosition(val); err != nil {
				return nil, err
			}
		case "PT":
			if p.TimeCurPos, err = parseTime(val); err != nil {
				return nil, err
			}
		case "ALT":
			if p.CurAlt, err = parseAltitude(val); err != nil {
				return nil, err
			}
		case "NFIX":
			if p.FixNext, err = parsePosition(val); err != nil {
				return nil, err
			}
		case "NFIXT":
			if p.TimeFixNext, err = parseTime(val); err != nil {
				return nil, err
			}
		case "NFIX1":
			if p.FixNextP1, err = parsePosition(val); err != nil {
				return nil, err
			}
		case "DESTT":
			if p.TimeDest, err = parseTime(val); err != nil {
				return nil, err
			}
		case "FUEL":
			if p.RmngFuel, err = parseTime(val); err != nil {
				return nil, err
			}
		case "TEMP":
			n, e := strconv.Atoi(val)
			if e != nil {
				return nil, e
			}
			p.Temp = n
		case "WIND":
			parts := strings.SplitN(val, ",", 2)
			if len(parts) != 2 {
				return nil, fmt.Errorf("textcodec: bad wind %q", val)
			}
			dir, e1 := strconv.Atoi(parts[0])
			spd, e2 := strconv.Atoi(parts[1])
			if e1 != nil || e2 != nil {
				return nil, fmt.Errorf("textcodec: bad wind %q", val)
			}
			p.Wind = cpdlcmsg.Wind{Dir: uint(dir), Spd: uint(spd)}
		case "TURB":
			n, e := strconv.Atoi(val)
			if e != nil {
				return nil, e
			}
			p.Turb = cpdlcmsg.Turbulence(n)
		case "ICE":
			n, e := strconv.Atoi(val)
			if e != nil {
				return nil, e
			}
			p.Icing = cpdlcmsg.Icing(n)
		case "SPD":
			if p.Spd, err = parseSpeed(val); err != nil {
				return nil, err
			}
		case "GSPD":
			if p.SpdGnd, err = parseSpeed(val); err != nil {
				return nil, err
			}
		case "VVI":
			n, e := strconv.Atoi(val)
			if e != nil {
				return nil, e
			}
			p.VVISet = true
			p.VVI = n
		case "TRK":
			n, e := strconv.Atoi(val)
			if e != nil {
				return nil, e
			}
			p.Trk = uint(n)
		case "HDG":
			n, e := strconv.Atoi(val)
			if e != nil {
				return nil, e
			}
			p.HdgTrue = uint(n)
		case "DIST":
			f, e := strconv.ParseFloat(val, 64)
			if e != nil {
				return nil, e
			}
			p.DistSet = true
			p.DistNM = f
		case "RMK":
			if p.Remarks, err = Unescape(val); err != nil {
				return nil, err
			}
		case "RPOS":
			if p.RptWptPos, err = parsePosition(val); err != nil {
				return nil, err
			}
		case "RPT":
			if p.RptWptTime, err = parseTime(val); err != nil {
				return nil, err
			}
		case "RALT":
			if p.RptWptAlt, err = parseAltitude(val); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("textcodec: unknown posreport field %q", key)
		}
	}
	return p, nil
}

// serializePDC renders a pre-departure clearance the same way: space
// separated KEY:VALUE fields, escaped as one token by the caller.
func serializePDC(p *cpdlcmsg.PDC) string {
	if p == nil {
		return ""
	}
	fields := []string{
		"ID:" + p.ACFID,
		"DEP:" + serializeTime(p.TimeDep),
		"RTE:" + serializeRoute(&p.Route),
		"FREQ:" + strconv.FormatFloat(p.FreqMHz, 'f', 3, 64),
		"SQK:" + fmt.Sprintf("%04o", p.Squawk),
		"REV:" + strconv.FormatUint(uint64(p.Revision), 10),
	}
	if p.ACFType != "" {
		fields = append(fields, "TYPE:"+Escape(p.ACFType))
	}
	if !p.AltRestr.Null {
		fields = append(fields, "ALT:"+serializeAltitude(p.AltRestr))
	}
	return strings.Join(fields, " ")
}

func parsePDC(s string) (*cpdlcmsg.PDC, error) {
	p := &cpdlcmsg.PDC{AltRestr: cpdlcmsg.NullAltitude()}
	var err error
	for _, field := range strings.Split(s, " ") {
		idx := strings.IndexByte(field, ':')
		if idx < 0 {
			return nil, fmt.Errorf("textcodec: bad pdc field %q", field)
		}
		key, val := field[:idx], field[idx+1:]
		switch key {
		case "ID":
			p.ACFID = val
		case "TYPE":
			if p.ACFType, err = Unescape(val); err != nil {
				return nil, err
			}
		case "DEP":
			if p.TimeDep, err = parseTime(val); err != nil {
				return nil, err
			}
		case "RTE":
			r, e := parseRoute(val)
			if e != nil {
				return nil, e
			}
			if r != nil {
				p.Route = *r
			}
		case "ALT":
			if p.AltRestr, err = parseAltitude(val); err != nil {
				return nil, err
			}
		case "FREQ":
			f, e := strconv.ParseFloat(val, 64)
			if e != nil {
				return nil, e
			}
			p.FreqMHz = f
		case "SQK":
			n, e := strconv.ParseUint(val, 8, 16)
			if e != nil {
				return nil, e
			}
			p.Squawk = uint16(n)
		case "REV":
			n, e := strconv.ParseUint(val, 10, 32)
			if e != nil {
				return nil, e
			}
			p.Revision = uint(n)
		default:
			return nil, fmt.Errorf("textcodec: unknown pdc field %q", key)
		}
	}
	return p, nil
}

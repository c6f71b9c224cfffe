package cpdlcmsg

// ComNavEquipment enumerates the aircraft's COM/NAV/approach equipment
// (cpdlc_com_nav_eqpt_st_t).
type ComNavEquipment int

const (
	EqLoranA ComNavEquipment = iota
	EqLoranC
	EqDME
	EqDecca
	EqADF
	EqGNSS
	EqHFRTF
	EqINS
	EqILS
	EqOmega
	EqVOR
	EqDoppler
	EqRNAV
	EqTACAN
	EqUHFRTF
	EqVHFRTF
)

// SSREquipment enumerates the transponder mode (cpdlc_ssr_eqpt_t).
type SSREquipment int

const (
	SSREqptNil SSREquipment = iota
	SSRModeA
	SSRModeAC
	SSRModeS
	SSRModeSPA
	SSRModeSID
	SSRModeSPAID
)

// AircraftEquipmentCode bundles the COM/NAV/approach equipment suffix and
// SSR transponder capability (cpdlc_acf_eqpt_code_t).
type AircraftEquipmentCode struct {
	ComNavApchEqptAvail bool
	ComNavEqpt          []ComNavEquipment
	SSREqpt             SSREquipment
}

// PDC is a pre-departure clearance: the large structured uplink containing
// route, squawk, departure frequency, and revision number (cpdlc_pdc_t).
type PDC struct {
	ACFID      string // required
	ACFType    string // optional
	EqptCode   AircraftEquipmentCode // optional
	TimeDep    Time    // required
	Route      Route   // required
	AltRestr   Altitude // optional
	FreqMHz    float64 // required
	Squawk     uint16  // required, octal value stored as decimal 0-4095
	Revision   uint    // required
}

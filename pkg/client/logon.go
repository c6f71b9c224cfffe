package client

// LogonState is the client-local logon status machine of spec.md §4.4,
// owned by the I/O goroutine and readable by the application goroutine.
type LogonState int

const (
	LogonNone LogonState = iota
	LogonConnectingLink
	LogonHandshakingLink
	LogonLinkAvail
	LogonInProgress
	LogonComplete
)

func (s LogonState) String() string {
	switch s {
	case LogonNone:
		return "NONE"
	case LogonConnectingLink:
		return "CONNECTING_LINK"
	case LogonHandshakingLink:
		return "HANDSHAKING_LINK"
	case LogonLinkAvail:
		return "LINK_AVAIL"
	case LogonInProgress:
		return "IN_PROG"
	case LogonComplete:
		return "COMPLETE"
	default:
		return "UNKNOWN"
	}
}

// logonMachine tracks the state transition sequence
// NONE -> CONNECTING_LINK -> HANDSHAKING_LINK -> LINK_AVAIL -> IN_PROG ->
// COMPLETE, plus the sticky "logon failed" flag of spec.md §4.4: failure at
// any transition raises the flag and reverts state to NONE; logoff() forces
// NONE unconditionally.
type logonMachine struct {
	state  LogonState
	failed bool
}

func (m *logonMachine) advance(to LogonState) {
	m.state = to
}

// fail reverts to NONE and raises the sticky failure flag; the flag is
// cleared only by a fresh call to begin() or by logoff().
func (m *logonMachine) fail() {
	m.state = LogonNone
	m.failed = true
}

// begin starts a new logon attempt, clearing any prior failure flag.
func (m *logonMachine) begin() {
	m.failed = false
	m.state = LogonConnectingLink
}

// logoff forces NONE regardless of current state.
func (m *logonMachine) logoff() {
	m.state = LogonNone
	m.failed = false
}

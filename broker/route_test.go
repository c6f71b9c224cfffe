package broker

import (
	"strings"
	"testing"
)

// logonAs drives a full LOGON exchange to completion and returns the
// connection/transport pair. authURL is left empty so every logon is
// auto-approved as a non-ATC identity; atc=true flips isATC directly after
// the logon completes, for tests that need an ATC identity.
func logonAs(t *testing.T, b *Broker, addr, from, to string, atc bool) (*Conn, *pipeTransport) {
	t.Helper()
	c, tr := connectTestConn(b, addr)
	tr.inject("PKT=CPDLC/TS=120000/MIN=1/FROM=" + from + "/TO=" + to + "/LOGON=x\n")
	waitFor(t, func() bool { return strings.Contains(tr.writtenString(), "LOGON=SUCCESS") })
	if atc {
		c.mu.Lock()
		c.isATC = true
		c.mu.Unlock()
	}
	return c, tr
}

func TestRouteDeliversBetweenLoggedOnPeers(t *testing.T) {
	b := testBroker(t)
	defer b.Shutdown()

	atcConn, atcTr := logonAs(t, b, "10.1.0.1:1", "KZLA", "N123", true)
	_, acftTr := logonAs(t, b, "10.1.0.2:1", "N123", "KZLA", false)
	_ = atcConn

	atcTr.inject("PKT=CPDLC/TS=120000/MIN=2/FROM=KZLA/TO=N123/MSG=UM0\n")
	waitFor(t, func() bool { return strings.Contains(acftTr.writtenString(), "UM0") })
}

func TestRouteRejectsAircraftSettingTO(t *testing.T) {
	b := testBroker(t)
	defer b.Shutdown()

	_, tr := logonAs(t, b, "10.1.0.3:1", "N456", "KZLA", false)
	tr.inject("PKT=CPDLC/TS=120000/MIN=2/FROM=N456/TO=KZLA/MSG=DM0\n")
	waitFor(t, func() bool { return strings.Contains(tr.writtenString(), "MSG=UM159") })
}

func TestRouteDefersWhenRecipientOffline(t *testing.T) {
	b := testBroker(t)
	defer b.Shutdown()

	_, tr := logonAs(t, b, "10.1.0.4:1", "KZLA", "N789", true)
	tr.inject("PKT=CPDLC/TS=120000/MIN=2/FROM=KZLA/TO=N789/MSG=UM0\n")

	waitFor(t, func() bool {
		n, _ := b.deferredStats()
		return n == 1
	})
}

func TestRouteQuotaRejection(t *testing.T) {
	b := testBroker(t)
	defer b.Shutdown()
	b.quota = newQuotaTracker(1, 0)

	_, tr := logonAs(t, b, "10.1.0.5:1", "N999", "KZLA", false)
	tr.inject("PKT=CPDLC/TS=120000/MIN=2/FROM=N999/MSG=DM0\n")
	waitFor(t, func() bool { return strings.Contains(tr.writtenString(), "TOO%20MANY%20QUEUED%20MESSAGES") })
}

package broker

import (
	"bufio"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// authServer builds a test authenticator responding auth/atc per the
// From= header it receives, mimicking spec.md §6.4's wire contract.
func authServer(t *testing.T, accept map[string]bool, atc map[string]bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var from string
		sc := bufio.NewScanner(r.Body)
		for sc.Scan() {
			key, val, ok := strings.Cut(sc.Text(), ":")
			if ok && strings.TrimSpace(key) == "From" {
				from = strings.TrimSpace(val)
			}
		}
		ok := accept[from]
		isATC := atc[from]
		w.Header().Set("Content-Type", "text/plain")
		if ok {
			if isATC {
				w.Write([]byte("auth: 1\natc: 1\n"))
			} else {
				w.Write([]byte("auth: 1\natc: 0\n"))
			}
		} else {
			w.Write([]byte("auth: 0\n"))
		}
	}))
}

func TestAuthLogonRejectedByAuthenticator(t *testing.T) {
	srv := authServer(t, map[string]bool{"N123": false}, nil)
	defer srv.Close()

	b := testBroker(t)
	defer b.Shutdown()
	b.authURL = srv.URL

	_, tr := connectTestConn(b, "10.2.0.1:1")
	tr.inject("PKT=CPDLC/TS=120000/MIN=1/FROM=N123/TO=KZLA/LOGON=x\n")
	waitFor(t, func() bool { return strings.Contains(tr.writtenString(), "LOGON=FAILURE") })
}

func TestAuthLogonAcceptedAsATC(t *testing.T) {
	srv := authServer(t, map[string]bool{"KZLA": true}, map[string]bool{"KZLA": true})
	defer srv.Close()

	b := testBroker(t)
	defer b.Shutdown()
	b.authURL = srv.URL

	c, tr := connectTestConn(b, "10.2.0.2:1")
	tr.inject("PKT=CPDLC/TS=120000/MIN=1/FROM=KZLA/LOGON=x\n")
	waitFor(t, func() bool { return strings.Contains(tr.writtenString(), "LOGON=SUCCESS") })

	c.mu.Lock()
	isATC := c.isATC
	c.mu.Unlock()
	if !isATC {
		t.Fatal("expected connection to be marked ATC")
	}
}

func TestAuthNonATCLogonRequiresTO(t *testing.T) {
	srv := authServer(t, map[string]bool{"N456": true}, nil)
	defer srv.Close()

	b := testBroker(t)
	defer b.Shutdown()
	b.authURL = srv.URL

	_, tr := connectTestConn(b, "10.2.0.3:1")
	tr.inject("PKT=CPDLC/TS=120000/MIN=1/FROM=N456/LOGON=x\n")
	waitFor(t, func() bool { return strings.Contains(tr.writtenString(), "LOGON=FAILURE") })
}

func TestAuthNetworkFailureFailsClosed(t *testing.T) {
	b := testBroker(t)
	defer b.Shutdown()
	b.authURL = "http://127.0.0.1:1" // nothing listening

	_, tr := connectTestConn(b, "10.2.0.4:1")
	tr.inject("PKT=CPDLC/TS=120000/MIN=1/FROM=N789/TO=KZLA/LOGON=x\n")
	waitFor(t, func() bool { return strings.Contains(tr.writtenString(), "LOGON=FAILURE") })
}

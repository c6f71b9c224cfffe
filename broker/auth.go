package broker

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/openatc/cpdlcd/pkg/cpdlcmsg"
	"github.com/openatc/cpdlcd/pkg/textcodec"
)

// authTimeout is the authenticator HTTP request's hard timeout (spec.md
// §4.10: "auth RPC timeout (30s)").
const authTimeout = 30 * time.Second

// handleLogon implements spec.md §4.7's 8-step broker-side logon state
// machine. Steps 1-4 run synchronously on the connection's read goroutine;
// step 5's HTTP round trip runs on its own goroutine so a slow or wedged
// authenticator cannot stall the connection's read loop (or any other
// connection's), matching spec.md §9's "async HTTP client is an acceptable
// substitution for the suspension semantics of the synchronous call".
func (b *Broker) handleLogon(c *Conn, msg *cpdlcmsg.Message) {
	c.mu.Lock()
	if c.logon == LogonStarted || c.logon == LogonCompleting {
		c.mu.Unlock()
		b.replyText(c, "LOGON ALREADY IN PROGRESS", msg)
		return
	}
	if msg.From == "" {
		c.mu.Unlock()
		b.replyLogonFailure(c, msg, "LOGON REQUIRES FROM= HEADER")
		return
	}

	// Step 3: clear prior identity. Fully, for a non-ATC connection (it may
	// only ever hold one); matching-only for ATC (only the identical
	// callsign is replaced, since ATC may hold several at once). The
	// broker's routing registration of each cleared identity is dropped too.
	var cleared []string
	if !c.isATC {
		cleared = c.idents
		c.idents = nil
	} else {
		for i, id := range c.idents {
			if id == msg.From {
				cleared = []string{id}
				c.idents = append(c.idents[:i], c.idents[i+1:]...)
				break
			}
		}
	}
	c.logonMIN = msg.MIN
	c.target = msg.To
	c.logon = LogonStarted
	peerAddr := c.peerAddr
	c.mu.Unlock()

	for _, from := range cleared {
		b.clearIdentFor(from, c)
	}

	go b.runAuth(c, msg, peerAddr)
}

// authResult is the parsed response body of spec.md §6.4's authenticator
// contract.
type authResult struct {
	ok  bool
	atc bool
}

// runAuth performs the authenticator HTTP POST and finalizes the logon on
// completion; it is always invoked on its own goroutine from handleLogon.
func (b *Broker) runAuth(c *Conn, msg *cpdlcmsg.Message, peerAddr string) {
	start := time.Now()
	res, err := b.callAuthenticator(msg, peerAddr)
	b.metrics.observeAuthLatencySeconds(time.Since(start).Seconds())

	c.mu.Lock()
	if c.closed || c.logon != LogonStarted {
		c.mu.Unlock()
		return
	}
	c.logon = LogonCompleting
	c.mu.Unlock()

	if err != nil || !res.ok {
		if err != nil {
			b.log.WithError(err).WithField("peer", peerAddr).Warn("authenticator request failed")
		}
		c.mu.Lock()
		c.logon = LogonNone
		c.logonFailed = true
		c.mu.Unlock()
		b.replyLogonFailure(c, msg, "")
		return
	}

	// A non-ATC identity must address a specific target; an ATC identity
	// may log on without yet addressing any one aircraft (spec.md §4.7's
	// "no TO= and not ATC" rejection, evaluated here since isATC is only
	// known once the authenticator has answered).
	if !res.atc && msg.To == "" {
		c.mu.Lock()
		c.logon = LogonNone
		c.logonFailed = true
		c.mu.Unlock()
		b.replyLogonFailure(c, msg, "LOGON REQUIRES TO= HEADER")
		return
	}

	c.mu.Lock()
	c.isATC = res.atc
	c.idents = append(c.idents, msg.From)
	c.logon = LogonComplete
	target := c.target
	isATC := c.isATC
	c.mu.Unlock()

	b.registerIdent(msg.From, c)
	b.runShellCmd(b.logonCmd, msg.From, target, peerAddr, isATC, c.kind)

	reply := &cpdlcmsg.Message{
		PktType:   cpdlcmsg.PktCPDLC,
		TS:        nowTimestampUTC(),
		MIN:       cpdlcmsg.InvalidSeqNr,
		MRN:       msg.MIN,
		From:      target,
		To:        msg.From,
		IsLogon:   true,
		LogonData: "SUCCESS",
	}
	if err := c.sendMessage(reply); err != nil {
		b.log.WithError(err).Warn("failed to send LOGON=SUCCESS")
	}
}

// replyLogonFailure reverts the connection to NONE and replies with the
// LOGON=FAILURE convention pkg/client.handleInbound expects: IsLogon=true,
// LogonData="FAILURE", MRN echoing the logon's MIN.
func (b *Broker) replyLogonFailure(c *Conn, orig *cpdlcmsg.Message, reason string) {
	c.mu.Lock()
	c.logon = LogonNone
	c.logonFailed = true
	c.mu.Unlock()

	if reason != "" {
		b.log.WithField("peer", c.peerAddr).WithField("reason", reason).Info("logon rejected")
	}
	reply := &cpdlcmsg.Message{
		PktType:   cpdlcmsg.PktCPDLC,
		TS:        nowTimestampUTC(),
		MIN:       cpdlcmsg.InvalidSeqNr,
		MRN:       orig.MIN,
		From:      orig.To,
		To:        orig.From,
		IsLogon:   true,
		LogonData: "FAILURE",
	}
	if err := c.sendMessage(reply); err != nil {
		b.log.WithError(err).Warn("failed to send LOGON=FAILURE")
	}
}

// callAuthenticator POSTs the logon attempt to auth/url per spec.md §6.4's
// wire contract: Content-Type text/plain, percent-escaped body lines. When
// no auth/url is configured, every logon is accepted as a non-ATC identity.
func (b *Broker) callAuthenticator(msg *cpdlcmsg.Message, peerAddr string) (authResult, error) {
	if b.authURL == "" {
		return authResult{ok: true, atc: false}, nil
	}

	host, port, _ := splitHostPort(peerAddr)

	var body strings.Builder
	fmt.Fprintf(&body, "LogonData: %s\n", textcodec.Escape(msg.LogonData))
	fmt.Fprintf(&body, "From: %s\n", textcodec.Escape(msg.From))
	fmt.Fprintf(&body, "To: %s\n", textcodec.Escape(msg.To))
	fmt.Fprintf(&body, "RemotePort: %s\n", textcodec.Escape(port))
	fmt.Fprintf(&body, "RemoteAddr: %s\n", textcodec.Escape(host))

	ctx, cancel := context.WithTimeout(context.Background(), authTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.authURL, strings.NewReader(body.String()))
	if err != nil {
		return authResult{}, fmt.Errorf("broker: build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")
	if u := b.cfg.String("auth/username", ""); u != "" {
		req.SetBasicAuth(u, b.cfg.String("auth/password", ""))
	}

	client := &http.Client{Timeout: authTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return authResult{ok: false}, nil // network failure -> auth:0, not a hard error
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return authResult{ok: false}, nil
	}

	var res authResult
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		val = strings.TrimSpace(val)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "auth":
			res.ok = val == "1"
		case "atc":
			res.atc = val == "1"
		}
	}
	return res, nil
}

func splitHostPort(addr string) (host, port string, err error) {
	i := strings.LastIndexByte(addr, ':')
	if i < 0 {
		return addr, "", nil
	}
	return addr[:i], addr[i+1:], nil
}

// runShellCmd fires the logon_cmd/logoff_cmd shell template of spec.md
// §9's design note: "${FROM}/${TO}/${ADDR}/${STATYPE}/${CONNTYPE}"
// substitution followed by fork+exec `/bin/sh -c`. Each value is passed as
// an environment variable rather than substituted into the command string,
// which is the injection-safe equivalent of the spec's "explicit quoting
// against injection" guidance: the shell template may still reference
// ${FROM} etc, but a hostile callsign cannot break out of the argument it
// occupies.
func (b *Broker) runShellCmd(tmpl, from, to, addr string, isATC bool, kind TransportKind) {
	if tmpl == "" {
		return
	}
	statype := "ACFT"
	if isATC {
		statype = "ATC"
	}
	cmd := exec.Command("/bin/sh", "-c", tmpl)
	cmd.Env = append(os.Environ(),
		"FROM="+from,
		"TO="+to,
		"ADDR="+addr,
		"STATYPE="+statype,
		"CONNTYPE="+kind.String(),
	)
	if err := cmd.Run(); err != nil {
		b.log.WithError(err).WithField("cmd", tmpl).Warn("logon/logoff command failed")
	}
}

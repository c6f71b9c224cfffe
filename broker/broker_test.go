package broker

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/openatc/cpdlcd/internal/config"
)

// pipeTransport is an in-memory transport implementation for tests: writes
// from the broker's side land in toPeer, and the test injects bytes the
// broker should read via fromPeer.
type pipeTransport struct {
	mu       sync.Mutex
	fromPeer bytes.Buffer
	toPeer   bytes.Buffer
	addr     string
	closed   bool
	readCh   chan struct{}
}

func newPipeTransport(addr string) *pipeTransport {
	return &pipeTransport{addr: addr, readCh: make(chan struct{}, 1)}
}

func (p *pipeTransport) Read(buf []byte) (int, error) {
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return 0, errClosedPipe
		}
		if p.fromPeer.Len() > 0 {
			n, _ := p.fromPeer.Read(buf)
			p.mu.Unlock()
			return n, nil
		}
		p.mu.Unlock()
		<-p.readCh
	}
}

func (p *pipeTransport) Write(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.toPeer.Write(buf)
}

func (p *pipeTransport) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	select {
	case p.readCh <- struct{}{}:
	default:
	}
	return nil
}

func (p *pipeTransport) RemoteAddr() string { return p.addr }

func (p *pipeTransport) inject(s string) {
	p.mu.Lock()
	p.fromPeer.WriteString(s)
	p.mu.Unlock()
	select {
	case p.readCh <- struct{}{}:
	default:
	}
}

func (p *pipeTransport) writtenString() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.toPeer.String()
}

var errClosedPipe = pipeClosedError{}

type pipeClosedError struct{}

func (pipeClosedError) Error() string { return "broker: pipe closed" }

func testBroker(t *testing.T) *Broker {
	t.Helper()
	cfg, err := config.Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("config.Parse: %v", err)
	}
	b, err := New(cfg, logrus.NewEntry(logrus.New()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

func connectTestConn(b *Broker, addr string) (*Conn, *pipeTransport) {
	tr := newPipeTransport(addr)
	c := newConn(b, TransportTLS, tr)
	b.onConnAccepted(c)
	return c, tr
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestBrokerAcceptsPingPong(t *testing.T) {
	b := testBroker(t)
	_, tr := connectTestConn(b, "10.0.0.1:1234")
	tr.inject("PKT=PING/TS=120000\n")
	waitFor(t, func() bool { return strings.Contains(tr.writtenString(), "PKT=PONG") })
}

func TestBrokerLogonWithoutAuthURLSucceeds(t *testing.T) {
	b := testBroker(t)
	c, tr := connectTestConn(b, "10.0.0.2:1234")
	tr.inject("PKT=CPDLC/TS=120000/MIN=1/FROM=N123/TO=KZLA/LOGON=hello\n")

	waitFor(t, func() bool { return strings.Contains(tr.writtenString(), "LOGON=SUCCESS") })

	c.mu.Lock()
	state := c.logon
	c.mu.Unlock()
	if state != LogonComplete {
		t.Fatalf("expected LogonComplete, got %v", state)
	}

	conns := b.connsForIdent("N123")
	if len(conns) != 1 || conns[0] != c {
		t.Fatalf("expected N123 registered to this connection, got %v", conns)
	}
}

func TestBrokerLogonRequiresFrom(t *testing.T) {
	b := testBroker(t)
	_, tr := connectTestConn(b, "10.0.0.3:1234")
	tr.inject("PKT=CPDLC/TS=120000/MIN=1/TO=KZLA/LOGON=hello\n")
	waitFor(t, func() bool { return strings.Contains(tr.writtenString(), "LOGON=FAILURE") })
}

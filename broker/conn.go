package broker

import (
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/openatc/cpdlcd/pkg/cpdlcmsg"
	"github.com/openatc/cpdlcd/pkg/textcodec"
)

// TransportKind is a connection's wire transport, fixed at accept time
// (spec.md §3 "Broker-side connection": "Immutable at creation: transport
// kind").
type TransportKind int

const (
	TransportTLS TransportKind = iota
	TransportWS
)

func (k TransportKind) String() string {
	if k == TransportWS {
		return "WS"
	}
	return "TLS"
}

// LogonState is a broker-side connection's logon progress, spec.md §3's
// "NONE -> STARTED -> COMPLETING -> COMPLETE (with fallback to NONE on
// failure)".
type LogonState int

const (
	LogonNone LogonState = iota
	LogonStarted
	LogonCompleting
	LogonComplete
)

func (s LogonState) String() string {
	switch s {
	case LogonNone:
		return "NONE"
	case LogonStarted:
		return "STARTED"
	case LogonCompleting:
		return "COMPLETING"
	case LogonComplete:
		return "COMPLETE"
	default:
		return "UNKNOWN"
	}
}

// transport abstracts the byte-stream difference between a raw TLS socket
// and a WebSocket connection so Conn's read/write code is transport-agnostic
// (SPEC_FULL.md §3.7: "isolate that requirement behind a trait/interface
// implemented once per transport").
type transport interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	RemoteAddr() string
}

// tlsTransport wraps a raw *tls.Conn (or any net.Conn, which *tls.Conn
// satisfies) behind the transport interface.
type tlsTransport struct {
	conn net.Conn
}

func (t *tlsTransport) Read(p []byte) (int, error)  { return t.conn.Read(p) }
func (t *tlsTransport) Write(p []byte) (int, error) { return t.conn.Write(p) }
func (t *tlsTransport) Close() error                { return t.conn.Close() }
func (t *tlsTransport) RemoteAddr() string          { return t.conn.RemoteAddr().String() }

// wsTransport adapts a gorilla/websocket connection to the byte-stream
// transport interface: gorilla v1.4.2 (the version this module pins, see
// go.mod) has no net.Conn adapter, so inbound frames are buffered and
// drained incrementally, and writes serialize behind a mutex (gorilla
// requires a single writer at a time per connection).
type wsTransport struct {
	conn *websocket.Conn

	wmu     sync.Mutex
	rmu     sync.Mutex
	pending []byte
}

func newWSTransport(c *websocket.Conn) *wsTransport {
	return &wsTransport{conn: c}
}

func (w *wsTransport) Read(p []byte) (int, error) {
	w.rmu.Lock()
	defer w.rmu.Unlock()
	for len(w.pending) == 0 {
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			return 0, err
		}
		w.pending = data
	}
	n := copy(p, w.pending)
	w.pending = w.pending[n:]
	return n, nil
}

func (w *wsTransport) Write(p []byte) (int, error) {
	w.wmu.Lock()
	defer w.wmu.Unlock()
	if err := w.conn.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *wsTransport) Close() error       { return w.conn.Close() }
func (w *wsTransport) RemoteAddr() string { return w.conn.RemoteAddr().String() }

// preLogonMaxInput and duringLogonMaxInput are the two oversized-input
// ceilings of spec.md §4.10.
const (
	preLogonMaxInput    = 128
	duringLogonMaxInput = 8192
)

// Conn is one accepted broker-side connection (spec.md §3 "Broker-side
// connection"). Every field that can change after accept is guarded by mu,
// the Go equivalent of the per-connection "lock" spec.md §5 describes.
type Conn struct {
	b        *Broker
	id       uint64
	kind     TransportKind
	tr       transport
	peerAddr string

	mu            sync.Mutex
	logon         LogonState
	logonFailed   bool
	isATC         bool
	logonMIN      uint32
	idents        []string // FROM callsigns this connection has logged on as; ATC may hold several
	target        string   // most recent logon's TO= (the ACFT's CDA, or an ATC's last-addressed target)
	logonDeadline time.Time
	closed        bool
}

func newConn(b *Broker, kind TransportKind, tr transport) *Conn {
	b.connSeq++
	return &Conn{
		b:             b,
		id:            b.connSeq,
		kind:          kind,
		tr:            tr,
		peerAddr:      tr.RemoteAddr(),
		logon:         LogonNone,
		logonDeadline: time.Now().Add(30 * time.Second),
	}
}

// sendMessage encodes and writes msg; a single connection's writes serialize
// naturally because wsTransport holds its own write mutex and
// tlsTransport's underlying *tls.Conn serializes concurrent Write calls
// itself, so concurrent callers (the read goroutine replying to PING, the
// route layer delivering to a recipient, the auth goroutine finishing a
// logon) never interleave partial frames.
func (c *Conn) sendMessage(msg *cpdlcmsg.Message) error {
	buf, err := textcodec.Encode(msg)
	if err != nil {
		return err
	}
	_, err = c.tr.Write(buf)
	return err
}

func (c *Conn) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	c.b.onConnClosed(c)
	c.tr.Close()
}

func (c *Conn) snapshotIdents() (isATC bool, idents []string, target string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isATC, append([]string(nil), c.idents...), c.target
}

// readLoop decodes a stream of LF-terminated messages off the transport and
// dispatches each to the broker, matching pkg/client.Client's read-loop
// shape (one goroutine per connection owning exactly one transport) rather
// than the C implementation's central poll() loop — spec.md §5's "the main
// thread blocks in poll(500ms)" becomes, in Go, one blocking Read per
// connection goroutine instead (SPEC_FULL.md §3.7).
func (c *Conn) readLoop() {
	buf := make([]byte, 0, 4096)
	tmp := make([]byte, 4096)
	for {
		n, err := c.tr.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
		}
		for {
			msg, consumed, derr := textcodec.Decode(buf)
			if derr == cpdlcmsg.ErrIncomplete {
				break
			}
			if derr != nil {
				c.b.log.WithError(derr).WithField("peer", c.peerAddr).Warn("malformed input, closing connection")
				c.close()
				return
			}
			buf = buf[consumed:]
			c.b.handleMessage(c, msg)
		}
		c.mu.Lock()
		limit := preLogonMaxInput
		if c.logon != LogonNone {
			limit = duringLogonMaxInput
		}
		c.mu.Unlock()
		if len(buf) > limit {
			c.b.log.WithField("peer", c.peerAddr).Warn("input exceeds size limit, closing connection")
			c.close()
			return
		}
		if err != nil {
			c.close()
			return
		}
	}
}

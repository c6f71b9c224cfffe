// Package client is the CPDLC client runtime of spec.md §4.4: a persistent
// TLS session to a broker, a logon state machine, a token-based send queue,
// and a message-list thread layer, split across an application goroutine
// (the caller) and a background I/O goroutine — the two-thread model of
// spec.md's overview, grounded on benburwell-firehose's TLS-dial-then-
// decode-loop Stream and generalized from its single read-only stream to a
// bidirectional send/receive session.
package client

import (
	"crypto/tls"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/openatc/cpdlcd/pkg/cpdlcmsg"
	"github.com/openatc/cpdlcd/pkg/msglist"
	"github.com/openatc/cpdlcd/pkg/textcodec"
)

// readBufMax bounds the accumulator buffer fed to textcodec.Decode; a line
// longer than this without an LF is treated as malformed, the same
// protection a real broker applies against an unbounded memory grant.
const readBufMax = 64 * 1024

// Client is one CPDLC client session.
type Client struct {
	conn *tls.Conn
	log  *logrus.Entry

	mu     sync.Mutex
	logon  logonMachine
	from   string
	to     string
	minCtr uint32

	sendQ   *sendQueue
	msgs    *msglist.List
	inbound chan *cpdlcmsg.Message

	closeOnce sync.Once
	closeCh   chan struct{}
}

// Dial opens the TCP+TLS session and starts the background I/O goroutines.
// cfg may be nil; from is this side's own callsign, used to stamp outgoing
// messages. The returned Client starts in LogonLinkAvail: the transport is
// up but no logon exchange has happened yet.
func Dial(addr string, cfg *tls.Config, from string) (*Client, error) {
	conn, err := dialTLS(addr, cfg)
	if err != nil {
		return nil, err
	}
	c := &Client{
		conn:    conn,
		log:     logrus.WithField("component", "cpdlc-client").WithField("from", from),
		from:    from,
		sendQ:   newSendQueue(64),
		msgs:    msglist.New(),
		inbound: make(chan *cpdlcmsg.Message, 64),
		closeCh: make(chan struct{}),
	}
	c.logon.state = LogonLinkAvail
	go c.writeLoop()
	go c.readLoop()
	return c, nil
}

// nextMIN assigns the next sender-local MIN, per spec.md §4's "unique per
// sender within a reasonable window" rule.
func (c *Client) nextMIN() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.minCtr++
	return c.minCtr
}

// LogonState reports the current state and sticky failure flag.
func (c *Client) LogonState() (state LogonState, failed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.logon.state, c.logon.failed
}

// Logon starts a logon exchange with target, carrying logonData as the
// LOGON= blob (credentials, station type, etc. per the broker's
// authenticator). It transitions LINK_AVAIL -> IN_PROG and enqueues the
// LOGON message; completion to COMPLETE or back to NONE happens
// asynchronously as the broker's reply arrives (see readLoop).
func (c *Client) Logon(target, logonData string) (uint64, error) {
	c.mu.Lock()
	if c.logon.state != LogonLinkAvail && c.logon.state != LogonNone {
		c.mu.Unlock()
		return 0, fmt.Errorf("client: Logon called in state %v", c.logon.state)
	}
	c.logon.advance(LogonInProgress)
	c.to = target
	min := c.minCtr + 1
	c.minCtr = min
	c.mu.Unlock()

	msg := &cpdlcmsg.Message{
		PktType:   cpdlcmsg.PktCPDLC,
		TS:        nowTimestamp(),
		MIN:       min,
		MRN:       cpdlcmsg.InvalidSeqNr,
		From:      c.from,
		To:        target,
		IsLogon:   true,
		LogonData: logonData,
	}
	return c.sendQ.Put(msg, msglist.NoThreadID), nil
}

// Logoff sends LOGOFF and immediately forces the local state to NONE — the
// client does not wait for any broker acknowledgement, per spec.md §4.4.
func (c *Client) Logoff() uint64 {
	c.mu.Lock()
	to := c.to
	min := c.minCtr + 1
	c.minCtr = min
	c.logon.logoff()
	c.mu.Unlock()

	msg := &cpdlcmsg.Message{
		PktType:  cpdlcmsg.PktCPDLC,
		TS:       nowTimestamp(),
		MIN:      min,
		MRN:      cpdlcmsg.InvalidSeqNr,
		From:     c.from,
		To:       to,
		IsLogoff: true,
	}
	return c.sendQ.Put(msg, msglist.NoThreadID)
}

// Send enqueues msg for transmission, assigning a MIN if unset and
// correlating it into the thread layer via thrID (msglist.NoThreadID opens a
// new thread). It returns the send token and the thread the message landed
// in.
func (c *Client) Send(msg *cpdlcmsg.Message, thrID msglist.ThreadID) (token uint64, thread msglist.ThreadID, err error) {
	state, _ := c.LogonState()
	if state != LogonComplete && !msg.IsLogon && !msg.IsLogoff {
		return 0, msglist.NoThreadID, errors.New("client: Send called before logon is COMPLETE")
	}
	if !msg.HasMIN() {
		msg.MIN = c.nextMIN()
	}
	if msg.From == "" {
		msg.From = c.from
	}
	if msg.To == "" {
		msg.To = c.to
	}
	if !msg.TS.Set {
		msg.TS = nowTimestamp()
	}
	thread = c.msgs.Send(msg, thrID)
	token = c.sendQ.Put(msg, thread)
	return token, thread, nil
}

// SendStatus reports a send token's delivery status.
func (c *Client) SendStatus(token uint64) SendStatus { return c.sendQ.Status(token) }

// Recv is a non-blocking dequeue of the next decoded inbound message.
func (c *Client) Recv() (*cpdlcmsg.Message, bool) {
	select {
	case m := <-c.inbound:
		return m, true
	default:
		return nil, false
	}
}

// Threads exposes the client's message-list thread layer (spec.md §4.5) for
// UI/consumer inspection.
func (c *Client) Threads() *msglist.List { return c.msgs }

// Close tears down the I/O goroutines and the underlying TLS session.
func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.closeCh) })
	c.sendQ.Close()
	return c.conn.Close()
}

func nowTimestamp() cpdlcmsg.Timestamp {
	h, m, s := time.Now().UTC().Clock()
	return cpdlcmsg.Timestamp{Set: true, Hrs: h, Mins: m, Secs: s}
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-c.closeCh:
			return
		case <-ticker.C:
			c.sendQ.Sweep(time.Now())
		case <-c.sendQ.DataAvailable:
		}
		for {
			token, msg, thread, ok := c.sendQ.PopPending()
			if !ok {
				break
			}
			buf, err := textcodec.Encode(msg)
			if err != nil {
				c.log.WithError(err).Warn("encode failed, dropping message")
				c.sendQ.MarkFailed(token)
				continue
			}
			if _, err := c.conn.Write(buf); err != nil {
				c.log.WithError(err).Warn("write failed")
				c.sendQ.MarkFailed(token)
				if thread != msglist.NoThreadID {
					c.msgs.MarkSendFailed(thread)
				}
				continue
			}
			c.sendQ.MarkSent(token)
		}
	}
}

func (c *Client) readLoop() {
	buf := make([]byte, 0, 4096)
	tmp := make([]byte, 4096)
	for {
		select {
		case <-c.closeCh:
			return
		default:
		}
		c.conn.SetReadDeadline(time.Now().Add(time.Second))
		n, err := c.conn.Read(tmp)
		if n > 0 {
			buf = append(buf, tmp[:n]...)
		}
		for {
			msg, consumed, derr := textcodec.Decode(buf)
			if derr == cpdlcmsg.ErrIncomplete {
				break
			}
			if derr != nil {
				c.log.WithError(derr).Warn("malformed message, closing connection")
				c.Close()
				return
			}
			buf = buf[consumed:]
			c.handleInbound(msg)
		}
		if len(buf) > readBufMax {
			c.log.Warn("inbound line exceeds max length, closing connection")
			c.Close()
			return
		}
		if err != nil {
			if ne, ok := err.(interface{ Timeout() bool }); ok && ne.Timeout() {
				continue
			}
			c.log.WithError(err).Info("read loop exiting")
			return
		}
	}
}

// handleInbound applies logon-state effects before handing the message to
// the thread layer and the application's Recv() queue.
func (c *Client) handleInbound(msg *cpdlcmsg.Message) {
	state, _ := c.LogonState()
	if state == LogonInProgress && msg.IsLogon {
		switch msg.LogonData {
		case "SUCCESS":
			c.mu.Lock()
			c.logon.advance(LogonComplete)
			c.mu.Unlock()
		case "FAILURE":
			c.mu.Lock()
			c.logon.fail()
			c.mu.Unlock()
		}
	}
	if msg.HasMIN() || msg.HasMRN() {
		c.msgs.HandleIncoming(msg)
	}
	select {
	case c.inbound <- msg:
	default:
		c.log.Warn("inbound queue full, dropping message")
	}
}

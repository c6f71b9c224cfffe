package broker

import (
	"sync"
	"time"

	"github.com/openatc/cpdlcd/pkg/catalog"
	"github.com/openatc/cpdlcd/pkg/cpdlcmsg"
	"github.com/openatc/cpdlcd/pkg/textcodec"
)

// nowTimestampUTC stamps a broker-originated message the way pkg/client
// stamps client-originated ones.
func nowTimestampUTC() cpdlcmsg.Timestamp {
	h, m, s := time.Now().UTC().Clock()
	return cpdlcmsg.Timestamp{Set: true, Hrs: h, Mins: m, Secs: s}
}

// deferredMsg is one message frozen onto the deferred-delivery queue: spec.md
// §3's "deferred-queued messages frozen at queue time" invariant means the
// encoded bytes are captured once, not re-rendered from the live Message at
// delivery time.
type deferredMsg struct {
	from     string
	to       string
	isATC    bool
	encoded  []byte
	size     uint64
	queuedAt time.Time
}

type deferredQueue struct {
	mu    sync.Mutex
	items []*deferredMsg
}

func (b *Broker) handleLogoff(c *Conn, msg *cpdlcmsg.Message) {
	isATC, idents, target := c.snapshotIdents()
	for _, from := range idents {
		b.clearIdentFor(from, c)
		b.runShellCmd(b.logoffCmd, from, target, c.peerAddr, isATC, c.kind)
	}
	c.mu.Lock()
	c.idents = nil
	c.logon = LogonNone
	c.mu.Unlock()
}

// routeMessage implements spec.md §4.8's routing pipeline for every message
// that isn't itself a LOGON/LOGOFF.
func (b *Broker) routeMessage(c *Conn, msg *cpdlcmsg.Message) {
	if msg.PktType == cpdlcmsg.PktPing {
		c.sendMessage(&cpdlcmsg.Message{PktType: cpdlcmsg.PktPong, MIN: cpdlcmsg.InvalidSeqNr, MRN: cpdlcmsg.InvalidSeqNr})
		return
	}
	if msg.PktType == cpdlcmsg.PktPong {
		return
	}

	c.mu.Lock()
	logon := c.logon
	isATC := c.isATC
	from := firstIdent(c.idents)
	target := c.target
	c.mu.Unlock()

	if logon != LogonComplete {
		b.log.WithField("peer", c.peerAddr).Warn("message on non-logged-on connection, closing")
		c.close()
		return
	}

	// Step 2: stamp FROM= from the authenticated identity, not whatever the
	// sender wrote (spec.md §4.8 step 2). FROM=AUTO resolves to the
	// recipient aircraft's current logon target.
	if msg.From == "" || msg.From == "AUTO" {
		if isATC && msg.To != "" {
			msg.From = b.currentTargetFor(msg.To)
		} else {
			msg.From = from
		}
	}

	if msg.HasMIN() && b.duplicateMIN(from, msg.MIN) {
		b.log.WithField("from", from).WithField("min", msg.MIN).Warn("duplicate MIN within window, dropping")
		b.metrics.messageDropped("duplicate-min")
		return
	}

	if len(msg.Segs) > 0 {
		downlink := msg.IsDownlink()
		if downlink == isATC {
			// An ATC connection must submit uplink segments, an aircraft
			// connection downlink segments (spec.md §4.8 step 4).
			b.replyError(c, msg, false)
			return
		}

		// Step 3: directionality. An aircraft may not set TO= except to
		// hand off via NOT_CURRENT_DATA_AUTHORITY; ATC must supply TO=
		// (spec.md invariant 3 and §4.8 step 3).
		if downlink {
			if msg.To != "" && !isNotCurrentDataAuthority(msg) {
				b.replyError(c, msg, true)
				return
			}
			if msg.To == "" {
				msg.To = target
			}
		} else if msg.To == "" {
			msg.To = b.currentTargetFor(from)
			if msg.To == "" {
				b.replyError(c, msg, true)
				return
			}
		}
	}

	if b.router != nil {
		fwd, newTo, err := b.router.Dispatch(c, msg)
		if err != nil {
			b.log.WithError(err).Warn("rpc router error")
		}
		if !fwd {
			b.metrics.messageDropped("rpc-router")
			return
		}
		if newTo != "" {
			msg.To = newTo
		}
	}

	b.deliver(msg)
}

// isNotCurrentDataAuthority reports whether msg is solely the DM63 "NOT
// CURRENT DATA AUTHORITY" segment, the one downlink message spec.md's
// invariant 3 exempts from the "no TO=" rule.
func isNotCurrentDataAuthority(msg *cpdlcmsg.Message) bool {
	for _, seg := range msg.Segs {
		if !(seg.Info.IsDownlink && seg.Info.MsgType == 63) {
			return false
		}
	}
	return len(msg.Segs) > 0
}

func firstIdent(idents []string) string {
	if len(idents) == 0 {
		return ""
	}
	return idents[0]
}

// currentTargetFor returns the most recently logged-on-to target recorded
// for callsign (ATC's "active target" when filling in TO=AUTO for an
// uplink, or an aircraft's CDA when completing a downlink's TO=).
func (b *Broker) currentTargetFor(callsign string) string {
	conns := b.connsForIdent(callsign)
	if len(conns) == 0 {
		return ""
	}
	_, _, target := conns[0].snapshotIdents()
	return target
}

// deliver sends msg to every connection registered under msg.To, or defers
// it if none is currently connected (spec.md §4.8 step 6).
func (b *Broker) deliver(msg *cpdlcmsg.Message) {
	conns := b.connsForIdent(msg.To)
	if len(conns) == 0 {
		b.enqueueDeferred(msg)
		return
	}
	isATCSender := false
	if senders := b.connsForIdent(msg.From); len(senders) > 0 {
		isATCSender, _, _ = senders[0].snapshotIdents()
	}
	size := 0
	if buf, err := textcodec.Encode(msg); err == nil {
		size = len(buf)
	}
	for _, c := range conns {
		if err := c.sendMessage(msg); err != nil {
			b.log.WithError(err).WithField("to", msg.To).Warn("send failed, dropping (no retry)")
			b.metrics.messageDropped("send-error")
			if b.msglog != nil {
				b.msglog.record(msg, msg.From, msg.To, isATCSender, "error-send", size)
			}
			continue
		}
		b.metrics.messageRouted()
		if b.msglog != nil {
			b.msglog.record(msg, msg.From, msg.To, isATCSender, "routed", size)
		}
	}
}

// enqueueDeferred freezes msg onto the deferred-delivery queue, subject to
// the per-sender and global byte quotas (spec.md §4.10's "queue overflow").
func (b *Broker) enqueueDeferred(msg *cpdlcmsg.Message) {
	buf, err := textcodec.Encode(msg)
	if err != nil {
		b.log.WithError(err).Warn("failed to encode message for deferred queue")
		return
	}
	size := uint64(len(buf))

	isATCSender := false
	if conns := b.connsForIdent(msg.From); len(conns) > 0 {
		isATCSender, _, _ = conns[0].snapshotIdents()
	}

	if !isATCSender && !b.quota.reserve(msg.From, size) {
		if conns := b.connsForIdent(msg.From); len(conns) > 0 {
			b.replyText(conns[0], "TOO MANY QUEUED MESSAGES", msg)
		}
		b.metrics.messageDropped("quota")
		if b.msglog != nil {
			b.msglog.record(msg, msg.From, msg.To, isATCSender, "dropped-quota", len(buf))
		}
		return
	}

	d := &deferredMsg{from: msg.From, to: msg.To, isATC: isATCSender, encoded: buf, size: size, queuedAt: time.Now()}
	b.deferred.mu.Lock()
	b.deferred.items = append(b.deferred.items, d)
	b.deferred.mu.Unlock()
	b.metrics.messageDeferred()
	if b.msglog != nil {
		b.msglog.record(msg, msg.From, msg.To, isATCSender, "deferred", len(buf))
	}
}

// processDeferredQueue is run by the broker's tick loop: it retries
// delivery for every queued message whose recipient is now connected, and
// silently drops (no sender notification, per spec.md §7) anything past
// catalog.DeferredQueueTTL seconds old.
func (b *Broker) processDeferredQueue() {
	now := time.Now()
	b.deferred.mu.Lock()
	remaining := b.deferred.items[:0]
	var toDeliver []*deferredMsg
	var toDrop []*deferredMsg
	for _, d := range b.deferred.items {
		age := now.Sub(d.queuedAt)
		switch {
		case age > catalog.DeferredQueueTTL*time.Second:
			toDrop = append(toDrop, d)
		case len(b.connsForIdent(d.to)) > 0:
			toDeliver = append(toDeliver, d)
		default:
			remaining = append(remaining, d)
		}
	}
	b.deferred.items = remaining
	b.deferred.mu.Unlock()

	for _, d := range toDrop {
		if !d.isATC {
			b.quota.release(d.from, d.size)
		}
		b.metrics.messageDropped("ttl")
	}
	for _, d := range toDeliver {
		if !d.isATC {
			b.quota.release(d.from, d.size)
		}
		b.deliverRaw(d)
	}
}

// deliverRaw writes a deferred message's already-encoded bytes directly,
// since the original Message value is not retained once queued.
func (b *Broker) deliverRaw(d *deferredMsg) {
	for _, c := range b.connsForIdent(d.to) {
		if _, err := c.tr.Write(d.encoded); err != nil {
			b.log.WithError(err).WithField("to", d.to).Warn("deferred send failed")
			b.metrics.messageDropped("send-error")
			continue
		}
		b.metrics.messageRouted()
	}
}

func (b *Broker) deferredStats() (n int, bytes uint64) {
	b.deferred.mu.Lock()
	defer b.deferred.mu.Unlock()
	for _, d := range b.deferred.items {
		bytes += d.size
	}
	return len(b.deferred.items), bytes
}

// replyError sends the protocol-semantic error reply of spec.md §7 via
// replyText: an ATC connection gets DM62 ERROR, an aircraft connection
// UM159 ERROR; directionViolation distinguishes the TO=-usage case from the
// uplink/downlink-vs-connection-kind mismatch case only in the text used.
func (b *Broker) replyError(c *Conn, orig *cpdlcmsg.Message, directionViolation bool) {
	text := "SERVICE UNAVAILABLE"
	if directionViolation {
		text = "INVALID TO= FOR THIS CONNECTION"
	}
	b.replyText(c, text, orig)
}

// replyText builds a freetext UM159/DM62 ERROR segment addressed back to
// orig's sender, referencing orig's MIN as the reply's MRN.
func (b *Broker) replyText(c *Conn, text string, orig *cpdlcmsg.Message) {
	c.mu.Lock()
	isATC := c.isATC
	c.mu.Unlock()

	// An ATC connection receives downlink-type messages, so its error reply
	// is DM62; an aircraft connection receives uplink-type messages, so its
	// error reply is UM159 (spec.md §7).
	var entry *catalog.Entry
	if isATC {
		entry = catalog.MustLookup(true, 62, 0)
	} else {
		entry = catalog.MustLookup(false, 159, 0)
	}
	reply := &cpdlcmsg.Message{
		PktType: cpdlcmsg.PktCPDLC,
		TS:      nowTimestampUTC(),
		MIN:     cpdlcmsg.InvalidSeqNr,
		MRN:     orig.MIN,
		From:    orig.To,
		To:      orig.From,
		Segs: []cpdlcmsg.Segment{{
			Info: &entry.MsgInfo,
			Args: []cpdlcmsg.Arg{{Kind: cpdlcmsg.ArgFreetext, Freetext: text}},
		}},
	}
	if err := c.sendMessage(reply); err != nil {
		b.log.WithError(err).Warn("failed to send error reply")
	}
}

// Package broker implements the CPDLC broker server of spec.md §4.6-§4.10,
// §5, §6.4-§6.7: accepting raw-TLS and WebSocket connections, driving the
// LOGON handshake against an HTTP authenticator, routing messages between
// authenticated identities (with deferred delivery and per-sender quota),
// an optional RPC router, and the broker's persisted state (logon list,
// sqlite message log).
//
// Where spec.md's C implementation centers on one poll(2) loop multiplexing
// every socket and auth worker by hand, this package leans on goroutines:
// one read goroutine per connection (mirroring pkg/client.Client's own
// read-loop shape) plus one goroutine per in-flight auth request, all
// synchronizing through the registries' mutexes rather than a wakeup pipe
// and pollfd array (SPEC_FULL.md §3.7).
package broker

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/openatc/cpdlcd/internal/config"
	"github.com/openatc/cpdlcd/internal/keyfile"
	"github.com/openatc/cpdlcd/pkg/cpdlcmsg"
)

// minWindow is how long a sender's MIN is remembered for duplicate
// detection; spec.md's "unique per sender within a reasonable window"
// invariant doesn't fix a duration, so this matches the deferred-delivery
// TTL the broker already uses for its other "reasonable window" (§3).
const minWindow = 600 * time.Second

// Broker is the top-level server: connection registries, routing state, and
// the ambient subsystems (metrics, message log, RPC router, blocklist)
// described in spec.md §3 "Broker-side state" and SPEC_FULL.md §3.7.
type Broker struct {
	log *logrus.Entry
	cfg *config.Config

	connSeq uint64

	connsTLSMu sync.RWMutex
	connsTLS   map[*Conn]struct{}

	connsWSMu sync.RWMutex
	connsWS   map[*Conn]struct{}

	identMu sync.RWMutex
	byFrom  map[string][]*Conn

	dirtyMu sync.Mutex
	dirty   bool // identity map changed since the logon-list file was last written

	deferred deferredQueue
	minSeen  *cache.Cache // per-sender MIN uniqueness window, keyed "from:min"

	quota     *quotaTracker
	blocklist *blocklist
	metrics   *metrics
	msglog    *msgLog
	router    *rpcRouter
	logonCmd  string
	logoffCmd string
	logonList string

	authURL string

	listeners []*tcpListener
	wsServers []*wsServer

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New builds a Broker from a parsed configuration file but does not yet
// open any listener; call Run to start serving.
func New(cfg *config.Config, log *logrus.Entry) (*Broker, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}
	b := &Broker{
		log:       log.WithField("component", "broker"),
		cfg:       cfg,
		connsTLS:  make(map[*Conn]struct{}),
		connsWS:   make(map[*Conn]struct{}),
		byFrom:    make(map[string][]*Conn),
		authURL:   cfg.String("auth/url", ""),
		logonCmd:  cfg.String("logon_cmd", ""),
		logoffCmd: cfg.String("logoff_cmd", ""),
		logonList: cfg.String("logon_list_file", ""),
		minSeen:   cache.New(minWindow, minWindow/2),
		stopCh:    make(chan struct{}),
	}

	quotaPerSender, err := cfg.Bytes("msgqueue/quota", 0)
	if err != nil {
		return nil, fmt.Errorf("broker: %w", err)
	}
	quotaGlobal, err := cfg.Bytes("msgqueue/max", 0)
	if err != nil {
		return nil, fmt.Errorf("broker: %w", err)
	}
	b.quota = newQuotaTracker(quotaPerSender, quotaGlobal)

	if path := cfg.String("blocklist", ""); path != "" {
		b.blocklist = newBlocklist(path)
		if err := b.blocklist.reload(); err != nil {
			b.log.WithError(err).Warn("initial blocklist load failed")
		}
	}

	b.metrics = newMetrics()

	if path := cfg.String("msglog", ""); path != "" {
		ml, err := openMsgLog(path)
		if err != nil {
			return nil, fmt.Errorf("broker: msglog: %w", err)
		}
		b.msglog = ml
	}

	if url := cfg.String("msg_router/rpc/url", ""); url != "" {
		minT, _ := cfg.Int("msg_router/min_threads", 2)
		maxT, _ := cfg.Int("msg_router/max_threads", 8)
		stopDelay, _ := cfg.Int("msg_router/stop_delay", 30)
		b.router = newRPCRouter(url, minT, maxT, time.Duration(stopDelay)*time.Second, b.log)
	}

	return b, nil
}

// buildTLSConfig constructs the broker's server-side tls.Config from the
// tls/* keys of spec.md §6.3/§6.5: certificate+key (optionally passphrase
// protected per internal/keyfile's enctype matrix), optional client CA and
// CRL-based verification.
func (b *Broker) buildTLSConfig() (*tls.Config, error) {
	certPath := b.cfg.String("tls/certfile", "")
	keyPath := b.cfg.String("tls/keyfile", "")
	if certPath == "" || keyPath == "" {
		return nil, fmt.Errorf("broker: tls/certfile and tls/keyfile are required")
	}

	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("broker: read certfile: %w", err)
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("broker: read keyfile: %w", err)
	}

	enctype, err := keyfile.ParseEncType(b.cfg.String("tls/keyfile_enctype", ""))
	if err != nil {
		return nil, fmt.Errorf("broker: %w", err)
	}
	keyDER, err := keyfile.Decrypt(keyPEM, enctype, b.cfg.String("tls/keyfile_pass", ""))
	if err != nil {
		return nil, fmt.Errorf("broker: decrypt keyfile: %w", err)
	}

	cert, err := tlsCertificateFromDER(certPEM, keyDER)
	if err != nil {
		return nil, fmt.Errorf("broker: build certificate: %w", err)
	}

	tlsCfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	if cafile := b.cfg.String("tls/cafile", ""); cafile != "" {
		pool := x509.NewCertPool()
		caPEM, err := os.ReadFile(cafile)
		if err != nil {
			return nil, fmt.Errorf("broker: read cafile: %w", err)
		}
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("broker: cafile contains no usable certificates")
		}
		tlsCfg.ClientCAs = pool
	}

	if b.cfg.Bool("tls/req_client_cert") {
		tlsCfg.ClientAuth = tls.RequireAndVerifyClientCert
	}

	if crlPath := b.cfg.String("tls/crlfile", ""); crlPath != "" {
		revoked, err := loadCRL(crlPath)
		if err != nil {
			return nil, fmt.Errorf("broker: load crlfile: %w", err)
		}
		tlsCfg.VerifyPeerCertificate = revocationCheck(revoked)
	}

	return tlsCfg, nil
}

// Run opens every configured listener and blocks until ctx is canceled or
// Shutdown is called.
func (b *Broker) Run(ctx context.Context) error {
	tlsCfg, err := b.buildTLSConfig()
	if err != nil {
		return err
	}

	for label, hostport := range b.cfg.Sub("listen/tcp") {
		l, err := newTCPListener(b, label, hostport, tlsCfg)
		if err != nil {
			return fmt.Errorf("broker: listen/tcp/%s: %w", label, err)
		}
		b.listeners = append(b.listeners, l)
		b.wg.Add(1)
		go func(l *tcpListener) {
			defer b.wg.Done()
			l.serve()
		}(l)
	}

	for label, hostport := range b.cfg.Sub("listen/lws") {
		s, err := newWSServer(b, label, hostport)
		if err != nil {
			return fmt.Errorf("broker: listen/lws/%s: %w", label, err)
		}
		b.wsServers = append(b.wsServers, s)
		b.wg.Add(1)
		go func(s *wsServer) {
			defer b.wg.Done()
			s.serve()
		}(s)
	}

	b.wg.Add(1)
	go b.tickLoop()

	select {
	case <-ctx.Done():
	case <-b.stopCh:
	}
	b.Shutdown()
	return nil
}

// Shutdown closes every listener and connection.
func (b *Broker) Shutdown() {
	select {
	case <-b.stopCh:
		return // already shutting down
	default:
		close(b.stopCh)
	}
	for _, l := range b.listeners {
		l.close()
	}
	for _, s := range b.wsServers {
		s.close()
	}
	if b.router != nil {
		b.router.close()
	}
	if b.msglog != nil {
		b.msglog.Close()
	}
	b.wg.Wait()
}

// tickLoop drives the periodic broker-side work spec.md §4.9 assigns to the
// main poll loop: deferred-queue sweep, blocklist reload, logon-grace
// expiry, and the logon-list file rewrite.
func (b *Broker) tickLoop() {
	defer b.wg.Done()
	t := time.NewTicker(500 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-b.stopCh:
			return
		case <-t.C:
			b.processDeferredQueue()
			n, bytes := b.deferredStats()
			b.metrics.setQueueStats(n, bytes)
			b.checkLogonGrace()
			if b.blocklist != nil {
				if changed, err := b.blocklist.reloadIfChanged(); err != nil {
					b.log.WithError(err).Warn("blocklist reload failed")
				} else if changed {
					b.closeBlockedConns()
				}
			}
			b.maybeWriteLogonList()
		}
	}
}

func (b *Broker) checkLogonGrace() {
	now := time.Now()
	for _, c := range b.snapshotAllConns() {
		c.mu.Lock()
		expired := c.logon != LogonComplete && now.After(c.logonDeadline)
		c.mu.Unlock()
		if expired {
			b.log.WithField("peer", c.peerAddr).Info("logon grace expired, closing")
			c.close()
		}
	}
}

func (b *Broker) closeBlockedConns() {
	for _, c := range b.snapshotAllConns() {
		if b.blocklist.isBlocked(c.peerAddr) {
			c.close()
		}
	}
}

func (b *Broker) snapshotAllConns() []*Conn {
	var out []*Conn
	b.connsTLSMu.RLock()
	for c := range b.connsTLS {
		out = append(out, c)
	}
	b.connsTLSMu.RUnlock()
	b.connsWSMu.RLock()
	for c := range b.connsWS {
		out = append(out, c)
	}
	b.connsWSMu.RUnlock()
	return out
}

// onConnAccepted registers a freshly accepted connection and starts its
// read loop.
func (b *Broker) onConnAccepted(c *Conn) {
	switch c.kind {
	case TransportTLS:
		b.connsTLSMu.Lock()
		b.connsTLS[c] = struct{}{}
		b.connsTLSMu.Unlock()
	case TransportWS:
		b.connsWSMu.Lock()
		b.connsWS[c] = struct{}{}
		b.connsWSMu.Unlock()
	}
	b.metrics.connAccepted(c.kind)
	go c.readLoop()
}

// onConnClosed releases a connection from every registry it may appear in,
// firing logoff_cmd for each identity it held (spec.md §5's "release ...
// removes the connection from all identity multi-maps (firing the
// logoff_cmd)").
func (b *Broker) onConnClosed(c *Conn) {
	switch c.kind {
	case TransportTLS:
		b.connsTLSMu.Lock()
		delete(b.connsTLS, c)
		b.connsTLSMu.Unlock()
	case TransportWS:
		b.connsWSMu.Lock()
		delete(b.connsWS, c)
		b.connsWSMu.Unlock()
	}
	isATC, idents, target := c.snapshotIdents()
	for _, from := range idents {
		b.clearIdentFor(from, c)
		b.runShellCmd(b.logoffCmd, from, target, c.peerAddr, isATC, c.kind)
	}
	b.metrics.connClosed(c.kind)
}

// registerIdent adds c under the "from" multi-map key, marking the logon
// list dirty.
func (b *Broker) registerIdent(from string, c *Conn) {
	b.identMu.Lock()
	b.byFrom[from] = append(b.byFrom[from], c)
	b.identMu.Unlock()
	b.markDirty()
}

// clearIdentFor removes one connection's registration under from.
func (b *Broker) clearIdentFor(from string, c *Conn) {
	b.identMu.Lock()
	conns := b.byFrom[from]
	for i, cc := range conns {
		if cc == c {
			b.byFrom[from] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(b.byFrom[from]) == 0 {
		delete(b.byFrom, from)
	}
	b.identMu.Unlock()
	b.markDirty()
}

// clearIdentsOf removes every identity registration held by c. Re-logon
// (auth.go's step 3) clears registrations one identity at a time through
// clearIdentFor instead.
func (b *Broker) clearIdentsOf(c *Conn) {
	_, idents, _ := c.snapshotIdents()
	for _, from := range idents {
		b.clearIdentFor(from, c)
	}
}

// duplicateMIN reports whether min was already seen from this sender within
// minWindow, recording it for next time if not. cache.Add is the atomic
// check-and-set this needs: it fails (no-ops) if the key already exists,
// unlike Get-then-Set which would race two readLoop goroutines delivering
// the same sender's messages concurrently.
func (b *Broker) duplicateMIN(from string, min uint32) bool {
	if from == "" {
		return false
	}
	key := fmt.Sprintf("%s:%d", from, min)
	return b.minSeen.Add(key, struct{}{}, cache.DefaultExpiration) != nil
}

func (b *Broker) connsForIdent(from string) []*Conn {
	b.identMu.RLock()
	defer b.identMu.RUnlock()
	return append([]*Conn(nil), b.byFrom[from]...)
}

func (b *Broker) markDirty() {
	b.dirtyMu.Lock()
	b.dirty = true
	b.dirtyMu.Unlock()
}

func (b *Broker) maybeWriteLogonList() {
	if b.logonList == "" {
		return
	}
	b.dirtyMu.Lock()
	if !b.dirty {
		b.dirtyMu.Unlock()
		return
	}
	b.dirty = false
	b.dirtyMu.Unlock()

	if err := b.writeLogonList(b.logonList); err != nil {
		b.log.WithError(err).Warn("failed to write logon list file")
	}
}

// handleMessage is the single dispatch point every connection's read loop
// funnels into: LOGON/LOGOFF are handled by auth.go and route.go's
// handleLogoff, everything else (PING included, which routeMessage answers
// with PONG) by route.go.
func (b *Broker) handleMessage(c *Conn, msg *cpdlcmsg.Message) {
	switch {
	case msg.IsLogon:
		b.handleLogon(c, msg)
	case msg.IsLogoff:
		b.handleLogoff(c, msg)
	default:
		b.routeMessage(c, msg)
	}
}

// ReopenMsgLog closes and reopens the sqlite-backed message log, the
// broker's response to SIGHUP (spec.md §6.6).
func (b *Broker) ReopenMsgLog() error {
	if b.msglog == nil {
		return nil
	}
	return b.msglog.Reopen()
}

// Stats is a point-in-time snapshot for operator tooling (cmd/cpdlc-console).
type Stats struct {
	TLSConns      int
	WSConns       int
	Identities    int
	DeferredMsgs  int
	DeferredBytes uint64
}

// Stats reports current connection/queue counts.
func (b *Broker) Stats() Stats {
	b.connsTLSMu.RLock()
	tlsN := len(b.connsTLS)
	b.connsTLSMu.RUnlock()
	b.connsWSMu.RLock()
	wsN := len(b.connsWS)
	b.connsWSMu.RUnlock()
	b.identMu.RLock()
	idents := len(b.byFrom)
	b.identMu.RUnlock()
	n, bytes := b.deferredStats()
	return Stats{TLSConns: tlsN, WSConns: wsN, Identities: idents, DeferredMsgs: n, DeferredBytes: bytes}
}

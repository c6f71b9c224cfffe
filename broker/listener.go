package broker

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/net/netutil"

	"github.com/openatc/cpdlcd/internal/config"
)

// maxConnsPerListener bounds one raw-TLS listener's concurrently accepted
// connections via golang.org/x/net/netutil.LimitListener, the Go-idiomatic
// substitute for hand-tracking an fd count against a configured ceiling.
const maxConnsPerListener = 4096

// tcpListener is one listen/tcp/<label> entry: a TLS listener wrapped in a
// connection-count limiter.
type tcpListener struct {
	b     *Broker
	label string
	ln    net.Listener
}

func newTCPListener(b *Broker, label, hostport string, tlsCfg *tls.Config) (*tcpListener, error) {
	host, port, err := config.ParseHostPort(hostport, config.DefaultTLSPort)
	if err != nil {
		return nil, err
	}
	raw, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return nil, err
	}
	limited := netutil.LimitListener(raw, maxConnsPerListener)
	return &tcpListener{b: b, label: label, ln: tls.NewListener(limited, tlsCfg)}, nil
}

func (l *tcpListener) serve() {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			l.b.log.WithError(err).WithField("listener", l.label).Warn("accept failed")
			continue
		}

		addr := conn.RemoteAddr().String()
		if l.b.blocklist != nil && l.b.blocklist.isBlocked(addr) {
			conn.Close()
			continue
		}

		tc, ok := conn.(*tls.Conn)
		if ok {
			tc.SetDeadline(time.Now().Add(10 * time.Second))
			if err := tc.Handshake(); err != nil {
				l.b.log.WithError(err).WithField("peer", addr).Info("tls handshake failed")
				conn.Close()
				continue
			}
			tc.SetDeadline(time.Time{})
		}

		c := newConn(l.b, TransportTLS, &tlsTransport{conn: conn})
		l.b.onConnAccepted(c)
	}
}

func (l *tcpListener) close() { l.ln.Close() }

// wsServer is one listen/lws/<label> entry: an http.Server upgrading every
// request to a WebSocket connection via gorilla/websocket.
type wsServer struct {
	b        *Broker
	label    string
	srv      *http.Server
	upgrader websocket.Upgrader
}

func newWSServer(b *Broker, label, hostport string) (*wsServer, error) {
	host, port, err := config.ParseHostPort(hostport, config.DefaultWSPort)
	if err != nil {
		return nil, err
	}
	s := &wsServer{
		b:     b,
		label: label,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleUpgrade)
	s.srv = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: mux,
	}
	return s, nil
}

func (s *wsServer) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	addr, _, _ := net.SplitHostPort(r.RemoteAddr)
	if s.b.blocklist != nil && s.b.blocklist.isBlocked(addr) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.b.log.WithError(err).WithField("listener", s.label).Info("websocket upgrade failed")
		return
	}
	c := newConn(s.b, TransportWS, newWSTransport(wsConn))
	s.b.onConnAccepted(c)
}

func (s *wsServer) serve() {
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.b.log.WithError(err).WithField("listener", s.label).Warn("websocket server exited")
	}
}

func (s *wsServer) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.srv.Shutdown(ctx)
}

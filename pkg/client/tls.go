package client

import (
	"crypto/tls"
	"fmt"
	"net"
	"time"
)

// DialTimeout bounds the TCP+TLS handshake phase (LogonConnectingLink
// through LogonHandshakingLink); exceeding it fails the logon attempt.
const DialTimeout = 15 * time.Second

// dialTLS opens the raw TCP connection and performs the TLS handshake, the
// Go equivalent of benburwell-firehose's tls.Dial(network, addr, cfg) call
// in Connect(). cfg may be nil to use the platform root trust store, with
// the server name taken from addr's host part; callers
// that need to present a client certificate (the TLS-mutual-auth case of
// spec.md §4.6) pass one built by internal/keyfile.
func dialTLS(addr string, cfg *tls.Config) (*tls.Conn, error) {
	dialer := &net.Dialer{Timeout: DialTimeout}
	rawConn, err := dialer.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", addr, err)
	}
	if cfg == nil {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}
		cfg = &tls.Config{ServerName: host}
	}
	conn := tls.Client(rawConn, cfg)
	if err := conn.SetDeadline(time.Now().Add(DialTimeout)); err != nil {
		rawConn.Close()
		return nil, err
	}
	if err := conn.Handshake(); err != nil {
		rawConn.Close()
		return nil, fmt.Errorf("client: TLS handshake with %s: %w", addr, err)
	}
	if err := conn.SetDeadline(time.Time{}); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

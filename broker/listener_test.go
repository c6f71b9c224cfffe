package broker

import (
	"bufio"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"strings"
	"testing"
	"time"
)

// selfSignedTLSConfig builds a throwaway in-memory server certificate, since
// the listener's accept loop needs a real *tls.Config to hand to
// tls.NewListener.
func selfSignedTLSConfig(t *testing.T) *tls.Config {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "cpdlcd-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	cert := tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
	return &tls.Config{Certificates: []tls.Certificate{cert}}
}

func TestTCPListenerAcceptsAndRoutesPingPong(t *testing.T) {
	b := testBroker(t)
	defer b.Shutdown()

	l, err := newTCPListener(b, "test", "127.0.0.1:0", selfSignedTLSConfig(t))
	if err != nil {
		t.Fatalf("newTCPListener: %v", err)
	}
	defer l.close()
	go l.serve()

	addr := l.ln.Addr().String()
	conn, err := tls.Dial("tcp", addr, &tls.Config{InsecureSkipVerify: true})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("PKT=PING/TS=120000\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("read reply: %v", err)
	}
	if !strings.Contains(line, "PKT=PONG") {
		t.Fatalf("expected PONG reply, got %q", line)
	}
}

func TestTCPListenerRejectsBlockedPeer(t *testing.T) {
	b := testBroker(t)
	defer b.Shutdown()

	bl := newBlocklist("")
	bl.entries = map[string]struct{}{"127.0.0.1": {}}
	b.blocklist = bl

	l, err := newTCPListener(b, "test", "127.0.0.1:0", selfSignedTLSConfig(t))
	if err != nil {
		t.Fatalf("newTCPListener: %v", err)
	}
	defer l.close()
	go l.serve()

	addr := l.ln.Addr().String()
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 16)
	if n, err := conn.Read(buf); err == nil && n > 0 {
		t.Fatalf("expected the blocked connection to be closed without a TLS handshake, got %d bytes", n)
	}
}

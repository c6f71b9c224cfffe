package config

import (
	"strings"
	"testing"
)

const sampleConfig = `
# comment line, ignored
tls/keyfile = /etc/cpdlcd/server.key
tls/req_client_cert = true

listen/tcp/default = 0.0.0.0:17622
listen/lws/default = [::]:17623

msgqueue/quota = 2g
msgqueue/max = 128k
msg_router/min_threads = 4
`

func mustParse(t *testing.T, s string) *Config {
	t.Helper()
	cfg, err := Parse(strings.NewReader(s))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return cfg
}

func TestParseBasicKeys(t *testing.T) {
	cfg := mustParse(t, sampleConfig)
	if v, ok := cfg.Get("tls/keyfile"); !ok || v != "/etc/cpdlcd/server.key" {
		t.Errorf("tls/keyfile = %q, %v", v, ok)
	}
	if !cfg.Bool("tls/req_client_cert") {
		t.Error("tls/req_client_cert should be true")
	}
	if cfg.Bool("tls/cafile") {
		t.Error("absent key should read as false")
	}
}

func TestParseRejectsMissingEquals(t *testing.T) {
	_, err := Parse(strings.NewReader("not_a_kv_line"))
	if err == nil {
		t.Fatal("expected an error for a line with no '='")
	}
}

func TestSubGroupsByPrefix(t *testing.T) {
	cfg := mustParse(t, sampleConfig)
	tcp := cfg.Sub("listen/tcp")
	if tcp["default"] != "0.0.0.0:17622" {
		t.Errorf("listen/tcp/default = %q", tcp["default"])
	}
	lws := cfg.Sub("listen/lws")
	if lws["default"] != "[::]:17623" {
		t.Errorf("listen/lws/default = %q", lws["default"])
	}
}

func TestBytesParsesSuffixes(t *testing.T) {
	cfg := mustParse(t, sampleConfig)
	quota, err := cfg.Bytes("msgqueue/quota", 0)
	if err != nil {
		t.Fatalf("Bytes(quota): %v", err)
	}
	if quota != 2*1<<30 {
		t.Errorf("msgqueue/quota = %d, want %d", quota, 2*uint64(1)<<30)
	}
	max, err := cfg.Bytes("msgqueue/max", 0)
	if err != nil {
		t.Fatalf("Bytes(max): %v", err)
	}
	if max != 128*1024 {
		t.Errorf("msgqueue/max = %d, want %d", max, 128*1024)
	}
}

func TestIntParsesDecimal(t *testing.T) {
	cfg := mustParse(t, sampleConfig)
	n, err := cfg.Int("msg_router/min_threads", 1)
	if err != nil || n != 4 {
		t.Errorf("Int(min_threads) = %d, %v, want 4, nil", n, err)
	}
	def, err := cfg.Int("msg_router/max_threads", 16)
	if err != nil || def != 16 {
		t.Errorf("Int(missing key) = %d, %v, want default 16, nil", def, err)
	}
}

func TestParseHostPortBracketedIPv6(t *testing.T) {
	host, port, err := ParseHostPort("[::1]:4096", DefaultTLSPort)
	if err != nil {
		t.Fatalf("ParseHostPort: %v", err)
	}
	if host != "::1" || port != 4096 {
		t.Errorf("got host=%q port=%d, want ::1/4096", host, port)
	}
}

func TestParseHostPortDefaultsPort(t *testing.T) {
	host, port, err := ParseHostPort("broker.example.com", DefaultWSPort)
	if err != nil {
		t.Fatalf("ParseHostPort: %v", err)
	}
	if host != "broker.example.com" || port != DefaultWSPort {
		t.Errorf("got host=%q port=%d, want default port %d", host, port, DefaultWSPort)
	}
}

func TestParseHostPortPlainIPv4(t *testing.T) {
	host, port, err := ParseHostPort("0.0.0.0:17622", DefaultTLSPort)
	if err != nil {
		t.Fatalf("ParseHostPort: %v", err)
	}
	if host != "0.0.0.0" || port != 17622 {
		t.Errorf("got host=%q port=%d", host, port)
	}
}

// Package config loads the broker's configuration file: the flat
// `key/subkey = value` properties format of spec.md §6.5, the format the
// original C implementation's libacfutils conf_t reader uses (confirmed
// against original_source). No YAML/TOML/INI library in the example pack
// matches this slash-namespaced, flat-file grammar, so the reader is
// hand-written on top of bufio.Scanner — see DESIGN.md for why no
// third-party config library was reached for instead.
package config

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Default listener ports per spec.md §6.5.
const (
	DefaultTLSPort = 17622
	DefaultWSPort  = 17623
)

// Config is a parsed properties file: a flat map from slash-namespaced key
// (e.g. "listen/tcp/default", "tls/keyfile") to its raw string value.
type Config struct {
	values map[string]string
}

// Parse reads the properties format from r: one `key = value` pair per
// line, blank lines and lines starting with '#' ignored, surrounding
// whitespace around key and value trimmed.
func Parse(r io.Reader) (*Config, error) {
	cfg := &Config{values: make(map[string]string)}
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			return nil, fmt.Errorf("config: line %d: missing '=' in %q", lineNo, line)
		}
		key := strings.TrimSpace(line[:eq])
		val := strings.TrimSpace(line[eq+1:])
		if key == "" {
			return nil, fmt.Errorf("config: line %d: empty key", lineNo)
		}
		cfg.values[key] = val
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Load reads and parses the config file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Get returns a key's raw value and whether it was present.
func (c *Config) Get(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// String returns a key's value, or def if absent.
func (c *Config) String(key, def string) string {
	if v, ok := c.values[key]; ok {
		return v
	}
	return def
}

// Bool parses a key as a boolean ("true"/"1" are true; anything else,
// including absence, is false).
func (c *Config) Bool(key string) bool {
	v, ok := c.values[key]
	if !ok {
		return false
	}
	return v == "true" || v == "1"
}

// Int parses a key as a decimal integer, or returns def if absent.
func (c *Config) Int(key string, def int) (int, error) {
	v, ok := c.values[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: bad integer %q for %s: %w", v, key, err)
	}
	return n, nil
}

// Bytes parses a key using a K/M/G/T/E/P byte-suffix grammar (spec.md
// §6.5's msgqueue/quota and msgqueue/max), or returns def if absent. A bare
// single-letter suffix is binary: "128k" is 128*1024, "2g" is 2*1024^3.
func (c *Config) Bytes(key string, def uint64) (uint64, error) {
	v, ok := c.values[key]
	if !ok {
		return def, nil
	}
	s := strings.ToLower(strings.TrimSpace(v))
	if s != "" && strings.IndexByte("kmgtpe", s[len(s)-1]) >= 0 {
		s += "ib"
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("config: bad byte size %q for %s: %w", v, key, err)
	}
	return n, nil
}

// Sub returns every key's suffix -> value for keys of the form
// "prefix/<suffix>" — the mechanism behind `listen/tcp/<label>` and
// `listen/lws/<label>`'s per-listener label dispatch.
func (c *Config) Sub(prefix string) map[string]string {
	out := make(map[string]string)
	want := prefix + "/"
	for k, v := range c.values {
		if strings.HasPrefix(k, want) {
			out[strings.TrimPrefix(k, want)] = v
		}
	}
	return out
}

// ParseHostPort splits a "host:port" or bracketed-IPv6 "[host]:port"
// string, per spec.md §8's boundary law: `"[::1]:4096" -> host="::1",
// port=4096`. A bare host with no port uses defaultPort.
func ParseHostPort(hostport string, defaultPort int) (host string, port int, err error) {
	h, p, splitErr := net.SplitHostPort(hostport)
	if splitErr == nil {
		n, convErr := strconv.Atoi(p)
		if convErr != nil {
			return "", 0, fmt.Errorf("config: bad port in %q: %w", hostport, convErr)
		}
		return h, n, nil
	}
	// No ":port" present at all; treat the (possibly bracketed, bare) host
	// as-is and fall back to the caller's default port.
	host = strings.TrimSuffix(strings.TrimPrefix(hostport, "["), "]")
	return host, defaultPort, nil
}

// Package textcodec encodes and decodes CPDLC messages to/from the
// human-readable keyed-field text wire form described in spec.md §4.1:
// a single LF-terminated line of `/`-separated `KEY=VALUE` fields.
package textcodec

import (
	"fmt"
	"strings"
)

// escapeAllowed mirrors cpdlc_escape_percent's pass-through alphabet:
// alphanumerics plus '.' and ','.
func escapeAllowed(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '.' || c == ',':
		return true
	default:
		return false
	}
}

// Escape percent-encodes s for embedding as a field value: everything
// outside the restricted alphanum+'.'+',' alphabet becomes "%hh" in
// lowercase hex.
func Escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escapeAllowed(c) {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02x", c)
		}
	}
	return b.String()
}

// Unescape reverses Escape. A bare '%' not followed by two hex digits, or a
// "%00" sequence (NUL byte), is an error.
func Unescape(s string) (string, error) {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		if i+2 >= len(s) {
			return "", fmt.Errorf("textcodec: truncated %%-escape at offset %d", i)
		}
		hi, ok1 := hexVal(s[i+1])
		lo, ok2 := hexVal(s[i+2])
		if !ok1 || !ok2 {
			return "", fmt.Errorf("textcodec: invalid %%-escape at offset %d", i)
		}
		v := byte(hi<<4 | lo)
		if v == 0 {
			return "", fmt.Errorf("textcodec: %%00 byte is invalid")
		}
		b.WriteByte(v)
		i += 2
	}
	return b.String(), nil
}

func hexVal(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	default:
		return 0, false
	}
}

package bitio

import (
	"bytes"
	"testing"
)

func TestWriteReadBitsRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteBits(0b101, 3)
	w.WriteBits(0x2a, 8)
	w.WriteBool(true)
	w.WriteBool(false)
	w.WriteBits(0x3ff, 10)
	buf := w.Bytes()

	r := NewReader(buf)
	if v, err := r.ReadBits(3); err != nil || v != 0b101 {
		t.Fatalf("ReadBits(3) = %d, %v", v, err)
	}
	if v, err := r.ReadBits(8); err != nil || v != 0x2a {
		t.Fatalf("ReadBits(8) = %d, %v", v, err)
	}
	if v, err := r.ReadBool(); err != nil || !v {
		t.Fatalf("ReadBool = %v, %v", v, err)
	}
	if v, err := r.ReadBool(); err != nil || v {
		t.Fatalf("ReadBool = %v, %v", v, err)
	}
	if v, err := r.ReadBits(10); err != nil || v != 0x3ff {
		t.Fatalf("ReadBits(10) = %d, %v", v, err)
	}
}

func TestWriteBytesAligns(t *testing.T) {
	w := NewWriter()
	w.WriteBits(0b1, 1)
	w.WriteBytes([]byte{0xde, 0xad})
	buf := w.Bytes()
	if len(buf) != 3 {
		t.Fatalf("expected 3 bytes, got %d (%x)", len(buf), buf)
	}
	if !bytes.Equal(buf[1:], []byte{0xde, 0xad}) {
		t.Fatalf("unexpected payload bytes: %x", buf[1:])
	}
}

func TestReadPastEndErrors(t *testing.T) {
	r := NewReader([]byte{0x01})
	if _, err := r.ReadBits(16); err != ErrShortRead {
		t.Fatalf("expected ErrShortRead, got %v", err)
	}
}

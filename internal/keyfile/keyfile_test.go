package keyfile

import (
	"bytes"
	"crypto/cipher"
	"crypto/des"
	"crypto/rand"
	"crypto/rc4"
	"crypto/x509"
	"encoding/pem"
	"testing"
)

func TestParseEncType(t *testing.T) {
	cases := map[string]EncType{
		"":             EncPlain,
		"plain":        EncPlain,
		"PBES2-3DES":   EncPBES2_3DES,
		"PBES2-AES128": EncPBES2_AES128,
		"PBES2-AES192": EncPBES2_AES192,
		"PBES2-AES256": EncPBES2_AES256,
		"PKCS12-RC4":   EncPKCS12_RC4,
		"PKCS12-3DES":  EncPKCS12_3DES,
	}
	for in, want := range cases {
		got, err := ParseEncType(in)
		if err != nil {
			t.Errorf("ParseEncType(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseEncType(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseEncType("bogus"); err == nil {
		t.Error("expected error for unknown enctype")
	}
}

func TestEncTypeStringCoversAllValues(t *testing.T) {
	for e := EncPlain; e <= EncPKCS12_3DES; e++ {
		if got := e.String(); got == "UNKNOWN" {
			t.Errorf("EncType(%d).String() = UNKNOWN", e)
		}
	}
}

func TestDecryptPlain(t *testing.T) {
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: []byte("fake-der-bytes")}
	der, err := Decrypt(pem.EncodeToMemory(block), EncPlain, "")
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(der, block.Bytes) {
		t.Errorf("got %q, want %q", der, block.Bytes)
	}
}

func TestDecryptLegacyPEMRoundTrip(t *testing.T) {
	der := []byte("some private key DER payload, padded to a few blocks of content")
	passphrase := "correct horse battery staple"

	encBlock, err := x509.EncryptPEMBlock(rand.Reader, "RSA PRIVATE KEY", der, []byte(passphrase), x509.PEMCipherAES256) //nolint:staticcheck
	if err != nil {
		t.Fatalf("EncryptPEMBlock: %v", err)
	}

	got, err := Decrypt(pem.EncodeToMemory(encBlock), EncPBES2_AES256, passphrase)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(got, der) {
		t.Errorf("round trip mismatch: got %q, want %q", got, der)
	}

	if _, err := Decrypt(pem.EncodeToMemory(encBlock), EncPBES2_AES256, "wrong password"); err == nil {
		t.Error("expected error decrypting with wrong passphrase")
	}
}

func TestPKCS12KDFDeterministic(t *testing.T) {
	salt := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	a := pkcs12KDF("hunter2", salt, 2048, 1, 16)
	b := pkcs12KDF("hunter2", salt, 2048, 1, 16)
	if !bytes.Equal(a, b) {
		t.Error("pkcs12KDF is not deterministic for identical inputs")
	}
	c := pkcs12KDF("different", salt, 2048, 1, 16)
	if bytes.Equal(a, c) {
		t.Error("pkcs12KDF produced identical output for different passwords")
	}
	if len(a) != 16 {
		t.Errorf("len(a) = %d, want 16", len(a))
	}
}

func TestDecryptPKCS12RC4RoundTrip(t *testing.T) {
	salt := bytes.Repeat([]byte{0x42}, 8)
	passphrase := "hunter2"
	plain := []byte("private key octets for RC4 round trip test case")

	key := pkcs12KDF(passphrase, salt, 2048, 1, 16)
	c, err := rc4.NewCipher(key)
	if err != nil {
		t.Fatalf("rc4.NewCipher: %v", err)
	}
	ciphertext := make([]byte, len(plain))
	c.XORKeyStream(ciphertext, plain)

	der, err := decryptPKCS12(append(append([]byte{}, salt...), ciphertext...), passphrase, pkcs12CipherRC4)
	if err != nil {
		t.Fatalf("decryptPKCS12: %v", err)
	}
	if !bytes.Equal(der, plain) {
		t.Errorf("got %q, want %q", der, plain)
	}
}

func TestDecryptPKCS123DESRoundTrip(t *testing.T) {
	salt := bytes.Repeat([]byte{0x7a}, 8)
	passphrase := "hunter2"
	plain := []byte("a 3des plaintext payload needing pkcs7 padding")

	key := pkcs12KDF(passphrase, salt, 2048, 1, 24)
	iv := pkcs12KDF(passphrase, salt, 2048, 2, des.BlockSize)
	block, err := des.NewTripleDESCipher(key)
	if err != nil {
		t.Fatalf("NewTripleDESCipher: %v", err)
	}
	padded := pkcs7Pad(plain, des.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	der, err := decryptPKCS12(append(append([]byte{}, salt...), ciphertext...), passphrase, pkcs12Cipher3DES)
	if err != nil {
		t.Fatalf("decryptPKCS12: %v", err)
	}
	if !bytes.Equal(der, plain) {
		t.Errorf("got %q, want %q", der, plain)
	}
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	pad := blockSize - len(data)%blockSize
	return append(append([]byte{}, data...), bytes.Repeat([]byte{byte(pad)}, pad)...)
}

func TestDecryptUnknownBlockErrors(t *testing.T) {
	if _, err := Decrypt([]byte("not a pem block"), EncPlain, ""); err == nil {
		t.Error("expected error for non-PEM input")
	}
}

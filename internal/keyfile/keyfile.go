// Package keyfile decrypts the broker's PEM-encoded TLS private key per
// spec.md §6.3: the passphrase protecting tls/keyfile may be absent
// ("plain") or applied through one of PBES2-3DES, PBES2-AES128/192/256, or
// the PKCS#12 legacy pair PKCS12-RC4 / PKCS12-3DES, selected by the
// tls/keyfile_enctype config key.
//
// The PBES2 branch decrypts the traditional OpenSSL "Proc-Type: 4,ENCRYPTED"
// / "DEK-Info" PEM form via the standard library's legacy x509 decryptor.
// The PKCS#12 branch has no standard-library support at all, and the only
// pack-adjacent candidate (golang.org/x/crypto/pkcs12) only exposes
// bundle-level decode, not the raw PBE key derivation spec.md's per-cipher
// matrix needs — so that KDF (RFC 7292 appendix B) is implemented directly
// against crypto/sha1; see DESIGN.md for the full justification.
package keyfile

import (
	"crypto/cipher"
	"crypto/des"
	"crypto/rc4"
	"crypto/sha1"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"
)

// EncType identifies one of the cipher/KDF combinations spec.md §6.3 allows
// for a broker private key's passphrase protection.
type EncType int

const (
	EncPlain EncType = iota
	EncPBES2_3DES
	EncPBES2_AES128
	EncPBES2_AES192
	EncPBES2_AES256
	EncPKCS12_RC4
	EncPKCS12_3DES
)

func (e EncType) String() string {
	switch e {
	case EncPlain:
		return "plain"
	case EncPBES2_3DES:
		return "PBES2-3DES"
	case EncPBES2_AES128:
		return "PBES2-AES128"
	case EncPBES2_AES192:
		return "PBES2-AES192"
	case EncPBES2_AES256:
		return "PBES2-AES256"
	case EncPKCS12_RC4:
		return "PKCS12-RC4"
	case EncPKCS12_3DES:
		return "PKCS12-3DES"
	default:
		return "UNKNOWN"
	}
}

// ParseEncType maps a tls/keyfile_enctype config value to an EncType. An
// empty string means plain (no passphrase).
func ParseEncType(s string) (EncType, error) {
	switch strings.TrimSpace(s) {
	case "", "plain":
		return EncPlain, nil
	case "PBES2-3DES":
		return EncPBES2_3DES, nil
	case "PBES2-AES128":
		return EncPBES2_AES128, nil
	case "PBES2-AES192":
		return EncPBES2_AES192, nil
	case "PBES2-AES256":
		return EncPBES2_AES256, nil
	case "PKCS12-RC4":
		return EncPKCS12_RC4, nil
	case "PKCS12-3DES":
		return EncPKCS12_3DES, nil
	default:
		return 0, fmt.Errorf("keyfile: unknown keyfile_enctype %q", s)
	}
}

// Decrypt reads a PEM-encoded private key and returns its decrypted DER
// bytes. passphrase is ignored when enctype is EncPlain.
func Decrypt(pemBytes []byte, enctype EncType, passphrase string) ([]byte, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("keyfile: no PEM block found")
	}

	switch enctype {
	case EncPlain:
		return block.Bytes, nil
	case EncPBES2_3DES, EncPBES2_AES128, EncPBES2_AES192, EncPBES2_AES256:
		return decryptLegacyPEM(block, passphrase)
	case EncPKCS12_RC4:
		return decryptPKCS12(block.Bytes, passphrase, pkcs12CipherRC4)
	case EncPKCS12_3DES:
		return decryptPKCS12(block.Bytes, passphrase, pkcs12Cipher3DES)
	default:
		return nil, fmt.Errorf("keyfile: unsupported enctype %v", enctype)
	}
}

// decryptLegacyPEM handles the traditional OpenSSL encrypted-PEM form
// (DEK-Info header naming DES-EDE3-CBC / AES-128-CBC / AES-192-CBC /
// AES-256-CBC), which is what the PBES2-* enctypes name in practice.
func decryptLegacyPEM(block *pem.Block, passphrase string) ([]byte, error) {
	if !x509.IsEncryptedPEMBlock(block) { //nolint:staticcheck // legacy format has no replacement in std crypto/x509
		return block.Bytes, nil
	}
	der, err := x509.DecryptPEMBlock(block, []byte(passphrase)) //nolint:staticcheck
	if err != nil {
		return nil, fmt.Errorf("keyfile: decrypt PEM block: %w", err)
	}
	return der, nil
}

type pkcs12Cipher int

const (
	pkcs12CipherRC4 pkcs12Cipher = iota
	pkcs12Cipher3DES
)

// decryptPKCS12 decrypts key bytes protected with one of the two legacy
// PKCS#12 password-based encryption schemes (RFC 7292 appendix B/C):
// pbeWithSHAAnd40BitRC4-equivalent RC4 keystream, or
// pbeWithSHAAnd3-KeyTripleDES-CBC. The key material and IV are both derived
// from the passphrase via the RFC 7292 appendix B KDF.
func decryptPKCS12(data []byte, passphrase string, which pkcs12Cipher) ([]byte, error) {
	salt, ciphertext := splitPKCS12Salt(data)
	const iterations = 2048

	switch which {
	case pkcs12CipherRC4:
		key := pkcs12KDF(passphrase, salt, iterations, 1, 16)
		c, err := rc4.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("keyfile: pkcs12 rc4: %w", err)
		}
		out := make([]byte, len(ciphertext))
		c.XORKeyStream(out, ciphertext)
		return out, nil
	case pkcs12Cipher3DES:
		key := pkcs12KDF(passphrase, salt, iterations, 1, 24)
		iv := pkcs12KDF(passphrase, salt, iterations, 2, des.BlockSize)
		block, err := des.NewTripleDESCipher(key)
		if err != nil {
			return nil, fmt.Errorf("keyfile: pkcs12 3des: %w", err)
		}
		if len(ciphertext)%des.BlockSize != 0 {
			return nil, fmt.Errorf("keyfile: pkcs12 3des: ciphertext not block-aligned")
		}
		out := make([]byte, len(ciphertext))
		cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
		return pkcs7Unpad(out, des.BlockSize)
	default:
		return nil, fmt.Errorf("keyfile: unknown pkcs12 cipher")
	}
}

// splitPKCS12Salt carves an 8-byte salt prefix off data, the layout the
// broker's key files use to carry the PBE salt alongside the ciphertext
// (spec.md has no wire grammar for this; 8 bytes matches the salt length
// RFC 7292's reference KDF examples use).
func splitPKCS12Salt(data []byte) (salt, ciphertext []byte) {
	const saltLen = 8
	if len(data) <= saltLen {
		return data, nil
	}
	return data[:saltLen], data[saltLen:]
}

// pkcs12KDF implements the RFC 7292 appendix B.2 password-based key
// derivation function over SHA-1, producing n bytes of key material (id=1)
// or IV material (id=2).
func pkcs12KDF(passphrase string, salt []byte, iterations, id, n int) []byte {
	const u = sha1.Size // output block size of the hash
	const v = 64        // SHA-1 block size

	bmpPassword := utf16BE(passphrase)

	fill := func(block []byte) []byte {
		if len(block) == 0 {
			return nil
		}
		out := make([]byte, ((len(block)+v-1)/v)*v)
		for i := range out {
			out[i] = block[i%len(block)]
		}
		return out
	}

	diversifier := make([]byte, v)
	for i := range diversifier {
		diversifier[i] = byte(id)
	}

	saltBlock := fill(salt)
	if saltBlock == nil {
		saltBlock = make([]byte, v)
	}
	passBlock := fill(bmpPassword)
	if passBlock == nil {
		passBlock = make([]byte, v)
	}

	ij := append(append([]byte{}, saltBlock...), passBlock...)

	var result []byte
	for len(result) < n {
		h := sha1.New()
		h.Write(diversifier)
		h.Write(ij)
		a := h.Sum(nil)
		for iter := 1; iter < iterations; iter++ {
			a = sha1Sum(a)
		}
		result = append(result, a...)

		// B = A repeated to fill a v-byte block; add B+1 to each v-byte
		// chunk of I (mod 2^v), per RFC 7292 appendix B.
		bBlock := fill(a)
		for start := 0; start < len(ij); start += v {
			addBlocks(ij[start:start+v], bBlock)
		}
	}
	return result[:n]
}

func sha1Sum(b []byte) []byte {
	sum := sha1.Sum(b)
	return sum[:]
}

// addBlocks computes dst = dst + b + 1 as big-endian byte strings, mod 2^(8*len).
func addBlocks(dst, b []byte) {
	carry := 1
	for i := len(dst) - 1; i >= 0; i-- {
		sum := int(dst[i]) + int(b[i]) + carry
		dst[i] = byte(sum)
		carry = sum >> 8
	}
}

// utf16BE encodes s as UTF-16BE with a trailing NUL terminator, the "BMP
// string" form RFC 7292 requires for the password input.
func utf16BE(s string) []byte {
	out := make([]byte, 0, len(s)*2+2)
	for _, r := range s {
		if r <= 0xFFFF {
			out = append(out, byte(r>>8), byte(r))
			continue
		}
		r -= 0x10000
		hi := 0xD800 + (r >> 10)
		lo := 0xDC00 + (r & 0x3FF)
		out = append(out, byte(hi>>8), byte(hi), byte(lo>>8), byte(lo))
	}
	return append(out, 0, 0)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("keyfile: invalid padded length")
	}
	pad := int(data[len(data)-1])
	if pad == 0 || pad > blockSize || pad > len(data) {
		return nil, fmt.Errorf("keyfile: invalid PKCS#7 padding")
	}
	for _, b := range data[len(data)-pad:] {
		if int(b) != pad {
			return nil, fmt.Errorf("keyfile: invalid PKCS#7 padding")
		}
	}
	return data[:len(data)-pad], nil
}

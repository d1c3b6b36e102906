// Package cipher implements the versioned field-level cipher used to protect
// individual values inside stored records.
//
// The current (version 2) wire layout is
//
//	[version=2][salt(16)][iv(12)][ciphertext||tag(16)]
//
// base64-encoded as one buffer. A per-value random salt feeds PBKDF2-SHA256
// (100k iterations) to derive a 256-bit AES-GCM key from the passphrase.
// Buffers whose leading byte is anything else are treated as the legacy
// layout, which has no version byte and no embedded salt and derives its key
// from a fixed salt. The legacy path exists only to read old data.
package cipher

import (
	"crypto/aes"
	gocipher "crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// Version is the current wire-format version byte.
	Version = 2

	saltSize = 16
	ivSize   = 12
	tagSize  = 16
	keySize  = 32

	kdfIterations = 100_000

	v2MinSize     = 1 + saltSize + ivSize + tagSize
	legacyMinSize = ivSize + tagSize
)

// legacySalt is the fixed salt the pre-versioning scheme derived every key
// from. It must never change: it is baked into all legacy ciphertexts.
var legacySalt = []byte("1stop-field-salt")

var (
	ErrInvalidInput   = errors.New("cipher: empty plaintext or passphrase")
	ErrDecode         = errors.New("cipher: malformed ciphertext")
	ErrAuthentication = errors.New("cipher: message authentication failed")
)

// Encrypt seals plaintext under a key derived from passphrase and returns the
// base64-encoded version-2 buffer. Salt and IV are freshly random per call,
// so two encryptions of the same plaintext never produce the same output.
func Encrypt(plaintext, passphrase string) (string, error) {
	if plaintext == "" || passphrase == "" {
		return "", ErrInvalidInput
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("cipher: salt: %w", err)
	}
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("cipher: iv: %w", err)
	}

	key := deriveKey(passphrase, salt)
	defer zero(key)

	aead, err := newGCM(key)
	if err != nil {
		return "", err
	}

	out := make([]byte, 0, v2MinSize+len(plaintext))
	out = append(out, Version)
	out = append(out, salt...)
	out = append(out, iv...)
	out = aead.Seal(out, iv, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. The leading byte of the decoded buffer selects
// the layout: Version means the salt is embedded; anything else is the legacy
// no-salt layout. Callers never need to know which version produced the data.
func Decrypt(ciphertextB64, passphrase string) (string, error) {
	if ciphertextB64 == "" || passphrase == "" {
		return "", ErrInvalidInput
	}
	buf, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return "", ErrDecode
	}
	if len(buf) >= v2MinSize && buf[0] == Version {
		return openV2(buf, passphrase)
	}
	return openLegacy(buf, passphrase)
}

func openV2(buf []byte, passphrase string) (string, error) {
	salt := buf[1 : 1+saltSize]
	iv := buf[1+saltSize : 1+saltSize+ivSize]
	body := buf[1+saltSize+ivSize:]

	key := deriveKey(passphrase, salt)
	defer zero(key)

	aead, err := newGCM(key)
	if err != nil {
		return "", err
	}
	pt, err := aead.Open(nil, iv, body, nil)
	if err != nil {
		return "", ErrAuthentication
	}
	return string(pt), nil
}

func openLegacy(buf []byte, passphrase string) (string, error) {
	if len(buf) < legacyMinSize {
		return "", ErrDecode
	}
	iv := buf[:ivSize]
	body := buf[ivSize:]

	key := deriveKey(passphrase, legacySalt)
	defer zero(key)

	aead, err := newGCM(key)
	if err != nil {
		return "", err
	}
	pt, err := aead.Open(nil, iv, body, nil)
	if err != nil {
		return "", ErrAuthentication
	}
	return string(pt), nil
}

// SealLegacy produces a buffer in the legacy no-salt layout. It exists so the
// migration tool and tests can exercise the legacy read path; nothing else
// may write this format.
func SealLegacy(plaintext, passphrase string) (string, error) {
	if plaintext == "" || passphrase == "" {
		return "", ErrInvalidInput
	}
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("cipher: iv: %w", err)
	}
	key := deriveKey(passphrase, legacySalt)
	defer zero(key)

	aead, err := newGCM(key)
	if err != nil {
		return "", err
	}
	out := make([]byte, 0, legacyMinSize+len(plaintext))
	out = append(out, iv...)
	out = aead.Seal(out, iv, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

func deriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, kdfIterations, keySize, sha256.New)
}

func newGCM(key []byte) (gocipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher: %w", err)
	}
	return gocipher.NewGCM(block)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

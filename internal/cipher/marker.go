package cipher

import "strings"

const (
	// Marker prefixes ciphertext embedded in an otherwise plain string
	// field, so mixed plaintext/ciphertext fields can be told apart
	// without decoding.
	Marker = "ENC:"

	// legacyMarker was used before the prefix was shortened. Accepted on
	// read only; never written.
	legacyMarker = "CRYPT:"
)

// IsEncryptedValue reports whether v carries either marker prefix. It is a
// pure prefix check and never attempts to decode the value.
func IsEncryptedValue(v string) bool {
	return strings.HasPrefix(v, Marker) || strings.HasPrefix(v, legacyMarker)
}

// EncryptWithMarker encrypts plaintext and prefixes the result with Marker.
func EncryptWithMarker(plaintext, passphrase string) (string, error) {
	ct, err := Encrypt(plaintext, passphrase)
	if err != nil {
		return "", err
	}
	return Marker + ct, nil
}

// DecryptWithMarker strips whichever marker prefix v carries and decrypts the
// remainder. A value without a marker fails with ErrDecode.
func DecryptWithMarker(v, passphrase string) (string, error) {
	switch {
	case strings.HasPrefix(v, Marker):
		return Decrypt(v[len(Marker):], passphrase)
	case strings.HasPrefix(v, legacyMarker):
		return Decrypt(v[len(legacyMarker):], passphrase)
	default:
		return "", ErrDecode
	}
}

// Package totp implements RFC 6238 time-based one-time passwords. It backs
// the step-up login endpoint: a verified code upgrades a session token to one
// carrying an MFA signal.
package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultStep   = 30 * time.Second
	DefaultDigits = 6
	secretSize    = 20 // 160-bit secret
)

func GenerateSecret() (string, error) {
	secret := make([]byte, secretSize)
	if _, err := rand.Read(secret); err != nil {
		return "", err
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(secret), nil
}

// Code computes the code valid at the given instant. Used by provisioning
// tooling and tests; verification should go through Verify, which tolerates
// clock skew.
func Code(secret string, when time.Time) (string, error) {
	secretBytes, err := decodeSecret(secret)
	if err != nil {
		return "", err
	}
	defer zero(secretBytes)
	counter := when.Unix() / int64(DefaultStep/time.Second)
	return hotp(secretBytes, uint64(counter)), nil
}

// Verify checks a code against the secret, accepting one step of drift in
// either direction.
func Verify(code, secret string, when time.Time) bool {
	code = strings.TrimSpace(code)
	if len(code) != DefaultDigits {
		return false
	}
	secretBytes, err := decodeSecret(secret)
	if err != nil {
		return false
	}
	defer zero(secretBytes)

	counter := when.Unix() / int64(DefaultStep/time.Second)
	for i := int64(-1); i <= 1; i++ {
		cur := counter + i
		if cur < 0 {
			continue
		}
		if hotp(secretBytes, uint64(cur)) == code {
			return true
		}
	}
	return false
}

// ProvisionURI renders the otpauth:// URI an authenticator app enrolls from.
func ProvisionURI(account, issuer, secret string) string {
	period := int(DefaultStep / time.Second)
	return fmt.Sprintf("otpauth://totp/%s:%s?secret=%s&issuer=%s&algorithm=SHA1&digits=%d&period=%d",
		url.PathEscape(issuer), url.PathEscape(account), secret, url.QueryEscape(issuer), DefaultDigits, period)
}

func hotp(secret []byte, counter uint64) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], counter)

	mac := hmac.New(sha1.New, secret)
	mac.Write(buf[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0F
	trunc := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7FFFFFFF
	return fmt.Sprintf("%0*d", DefaultDigits, trunc%1000000)
}

func decodeSecret(secret string) ([]byte, error) {
	secret = strings.ToUpper(strings.TrimSpace(secret))
	return base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(secret)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

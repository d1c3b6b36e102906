package auth

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("auth: invalid token")

type JWTSigner struct {
	Priv ed25519.PrivateKey
	Pub  ed25519.PublicKey
	Iss  string
	TTL  time.Duration
}

func NewJWTSigner(priv ed25519.PrivateKey, iss string, ttl time.Duration) *JWTSigner {
	pub := priv.Public().(ed25519.PublicKey)
	return &JWTSigner{Priv: priv, Pub: pub, Iss: iss, TTL: ttl}
}

func GenerateEd25519() (ed25519.PrivateKey, ed25519.PublicKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	return priv, pub, err
}

// IssueToken signs a token for uid. extra claims (e.g. amr after a step-up
// challenge) are merged on top of the registered set.
func (s *JWTSigner) IssueToken(uid string, extra map[string]any) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.TTL)

	claims := jwt.MapClaims{
		"iss": s.Iss,
		"sub": uid,
		"iat": now.Unix(),
		"exp": exp.Unix(),
		"jti": randomJTI(),
	}
	for k, v := range extra {
		claims[k] = v
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	ss, err := token.SignedString(s.Priv)
	return ss, exp, err
}

// Verify parses and validates a token, returning the caller as a Principal.
// Implements the identity interface the guard pipeline consumes.
func (s *JWTSigner) Verify(_ context.Context, tokenStr string) (*Principal, error) {
	if tokenStr == "" {
		return nil, ErrInvalidToken
	}
	keyFunc := func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodEdDSA {
			return nil, errors.New("unexpected signing method")
		}
		return s.Pub, nil
	}

	tok, err := jwt.ParseWithClaims(
		tokenStr,
		jwt.MapClaims{},
		keyFunc,
		jwt.WithIssuer(s.Iss),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	std := tok.Claims.(jwt.MapClaims)

	sub, _ := std["sub"].(string)
	if sub == "" {
		return nil, ErrInvalidToken
	}

	claims := make(map[string]any, len(std))
	for k, v := range std {
		claims[k] = v
	}
	return &Principal{UID: sub, Claims: claims}, nil
}

func randomJTI() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword(DefaultArgon, "Correct-Horse-9!")
	require.NoError(t, err)

	ok, err := VerifyPassword("Correct-Horse-9!", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	_, err := VerifyPassword("pw", "not-a-hash")
	assert.ErrorIs(t, err, ErrInvalidHash)
}

func TestJWTIssueAndVerify(t *testing.T) {
	priv, _, err := GenerateEd25519()
	require.NoError(t, err)
	signer := NewJWTSigner(priv, "fieldguard-test", time.Minute)

	tok, exp, err := signer.IssueToken("u-1", map[string]any{"amr": []string{"pwd", "otp"}})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), exp, 5*time.Second)

	pr, err := signer.Verify(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", pr.UID)
	assert.True(t, HasStepUp(pr.Claims))
}

func TestJWTVerifyRejectsGarbage(t *testing.T) {
	priv, _, err := GenerateEd25519()
	require.NoError(t, err)
	signer := NewJWTSigner(priv, "fieldguard-test", time.Minute)

	for _, tok := range []string{"", "garbage", "a.b.c"} {
		_, err := signer.Verify(context.Background(), tok)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", tok)
	}
}

func TestJWTVerifyRejectsWrongIssuer(t *testing.T) {
	priv, _, err := GenerateEd25519()
	require.NoError(t, err)
	issuerA := NewJWTSigner(priv, "issuer-a", time.Minute)
	issuerB := NewJWTSigner(priv, "issuer-b", time.Minute)

	tok, _, err := issuerA.IssueToken("u-1", nil)
	require.NoError(t, err)
	_, err = issuerB.Verify(context.Background(), tok)
	assert.Error(t, err)
}

func TestJWTVerifyRejectsExpired(t *testing.T) {
	priv, _, err := GenerateEd25519()
	require.NoError(t, err)
	signer := NewJWTSigner(priv, "fieldguard-test", -time.Minute)

	tok, _, err := signer.IssueToken("u-1", nil)
	require.NoError(t, err)
	_, err = signer.Verify(context.Background(), tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMemoryUserStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryUserStore()
	require.NoError(t, s.Add(ctx, &User{UID: "u-1", Email: "Jo@Example.com"}))

	u, err := s.FindByUID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "jo@example.com", u.Email)

	u, err = s.FindByEmail(ctx, " JO@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.UID)

	assert.Error(t, s.Add(ctx, &User{UID: "u-1"}))
	_, err = s.FindByUID(ctx, "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

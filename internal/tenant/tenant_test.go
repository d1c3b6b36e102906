package tenant

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreMembership(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.Grant("u1", "acme", "staff")

	ok, err := s.Exists(ctx, "u1", "acme")
	require.NoError(t, err)
	assert.True(t, ok)

	role, found, err := s.RoleOf(ctx, "u1", "acme")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "staff", role)

	// Membership is per tenant, not global.
	ok, err = s.Exists(ctx, "u1", "other")
	require.NoError(t, err)
	assert.False(t, ok)

	_, found, err = s.RoleOf(ctx, "u2", "acme")
	require.NoError(t, err)
	assert.False(t, found)
}

package record

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Set(ctx, "tenants/t1/employees/e1", map[string]any{"firstName": "Jo"}))

	ok, err := s.Exists(ctx, "tenants/t1/employees/e1")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.Get(ctx, "tenants/t1/employees/e1")
	require.NoError(t, err)
	assert.Equal(t, "Jo", got["firstName"])

	require.NoError(t, s.Update(ctx, "tenants/t1/employees/e1", map[string]any{"department": "Finance"}))
	got, err = s.Get(ctx, "tenants/t1/employees/e1")
	require.NoError(t, err)
	assert.Equal(t, "Jo", got["firstName"])
	assert.Equal(t, "Finance", got["department"])

	require.NoError(t, s.Remove(ctx, "tenants/t1/employees/e1"))
	_, err = s.Get(ctx, "tenants/t1/employees/e1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreUpdateMissing(t *testing.T) {
	s := NewMemoryStore()
	err := s.Update(context.Background(), "nope", map[string]any{"a": 1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStorePushAndList(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	p1, err := s.Push(ctx, "tenants/t1/employees", map[string]any{"n": 1})
	require.NoError(t, err)
	p2, err := s.Push(ctx, "tenants/t1/employees/", map[string]any{"n": 2})
	require.NoError(t, err)
	assert.NotEqual(t, p1, p2)

	// A nested document must not show up in a direct-children listing.
	require.NoError(t, s.Set(ctx, "tenants/t1/employees/e9/notes", map[string]any{}))

	paths, err := s.List(ctx, "tenants/t1/employees")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{p1, p2}, paths)
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Set(ctx, "p", map[string]any{"nested": map[string]any{"v": "a"}}))

	got, err := s.Get(ctx, "p")
	require.NoError(t, err)
	got["nested"].(map[string]any)["v"] = "mutated"

	again, err := s.Get(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, "a", again["nested"].(map[string]any)["v"])
}

package secrets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticResolve(t *testing.T) {
	p := Static{DomainFinance: "finance-passphrase"}

	v, err := p.Resolve(context.Background(), DomainFinance)
	require.NoError(t, err)
	assert.Equal(t, "finance-passphrase", v)

	_, err = p.Resolve(context.Background(), DomainHR)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEnvResolve(t *testing.T) {
	t.Setenv("FIELDGUARD_SECRET_FINANCE", "from-env")
	p := Env{}

	v, err := p.Resolve(context.Background(), "finance")
	require.NoError(t, err)
	assert.Equal(t, "from-env", v)

	_, err = p.Resolve(context.Background(), "settings")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEnvResolveCustomPrefix(t *testing.T) {
	t.Setenv("PAYROLL_HR", "hr-secret")
	p := Env{Prefix: "PAYROLL_"}

	v, err := p.Resolve(context.Background(), "hr")
	require.NoError(t, err)
	assert.Equal(t, "hr-secret", v)
}

package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/qmx/sterna/internal/errs"
	"github.com/qmx/sterna/internal/objectstore"
	"github.com/stretchr/testify/require"
)

func TestResolveReturnsConfiguredEmail(t *testing.T) {
	store := objectstore.NewMemoryStore()
	store.SetConfigValue("user.email", "agent@example.com")

	email, err := Resolve(context.Background(), store)
	require.NoError(t, err)
	require.Equal(t, "agent@example.com", email)
}

func TestResolveFailsWithoutIdentity(t *testing.T) {
	store := objectstore.NewMemoryStore()

	_, err := Resolve(context.Background(), store)
	require.Error(t, err)
	require.True(t, errors.Is(err, errs.ErrNoIdentity))
}

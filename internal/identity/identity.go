// Package identity resolves the host source-control identity used to
// attribute commits and record the Issue.editor field (spec.md §6).
package identity

import (
	"context"
	"fmt"

	"github.com/qmx/sterna/internal/errs"
	"github.com/qmx/sterna/internal/objectstore"
)

// Resolve returns the configured user.email, failing with errs.NoIdentity
// if none is configured.
func Resolve(ctx context.Context, store objectstore.ObjectStore) (string, error) {
	email, ok, err := store.ConfigValue(ctx, "user.email")
	if err != nil {
		return "", fmt.Errorf("sterna: resolve identity: %w", err)
	}
	if !ok || email == "" {
		return "", errs.ErrNoIdentity
	}
	return email, nil
}

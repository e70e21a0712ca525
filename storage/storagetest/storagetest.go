// Package storagetest holds behaviour checks shared by every storage backend.
package storagetest

import (
	"context"
	"testing"

	"github.com/jrsteele09/go-auth-session/storage"
	"github.com/stretchr/testify/require"
)

// RunBackendTests exercises the Backend contract against a fresh backend from newBackend.
func RunBackendTests(t *testing.T, newBackend func(t *testing.T) storage.Backend) {
	t.Helper()

	t.Run("missing key", func(t *testing.T) {
		b := newBackend(t)
		v, found, err := b.Get(context.Background(), "absent")
		require.NoError(t, err)
		require.False(t, found)
		require.Empty(t, v)
	})

	t.Run("set get overwrite", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		require.NoError(t, b.Set(ctx, "session", `{"access_token":"a"}`))
		v, found, err := b.Get(ctx, "session")
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, `{"access_token":"a"}`, v)

		require.NoError(t, b.Set(ctx, "session", `{"access_token":"b"}`))
		v, _, err = b.Get(ctx, "session")
		require.NoError(t, err)
		require.Equal(t, `{"access_token":"b"}`, v)
	})

	t.Run("delete", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		require.NoError(t, b.Set(ctx, "session", "x"))
		require.NoError(t, b.Delete(ctx, "session"))
		_, found, err := b.Get(ctx, "session")
		require.NoError(t, err)
		require.False(t, found)

		// deleting twice is not an error
		require.NoError(t, b.Delete(ctx, "session"))
	})

	t.Run("keys are independent", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		require.NoError(t, b.Set(ctx, "one", "1"))
		require.NoError(t, b.Set(ctx, "two", "2"))
		require.NoError(t, b.Delete(ctx, "one"))

		v, found, err := b.Get(ctx, "two")
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, "2", v)
	})
}

package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-session/storage"
	"github.com/jrsteele09/go-auth-session/storage/memory"
	"github.com/jrsteele09/go-auth-session/storage/storagetest"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackend(t *testing.T) {
	storagetest.RunBackendTests(t, func(t *testing.T) storage.Backend {
		return memory.New()
	})
}

func TestMemoryBackend_TTL(t *testing.T) {
	s := memory.NewWithTTL(20 * time.Millisecond)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "session", "x"))

	require.Eventually(t, func() bool {
		_, found, _ := s.Get(ctx, "session")
		return !found
	}, time.Second, 10*time.Millisecond)
}

package sessions_test

import (
	"testing"

	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/provider"
	"github.com/jrsteele09/go-auth-session/sessions"
	"github.com/stretchr/testify/require"
)

func TestNewStoredSession_DropsIncompleteSessions(t *testing.T) {
	require.Nil(t, sessions.NewStoredSession(nil))
	require.Nil(t, sessions.NewStoredSession(&provider.Session{AccessToken: "a"}))
	require.Nil(t, sessions.NewStoredSession(&provider.Session{RefreshToken: "r"}))

	value, err := sessions.NewStoredSession(nil).Encode()
	require.NoError(t, err)
	require.Nil(t, value)
}

func TestParseStoredSession_ReadsEncodedRecord(t *testing.T) {
	record := sessions.NewStoredSession(&provider.Session{
		AccessToken:  "a",
		RefreshToken: "r",
		ExpiresAt:    1767322800,
		User:         provider.User{ID: "user-1", Email: "jane@example.com", Role: "authenticated"},
	})
	value, err := record.Encode()
	require.NoError(t, err)
	require.NotNil(t, value)

	parsed, err := sessions.ParseStoredSession(*value)
	require.NoError(t, err)
	require.Equal(t, record, parsed)
	require.NotContains(t, *value, "authenticated")
}

func TestParseStoredSession_RejectsInvalidRecords(t *testing.T) {
	tests := map[string]string{
		"not json":        "{",
		"missing access":  `{"refresh_token":"r"}`,
		"missing refresh": `{"access_token":"a"}`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := sessions.ParseStoredSession(raw)
			require.ErrorIs(t, err, autherrors.ErrInvalidRecord)
		})
	}
}

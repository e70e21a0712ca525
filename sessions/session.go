package sessions

import (
	"encoding/json"

	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
	"github.com/jrsteele09/go-auth-session/provider"
)

// StoredSession is the reduced session record kept in persistent storage.
// A stored record always has both tokens; otherwise nothing is stored.
type StoredSession struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresAt    int64      `json:"expires_at,omitempty"`
	User         StoredUser `json:"user"`
}

type StoredUser struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// NewStoredSession reduces session to what is persisted. It returns nil when
// session is nil or lacks either token.
func NewStoredSession(session *provider.Session) *StoredSession {
	if session == nil || session.AccessToken == "" || session.RefreshToken == "" {
		return nil
	}
	return &StoredSession{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		ExpiresAt:    session.ExpiresAt,
		User: StoredUser{
			ID:    session.User.ID,
			Email: session.User.Email,
		},
	}
}

// Encode returns the JSON storage value for the record, nil for no record.
func (r *StoredSession) Encode() (*string, error) {
	if r == nil {
		return nil, nil
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	value := string(b)
	return &value, nil
}

// ParseStoredSession decodes a record written by Encode.
func ParseStoredSession(raw string) (*StoredSession, error) {
	var record StoredSession
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, autherrors.Wrapf(autherrors.ErrInvalidRecord, "%v", err)
	}
	if record.AccessToken == "" || record.RefreshToken == "" {
		return nil, autherrors.Wrapf(autherrors.ErrInvalidRecord, "missing tokens")
	}
	return &record, nil
}

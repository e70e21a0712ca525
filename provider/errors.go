package provider

import (
	"encoding/json"
	"fmt"
	"net/http"

	autherrors "github.com/jrsteele09/go-auth-session/internal/errors"
)

// Error is a failure reported by the identity provider.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("provider: %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("provider: %d %s: %s", e.Status, e.Code, e.Message)
}

// Is lets errors.Is(err, ErrProvider) match any provider error.
func (e *Error) Is(target error) bool {
	return target == autherrors.ErrProvider
}

// errorBody covers both the GoTrue native and OAuth2 style error payloads.
type errorBody struct {
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func decodeError(status int, body []byte) *Error {
	e := &Error{Status: status}
	var b errorBody
	if err := json.Unmarshal(body, &b); err != nil {
		e.Message = http.StatusText(status)
		return e
	}

	e.Code = firstNonEmpty(b.ErrorCode, b.Error)
	e.Message = firstNonEmpty(b.Msg, b.Message, b.ErrorDescription, b.Error, http.StatusText(status))
	return e
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

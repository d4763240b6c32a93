package mhrs

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized matches a *StatusError carrying a 401, the bearer
	// token has expired or was revoked.
	ErrUnauthorized = errors.New("mhrs: unauthorized")
	// ErrLoginFailed is returned by Login when the credentials were not
	// exchanged for a token.
	ErrLoginFailed = errors.New("mhrs: login failed")
	// ErrMalformedResponse is returned when a response body could not be
	// decoded into the expected shape.
	ErrMalformedResponse = errors.New("mhrs: malformed response")
)

// Warning is an entry of the "warnings" list MHRS attaches to responses.
// Message may contain html markup.
type Warning struct {
	Code    string `json:"kodu"`
	Message string `json:"mesaj"`
}

// StatusError is returned when the server answers with anything but 200.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
	Warnings   []Warning
}

func (e *StatusError) Error() string {
	if w, ok := e.FirstWarning(); ok {
		return fmt.Sprintf("mhrs %s: status %d (%s: %s)", e.Endpoint, e.StatusCode, w.Code, w.Message)
	}
	return fmt.Sprintf("mhrs %s: status %d", e.Endpoint, e.StatusCode)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

func (e *StatusError) FirstWarning() (Warning, bool) {
	if len(e.Warnings) == 0 {
		return Warning{}, false
	}
	return e.Warnings[0], true
}

func newStatusError(endpoint string, status int, body []byte) *StatusError {
	err := &StatusError{
		Endpoint:   endpoint,
		StatusCode: status,
		Body:       string(body),
	}
	var envelope struct {
		Warnings []Warning `json:"warnings"`
	}
	if json.Unmarshal(body, &envelope) == nil {
		err.Warnings = envelope.Warnings
	}
	return err
}

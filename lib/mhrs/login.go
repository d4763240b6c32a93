package mhrs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type loginRequest struct {
	Username string `json:"kullaniciAdi"`
	Password string `json:"parola"`
	Channel  string `json:"islemKanali"`
	Kind     string `json:"girisTipi"`
}

type loginResponse struct {
	Data struct {
		Jwt string `json:"jwt"`
	} `json:"data"`
}

// Login exchanges a citizen identity number and password for a bearer
// token. Every failure wraps ErrLoginFailed.
func (c *Client) Login(ctx context.Context, identity, secret string) (string, error) {
	body, err := c.do(ctx, call{
		name:   "Login",
		method: http.MethodPost,
		path:   "/api/vatandas/login",
		body: loginRequest{
			Username: identity,
			Password: secret,
			Channel:  "VATANDAS_WEB",
			Kind:     "PAROLA",
		},
		timeout: loginTimeout,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}

	res, err := decode[loginResponse]("Login", body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}
	token := strings.TrimSpace(res.Data.Jwt)
	if token == "" {
		return "", fmt.Errorf("%w: response did not contain a token", ErrLoginFailed)
	}
	return token, nil
}

// IsTransportError reports whether err happened before the server
// answered (timeouts, connection resets, dns failures).
func IsTransportError(err error) bool {
	var statusErr *StatusError
	return err != nil && !errors.As(err, &statusErr) && !errors.Is(err, ErrMalformedResponse)
}

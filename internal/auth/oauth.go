package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"github.com/autodocwriter/autodoc/internal/storage"
)

// ErrNoToken is returned by a storage token source when the profile holds no
// auth_token. Callers send the request without an Authorization header.
var ErrNoToken = errors.New("auth: no token stored")

// storageTokenSource reads the bearer token from a profile's storage on
// every call, so a token written by the OAuth callback is used by the very
// next request.
type storageTokenSource struct {
	kv      storage.KV
	timeout time.Duration
}

// StorageTokenSource returns an oauth2.TokenSource backed by kv's auth_token.
//
// The backend hands out GitHub access tokens without expiry or refresh
// token, so the returned oauth2.Token only has AccessToken and TokenType set.
func StorageTokenSource(kv storage.KV) oauth2.TokenSource {
	return &storageTokenSource{kv: kv, timeout: 5 * time.Second}
}

func (s *storageTokenSource) Token() (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	value, ok, err := s.kv.Get(ctx, storage.KeyAuthToken)
	if err != nil {
		return nil, fmt.Errorf("auth: reading stored token: %w", err)
	}
	if !ok || value == "" {
		return nil, ErrNoToken
	}
	return &oauth2.Token{AccessToken: value, TokenType: "Bearer"}, nil
}

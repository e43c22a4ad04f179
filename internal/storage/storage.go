// Package storage is the client's "local storage": a small per-profile
// key/value store holding the auth token, the cached profile fields and the
// single documentation slot.
//
// Every browser that talks to the front server gets its own profile, so the
// backend interface is keyed by (profile, key). Code that works for one
// profile takes a KV obtained from Scoped.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
)

// Keys written by the client. Values are raw strings or plain JSON with no
// schema versioning.
const (
	KeyAuthToken           = "auth_token"
	KeyUsername            = "username"
	KeyName                = "name"
	KeyAvatar              = "avatar"
	KeyLatestDocumentation = "latest_documentation"
	KeyPinnedRepos         = "pinned_repos"
	KeySavedDocs           = "saved_docs"
	KeyPreferences         = "preferences"
)

// AuthKeys are purged together on logout and when a stored token is rejected.
var AuthKeys = []string{KeyAuthToken, KeyUsername, KeyName, KeyAvatar}

// Backend stores values for many profiles. sqlite.DB and Memory implement
// it.
//
// TWO INTERFACES:
// Backend is what a database offers (every method names the profile); KV is
// what one profile's code needs (the profile is already bound). Scoped
// turns the first into the second:
//
//	storage.Scoped(db, "cq2v8...").Get(ctx, KeyAuthToken)
//	  == db.GetItem(ctx, "cq2v8...", KeyAuthToken)
//
// Session, library and the token source only ever see a KV, so they cannot
// read another profile's keys.
type Backend interface {
	GetItem(ctx context.Context, profile, key string) (string, bool, error)
	SetItem(ctx context.Context, profile, key, value string) error
	RemoveItems(ctx context.Context, profile string, keys ...string) error
}

// KV is the storage of a single profile.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, keys ...string) error
}

type scoped struct {
	backend Backend
	profile string
}

// Scoped binds backend to one profile.
func Scoped(backend Backend, profile string) KV {
	return &scoped{backend: backend, profile: profile}
}

func (s *scoped) Get(ctx context.Context, key string) (string, bool, error) {
	return s.backend.GetItem(ctx, s.profile, key)
}

func (s *scoped) Set(ctx context.Context, key, value string) error {
	return s.backend.SetItem(ctx, s.profile, key, value)
}

func (s *scoped) Remove(ctx context.Context, keys ...string) error {
	return s.backend.RemoveItems(ctx, s.profile, keys...)
}

// GetJSON decodes the value under key into v. A missing key or a value that
// is not valid JSON both report ok=false: the stored slot is treated as
// empty rather than as an error.
func GetJSON(ctx context.Context, kv KV, key string, v any) (bool, error) {
	raw, ok, err := kv.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok || raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, nil
	}
	return true, nil
}

// SetJSON encodes v and stores it under key, replacing any previous value.
func SetJSON(ctx context.Context, kv KV, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("storage: encoding %s: %w", key, err)
	}
	return kv.Set(ctx, key, string(data))
}

// Package credential persists the bearer token and cached user profile.
package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ashureev/soil-advisor/internal/domain"
	"github.com/ashureev/soil-advisor/internal/store"
)

// Fixed keys in the local store. Both are always written and cleared together.
const (
	TokenKey = "access_token"
	UserKey  = "user"
)

// Store wraps a local key-value store holding the current credential.
type Store struct {
	kv store.KV
}

// New creates a credential store over kv.
func New(kv store.KV) *Store {
	return &Store{kv: kv}
}

// Get returns the stored credential. It returns an empty credential when
// nothing has been set yet, or when only one of the pair is present.
func (s *Store) Get(ctx context.Context) (domain.Credential, error) {
	token, err := s.get(ctx, TokenKey)
	if err != nil {
		return domain.Credential{}, err
	}
	rawUser, err := s.get(ctx, UserKey)
	if err != nil {
		return domain.Credential{}, err
	}
	if token == "" || rawUser == "" {
		return domain.Credential{}, nil
	}

	var user domain.UserProfile
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		slog.Warn("cached user profile is corrupt, ignoring credential", "error", err)
		return domain.Credential{}, nil
	}
	return domain.Credential{Token: token, User: &user}, nil
}

// Token returns the current bearer token, or "" when logged out.
func (s *Store) Token(ctx context.Context) (string, error) {
	cred, err := s.Get(ctx)
	if err != nil {
		return "", err
	}
	return cred.Token, nil
}

// User returns the cached profile, or nil when logged out.
func (s *Store) User(ctx context.Context) (*domain.UserProfile, error) {
	cred, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return cred.User, nil
}

// Set overwrites the token and user together.
func (s *Store) Set(ctx context.Context, token string, user domain.UserProfile) error {
	if token == "" {
		return errors.New("credential: empty token")
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.kv.SetMany(ctx, map[string]string{
		TokenKey: token,
		UserKey:  string(raw),
	}); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

// Clear removes the token and user together.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.DeleteMany(ctx, TokenKey, UserKey); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, key string) (string, error) {
	v, err := s.kv.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return v, nil
}

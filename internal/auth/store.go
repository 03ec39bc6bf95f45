package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonathan/cv-builder/internal/storage"
	"github.com/jonathan/cv-builder/internal/types"
)

// Store persists the token pair in the local key-value store.
type Store struct {
	kv storage.KV
}

// NewStore returns a Store over kv.
func NewStore(kv storage.KV) *Store {
	return &Store{kv: kv}
}

// AccessToken returns the stored access token, or "" when none is stored.
func (s *Store) AccessToken(ctx context.Context) (string, error) {
	return s.get(ctx, storage.KeyAccessToken)
}

// RefreshToken returns the stored refresh token, or "" when none is stored.
func (s *Store) RefreshToken(ctx context.Context) (string, error) {
	return s.get(ctx, storage.KeyRefreshToken)
}

func (s *Store) get(ctx context.Context, key string) (string, error) {
	v, err := s.kv.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return v, nil
}

// Save stores a token pair. An empty refresh token keeps the previous one.
func (s *Store) Save(ctx context.Context, pair types.TokenPair) error {
	if pair.AccessToken == "" {
		return fmt.Errorf("refusing to store an empty access token")
	}
	if err := s.kv.Set(ctx, storage.KeyAccessToken, pair.AccessToken); err != nil {
		return fmt.Errorf("failed to store access token: %w", err)
	}
	if pair.RefreshToken != "" {
		if err := s.kv.Set(ctx, storage.KeyRefreshToken, pair.RefreshToken); err != nil {
			return fmt.Errorf("failed to store refresh token: %w", err)
		}
	}
	return nil
}

// Clear removes both tokens.
func (s *Store) Clear(ctx context.Context) error {
	return errors.Join(
		s.kv.Delete(ctx, storage.KeyAccessToken),
		s.kv.Delete(ctx, storage.KeyRefreshToken),
	)
}

// Package identity keeps the signed-in account used for remote access:
// which dealer the device belongs to, the access token and whether the
// profile is a local-only guest.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ezcar24/dealersync/internal/common"
	"github.com/ezcar24/dealersync/internal/metadata"
)

const metadataKey = "identity"

// Identity is the profile currently active on the device. Guest profiles
// have no token and never talk to the remote store.
type Identity struct {
	DealerID    string `json:"dealer_id"`
	UserID      string `json:"user_id,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
	Guest       bool   `json:"guest"`
}

// CheckToken verifies the access token is present and not expired. The
// signature is not verified here; only the server can do that. This is a
// cheap local gate so sync fails fast with a clear error instead of a
// round trip that ends in a 401.
func (i Identity) CheckToken(now time.Time) error {
	if i.Guest {
		return nil
	}
	if i.AccessToken == "" {
		return common.ErrUnauthorized
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(i.AccessToken, claims); err != nil {
		return fmt.Errorf("parse token: %w", err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return fmt.Errorf("token expiry: %w", err)
	}
	if exp != nil && now.After(exp.Time) {
		return common.ErrTokenExpired
	}
	return nil
}

// Manager persists the active identity in local metadata.
type Manager struct {
	meta *metadata.Repo
}

func NewManager(meta *metadata.Repo) *Manager {
	return &Manager{meta: meta}
}

// Current returns the active identity or common.ErrNoIdentity.
func (m *Manager) Current(ctx context.Context) (Identity, error) {
	value, err := m.meta.Get(ctx, metadataKey)
	if errors.Is(err, common.ErrNotFound) {
		return Identity{}, common.ErrNoIdentity
	}
	if err != nil {
		return Identity{}, err
	}

	var id Identity
	if err := json.Unmarshal([]byte(value), &id); err != nil {
		return Identity{}, fmt.Errorf("decode identity: %w", err)
	}
	return id, nil
}

// Save stores the identity as the active profile.
func (m *Manager) Save(ctx context.Context, id Identity) error {
	b, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	return m.meta.Set(ctx, metadataKey, string(b))
}

// Clear signs the profile out.
func (m *Manager) Clear(ctx context.Context) error {
	return m.meta.Delete(ctx, metadataKey)
}

// AccessToken returns the active profile's token for outbound requests.
// Guests have no token and must never reach the remote store.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	id, err := m.Current(ctx)
	if err != nil {
		return "", err
	}
	if id.Guest || id.AccessToken == "" {
		return "", common.ErrUnauthorized
	}
	return id.AccessToken, nil
}

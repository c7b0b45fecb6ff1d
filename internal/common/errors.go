// Package common defines shared constants and sentinel errors used across
// the dealersync engine. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Remote store errors, mapped from transport status codes.
	// ErrUnavailable is transient (timeouts, 5xx); ErrRejected is a 4xx
	// the server will keep returning for the same payload.
	ErrUnavailable  = errors.New("remote store unavailable")
	ErrRejected     = errors.New("remote store rejected request")
	ErrUnauthorized = errors.New("unauthorized")

	// Token lifecycle errors.
	ErrTokenExpired = errors.New("token expired")

	// Coordinator errors.
	ErrNoIdentity = errors.New("no signed-in identity")
)

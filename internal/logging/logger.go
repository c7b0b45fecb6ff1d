// Package logging defines the structured logger the sync engine writes
// to. The engine depends only on the interface; cmd wires an slog-backed
// implementation.
package logging

import "context"

// Logger is a leveled, context-aware logger. Variadic args are
// alternating key and value, slog style:
//
//	log.Info(ctx, "sync pass finished", "dealer_id", dealerID, "pushed", n)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that includes the given key-value
	// pairs on every record.
	With(args ...any) Logger
}

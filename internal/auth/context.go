// ABOUTME: Caller identity carried through request handlers on the context
// ABOUTME: Provides WithCaller/CallerFromContext used by the gate and HTTP middleware

package auth

import (
	"context"
)

// Caller is an opaque identity invoking ledger operations. It is unrelated to
// the owner field stored on records.
type Caller string

// callerContextKey is the key type for storing Caller in context.Context.
type callerContextKey struct{}

// WithCaller returns a new context with the caller attached.
func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerContextKey{}, caller)
}

// CallerFromContext retrieves the caller from the context. The second return
// is false when no caller is present.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(callerContextKey{}).(Caller)
	if !ok || caller == "" {
		return "", false
	}
	return caller, true
}

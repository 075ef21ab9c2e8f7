// Package auth provides caller identity and the access gate for adledger.
//
// # Access Gate
//
// Gate holds the set of owners: caller identities allowed to invoke mutating
// ledger operations. The creator passed to NewGate is seeded as the first
// owner. Grant and Revoke are themselves restricted to owners:
//
//	gate, err := auth.NewGate(ctx, store, "0xabc", logger)
//	ctx = auth.WithCaller(ctx, "0xabc")
//	err = gate.Grant(ctx, "0xdef")
//
// Every failure is ErrUnauthorized (check with errors.Is) and leaves the set
// unchanged. The set is persisted through store.OwnerStore before the
// in-memory copy is updated.
//
// Owners here are unrelated to the owner field stored on users, ad spaces and
// offers.
//
// # Tokens
//
// HTTP callers authenticate with HS256 JWTs whose "sub" claim is the caller
// identity. HTTPAuthMiddleware verifies the bearer token and attaches the
// caller with WithCaller.
package auth

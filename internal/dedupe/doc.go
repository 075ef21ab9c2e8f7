// Package dedupe tracks idempotency keys of mutating API requests so a client
// retrying after a lost response does not apply the same write twice.
package dedupe

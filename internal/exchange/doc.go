// Package exchange is the operation set the outside world calls.
//
// Create operations require a fresh id and emit a creation event. Update
// operations require an existing id of the right role or hit type and never
// emit events. TransactHit settles a live hit. Every precondition is checked
// under the ledger's per-id write lock, and events are emitted before that
// lock is released, so observers see events for one id in write order.
package exchange

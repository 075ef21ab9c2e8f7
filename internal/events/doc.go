// Package events delivers the exchange's domain events.
//
// Publisher.Emit appends each event to the store's outbox, which assigns a
// sequence number, and then pushes it to live subscribers. Callers emit while
// still holding the entity's write lock, so events for one id come out in the
// order their writes happened. Indexers that fall behind or reconnect read
// the outbox with Replay.
package events

// Package store provides persistent storage for the ledger using SQLite.
//
// # Architecture
//
// The store package uses an interface-driven architecture with narrow
// interfaces, one per consumer:
//
//   - EntityStore: whole-record Put/Get for users, ad spaces, offers and hits
//   - CoefficientStore: per-(kind, id) coefficient vectors
//   - OwnerStore: the persisted owner set behind the access gate
//   - EventStore: the append-only outbox of exchange events
//
// SQLiteStore implements all interfaces in a single struct (the composite
// Store interface), allowing easy composition while maintaining clear
// interface boundaries.
//
// # Data Models
//
//   - User: publisher or advertiser account with rank and lifecycle state
//   - AdSpace: a publisher's slot with URL and categories
//   - Offer: an advertiser's campaign with hit and action prices
//   - Hit: a display or action event linking a space to an offer
//   - EventRecord: outbox row with a monotonically increasing Seq
//
// Each Kind is its own id namespace. The store does not merge fields: a Put
// replaces the whole row and merge rules live in the ledger package.
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode and a single connection:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA busy_timeout=5000;
//
// Unsigned amounts are stored bit-for-bit in INTEGER columns and timestamps
// as RFC 3339 text with nanoseconds. Categories are a JSON array column.
//
// # Error Handling
//
//   - ErrNotFound: requested entity does not exist
//
// All methods accept context.Context for cancellation support.
//
// # Testing
//
// Use NewMockStore() for unit tests:
//
//	s := store.NewMockStore()
//	s.FailWrites = true // every write now fails
//
// Use NewSQLiteStore(":memory:") for integration tests with real SQLite.
package store

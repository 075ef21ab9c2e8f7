// Package ledger is the entity store for the exchange: users, ad spaces,
// offers and hits, each in its own id namespace.
//
// Every mutating call accepts a full field set. On a new record (state
// Unknown) all fields are written literally and created is stamped. On an
// existing record a field holding its sentinel (empty string, uuid.Nil, empty
// categories, the Undefined/NotSet/Unknown enum member, or a nil price/amount
// pointer) keeps the stored value. Created and a user's role never change
// after the first write. A caller therefore cannot clear a text field back to
// empty through an upsert.
//
// Writes are authorized first, then serialized per (kind, id) so the
// read-merge-write of one call never interleaves with another on the same id.
// Reads go straight to the store.
package ledger

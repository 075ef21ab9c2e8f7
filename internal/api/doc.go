// Package api exposes the exchange over HTTP and serves gRPC health checks.
//
// # Routes
//
//	GET    /health
//	POST   /api/publishers              PATCH /api/publishers/{id}
//	POST   /api/advertisers             PATCH /api/advertisers/{id}
//	GET    /api/users/{id}
//	POST   /api/adspaces                PATCH /api/adspaces/{id}     GET /api/adspaces/{id}
//	POST   /api/offers                  PATCH /api/offers/{id}       GET /api/offers/{id}
//	POST   /api/hits/display            PATCH /api/hits/display/{id}
//	POST   /api/hits/action             PATCH /api/hits/action/{id}
//	GET    /api/hits/{id}               POST  /api/hits/{id}/transact
//	PUT    /api/{kind}/{id}/coefficients
//	GET    /api/{kind}/{id}/coefficients/{index}
//	GET    /api/owners                  POST  /api/owners
//	GET    /api/owners/{caller}         DELETE /api/owners/{caller}
//	GET    /api/events                  (text/event-stream, ?after=seq)
//
// # Authentication
//
// Requests carry a bearer JWT whose subject is the caller. Requests without
// one are anonymous and may only read. Errors are JSON objects with a single
// "error" field.
//
// # Status Codes
//
//	401  missing or invalid token on a mutating call
//	403  caller is not an owner
//	404  absent entity or unknown kind
//	409  duplicate id, invalid state, role or hit type mismatch, replayed Idempotency-Key
//	400  malformed body, id or coefficient index
//	429  caller exceeded server.write_rate (mutating calls only)
package api

// Package api is the HTTP surface of the book exchange. It serves account
// and session endpoints under /api/auth, book listings under /api/books and
// trade negotiation under /api/trades, plus a WebSocket at
// /api/trades/stream that pushes trade events to the users they concern.
//
// Handlers decode and validate JSON, call the ledger, trading, session and
// auth services, and map domain rule errors to status codes in errors.go.
package api

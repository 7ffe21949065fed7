// Package service holds what the use-case packages below it share. The use
// cases themselves live in subpackages: ledger (books), trading (the trade
// request state machine), session (refresh-token registry) and auth (users
// and access tokens). They depend on the interfaces of internal/store, never
// on a storage implementation.
package service

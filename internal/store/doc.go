// Package store defines the persistence contracts of the book exchange.
// Business rules live in the services; implementations of these interfaces
// (PostgreSQL in platform/postgres, in-memory in platform/memory) only
// guarantee the atomic primitives the services build on.
package store

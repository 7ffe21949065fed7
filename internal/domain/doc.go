// Package domain contains the core business entities of the book exchange:
// books, trade requests, sessions and users, together with their closed
// status types and the error taxonomy shared by every layer above it.
package domain

// Package memory provides in-process implementations of the store interfaces.
//
// All stores created from one DB share a single lock, so a unit of work run
// through Transactor is fully serialized against every other reader and
// writer. Writes inside a unit of work are journaled and undone on failure.
// It backs the unit tests and the `database.driver: memory` development mode.
package memory

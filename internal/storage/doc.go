// Package storage persists pending timed events in a local SQLite
// database (modernc.org/sqlite, no cgo).
//
// One events table serves every scheduler instance; rows are scoped by a
// kind discriminator ("reminder", "party") and each instance sees only its
// own kind through EventStore. Timestamps are stored as epoch seconds.
package storage

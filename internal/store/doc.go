// Package store persists transcriptions, their immutable numbered versions,
// and derived content in SQLite.
//
// Versions are append-only. Commit is the only writer of version rows and
// current_version; it serializes per transcription with an in-process mutex
// and a file lock under the data directory so separate CLI processes cannot
// allocate the same number. Reads of committed versions take no lock.
//
// Durable row shapes are private to this package and mapped explicitly to
// the transcript types; nothing outside sees the column layout. Schema
// changes bump schemaVersion in schema.go; users delete the database to
// adopt the new schema.
package store

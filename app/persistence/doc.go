// Package persistence provides the SQLite storage of job records and the personnel roster.
// The schema is built by a versioned migration list applied at startup, every migration is
// additive and defaults fields for rows created by earlier versions. The database runs in WAL
// mode with a busy timeout, each statement is atomic and multi-row edits share one transaction.
package persistence

// Package store persists the recording configuration, the append-only
// session log, and the operator roster.
//
// Two backends implement the same contract: a SQLite database (preferred)
// and a flat-file JSON store used automatically when SQLite cannot be
// opened. The backend is probed once at startup and cached for the process
// lifetime. Both backends return identical rosters: the stored roster is
// merged with operator names observed in session history, deduplicated
// case-insensitively, and sorted with a collator.
package store

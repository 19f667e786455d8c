// Package queue holds the resolved playlist and drives each entry through its
// download lifecycle.
//
// The Store keeps entries in an in-memory SQLite database that lives exactly as
// long as the daemon process; nothing is written to disk and a restart starts
// from an empty playlist. Entries are replaced wholesale when a playlist is
// re-fetched and are never deleted individually.
//
// Writes follow a single-writer discipline: a playlist job claims the store,
// and only the claim holder may change entry statuses. Replace and Reset are
// refused while a claim is held so a re-fetch cannot pull entries out from
// under a running job. Status changes are validated against a transition table
// enforced in SQL.
package queue

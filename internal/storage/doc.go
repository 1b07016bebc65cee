// Package storage persists the last observed list snapshot.
//
// Every backend stores one opaque blob under one key (default
// "previous_state"):
//   - file:     a JSON file, replaced atomically
//   - sqlite:   a kv table in a local database (modernc.org/sqlite)
//   - redis:    a plain string key
//   - postgres: a kv table
package storage

// Package migrate applies the identity schema and its seed data.
package migrate

import (
	"database/sql"
	"embed"
)

// Files holds the schema migrations under sql/ and seeds under seeds/.
//
//go:embed sql/*.sql seeds/*.sql
var Files embed.FS

// New returns a Manager over the embedded files.
func New(db *sql.DB, opts ...Option) *Manager {
	return NewManager(db, Files, opts...)
}

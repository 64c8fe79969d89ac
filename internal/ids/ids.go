// Package ids generates storage identifiers.
package ids

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// New returns a lexicographically sortable identifier for entity and audit rows.
func New() string {
	return ulid.Make().String()
}

// Opaque returns a random, non-sortable identifier. Sessions use it so that
// ids leak nothing about issue order.
func Opaque() string {
	return uuid.NewString()
}

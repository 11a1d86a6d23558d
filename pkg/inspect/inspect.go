// Package inspect provides the read-only host inspection primitives the
// tool dispatcher exposes: process and network snapshots, file metadata,
// startup items, and browser extension surveys. Everything here formats
// findings as plain text for the conversation transcript.
package inspect

import (
	"github.com/rs/zerolog"
)

// topProcessCount bounds how many processes a listing reports.
const topProcessCount = 20

// topConnectionCount bounds how many connections a snapshot reports.
const topConnectionCount = 20

// Host inspects the local machine.
type Host struct {
	log zerolog.Logger
}

// New creates a Host inspector.
func New(log zerolog.Logger) *Host {
	return &Host{log: log.With().Str("component", "inspect").Logger()}
}

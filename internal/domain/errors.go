package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrPositionOpen    = errors.New("position already open")
	ErrPositionNotOpen = errors.New("position not open")
	ErrStaleSnapshot   = errors.New("snapshot is stale")
	ErrDegradedData    = errors.New("snapshot data degraded")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrJournalClosed   = errors.New("journal closed")
)

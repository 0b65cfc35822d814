package engine

import (
	"errors"

	"github.com/dshills/blockstorm/internal/engine/document"
	"github.com/dshills/blockstorm/internal/engine/history"
)

// Errors returned by engine operations.
var (
	// ErrClosed indicates the engine was closed.
	ErrClosed = errors.New("engine is closed")

	// ErrInTransaction indicates undo, redo or a history reset was requested
	// from inside an open transaction.
	ErrInTransaction = errors.New("not allowed inside a transaction")
)

// Re-exported errors of the engine's sub-packages.
var (
	ErrNotFound         = document.ErrNotFound
	ErrUnsupported      = document.ErrUnsupported
	ErrIndexOutOfRange  = document.ErrIndexOutOfRange
	ErrDuplicateID      = document.ErrDuplicateID
	ErrOffsetOutOfRange = document.ErrOffsetOutOfRange

	ErrNoTransaction = history.ErrNoTransaction
	ErrAborted       = history.ErrAborted
	ErrSealed        = history.ErrSealed

	ErrUnknownCheckpoint = history.ErrUnknownCheckpoint
)

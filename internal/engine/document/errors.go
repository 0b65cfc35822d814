package document

import (
	"errors"

	"github.com/dshills/blockstorm/internal/engine/block"
)

// Errors returned by document operations.
var (
	// ErrNotFound indicates no block has the requested id.
	ErrNotFound = errors.New("block not found")

	// ErrUnsupported indicates the block's tool lacks a required capability.
	ErrUnsupported = errors.New("operation not supported by tool")

	// ErrIndexOutOfRange indicates an index outside the document.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrDuplicateID indicates a block id already present in the document.
	ErrDuplicateID = errors.New("duplicate block id")

	// ErrOffsetOutOfRange indicates a split offset outside the block content.
	ErrOffsetOutOfRange = block.ErrOffsetOutOfRange
)

// OpError records a failed document operation and the block it targeted.
type OpError struct {
	Op  string
	ID  string
	Err error
}

func (e *OpError) Error() string {
	if e.ID == "" {
		return "document: " + e.Op + ": " + e.Err.Error()
	}
	return "document: " + e.Op + " " + e.ID + ": " + e.Err.Error()
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func opError(op, id string, err error) error {
	return &OpError{Op: op, ID: id, Err: err}
}

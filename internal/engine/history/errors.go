package history

import "errors"

// Errors returned by history operations.
var (
	// ErrNoTransaction indicates Commit, Abort or Record without an open
	// transaction.
	ErrNoTransaction = errors.New("no open transaction")

	// ErrAborted indicates a nested level aborted, so the outermost commit
	// rolled the transaction back instead of committing it.
	ErrAborted = errors.New("transaction aborted")

	// ErrSealed indicates an attempt to change a committed transaction.
	ErrSealed = errors.New("transaction is sealed")

	// ErrUnknownCheckpoint indicates a checkpoint whose entry is no longer
	// reachable in history.
	ErrUnknownCheckpoint = errors.New("unknown checkpoint")
)

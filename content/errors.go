package content

import "errors"

// Sentinel errors for package content.
// These errors can be checked with errors.Is() for specific error handling.
var (
	// Tree structure errors
	ErrAlreadyOwned = errors.New("node already has a parent")
	ErrCycle        = errors.New("node is an ancestor of the target directory")
	ErrNotChild     = errors.New("node is not a child of this directory")
	ErrNilNode      = errors.New("nil node")
)

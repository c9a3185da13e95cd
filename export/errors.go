package export

import "errors"

// Sentinel errors for package export.
var (
	ErrInvalidChunkSize = errors.New("max entries per chunk must be at least 1")
	ErrNoAncestor       = errors.New("no common ancestor for tree")
	ErrOutsideAncestor  = errors.New("path is not under the common ancestor")
	ErrShortWrite       = errors.New("copied size differs from file size")
	ErrNotRegular       = errors.New("expected regular file")
)

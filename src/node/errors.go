package node

import "errors"

var (
	// ErrInvalidProvenance is returned when a provenance does not verify
	// against the entry address.
	ErrInvalidProvenance = errors.New("invalid provenance")
	// ErrInvalidHeader is returned when a replicated header is not signed by
	// its author or does not extend the author's chain.
	ErrInvalidHeader = errors.New("invalid header")
	// ErrChainGap is returned when a replicated header skips indexes of a
	// chain that is not fully known yet. The chain should be synced first.
	ErrChainGap = errors.New("chain gap")
	// ErrFork is returned when a replicated header conflicts with a known
	// header at the same index.
	ErrFork = errors.New("chain fork")
	// ErrNotInitialized is returned when writing before Init.
	ErrNotInitialized = errors.New("node not initialized")
)

package issuance

import "errors"

var (
	// ErrLegacyDisabled is returned by the legacy badge operations when the
	// node does not run them.
	ErrLegacyDisabled = errors.New("legacy badges are disabled")
	// ErrNotRecipient is returned when accepting a claim made out to another
	// agent.
	ErrNotRecipient = errors.New("claim is not addressed to this agent")
	// ErrNoProvenance is returned when no stored header carries the signature
	// an entry must be replayed with.
	ErrNoProvenance = errors.New("original provenance not found")
	// ErrWrongKind is returned when an address resolves to an entry of an
	// unexpected kind.
	ErrWrongKind = errors.New("unexpected entry kind")
)

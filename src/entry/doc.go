// Package entry defines the records that agents commit to their chains.
//
// Entries form a closed set of kinds: the agent identity, the anchor that
// indexes every badge class, and the credential entities (BadgeClass,
// BadgeClaim, BadgeAssertion, and the legacy mutable Badge). Every entry is
// immutable and identified by the content address of its canonical encoding,
// so two semantically identical entries collapse to a single address. The
// canonical encoding is an envelope carrying the kind next to the encoded
// body, which lets a reader recover the concrete shape with Decode instead of
// matching on free-form type names.
package entry

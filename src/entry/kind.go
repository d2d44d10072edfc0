package entry

import "fmt"

// Kind tags the concrete shape of an Entry.
type Kind uint8

const (
	// KindUnknown is the zero value and never appears in a valid envelope.
	KindUnknown Kind = iota
	// KindAgentID is the identity entry that opens every chain.
	KindAgentID
	// KindAnchor is the well-known root of the badge class index.
	KindAnchor
	// KindBadgeClass describes a type of badge.
	KindBadgeClass
	// KindBadgeClaim is an issuer vouching for a recipient.
	KindBadgeClaim
	// KindBadgeAssertion is a recipient publicly holding a badge.
	KindBadgeAssertion
	// KindBadge is the legacy mutable badge.
	KindBadge
)

var kindNames = map[Kind]string{
	KindAgentID:        "%agent_id",
	KindAnchor:         "anchor",
	KindBadgeClass:     "badge_class",
	KindBadgeClaim:     "badge_claim",
	KindBadgeAssertion: "badge_assertion",
	KindBadge:          "badge",
}

// String returns the name of the kind as used in logs and metrics.
func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, n := range kindNames {
		if n == s {
			return k, nil
		}
	}
	return KindUnknown, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

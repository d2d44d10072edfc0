// Package links implements the typed, directed and append-only edges layered
// over the entry store. Links are the only index of the system: classes are
// discovered from the anchor, claims and assertions from their class or from
// the agents involved.
package links

import (
	"fmt"

	"github.com/peerbadge/badges/src/entry"
)

// Type names an edge of the link graph.
type Type string

// Canonical edges.
const (
	AnchorToBadgeClass         Type = "anchor->badge_class"
	CreatorToBadgeClass        Type = "creator->badge_class"
	BadgeClassToBadgeClaim     Type = "badge_class->badge_claim"
	BadgeClassToBadgeAssertion Type = "badge_class->badge_assertion"
	IssuerToBadgeClaim         Type = "issuer->badge_claim"
	RecipientToBadgeClaim      Type = "recipient->badge_claim"
	RecipientToBadgeAssertion  Type = "recipient->badge_assertion"
)

// Edges of the legacy mutable badge.
const (
	IssuerToBadge     Type = "issuer->badge"
	RecipientToBadge  Type = "recipient->badge"
	BadgeClassToBadge Type = "badge_class->badge"
)

// Tags used by the legacy badge to tell unfinished badges from completed
// ones.
const (
	TagTentative = "tentative"
	TagCompleted = "completed"
)

var known = map[Type]bool{
	AnchorToBadgeClass:         true,
	CreatorToBadgeClass:        true,
	BadgeClassToBadgeClaim:     true,
	BadgeClassToBadgeAssertion: true,
	IssuerToBadgeClaim:         true,
	RecipientToBadgeClaim:      true,
	RecipientToBadgeAssertion:  true,
	IssuerToBadge:              true,
	RecipientToBadge:           true,
	BadgeClassToBadge:          true,
}

// Known reports whether t is one of the declared edge types.
func (t Type) Known() bool {
	return known[t]
}

// Link is an edge from Base to Target. Tag qualifies the edge so that
// queries can filter on it, for example claims are tagged with the address
// of their class.
type Link struct {
	Base   entry.Address `json:"base"`
	Target entry.Address `json:"target"`
	Type   Type          `json:"link_type"`
	Tag    string        `json:"tag"`
}

// Key is the identity of a link. Adding the same link twice is a no-op.
func (l Link) Key() string {
	return fmt.Sprintf("%s|%s|%s|%s", l.Base, l.Type, l.Tag, l.Target)
}

// String implements fmt.Stringer.
func (l Link) String() string {
	return fmt.Sprintf("%s -[%s:%s]-> %s", l.Base, l.Type, l.Tag, l.Target)
}

// Matches reports whether the link satisfies a query. Empty filters match
// everything.
func (l Link) Matches(base entry.Address, t Type, tag string) bool {
	if l.Base != base {
		return false
	}
	if t != "" && l.Type != t {
		return false
	}
	if tag != "" && l.Tag != tag {
		return false
	}
	return true
}

// Targets returns the targets of ls in order, without duplicates.
func Targets(ls []Link) []entry.Address {
	res := []entry.Address{}
	seen := make(map[entry.Address]bool, len(ls))
	for _, l := range ls {
		if seen[l.Target] {
			continue
		}
		seen[l.Target] = true
		res = append(res, l.Target)
	}
	return res
}

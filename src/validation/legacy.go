package validation

import (
	"github.com/peerbadge/badges/src/chain"
	"github.com/peerbadge/badges/src/entry"
)

// validateBadge is the state machine of the legacy mutable badge. A badge is
// created empty and every update either appends the writer as issuer or, on
// the recipient's chain, leaves the issuers untouched.
func validateBadge(badge *entry.Badge, data Data) error {
	switch data.Op {
	case Create:
		if len(badge.Issuers) > 0 {
			return newErr(NonEmptyInitialBadge, "no issuers can be present when creating a badge")
		}
		if len(badge.Evidences) > 0 {
			return newErr(NonEmptyInitialBadge, "no evidences can be present when creating a badge")
		}
		return nil
	case Modify:
		old, ok := data.Old.(*entry.Badge)
		if !ok {
			return newErr(ImmutableBadgeField, "a badge can only replace a badge")
		}
		return validateBadgeUpdate(old, badge, data)
	}
	return newErr(ImmutableEntryViolation, "cannot delete a badge")
}

func validateBadgeUpdate(old, next *entry.Badge, data Data) error {
	if next.HasIssuer(next.Recipient) {
		return newErr(SelfClaim, "badge issuers cannot contain the recipient")
	}
	if next.Recipient != old.Recipient {
		return newErr(ImmutableBadgeField, "cannot change the recipient of a badge")
	}
	if next.BadgeClass != old.BadgeClass {
		return newErr(ImmutableBadgeField, "cannot change the class of a badge")
	}

	if data.Package == nil {
		return newErr(BadgeClassNotInChain, "no validation package")
	}
	class, ok := data.Package.BadgeClass(next.BadgeClass)
	if !ok {
		return newErr(BadgeClassNotInChain, "badge class %s is not in the chain", next.BadgeClass)
	}

	author, err := data.chainOwner()
	if err != nil {
		return err
	}

	if author == next.Recipient {
		if !sameIssuers(old.Issuers, next.Issuers) {
			return newErr(IssuerListTampered, "the recipient of a badge cannot change its issuers")
		}
		return nil
	}

	issuer, err := appendedIssuer(old.Issuers, next.Issuers)
	if err != nil {
		return err
	}
	if issuer != author {
		return newErr(UnauthorizedWriter, "only issuers or the recipient can change a badge")
	}
	return issuerValid(next.BadgeClass, class, author, data.Package)
}

func sameIssuers(a, b []entry.AgentRef) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// appendedIssuer returns the single issuer next adds to old.
func appendedIssuer(old, next []entry.AgentRef) (entry.AgentRef, error) {
	if len(next) != len(old)+1 {
		return "", newErr(InvalidIssuerAppend, "each modification can only add a new issuer")
	}
	known := make(map[entry.AgentRef]bool, len(old))
	for _, i := range old {
		known[i] = true
	}
	var added entry.AgentRef
	for _, i := range next {
		if known[i] {
			continue
		}
		if added != "" {
			return "", newErr(InvalidIssuerAppend, "more than one new issuer in a badge update")
		}
		added = i
	}
	if added == "" {
		return "", newErr(InvalidIssuerAppend, "no new issuer found updating a badge")
	}
	return added, nil
}

// issuerValid accepts the creator of the class, or an agent whose chain
// holds its own badge of the class with enough issuers.
func issuerValid(classAddress entry.Address, class *entry.BadgeClass, issuer entry.AgentRef, pkg *chain.Package) error {
	if class.CreatorAgent == issuer {
		return nil
	}
	for _, b := range pkg.Badges() {
		if b.BadgeClass == classAddress && b.Recipient == issuer && len(b.Issuers) >= class.ValidatorsRequired {
			return nil
		}
	}
	return newErr(IssuerNotCredentialed, "agent %s is not a valid issuer for badge %q", issuer, class.Name)
}

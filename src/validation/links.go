package validation

import (
	"github.com/peerbadge/badges/src/entry"
	"github.com/peerbadge/badges/src/links"
)

// Resolver fetches the entries that some link rules inspect.
type Resolver interface {
	GetEntry(address entry.Address) (entry.Entry, error)
}

// ValidateLink decides whether a link operation is admissible. Links are only
// ever added.
func ValidateLink(op Op, l links.Link, resolver Resolver, policy Policy) error {
	if op != Create {
		return newErr(LinkDeletionForbidden, "cannot %s link %s", op, l)
	}

	switch l.Type {
	case links.AnchorToBadgeClass,
		links.BadgeClassToBadgeClaim,
		links.BadgeClassToBadgeAssertion,
		links.IssuerToBadgeClaim,
		links.RecipientToBadgeClaim,
		links.RecipientToBadgeAssertion,
		links.IssuerToBadge:
		return nil
	case links.CreatorToBadgeClass:
		if !policy.StrictCreatorLinks {
			return nil
		}
		class, err := resolveClass(l.Target, resolver)
		if err != nil {
			return err
		}
		if class.CreatorAgent != l.Base {
			return newErr(LinkMismatch, "%s is not the creator of %s", l.Base, l.Target)
		}
		return nil
	case links.RecipientToBadge:
		badge, err := resolveBadge(l.Target, resolver)
		if err != nil {
			return err
		}
		if badge.Recipient != l.Base {
			return newErr(LinkMismatch, "%s is not the recipient of %s", l.Base, l.Target)
		}
		return nil
	case links.BadgeClassToBadge:
		badge, err := resolveBadge(l.Target, resolver)
		if err != nil {
			return err
		}
		if badge.BadgeClass != l.Base {
			return newErr(LinkMismatch, "%s is not the class of %s", l.Base, l.Target)
		}
		return nil
	}
	return newErr(UnknownLinkType, "unknown link type %q", l.Type)
}

func resolve(address entry.Address, resolver Resolver) (entry.Entry, error) {
	if resolver == nil {
		return nil, newErr(ReferenceNotFound, "cannot resolve %s", address)
	}
	e, err := resolver.GetEntry(address)
	if err != nil {
		return nil, newErr(ReferenceNotFound, "%s: %v", address, err)
	}
	return e, nil
}

func resolveClass(address entry.Address, resolver Resolver) (*entry.BadgeClass, error) {
	e, err := resolve(address, resolver)
	if err != nil {
		return nil, err
	}
	class, ok := e.(*entry.BadgeClass)
	if !ok {
		return nil, newErr(LinkMismatch, "%s is a %s, not a badge class", address, e.Kind())
	}
	return class, nil
}

func resolveBadge(address entry.Address, resolver Resolver) (*entry.Badge, error) {
	e, err := resolve(address, resolver)
	if err != nil {
		return nil, err
	}
	badge, ok := e.(*entry.Badge)
	if !ok {
		return nil, newErr(LinkMismatch, "%s is a %s, not a badge", address, e.Kind())
	}
	return badge, nil
}

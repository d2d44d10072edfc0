package validation

import (
	"github.com/peerbadge/badges/src/entry"
)

// ValidateEntry decides whether e may be written with data. It returns nil
// when the write is admissible and an Err otherwise.
func ValidateEntry(e entry.Entry, data Data, policy Policy) error {
	switch v := e.(type) {
	case *entry.AgentID:
		return validateAgentID(v, data)
	case *entry.Anchor:
		return validateImmutable(e, data)
	case *entry.BadgeClass:
		return validateBadgeClass(v, data, policy)
	case *entry.BadgeClaim:
		return validateBadgeClaim(v, data)
	case *entry.BadgeAssertion:
		return validateBadgeAssertion(v, data, policy)
	case *entry.Badge:
		return validateBadge(v, data)
	}
	return newErr(MalformedEntry, "unknown entry %T", e)
}

func validateImmutable(e entry.Entry, data Data) error {
	if data.Op != Create {
		return newErr(ImmutableEntryViolation, "cannot %s a %s", data.Op, e.Kind())
	}
	return nil
}

// validateAgentID accepts the identity only as the first, self-signed entry
// of a chain.
func validateAgentID(id *entry.AgentID, data Data) error {
	if err := validateImmutable(id, data); err != nil {
		return err
	}
	if data.Package != nil {
		if _, ok := data.Package.AgentID(); ok {
			return newErr(UnauthorizedWriter, "chain already has an identity")
		}
	}
	if !data.signedBy(id.PubKey) {
		return newErr(UnauthorizedWriter, "identity %s is not signed by its own key", id.PubKey)
	}
	return nil
}

func validateBadgeClass(class *entry.BadgeClass, data Data, policy Policy) error {
	if err := validateImmutable(class, data); err != nil {
		return err
	}
	if class.ValidatorsRequired < 0 {
		return newErr(MalformedEntry, "validators required cannot be negative")
	}
	if policy.RequireCreatorSignature && !data.signedBy(class.CreatorAgent) {
		return newErr(MissingCreatorSignature, "class %q is not signed by its creator %s", class.Name, class.CreatorAgent)
	}
	return nil
}

// validateBadgeClaim accepts a claim on the recipient's chain when both
// parties signed it, and on the issuer's chain when the issuer already
// asserted the class.
func validateBadgeClaim(claim *entry.BadgeClaim, data Data) error {
	if err := validateImmutable(claim, data); err != nil {
		return err
	}

	if claim.Issuer == claim.Recipient {
		return newErr(SelfClaim, "%s cannot vouch for itself", claim.Issuer)
	}

	owner, err := data.chainOwner()
	if err != nil {
		return err
	}

	switch owner {
	case claim.Recipient:
		if !data.signedBy(claim.Recipient) || !data.signedBy(claim.Issuer) {
			return newErr(MissingCountersignature, "claim must be signed by recipient %s and issuer %s", claim.Recipient, claim.Issuer)
		}
		return nil
	case claim.Issuer:
		for _, a := range data.Package.Assertions() {
			if a.BadgeClass == claim.BadgeClass && a.Recipient == claim.Issuer {
				return nil
			}
		}
		return newErr(IssuerNotCredentialed, "%s does not hold badge class %s", claim.Issuer, claim.BadgeClass)
	default:
		return newErr(UnauthorizedWriter, "only the issuer or the recipient chain can carry a claim, not %s", owner)
	}
}

func validateBadgeAssertion(assertion *entry.BadgeAssertion, data Data, policy Policy) error {
	if err := validateImmutable(assertion, data); err != nil {
		return err
	}

	report, err := QuorumReport(assertion, data.Package)
	if err != nil {
		return err
	}

	if !policy.AllowForeignAssertions {
		owner, err := data.chainOwner()
		if err != nil {
			return err
		}
		if owner != assertion.Recipient {
			return newErr(UnauthorizedWriter, "assertion for %s written by %s", assertion.Recipient, owner)
		}
	}
	if !report.Satisfied() {
		return insufficientClaims(report.Required, report.Observed)
	}
	return nil
}

package validation

import (
	"github.com/peerbadge/badges/src/chain"
	"github.com/peerbadge/badges/src/entry"
)

// Report tells how an assertion stands against the quorum of its class,
// given a package.
type Report struct {
	Class     *entry.BadgeClass
	Recipient entry.AgentRef
	// Required is the quorum of the class.
	Required int
	// Observed counts the claims matching recipient and class. Claims are
	// not deduplicated by issuer.
	Observed int
	// CreatorAssertion is set when the recipient created the class.
	CreatorAssertion bool
	// CreatorBypass is set when the package holds a claim issued by the
	// creator of the class, whatever its recipient.
	CreatorBypass bool
}

// Satisfied reports whether the assertion would be accepted.
func (r Report) Satisfied() bool {
	return r.CreatorAssertion || r.CreatorBypass || r.Observed >= r.Required
}

// Missing is the number of claims still needed to reach the quorum.
func (r Report) Missing() int {
	if r.Satisfied() {
		return 0
	}
	return r.Required - r.Observed
}

// QuorumReport evaluates an assertion against pkg without deciding anything.
// The class must be found in pkg.
func QuorumReport(assertion *entry.BadgeAssertion, pkg *chain.Package) (Report, error) {
	if pkg == nil {
		return Report{}, newErr(BadgeClassNotInChain, "no validation package")
	}
	class, ok := pkg.BadgeClass(assertion.BadgeClass)
	if !ok {
		return Report{}, newErr(BadgeClassNotInChain, "badge class %s is not in the chain", assertion.BadgeClass)
	}

	report := Report{
		Class:     class,
		Recipient: assertion.Recipient,
		Required:  class.ValidatorsRequired,
	}

	if assertion.Recipient == class.CreatorAgent {
		report.CreatorAssertion = true
		return report, nil
	}

	for _, claim := range pkg.Claims() {
		if claim.Issuer == class.CreatorAgent {
			report.CreatorBypass = true
		}
		if claim.Recipient == assertion.Recipient && claim.BadgeClass == assertion.BadgeClass {
			report.Observed++
		}
	}

	return report, nil
}

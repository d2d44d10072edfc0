package issuance

import (
	"github.com/peerbadge/badges/src/chain"
	"github.com/peerbadge/badges/src/entry"
	"github.com/peerbadge/badges/src/links"
	"github.com/peerbadge/badges/src/validation"
)

// Version is one version of an entry.
type Version struct {
	Address entry.Address `json:"address"`
	Entry   entry.Entry   `json:"entry"`
}

// QuorumStatus tells how close the agent is to asserting a class.
type QuorumStatus struct {
	validation.Report
	// Pending are the claims received for the class that the agent's chain
	// does not hold yet. AssertOwnCredential accepts them first.
	Pending []entry.Address
	// PendingCreatorClaim is set when one of the pending claims was issued
	// by the class creator.
	PendingCreatorClaim bool
}

// CanAssert reports whether asserting the class would succeed once the
// pending claims are accepted.
func (s QuorumStatus) CanAssert() bool {
	return s.Satisfied() || s.PendingCreatorClaim || s.Observed+len(s.Pending) >= s.Required
}

// AllClasses returns every class indexed from the anchor.
func (w *Workflow) AllClasses() ([]entry.Address, error) {
	anchor, err := entry.AnchorAddress()
	if err != nil {
		return nil, err
	}
	return w.targets(anchor, links.AnchorToBadgeClass, "")
}

// CreatedClasses returns the classes created by agent.
func (w *Workflow) CreatedClasses(agent entry.AgentRef) ([]entry.Address, error) {
	return w.targets(agent, links.CreatorToBadgeClass, "")
}

// ClaimsForClass returns the claims issued for class.
func (w *Workflow) ClaimsForClass(class entry.Address) ([]entry.Address, error) {
	return w.targets(class, links.BadgeClassToBadgeClaim, "")
}

// AssertionsForClass returns the assertions of class.
func (w *Workflow) AssertionsForClass(class entry.Address) ([]entry.Address, error) {
	return w.targets(class, links.BadgeClassToBadgeAssertion, "")
}

// ClaimsIssuedBy returns the claims issued by agent. An empty class matches
// every class.
func (w *Workflow) ClaimsIssuedBy(agent entry.AgentRef, class entry.Address) ([]entry.Address, error) {
	return w.targets(agent, links.IssuerToBadgeClaim, string(class))
}

// ClaimsReceivedBy returns the claims made out to agent. An empty class
// matches every class.
func (w *Workflow) ClaimsReceivedBy(agent entry.AgentRef, class entry.Address) ([]entry.Address, error) {
	return w.targets(agent, links.RecipientToBadgeClaim, string(class))
}

// AssertionsHeldBy returns the assertions of agent.
func (w *Workflow) AssertionsHeldBy(agent entry.AgentRef) ([]entry.Address, error) {
	return w.targets(agent, links.RecipientToBadgeAssertion, "")
}

// GetEntry returns the entry stored under address.
func (w *Workflow) GetEntry(address entry.Address) (entry.Entry, error) {
	return w.store.GetEntry(address)
}

// GetHistory returns every version of the entry address belongs to, oldest
// first.
func (w *Workflow) GetHistory(address entry.Address) ([]Version, error) {
	addrs, err := w.store.GetHistory(address)
	if err != nil {
		return nil, err
	}
	res := make([]Version, 0, len(addrs))
	for _, a := range addrs {
		e, err := w.store.GetEntry(a)
		if err != nil {
			return nil, err
		}
		res = append(res, Version{Address: a, Entry: e})
	}
	return res, nil
}

// QuorumStatus evaluates an assertion of class by the agent against its
// chain as it is now, with the class pulled in if it is not there yet.
func (w *Workflow) QuorumStatus(class entry.Address) (QuorumStatus, error) {
	c, err := w.getClass(class)
	if err != nil {
		return QuorumStatus{}, err
	}
	me := w.MyAddress()

	pkg, err := chain.Assemble(w.store, me)
	if err != nil {
		return QuorumStatus{}, err
	}
	if _, ok := pkg.BadgeClass(class); !ok {
		pkg.Entries = append(pkg.Entries, c)
	}

	report, err := validation.QuorumReport(&entry.BadgeAssertion{BadgeClass: class, Recipient: me}, pkg)
	if err != nil {
		return QuorumStatus{}, err
	}
	pending, err := w.pendingClaims(class)
	if err != nil {
		return QuorumStatus{}, err
	}

	status := QuorumStatus{Report: report, Pending: pending}
	for _, addr := range pending {
		e, err := w.store.GetEntry(addr)
		if err != nil {
			continue
		}
		if claim, ok := e.(*entry.BadgeClaim); ok && claim.Issuer == c.CreatorAgent {
			status.PendingCreatorClaim = true
			break
		}
	}
	return status, nil
}

func (w *Workflow) targets(base entry.Address, t links.Type, tag string) ([]entry.Address, error) {
	ls, err := w.store.GetLinks(base, t, tag)
	if err != nil {
		return nil, err
	}
	return links.Targets(ls), nil
}

package issuance

import (
	"fmt"

	"github.com/peerbadge/badges/src/chain"
	"github.com/peerbadge/badges/src/entry"
	"github.com/peerbadge/badges/src/links"
	"github.com/peerbadge/badges/src/node"
	"github.com/peerbadge/badges/src/store"
	"github.com/sirupsen/logrus"
)

// Workflow runs the issuance flows as the agent of a node.
type Workflow struct {
	node   *node.Node
	store  store.Store
	legacy bool
	logger *logrus.Entry
}

// NewWorkflow returns a Workflow writing through n. legacy enables the
// mutable badge operations.
func NewWorkflow(n *node.Node, legacy bool, logger *logrus.Entry) *Workflow {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}
	return &Workflow{
		node:   n,
		store:  n.Store(),
		legacy: legacy,
		logger: logger.WithField("prefix", "issuance"),
	}
}

// MyAddress returns the agent reference of the node.
func (w *Workflow) MyAddress() entry.AgentRef {
	return w.node.Agent().Ref()
}

// Anchor returns the address of the anchor, committing it to the agent's
// chain first if needed. Every agent commits the same anchor, so this always
// returns the same address.
func (w *Workflow) Anchor() (entry.Address, error) {
	anchor := entry.NewAnchor()
	addr, err := entry.AddressOf(anchor)
	if err != nil {
		return "", err
	}
	if w.committedByMe(addr) {
		return addr, nil
	}
	return w.node.Commit(anchor)
}

// CreateClass commits a badge class created by the agent and indexes it from
// the anchor and from its creator. With selfAssert the creator immediately
// asserts the class, which makes it able to issue claims.
func (w *Workflow) CreateClass(name, description, image string, validatorsRequired int, selfAssert bool) (entry.Address, error) {
	me := w.MyAddress()

	anchor, err := w.Anchor()
	if err != nil {
		return "", fmt.Errorf("anchor: %w", err)
	}

	class := &entry.BadgeClass{
		Name:               name,
		Description:        description,
		Image:              image,
		CreatorAgent:       me,
		ValidatorsRequired: validatorsRequired,
	}
	addr, err := w.node.Commit(class)
	if err != nil {
		return "", err
	}

	if err := w.node.LinkEntries(anchor, addr, links.AnchorToBadgeClass, ""); err != nil {
		return addr, err
	}
	if err := w.node.LinkEntries(me, addr, links.CreatorToBadgeClass, ""); err != nil {
		return addr, err
	}

	w.logger.WithFields(logrus.Fields{
		"class":      addr,
		"name":       name,
		"validators": validatorsRequired,
	}).Info("Badge class created")

	if selfAssert {
		if _, err := w.assert(addr); err != nil {
			return addr, fmt.Errorf("self assertion: %w", err)
		}
	}
	return addr, nil
}

// IssueClaim commits, on the issuer's chain, a claim that recipient deserves
// class. The issuer must already hold the class.
func (w *Workflow) IssueClaim(recipient entry.AgentRef, class entry.Address, evidences []entry.Address) (entry.Address, error) {
	me := w.MyAddress()
	claim := &entry.BadgeClaim{
		Issuer:     me,
		Recipient:  recipient,
		BadgeClass: class,
		Evidences:  evidences,
	}
	addr, err := w.node.Commit(claim)
	if err != nil {
		return "", err
	}

	if err := w.linkClaim(claim, addr); err != nil {
		return addr, err
	}

	w.logger.WithFields(logrus.Fields{
		"claim":     addr,
		"recipient": recipient,
		"class":     class,
	}).Info("Claim issued")
	return addr, nil
}

func (w *Workflow) linkClaim(claim *entry.BadgeClaim, addr entry.Address) error {
	tag := string(claim.BadgeClass)
	if err := w.node.LinkEntries(claim.Issuer, addr, links.IssuerToBadgeClaim, tag); err != nil {
		return err
	}
	if err := w.node.LinkEntries(claim.Recipient, addr, links.RecipientToBadgeClaim, tag); err != nil {
		return err
	}
	return w.node.LinkEntries(claim.BadgeClass, addr, links.BadgeClassToBadgeClaim, string(claim.Recipient))
}

// AcceptClaim re-commits a claim made out to the agent on its own chain,
// with the issuer's original signature next to its own.
func (w *Workflow) AcceptClaim(address entry.Address) (entry.Address, error) {
	claim, err := w.getClaim(address)
	if err != nil {
		return "", err
	}
	me := w.MyAddress()
	if claim.Recipient != me {
		return "", fmt.Errorf("%w: %s", ErrNotRecipient, address)
	}
	if w.committedByMe(address) {
		return address, nil
	}

	issuerProv, err := w.provenanceOf(address, claim.Issuer)
	if err != nil {
		return "", err
	}
	ownProv, err := w.node.Agent().Provenance(address)
	if err != nil {
		return "", err
	}

	addr, err := w.node.CommitWithProvenance(claim, []chain.Provenance{issuerProv, ownProv})
	if err != nil {
		return "", err
	}
	if err := w.linkClaim(claim, addr); err != nil {
		return addr, err
	}

	w.logger.WithFields(logrus.Fields{
		"claim":  addr,
		"issuer": claim.Issuer,
	}).Info("Claim accepted")
	return addr, nil
}

// AssertOwnCredential asserts that the agent holds class. It first pulls the
// class, with its creator's signature, and every claim it received for the
// class into its own chain, so that the assertion validates against them.
func (w *Workflow) AssertOwnCredential(class entry.Address) (entry.Address, error) {
	if err := w.pullClass(class); err != nil {
		return "", err
	}

	pending, err := w.pendingClaims(class)
	if err != nil {
		return "", err
	}
	for _, c := range pending {
		if _, err := w.AcceptClaim(c); err != nil {
			// a claim that cannot be accepted does not count, others may
			// still reach the quorum
			w.logger.WithError(err).WithField("claim", c).Warn("Skipping claim")
		}
	}

	return w.assert(class)
}

func (w *Workflow) assert(class entry.Address) (entry.Address, error) {
	me := w.MyAddress()
	assertion := &entry.BadgeAssertion{BadgeClass: class, Recipient: me}
	addr, err := w.node.Commit(assertion)
	if err != nil {
		return "", err
	}
	if err := w.node.LinkEntries(me, addr, links.RecipientToBadgeAssertion, string(class)); err != nil {
		return addr, err
	}
	if err := w.node.LinkEntries(class, addr, links.BadgeClassToBadgeAssertion, string(me)); err != nil {
		return addr, err
	}
	w.logger.WithField("class", class).WithField("assertion", addr).Info("Credential asserted")
	return addr, nil
}

// pullClass replays class into the agent's chain with the provenance of the
// header that first committed it.
func (w *Workflow) pullClass(address entry.Address) error {
	class, err := w.getClass(address)
	if err != nil {
		return err
	}
	if w.committedByMe(address) {
		return nil
	}
	h, err := w.originalHeader(address, class.CreatorAgent)
	if err != nil {
		return err
	}
	if _, err := w.node.CommitWithProvenance(class, h.Provenances); err != nil {
		return fmt.Errorf("pulling class %s: %w", address, err)
	}
	w.logger.WithField("class", address).Debug("Class pulled into chain")
	return nil
}

// pendingClaims returns the claims made out to the agent for class that its
// chain does not hold yet.
func (w *Workflow) pendingClaims(class entry.Address) ([]entry.Address, error) {
	received, err := w.ClaimsReceivedBy(w.MyAddress(), class)
	if err != nil {
		return nil, err
	}
	res := []entry.Address{}
	for _, c := range received {
		if !w.committedByMe(c) {
			res = append(res, c)
		}
	}
	return res, nil
}

// committedByMe reports whether the agent's chain holds address.
func (w *Workflow) committedByMe(address entry.Address) bool {
	headers, err := w.store.EntryHeaders(address)
	if err != nil {
		return false
	}
	me := w.MyAddress()
	for _, h := range headers {
		if h.Agent == me {
			return true
		}
	}
	return false
}

// originalHeader returns the first header committing address that signer
// signed.
func (w *Workflow) originalHeader(address entry.Address, signer entry.AgentRef) (*chain.Header, error) {
	headers, err := w.store.EntryHeaders(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoProvenance, address, err)
	}
	for _, h := range headers {
		if h.SignedBy(signer) {
			return h, nil
		}
	}
	return nil, fmt.Errorf("%w: %s signed by %s", ErrNoProvenance, address, signer)
}

func (w *Workflow) provenanceOf(address entry.Address, signer entry.AgentRef) (chain.Provenance, error) {
	h, err := w.originalHeader(address, signer)
	if err != nil {
		return chain.Provenance{}, err
	}
	for _, p := range h.Provenances {
		if p.Agent == signer {
			return p, nil
		}
	}
	return chain.Provenance{}, fmt.Errorf("%w: %s signed by %s", ErrNoProvenance, address, signer)
}

func (w *Workflow) getClass(address entry.Address) (*entry.BadgeClass, error) {
	e, err := w.store.GetEntry(address)
	if err != nil {
		return nil, err
	}
	class, ok := e.(*entry.BadgeClass)
	if !ok {
		return nil, fmt.Errorf("%w: %s is a %s, not a badge class", ErrWrongKind, address, e.Kind())
	}
	return class, nil
}

func (w *Workflow) getClaim(address entry.Address) (*entry.BadgeClaim, error) {
	e, err := w.store.GetEntry(address)
	if err != nil {
		return nil, err
	}
	claim, ok := e.(*entry.BadgeClaim)
	if !ok {
		return nil, fmt.Errorf("%w: %s is a %s, not a badge claim", ErrWrongKind, address, e.Kind())
	}
	return claim, nil
}

package issuance

import (
	"fmt"

	"github.com/peerbadge/badges/src/entry"
	"github.com/peerbadge/badges/src/links"
	"github.com/sirupsen/logrus"
)

// ClaimAgentDeservesBadge appends the agent as an issuer of the legacy badge
// of recipient for class. The badge is created empty first if it does not
// exist. It returns the address of the initial badge, which identifies the
// badge across its versions.
func (w *Workflow) ClaimAgentDeservesBadge(recipient entry.AgentRef, class entry.Address, evidences []entry.Address) (entry.Address, error) {
	if !w.legacy {
		return "", ErrLegacyDisabled
	}

	c, err := w.getClass(class)
	if err != nil {
		return "", err
	}
	if err := w.pullClass(class); err != nil {
		return "", err
	}

	initial := entry.InitialBadge(recipient, class)
	initialAddr, err := entry.AddressOf(initial)
	if err != nil {
		return "", err
	}

	if !w.store.HasEntry(initialAddr) {
		if _, err := w.node.Commit(initial); err != nil {
			return "", fmt.Errorf("creating badge: %w", err)
		}
	}

	prev, current, err := w.latestBadge(initialAddr)
	if err != nil {
		return "", err
	}

	me := w.MyAddress()
	next := current.Copy()
	next.Issuers = append(next.Issuers, me)
	next.Evidences = append(next.Evidences, evidences...)

	addr, err := w.node.Update(prev, next)
	if err != nil {
		return "", err
	}

	tag := links.TagTentative
	if len(next.Issuers) >= c.ValidatorsRequired || c.CreatorAgent == me {
		tag = links.TagCompleted
	}
	if err := w.node.LinkEntries(me, initialAddr, links.IssuerToBadge, string(class)); err != nil {
		return initialAddr, err
	}
	if err := w.node.LinkEntries(recipient, initialAddr, links.RecipientToBadge, tag); err != nil {
		return initialAddr, err
	}
	if err := w.node.LinkEntries(class, addr, links.BadgeClassToBadge, ""); err != nil {
		return initialAddr, err
	}

	w.logger.WithFields(logrus.Fields{
		"badge":     initialAddr,
		"version":   addr,
		"recipient": recipient,
		"issuers":   len(next.Issuers),
		"status":    tag,
	}).Info("Badge issued")
	return initialAddr, nil
}

// GetBadge returns the latest version of the legacy badge of recipient for
// class.
func (w *Workflow) GetBadge(recipient entry.AgentRef, class entry.Address) (*entry.Badge, error) {
	if !w.legacy {
		return nil, ErrLegacyDisabled
	}
	addr, err := entry.AddressOf(entry.InitialBadge(recipient, class))
	if err != nil {
		return nil, err
	}
	_, badge, err := w.latestBadge(addr)
	return badge, err
}

// BadgesForClass returns the badge versions issued for class.
func (w *Workflow) BadgesForClass(class entry.Address) ([]entry.Address, error) {
	if !w.legacy {
		return nil, ErrLegacyDisabled
	}
	return w.targets(class, links.BadgeClassToBadge, "")
}

// BadgesToRecipient returns the badges of agent. Completed badges reached
// the quorum of their class, tentative ones did not yet.
func (w *Workflow) BadgesToRecipient(agent entry.AgentRef, completed bool) ([]entry.Address, error) {
	if !w.legacy {
		return nil, ErrLegacyDisabled
	}
	done, err := w.targets(agent, links.RecipientToBadge, links.TagCompleted)
	if err != nil || completed {
		return done, err
	}

	tentative, err := w.targets(agent, links.RecipientToBadge, links.TagTentative)
	if err != nil {
		return nil, err
	}
	// links cannot be removed, so a badge stays linked as tentative after it
	// completes
	isDone := make(map[entry.Address]bool, len(done))
	for _, a := range done {
		isDone[a] = true
	}
	res := []entry.Address{}
	for _, a := range tentative {
		if !isDone[a] {
			res = append(res, a)
		}
	}
	return res, nil
}

// BadgesFromIssuer returns the badges agent issued.
func (w *Workflow) BadgesFromIssuer(agent entry.AgentRef) ([]entry.Address, error) {
	if !w.legacy {
		return nil, ErrLegacyDisabled
	}
	return w.targets(agent, links.IssuerToBadge, "")
}

func (w *Workflow) latestBadge(initial entry.Address) (entry.Address, *entry.Badge, error) {
	latest, err := w.store.Latest(initial)
	if err != nil {
		return "", nil, fmt.Errorf("badge %s: %w", initial, err)
	}
	e, err := w.store.GetEntry(latest)
	if err != nil {
		return "", nil, err
	}
	badge, ok := e.(*entry.Badge)
	if !ok {
		return "", nil, fmt.Errorf("%w: %s is a %s, not a badge", ErrWrongKind, latest, e.Kind())
	}
	return latest, badge, nil
}

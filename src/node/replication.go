package node

import (
	"fmt"

	cm "github.com/peerbadge/badges/src/common"
	"github.com/peerbadge/badges/src/chain"
	"github.com/peerbadge/badges/src/entry"
	"github.com/peerbadge/badges/src/validation"
	"github.com/sirupsen/logrus"
)

// maxDeferredLinks bounds the links kept while their target is missing.
const maxDeferredLinks = 1024

// Receive validates a record replicated from a peer against the local copy of
// its author's chain and stores it. Records already known are ignored.
func (n *Node) Receive(r *chain.Record) error {
	h := r.Header
	if h.Agent == n.agent.Ref() {
		return nil
	}

	e, err := r.Decode()
	if err != nil {
		return err
	}
	ok, err := h.VerifySignature()
	if err != nil || !ok {
		return fmt.Errorf("%w: header %d of %s is not signed by its author", ErrInvalidHeader, h.Index, short(h.Agent))
	}
	if err := verifyProvenances(h.EntryAddress, h.Provenances); err != nil {
		return err
	}

	n.writeLock.Lock()
	defer n.writeLock.Unlock()

	next := 0
	last, err := n.store.LastHeader(h.Agent)
	switch {
	case err == nil:
		next = last.Index + 1
	case cm.IsStore(err, cm.UnknownParticipant), cm.IsStore(err, cm.Empty):
	default:
		return err
	}

	switch {
	case h.Index < next:
		known, err := n.store.ChainHeaders(h.Agent, h.Index-1)
		if err != nil {
			return err
		}
		if known[0].Hex() != h.Hex() {
			return fmt.Errorf("%w: %s at index %d", ErrFork, short(h.Agent), h.Index)
		}
		return nil
	case h.Index > next:
		return fmt.Errorf("%w: %s at index %d, expected %d", ErrChainGap, short(h.Agent), h.Index, next)
	}

	if last == nil {
		if e.Kind() != entry.KindAgentID || h.EntryAddress != h.Agent {
			return fmt.Errorf("%w: chain of %s must open with its identity", ErrInvalidHeader, short(h.Agent))
		}
		if h.PrevHeader != "" {
			return fmt.Errorf("%w: genesis header with a previous header", ErrInvalidHeader)
		}
	} else if h.PrevHeader != last.Hex() {
		return fmt.Errorf("%w: %s at index %d does not extend %s", ErrInvalidHeader, short(h.Agent), h.Index, last.Hex())
	}

	op := validation.Create
	if h.ReplacedEntry != "" {
		op = validation.Modify
	}
	data, err := n.validationData(h.Agent, op, h.ReplacedEntry, h.Sources())
	if err != nil {
		return err
	}

	err = validation.ValidateEntry(e, data, n.conf.Policy)
	n.metrics.observe(e.Kind().String(), err)
	if err != nil {
		n.logger.WithError(err).WithFields(logrus.Fields{
			"author": short(h.Agent),
			"index":  h.Index,
		}).Debug("Replicated entry rejected")
		return err
	}

	if err := n.apply(e, &h); err != nil {
		return err
	}
	n.metrics.received.Inc()
	n.retryDeferredLinks()

	n.logger.WithFields(logrus.Fields{
		"author": short(h.Agent),
		"index":  h.Index,
		"kind":   h.Kind.String(),
	}).Debug("Replicated entry accepted")

	return nil
}

// ReceiveLink validates a link operation replicated from a peer and adds the
// link. A link whose target is not known yet is kept aside and retried each
// time a replicated entry is accepted.
func (n *Node) ReceiveLink(lr *chain.LinkRecord) error {
	ok, err := lr.Verify()
	if err != nil || !ok {
		return fmt.Errorf("%w: link %s is not signed by %s", ErrInvalidHeader, lr.Link, short(lr.Author))
	}

	op := validation.Create
	if lr.Removed {
		op = validation.Delete
	}
	err = validation.ValidateLink(op, lr.Link, n.store, n.conf.Policy)
	if validation.Is(err, validation.ReferenceNotFound) {
		n.deferLink(lr)
		return err
	}
	n.metrics.observe(string(lr.Link.Type), err)
	if err != nil {
		return err
	}
	return n.store.AddLink(lr.Link)
}

// DeferredLinks returns the number of links waiting for their target.
func (n *Node) DeferredLinks() int {
	n.deferredMu.Lock()
	defer n.deferredMu.Unlock()
	return len(n.deferred)
}

func (n *Node) deferLink(lr *chain.LinkRecord) {
	n.deferredMu.Lock()
	defer n.deferredMu.Unlock()
	if len(n.deferred) >= maxDeferredLinks {
		n.logger.WithField("link", lr.Link.String()).Warn("Too many links waiting for their target, dropping")
		return
	}
	n.deferred[lr.Link.Key()] = lr
}

func (n *Node) retryDeferredLinks() {
	n.deferredMu.Lock()
	defer n.deferredMu.Unlock()
	for k, lr := range n.deferred {
		err := validation.ValidateLink(validation.Create, lr.Link, n.store, n.conf.Policy)
		if validation.Is(err, validation.ReferenceNotFound) {
			continue
		}
		delete(n.deferred, k)
		n.metrics.observe(string(lr.Link.Type), err)
		if err != nil {
			n.logger.WithError(err).WithField("link", lr.Link.String()).Debug("Deferred link rejected")
			continue
		}
		if err := n.store.AddLink(lr.Link); err != nil {
			n.logger.WithError(err).WithField("link", lr.Link.String()).Warn("Adding deferred link")
		}
	}
}

// Records returns the records of agent's chain starting at index skip+1.
func (n *Node) Records(agent entry.AgentRef, skip int) ([]*chain.Record, error) {
	headers, err := n.store.ChainHeaders(agent, skip)
	if err != nil {
		return nil, err
	}
	res := make([]*chain.Record, 0, len(headers))
	for _, h := range headers {
		e, err := n.store.GetEntry(h.EntryAddress)
		if err != nil {
			return nil, err
		}
		r, err := chain.NewRecord(h, e)
		if err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	return res, nil
}

// ReceiveChain applies records of a single chain in order. It stops at the
// first rejected record.
func (n *Node) ReceiveChain(records []*chain.Record) error {
	for _, r := range records {
		if err := n.Receive(r); err != nil {
			return fmt.Errorf("record %d of %s: %w", r.Header.Index, short(r.Header.Agent), err)
		}
	}
	return nil
}

// ChainLength returns the number of headers known for agent.
func (n *Node) ChainLength(agent entry.AgentRef) int {
	last, err := n.store.LastHeader(agent)
	if err != nil {
		return 0
	}
	return last.Index + 1
}

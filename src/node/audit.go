package node

import (
	"context"
	"fmt"
	"runtime"

	"github.com/peerbadge/badges/src/chain"
	"github.com/peerbadge/badges/src/entry"
	"github.com/peerbadge/badges/src/validation"
	"golang.org/x/sync/errgroup"
)

// Audit re-validates every entry of agent's chain against the prefix of the
// chain that preceded it. Validations are independent, so they run in
// parallel. It returns the first failure found.
func (n *Node) Audit(ctx context.Context, agent entry.AgentRef) error {
	headers, err := n.store.ChainHeaders(agent, -1)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i, h := range headers {
		i, h := i, h
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := n.auditHeader(agent, i, h); err != nil {
				return fmt.Errorf("entry %d of %s: %w", i, short(agent), err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		n.logger.WithError(err).WithField("chain", short(agent)).Warn("Audit failed")
		return err
	}

	n.logger.WithField("chain", short(agent)).WithField("entries", len(headers)).Debug("Audit passed")
	return nil
}

func (n *Node) auditHeader(agent entry.AgentRef, i int, h *chain.Header) error {
	if ok, err := h.VerifySignature(); err != nil || !ok {
		return ErrInvalidHeader
	}
	if err := verifyProvenances(h.EntryAddress, h.Provenances); err != nil {
		return err
	}

	e, err := n.store.GetEntry(h.EntryAddress)
	if err != nil {
		return err
	}
	pkg, err := chain.AssemblePrefix(n.store, agent, i)
	if err != nil {
		return err
	}

	data := validation.Data{Op: validation.Create, Package: pkg, Sources: h.Sources()}
	if h.ReplacedEntry != "" {
		old, err := n.store.GetEntry(h.ReplacedEntry)
		if err != nil {
			return err
		}
		data.Op = validation.Modify
		data.Old = old
	}
	return validation.ValidateEntry(e, data, n.conf.Policy)
}

package node

import (
	"fmt"
	"sync"

	cm "github.com/peerbadge/badges/src/common"
	"github.com/peerbadge/badges/src/chain"
	"github.com/peerbadge/badges/src/entry"
	"github.com/peerbadge/badges/src/links"
	"github.com/peerbadge/badges/src/store"
	"github.com/peerbadge/badges/src/validation"
	"github.com/sirupsen/logrus"
)

// Publisher sends local writes to peers.
type Publisher interface {
	PublishRecord(r *chain.Record) error
	PublishLink(lr *chain.LinkRecord) error
}

// Node is a participant: one agent, its chain, and the local copy of the
// chains it replicates.
type Node struct {
	conf    *Config
	agent   *Agent
	store   store.Store
	metrics *Metrics
	logger  *logrus.Entry

	publisher   Publisher
	publisherMu sync.RWMutex

	// writeLock serializes appends so that a validation package and the
	// header appended after it see the same chain.
	writeLock sync.Mutex

	// deferred holds replicated links whose target has not been received
	// yet, keyed by link.
	deferred   map[string]*chain.LinkRecord
	deferredMu sync.Mutex
}

// NewNode is a factory method that returns a Node instance.
func NewNode(conf *Config, agent *Agent, s store.Store) *Node {
	logger := conf.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &Node{
		conf:     conf,
		agent:    agent,
		store:    s,
		metrics:  NewMetrics(conf.Registry),
		logger:   logger.WithField("agent", short(agent.Ref())),
		deferred: make(map[string]*chain.LinkRecord),
	}
}

// Init commits the agent's identity if the chain does not exist yet.
func (n *Node) Init() error {
	last, err := n.store.LastHeader(n.agent.Ref())
	if err == nil {
		n.logger.WithField("index", last.Index).Debug("Chain loaded from store")
		return nil
	}
	if !cm.IsStore(err, cm.UnknownParticipant) && !cm.IsStore(err, cm.Empty) {
		return err
	}

	id := n.agent.Identity()
	if _, err := n.Commit(id); err != nil {
		return fmt.Errorf("committing identity: %w", err)
	}
	n.logger.WithField("nick", id.Nick).Info("Chain initialized")
	return nil
}

// SetPublisher sets the Publisher local writes are sent to.
func (n *Node) SetPublisher(p Publisher) {
	n.publisherMu.Lock()
	defer n.publisherMu.Unlock()
	n.publisher = p
}

// Agent returns the agent of the node.
func (n *Node) Agent() *Agent {
	return n.agent
}

// Store returns the store of the node.
func (n *Node) Store() store.Store {
	return n.store
}

// Policy returns the validation rules the node applies.
func (n *Node) Policy() validation.Policy {
	return n.conf.Policy
}

// Commit signs e as the node's agent and appends it to the chain.
func (n *Node) Commit(e entry.Entry) (entry.Address, error) {
	addr, err := entry.AddressOf(e)
	if err != nil {
		return "", err
	}
	prov, err := n.agent.Provenance(addr)
	if err != nil {
		return "", err
	}
	return n.commit(e, validation.Create, "", []chain.Provenance{prov})
}

// CommitWithProvenance appends e with exactly the given provenances. It is how
// an entry is replayed into the chain with its original signatures instead
// of being re-signed.
func (n *Node) CommitWithProvenance(e entry.Entry, provs []chain.Provenance) (entry.Address, error) {
	return n.commit(e, validation.Create, "", provs)
}

// Update signs e and appends it as the next version of prev. Only the legacy
// badge accepts updates.
func (n *Node) Update(prev entry.Address, e entry.Entry) (entry.Address, error) {
	addr, err := entry.AddressOf(e)
	if err != nil {
		return "", err
	}
	prov, err := n.agent.Provenance(addr)
	if err != nil {
		return "", err
	}
	return n.commit(e, validation.Modify, prev, []chain.Provenance{prov})
}

func (n *Node) commit(e entry.Entry, op validation.Op, replaced entry.Address, provs []chain.Provenance) (entry.Address, error) {
	addr, err := entry.AddressOf(e)
	if err != nil {
		return "", err
	}
	if err := verifyProvenances(addr, provs); err != nil {
		return "", err
	}

	me := n.agent.Ref()

	n.writeLock.Lock()

	last, err := n.store.LastHeader(me)
	if err != nil && e.Kind() != entry.KindAgentID {
		n.writeLock.Unlock()
		return "", ErrNotInitialized
	}

	data, err := n.validationData(me, op, replaced, chain.Sources(provs))
	if err != nil {
		n.writeLock.Unlock()
		return "", err
	}

	err = validation.ValidateEntry(e, data, n.conf.Policy)
	n.metrics.observe(e.Kind().String(), err)
	if err != nil {
		n.writeLock.Unlock()
		n.logger.WithError(err).WithField("kind", e.Kind().String()).Debug("Commit rejected")
		return "", err
	}

	h := &chain.Header{
		Agent:         me,
		Kind:          e.Kind(),
		EntryAddress:  addr,
		Provenances:   provs,
		ReplacedEntry: replaced,
	}
	if last != nil {
		h.Index = last.Index + 1
		h.PrevHeader = last.Hex()
	}
	if err := h.Sign(n.agent.Key); err != nil {
		n.writeLock.Unlock()
		return "", err
	}

	if err := n.apply(e, h); err != nil {
		n.writeLock.Unlock()
		return "", err
	}

	n.writeLock.Unlock()

	n.metrics.commits.Inc()
	n.logger.WithFields(logrus.Fields{
		"index":   h.Index,
		"kind":    h.Kind.String(),
		"address": addr,
	}).Debug("Committed")

	n.publishRecord(h, e)

	return addr, nil
}

// validationData assembles the package of agent's chain as it is now.
func (n *Node) validationData(agent entry.AgentRef, op validation.Op, replaced entry.Address, sources []entry.AgentRef) (validation.Data, error) {
	pkg, err := chain.Assemble(n.store, agent)
	if err != nil {
		if !cm.IsStore(err, cm.UnknownParticipant) {
			return validation.Data{}, err
		}
		pkg = &chain.Package{}
	}

	data := validation.Data{Op: op, Package: pkg, Sources: sources}
	if op == validation.Modify {
		old, err := n.store.GetEntry(replaced)
		if err != nil {
			return validation.Data{}, fmt.Errorf("replaced entry %s: %w", replaced, err)
		}
		data.Old = old
	}
	return data, nil
}

// apply stores an accepted entry and its header. The caller holds writeLock.
func (n *Node) apply(e entry.Entry, h *chain.Header) error {
	if h.ReplacedEntry != "" {
		// a version is replaced at most once
		latest, err := n.store.Latest(h.ReplacedEntry)
		if err != nil {
			return err
		}
		if latest != h.ReplacedEntry && latest != h.EntryAddress {
			return cm.NewStoreErr("Updates", cm.KeyAlreadyExists, string(h.ReplacedEntry))
		}
	}
	if _, err := n.store.PutEntry(e); err != nil {
		return err
	}
	if err := n.store.AppendHeader(h); err != nil {
		return err
	}
	if h.ReplacedEntry != "" {
		if err := n.store.SetUpdate(h.ReplacedEntry, h.EntryAddress); err != nil {
			return err
		}
	}
	return nil
}

func verifyProvenances(addr entry.Address, provs []chain.Provenance) error {
	if len(provs) == 0 {
		return fmt.Errorf("%w: no provenance for %s", ErrInvalidProvenance, addr)
	}
	for _, p := range provs {
		ok, err := p.Verify(addr)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidProvenance, short(p.Agent), err)
		}
		if !ok {
			return fmt.Errorf("%w: bad signature from %s on %s", ErrInvalidProvenance, short(p.Agent), addr)
		}
	}
	return nil
}

// LinkEntries adds a link authored by the node's agent.
func (n *Node) LinkEntries(base, target entry.Address, t links.Type, tag string) error {
	l := links.Link{Base: base, Target: target, Type: t, Tag: tag}

	err := validation.ValidateLink(validation.Create, l, n.store, n.conf.Policy)
	n.metrics.observe(string(t), err)
	if err != nil {
		return err
	}
	if err := n.store.AddLink(l); err != nil {
		return err
	}

	lr := &chain.LinkRecord{Link: l}
	if err := lr.Sign(n.agent.Key); err != nil {
		return err
	}
	n.publishLink(lr)
	return nil
}

// RemoveLink asks to remove a link. Links are append-only, so this always
// fails with a LinkDeletionForbidden validation error.
func (n *Node) RemoveLink(base, target entry.Address, t links.Type, tag string) error {
	l := links.Link{Base: base, Target: target, Type: t, Tag: tag}
	err := validation.ValidateLink(validation.Delete, l, n.store, n.conf.Policy)
	n.metrics.observe(string(t), err)
	return err
}

func (n *Node) publishRecord(h *chain.Header, e entry.Entry) {
	n.publisherMu.RLock()
	p := n.publisher
	n.publisherMu.RUnlock()
	if p == nil {
		return
	}
	r, err := chain.NewRecord(h, e)
	if err == nil {
		err = p.PublishRecord(r)
	}
	if err != nil {
		n.logger.WithError(err).WithField("index", h.Index).Warn("Publishing record")
	}
}

func (n *Node) publishLink(lr *chain.LinkRecord) {
	n.publisherMu.RLock()
	p := n.publisher
	n.publisherMu.RUnlock()
	if p == nil {
		return
	}
	if err := p.PublishLink(lr); err != nil {
		n.logger.WithError(err).WithField("link", lr.Link.String()).Warn("Publishing link")
	}
}

// short abbreviates an agent reference for logs.
func short(a entry.AgentRef) string {
	if len(a) <= 12 {
		return string(a)
	}
	return string(a[:12])
}

// Package store implements the entry store: content-addressed entries, the
// agent chains that committed them, the update history of mutable entries and
// the link graph. InmemStore keeps everything in memory; BadgerStore persists
// to a badger database and bootstraps an InmemStore from it.
package store

import (
	"github.com/peerbadge/badges/src/chain"
	"github.com/peerbadge/badges/src/entry"
	"github.com/peerbadge/badges/src/links"
)

// Store is an interface for backend stores.
type Store interface {
	// CacheSize returns the capacity hint the store was created with.
	CacheSize() int
	// PutEntry stores an entry under its content address. It is idempotent.
	PutEntry(e entry.Entry) (entry.Address, error)
	// GetEntry returns the entry stored under address.
	GetEntry(address entry.Address) (entry.Entry, error)
	// HasEntry reports whether address is known.
	HasEntry(address entry.Address) bool
	// SetUpdate records that next replaces prev.
	SetUpdate(prev, next entry.Address) error
	// GetHistory returns every version of the mutable entry that address
	// belongs to, oldest first.
	GetHistory(address entry.Address) ([]entry.Address, error)
	// Latest follows updates from address to the most recent version.
	Latest(address entry.Address) (entry.Address, error)
	// AppendHeader appends a header to its agent's chain. The header index
	// must be exactly one past the last one.
	AppendHeader(h *chain.Header) error
	// ChainHeaders returns the headers of an agent starting at index skip+1.
	ChainHeaders(agent entry.AgentRef, skip int) ([]*chain.Header, error)
	// LastHeader returns the last header of an agent's chain.
	LastHeader(agent entry.AgentRef) (*chain.Header, error)
	// Agents returns the agents whose chains are known, sorted.
	Agents() []entry.AgentRef
	// EntryHeaders returns every header that committed address, in the order
	// they were appended.
	EntryHeaders(address entry.Address) ([]*chain.Header, error)
	// AddLink adds a link to the graph. It is idempotent.
	AddLink(l links.Link) error
	// GetLinks returns the links from base, filtered by type and tag. Empty
	// filters match everything.
	GetLinks(base entry.Address, t links.Type, tag string) ([]links.Link, error)
	// Close closes the underlying database.
	Close() error
	// StorePath returns the filepath of the underlying database.
	StorePath() string
}

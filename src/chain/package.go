package chain

import (
	"github.com/peerbadge/badges/src/entry"
)

// Package is the chain-full validation package of an agent: every entry the
// chain contains, in commit order.
type Package struct {
	Entries []entry.Entry
}

// AgentID returns the identity of the chain owner. ok is false unless the
// package holds exactly one AgentID entry.
func (p *Package) AgentID() (entry.AgentRef, bool) {
	var (
		owner entry.AgentRef
		count int
	)
	for _, e := range p.Entries {
		if id, ok := e.(*entry.AgentID); ok {
			owner = id.PubKey
			count++
		}
	}
	return owner, count == 1
}

// BadgeClass returns the class stored under address, if the chain carries a
// copy of it.
func (p *Package) BadgeClass(address entry.Address) (*entry.BadgeClass, bool) {
	for _, e := range p.Entries {
		c, ok := e.(*entry.BadgeClass)
		if !ok {
			continue
		}
		addr, err := entry.AddressOf(c)
		if err == nil && addr == address {
			return c, true
		}
	}
	return nil, false
}

// Claims returns the BadgeClaims in the chain.
func (p *Package) Claims() []*entry.BadgeClaim {
	res := []*entry.BadgeClaim{}
	for _, e := range p.Entries {
		if c, ok := e.(*entry.BadgeClaim); ok {
			res = append(res, c)
		}
	}
	return res
}

// Assertions returns the BadgeAssertions in the chain.
func (p *Package) Assertions() []*entry.BadgeAssertion {
	res := []*entry.BadgeAssertion{}
	for _, e := range p.Entries {
		if a, ok := e.(*entry.BadgeAssertion); ok {
			res = append(res, a)
		}
	}
	return res
}

// Badges returns the legacy badges in the chain.
func (p *Package) Badges() []*entry.Badge {
	res := []*entry.Badge{}
	for _, e := range p.Entries {
		if b, ok := e.(*entry.Badge); ok {
			res = append(res, b)
		}
	}
	return res
}

// Source is the read side of a store that packages are assembled from.
type Source interface {
	ChainHeaders(agent entry.AgentRef, skip int) ([]*Header, error)
	GetEntry(address entry.Address) (entry.Entry, error)
}

// Assemble builds the validation package of agent from its stored chain.
func Assemble(src Source, agent entry.AgentRef) (*Package, error) {
	return AssemblePrefix(src, agent, -1)
}

// AssemblePrefix builds the package made of the first n entries of the chain
// of agent. A negative n means the whole chain.
func AssemblePrefix(src Source, agent entry.AgentRef, n int) (*Package, error) {
	headers, err := src.ChainHeaders(agent, -1)
	if err != nil {
		return nil, err
	}
	if n >= 0 && n < len(headers) {
		headers = headers[:n]
	}
	pkg := &Package{Entries: make([]entry.Entry, 0, len(headers))}
	for _, h := range headers {
		e, err := src.GetEntry(h.EntryAddress)
		if err != nil {
			return nil, err
		}
		pkg.Entries = append(pkg.Entries, e)
	}
	return pkg, nil
}

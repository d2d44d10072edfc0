package store

import (
	"sort"
	"sync"

	cm "github.com/peerbadge/badges/src/common"
	"github.com/peerbadge/badges/src/chain"
	"github.com/peerbadge/badges/src/entry"
	"github.com/peerbadge/badges/src/links"
)

// InmemStore implements the Store interface with in-memory maps. Nothing is
// ever evicted: a chain that loses an entry can no longer be validated.
type InmemStore struct {
	cacheSize int

	mu           sync.RWMutex
	entries      map[entry.Address]entry.Entry
	chains       map[entry.AgentRef][]*chain.Header
	entryHeaders map[entry.Address][]*chain.Header
	updates      map[entry.Address]entry.Address
	origins      map[entry.Address]entry.Address
	links        map[entry.Address][]links.Link
	linkKeys     map[string]bool
}

// NewInmemStore creates a new InmemStore. cacheSize is used to size the maps.
func NewInmemStore(cacheSize int) *InmemStore {
	return &InmemStore{
		cacheSize:    cacheSize,
		entries:      make(map[entry.Address]entry.Entry, cacheSize),
		chains:       make(map[entry.AgentRef][]*chain.Header),
		entryHeaders: make(map[entry.Address][]*chain.Header, cacheSize),
		updates:      make(map[entry.Address]entry.Address),
		origins:      make(map[entry.Address]entry.Address),
		links:        make(map[entry.Address][]links.Link),
		linkKeys:     make(map[string]bool),
	}
}

// CacheSize implements the Store interface.
func (s *InmemStore) CacheSize() int {
	return s.cacheSize
}

// PutEntry implements the Store interface.
func (s *InmemStore) PutEntry(e entry.Entry) (entry.Address, error) {
	addr, err := entry.AddressOf(e)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[addr]; !ok {
		s.entries[addr] = e
	}
	return addr, nil
}

// GetEntry implements the Store interface.
func (s *InmemStore) GetEntry(address entry.Address) (entry.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[address]
	if !ok {
		return nil, cm.NewStoreErr("Entries", cm.KeyNotFound, string(address))
	}
	return e, nil
}

// HasEntry implements the Store interface.
func (s *InmemStore) HasEntry(address entry.Address) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[address]
	return ok
}

// SetUpdate implements the Store interface. A version can only be replaced
// once: a second, different replacement fails with KeyAlreadyExists.
func (s *InmemStore) SetUpdate(prev, next entry.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[prev]; !ok {
		return cm.NewStoreErr("Entries", cm.KeyNotFound, string(prev))
	}
	if cur, ok := s.updates[prev]; ok {
		if cur == next {
			return nil
		}
		return cm.NewStoreErr("Updates", cm.KeyAlreadyExists, string(prev))
	}
	s.updates[prev] = next
	s.origins[next] = prev
	return nil
}

// GetHistory implements the Store interface.
func (s *InmemStore) GetHistory(address entry.Address) ([]entry.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.entries[address]; !ok {
		return nil, cm.NewStoreErr("Entries", cm.KeyNotFound, string(address))
	}
	root := address
	for {
		prev, ok := s.origins[root]
		if !ok {
			break
		}
		root = prev
	}
	res := []entry.Address{root}
	for cur := root; ; {
		next, ok := s.updates[cur]
		if !ok {
			break
		}
		res = append(res, next)
		cur = next
	}
	return res, nil
}

// Latest implements the Store interface.
func (s *InmemStore) Latest(address entry.Address) (entry.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.entries[address]; !ok {
		return "", cm.NewStoreErr("Entries", cm.KeyNotFound, string(address))
	}
	cur := address
	for {
		next, ok := s.updates[cur]
		if !ok {
			return cur, nil
		}
		cur = next
	}
}

// AppendHeader implements the Store interface.
func (s *InmemStore) AppendHeader(h *chain.Header) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	hs := s.chains[h.Agent]
	switch {
	case h.Index < len(hs):
		return cm.NewStoreErr("Chains", cm.PassedIndex, string(h.Agent))
	case h.Index > len(hs):
		return cm.NewStoreErr("Chains", cm.SkippedIndex, string(h.Agent))
	}
	s.chains[h.Agent] = append(hs, h)
	s.entryHeaders[h.EntryAddress] = append(s.entryHeaders[h.EntryAddress], h)
	return nil
}

// ChainHeaders implements the Store interface.
func (s *InmemStore) ChainHeaders(agent entry.AgentRef, skip int) ([]*chain.Header, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hs, ok := s.chains[agent]
	if !ok {
		return nil, cm.NewStoreErr("Chains", cm.UnknownParticipant, string(agent))
	}
	start := skip + 1
	if start < 0 {
		start = 0
	}
	if start > len(hs) {
		return nil, cm.NewStoreErr("Chains", cm.PassedIndex, string(agent))
	}
	res := make([]*chain.Header, len(hs)-start)
	copy(res, hs[start:])
	return res, nil
}

// LastHeader implements the Store interface.
func (s *InmemStore) LastHeader(agent entry.AgentRef) (*chain.Header, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hs, ok := s.chains[agent]
	if !ok {
		return nil, cm.NewStoreErr("Chains", cm.UnknownParticipant, string(agent))
	}
	if len(hs) == 0 {
		return nil, cm.NewStoreErr("Chains", cm.Empty, string(agent))
	}
	return hs[len(hs)-1], nil
}

// Agents implements the Store interface.
func (s *InmemStore) Agents() []entry.AgentRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]entry.AgentRef, 0, len(s.chains))
	for a := range s.chains {
		res = append(res, a)
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	return res
}

// EntryHeaders implements the Store interface.
func (s *InmemStore) EntryHeaders(address entry.Address) ([]*chain.Header, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hs, ok := s.entryHeaders[address]
	if !ok {
		return nil, cm.NewStoreErr("EntryHeaders", cm.KeyNotFound, string(address))
	}
	res := make([]*chain.Header, len(hs))
	copy(res, hs)
	return res, nil
}

// AddLink implements the Store interface.
func (s *InmemStore) AddLink(l links.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLink(l)
	return nil
}

// addLink reports whether the link was new. The caller holds the lock.
func (s *InmemStore) addLink(l links.Link) bool {
	k := l.Key()
	if s.linkKeys[k] {
		return false
	}
	s.linkKeys[k] = true
	s.links[l.Base] = append(s.links[l.Base], l)
	return true
}

// GetLinks implements the Store interface.
func (s *InmemStore) GetLinks(base entry.Address, t links.Type, tag string) ([]links.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := []links.Link{}
	for _, l := range s.links[base] {
		if l.Matches(base, t, tag) {
			res = append(res, l)
		}
	}
	return res, nil
}

// Close implements the Store interface.
func (s *InmemStore) Close() error {
	return nil
}

// StorePath implements the Store interface. InmemStore has no path.
func (s *InmemStore) StorePath() string {
	return ""
}

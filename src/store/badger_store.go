package store

import (
	"fmt"
	"os"

	"github.com/dgraph-io/badger"
	cm "github.com/peerbadge/badges/src/common"
	"github.com/peerbadge/badges/src/chain"
	"github.com/peerbadge/badges/src/entry"
	"github.com/peerbadge/badges/src/links"
	"github.com/sirupsen/logrus"
)

const (
	entryPrefix  = "entry"
	chainPrefix  = "chain"
	updatePrefix = "update"
	linkPrefix   = "link"
)

// BadgerStore contains references to the Badger database and inmem store.
// Reads are served by the inmem store, writes go to both.
type BadgerStore struct {
	inmemStore *InmemStore
	db         *badger.DB
	path       string
	logger     *logrus.Entry
}

// NewBadgerStore opens an existing database or creates a new one if nothing is
// found in path. It does not load existing data; use LoadBadgerStore for that.
func NewBadgerStore(cacheSize int, path string, logger *logrus.Entry) (*BadgerStore, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}

	opts := badger.DefaultOptions(path).
		WithSyncWrites(false).
		WithTruncate(true).
		WithLogger(logger.WithField("ns", "badger"))

	handle, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	store := &BadgerStore{
		inmemStore: NewInmemStore(cacheSize),
		db:         handle,
		path:       path,
		logger:     logger,
	}
	return store, nil
}

// LoadBadgerStore opens an existing database and populates the inmem store
// with its content.
func LoadBadgerStore(cacheSize int, path string, logger *logrus.Entry) (*BadgerStore, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	store, err := NewBadgerStore(cacheSize, path, logger)
	if err != nil {
		return nil, err
	}

	if err := store.bootstrap(); err != nil {
		store.Close()
		return nil, err
	}

	return store, nil
}

// LoadOrCreateBadgerStore loads an existing database if path exists, and
// creates a new one otherwise.
func LoadOrCreateBadgerStore(cacheSize int, path string, logger *logrus.Entry) (*BadgerStore, error) {
	if _, err := os.Stat(path); err == nil {
		return LoadBadgerStore(cacheSize, path, logger)
	}
	return NewBadgerStore(cacheSize, path, logger)
}

/*******************************************************************************
Keys
*******************************************************************************/

func entryKey(address entry.Address) []byte {
	return []byte(fmt.Sprintf("%s_%s", entryPrefix, address))
}

func chainKey(agent entry.AgentRef, index int) []byte {
	return []byte(fmt.Sprintf("%s_%s_%09d", chainPrefix, agent, index))
}

func updateKey(prev entry.Address) []byte {
	return []byte(fmt.Sprintf("%s_%s", updatePrefix, prev))
}

func linkKey(l links.Link) []byte {
	return []byte(fmt.Sprintf("%s_%s", linkPrefix, l.Key()))
}

/*******************************************************************************
Implement the Store interface
*******************************************************************************/

// CacheSize implements the Store interface.
func (s *BadgerStore) CacheSize() int {
	return s.inmemStore.CacheSize()
}

// PutEntry implements the Store interface.
func (s *BadgerStore) PutEntry(e entry.Entry) (entry.Address, error) {
	addr, err := s.inmemStore.PutEntry(e)
	if err != nil {
		return "", err
	}
	data, err := entry.Marshal(e)
	if err != nil {
		return "", err
	}
	if err := s.dbSet(entryKey(addr), data); err != nil {
		return "", err
	}
	return addr, nil
}

// GetEntry implements the Store interface. Misses fall back to the database.
func (s *BadgerStore) GetEntry(address entry.Address) (entry.Entry, error) {
	e, err := s.inmemStore.GetEntry(address)
	if err == nil {
		return e, nil
	}
	if !cm.IsStore(err, cm.KeyNotFound) {
		return nil, err
	}
	return s.dbGetEntry(address)
}

// HasEntry implements the Store interface.
func (s *BadgerStore) HasEntry(address entry.Address) bool {
	if s.inmemStore.HasEntry(address) {
		return true
	}
	_, err := s.dbGetEntry(address)
	return err == nil
}

// SetUpdate implements the Store interface.
func (s *BadgerStore) SetUpdate(prev, next entry.Address) error {
	if err := s.inmemStore.SetUpdate(prev, next); err != nil {
		return err
	}
	return s.dbSet(updateKey(prev), []byte(next))
}

// GetHistory implements the Store interface.
func (s *BadgerStore) GetHistory(address entry.Address) ([]entry.Address, error) {
	return s.inmemStore.GetHistory(address)
}

// Latest implements the Store interface.
func (s *BadgerStore) Latest(address entry.Address) (entry.Address, error) {
	return s.inmemStore.Latest(address)
}

// AppendHeader implements the Store interface.
func (s *BadgerStore) AppendHeader(h *chain.Header) error {
	if err := s.inmemStore.AppendHeader(h); err != nil {
		return err
	}
	data, err := h.Marshal()
	if err != nil {
		return err
	}
	return s.dbSet(chainKey(h.Agent, h.Index), data)
}

// ChainHeaders implements the Store interface.
func (s *BadgerStore) ChainHeaders(agent entry.AgentRef, skip int) ([]*chain.Header, error) {
	return s.inmemStore.ChainHeaders(agent, skip)
}

// LastHeader implements the Store interface.
func (s *BadgerStore) LastHeader(agent entry.AgentRef) (*chain.Header, error) {
	return s.inmemStore.LastHeader(agent)
}

// Agents implements the Store interface.
func (s *BadgerStore) Agents() []entry.AgentRef {
	return s.inmemStore.Agents()
}

// EntryHeaders implements the Store interface.
func (s *BadgerStore) EntryHeaders(address entry.Address) ([]*chain.Header, error) {
	return s.inmemStore.EntryHeaders(address)
}

// AddLink implements the Store interface.
func (s *BadgerStore) AddLink(l links.Link) error {
	s.inmemStore.mu.Lock()
	isNew := s.inmemStore.addLink(l)
	s.inmemStore.mu.Unlock()
	if !isNew {
		return nil
	}
	data, err := entry.Encode(l)
	if err != nil {
		return err
	}
	return s.dbSet(linkKey(l), data)
}

// GetLinks implements the Store interface.
func (s *BadgerStore) GetLinks(base entry.Address, t links.Type, tag string) ([]links.Link, error) {
	return s.inmemStore.GetLinks(base, t, tag)
}

// Close implements the Store interface.
func (s *BadgerStore) Close() error {
	if err := s.inmemStore.Close(); err != nil {
		return err
	}
	return s.db.Close()
}

// StorePath implements the Store interface.
func (s *BadgerStore) StorePath() string {
	return s.path
}

/*******************************************************************************
Bootstrap
*******************************************************************************/

// bootstrap replays the database into the inmem store: entries first, then
// chains, update history and links.
func (s *BadgerStore) bootstrap() error {
	err := s.dbScan(entryPrefix, func(key, val []byte) error {
		e, err := entry.Unmarshal(val)
		if err != nil {
			return fmt.Errorf("%s: %v", key, err)
		}
		_, err = s.inmemStore.PutEntry(e)
		return err
	})
	if err != nil {
		return err
	}

	// chain keys sort by agent then by zero-padded index
	err = s.dbScan(chainPrefix, func(key, val []byte) error {
		h := new(chain.Header)
		if err := h.Unmarshal(val); err != nil {
			return fmt.Errorf("%s: %v", key, err)
		}
		return s.inmemStore.AppendHeader(h)
	})
	if err != nil {
		return err
	}

	err = s.dbScan(updatePrefix, func(key, val []byte) error {
		prev := entry.Address(key[len(updatePrefix)+1:])
		return s.inmemStore.SetUpdate(prev, entry.Address(val))
	})
	if err != nil {
		return err
	}

	err = s.dbScan(linkPrefix, func(key, val []byte) error {
		var l links.Link
		if err := entry.DecodeInto(val, &l); err != nil {
			return fmt.Errorf("%s: %v", key, err)
		}
		return s.inmemStore.AddLink(l)
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"path":   s.path,
		"agents": len(s.inmemStore.Agents()),
	}).Debug("Bootstrapped store")

	return nil
}

//++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++
//DB Methods

func (s *BadgerStore) dbGetEntry(address entry.Address) (entry.Entry, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entryKey(address))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})

	if err != nil {
		return nil, mapError(err, "Entries", string(address))
	}

	return entry.Unmarshal(data)
}

func (s *BadgerStore) dbSet(key, val []byte) error {
	tx := s.db.NewTransaction(true)
	defer tx.Discard()

	if err := tx.Set(key, val); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *BadgerStore) dbScan(prefix string, fn func(key, val []byte) error) error {
	p := []byte(prefix + "_")
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := fn(item.KeyCopy(nil), val); err != nil {
				return err
			}
		}
		return nil
	})
}

//++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++

func isDBKeyNotFound(err error) bool {
	return err == badger.ErrKeyNotFound
}

func mapError(err error, name, key string) error {
	if err != nil {
		if isDBKeyNotFound(err) {
			return cm.NewStoreErr(name, cm.KeyNotFound, key)
		}
	}
	return err
}

package chain

import (
	"bytes"
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/peerbadge/badges/src/crypto"
	"github.com/peerbadge/badges/src/crypto/keys"
	"github.com/peerbadge/badges/src/entry"
	"github.com/peerbadge/badges/src/links"
)

// ErrNonCanonical is returned when a record carries an entry in any encoding
// other than the canonical one.
var ErrNonCanonical = errors.New("entry is not canonically encoded")

// Record is a committed header together with the canonical encoding of its
// entry. It is what peers gossip and what chains are synced with.
type Record struct {
	Header Header `json:"header"`
	Entry  []byte `json:"entry"`
}

// NewRecord encodes e next to its header.
func NewRecord(h *Header, e entry.Entry) (*Record, error) {
	data, err := entry.Marshal(e)
	if err != nil {
		return nil, err
	}
	return &Record{Header: *h, Entry: data}, nil
}

// Marshal returns the canonical encoding of the record.
func (r *Record) Marshal() ([]byte, error) {
	return entry.Encode(r)
}

// Unmarshal decodes a record written by Marshal.
func (r *Record) Unmarshal(data []byte) error {
	return entry.DecodeInto(data, r)
}

// Decode returns the entry carried by the record after checking that it
// matches the header: same kind and same address. The entry bytes must be the
// canonical encoding, so the address in the header is the one the entry is
// stored under.
func (r *Record) Decode() (entry.Entry, error) {
	e, err := entry.Unmarshal(r.Entry)
	if err != nil {
		return nil, err
	}
	if e.Kind() != r.Header.Kind {
		return nil, fmt.Errorf("record declares %s but carries %s", r.Header.Kind, e.Kind())
	}
	canonical, err := entry.Marshal(e)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(canonical, r.Entry) {
		return nil, fmt.Errorf("%w: %s", ErrNonCanonical, r.Header.EntryAddress)
	}
	if id, ok := e.(*entry.AgentID); ok {
		if id.PubKey != r.Header.EntryAddress {
			return nil, fmt.Errorf("agent id %s recorded under %s", id.PubKey, r.Header.EntryAddress)
		}
		return e, nil
	}
	if err := crypto.VerifyContentAddress(string(r.Header.EntryAddress), r.Entry); err != nil {
		return nil, fmt.Errorf("entry %s: %w", r.Header.EntryAddress, err)
	}
	return e, nil
}

// LinkRecord is a signed link operation. Removed marks a removal request,
// which validators always reject but which peers may still receive.
type LinkRecord struct {
	Link      links.Link     `json:"link"`
	Author    entry.AgentRef `json:"author"`
	Signature string         `json:"signature"`
	Removed   bool           `json:"removed"`
}

func (lr *LinkRecord) payload() string {
	op := "add"
	if lr.Removed {
		op = "remove"
	}
	return op + "|" + lr.Link.Key()
}

// Sign sets the author, derived from priv, and its signature over the link
// operation.
func (lr *LinkRecord) Sign(priv *ecdsa.PrivateKey) error {
	sig, err := keys.SignAddress(priv, lr.payload())
	if err != nil {
		return err
	}
	lr.Author = entry.AgentRef(keys.PublicKeyHex(&priv.PublicKey))
	lr.Signature = sig
	return nil
}

// Verify checks the author's signature.
func (lr *LinkRecord) Verify() (bool, error) {
	return keys.VerifyAddress(string(lr.Author), lr.payload(), lr.Signature)
}

// Marshal returns the canonical encoding of the link record.
func (lr *LinkRecord) Marshal() ([]byte, error) {
	return entry.Encode(lr)
}

// Unmarshal decodes a link record written by Marshal.
func (lr *LinkRecord) Unmarshal(data []byte) error {
	return entry.DecodeInto(data, lr)
}

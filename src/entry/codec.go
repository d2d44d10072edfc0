package entry

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/peerbadge/badges/src/crypto"
	"github.com/ugorji/go/codec"
)

// ErrUnknownKind is returned when decoding an envelope whose kind is not part
// of the closed set.
var ErrUnknownKind = errors.New("entry: unknown kind")

// envelope is the canonical wire form of an entry.
type envelope struct {
	Kind Kind   `json:"kind"`
	Body []byte `json:"body"`
}

// canonicalHandle sorts map keys so that encodings are deterministic.
var canonicalHandle = func() *codec.JsonHandle {
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	return jh
}()

// Encode writes v with the canonical JSON handle.
func Encode(v interface{}) ([]byte, error) {
	var b bytes.Buffer
	enc := codec.NewEncoder(&b, canonicalHandle)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// DecodeInto reads data, written by Encode, into v.
func DecodeInto(data []byte, v interface{}) error {
	dec := codec.NewDecoder(bytes.NewReader(data), canonicalHandle)
	return dec.Decode(v)
}

// Marshal returns the canonical encoding of e.
func Marshal(e Entry) ([]byte, error) {
	if e == nil {
		return nil, errors.New("entry: cannot marshal nil entry")
	}
	body, err := Encode(normalize(e))
	if err != nil {
		return nil, err
	}
	return Encode(envelope{Kind: e.Kind(), Body: body})
}

// Unmarshal decodes an envelope produced by Marshal.
func Unmarshal(data []byte) (Entry, error) {
	var env envelope
	if err := DecodeInto(data, &env); err != nil {
		return nil, err
	}
	return Decode(env.Body, env.Kind)
}

// Decode converts the body of an envelope to the shape declared by kind.
func Decode(body []byte, kind Kind) (Entry, error) {
	var e Entry
	switch kind {
	case KindAgentID:
		e = new(AgentID)
	case KindAnchor:
		e = new(Anchor)
	case KindBadgeClass:
		e = new(BadgeClass)
	case KindBadgeClaim:
		e = new(BadgeClaim)
	case KindBadgeAssertion:
		e = new(BadgeAssertion)
	case KindBadge:
		e = new(Badge)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if err := DecodeInto(body, e); err != nil {
		return nil, fmt.Errorf("decoding %s: %v", kind, err)
	}
	return normalize(e), nil
}

// AddressOf returns the content address of e. An AgentID is addressed by the
// agent's public key.
func AddressOf(e Entry) (Address, error) {
	if id, ok := e.(*AgentID); ok {
		if id.PubKey == "" {
			return "", errors.New("entry: agent id without public key")
		}
		return id.PubKey, nil
	}
	data, err := Marshal(e)
	if err != nil {
		return "", err
	}
	addr, err := crypto.ContentAddress(data)
	if err != nil {
		return "", err
	}
	return Address(addr), nil
}

// normalize replaces nil slices with empty ones so that an entry built in
// memory and the same entry decoded from the wire share one encoding.
func normalize(e Entry) Entry {
	switch v := e.(type) {
	case *BadgeClaim:
		if v.Evidences == nil {
			c := *v
			c.Evidences = []Address{}
			return &c
		}
	case *Badge:
		if v.Issuers == nil || v.Evidences == nil {
			c := *v
			if c.Issuers == nil {
				c.Issuers = []AgentRef{}
			}
			if c.Evidences == nil {
				c.Evidences = []Address{}
			}
			return &c
		}
	}
	return e
}

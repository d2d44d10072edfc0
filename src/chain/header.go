package chain

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/peerbadge/badges/src/common"
	"github.com/peerbadge/badges/src/crypto"
	"github.com/peerbadge/badges/src/crypto/keys"
	"github.com/peerbadge/badges/src/entry"
)

// Provenance is the signature of one agent over the address of an entry.
type Provenance struct {
	Agent     entry.AgentRef `json:"agent"`
	Signature string         `json:"signature"`
}

// Verify checks the signature against the address.
func (p Provenance) Verify(address entry.Address) (bool, error) {
	return keys.VerifyAddress(string(p.Agent), string(address), p.Signature)
}

// Sources returns the distinct agents that signed a write, in order.
func Sources(provs []Provenance) []entry.AgentRef {
	res := []entry.AgentRef{}
	seen := make(map[entry.AgentRef]bool, len(provs))
	for _, p := range provs {
		if seen[p.Agent] {
			continue
		}
		seen[p.Agent] = true
		res = append(res, p.Agent)
	}
	return res
}

// Header records one commit in an agent's chain.
type Header struct {
	Agent         entry.AgentRef `json:"agent"`
	Index         int            `json:"index"`
	Kind          entry.Kind     `json:"kind"`
	EntryAddress  entry.Address  `json:"entry_address"`
	PrevHeader    string         `json:"prev_header"`
	Provenances   []Provenance   `json:"provenances"`
	ReplacedEntry entry.Address  `json:"replaced_entry,omitempty"`
	// Signature is the author's signature over the header hash. It is not
	// part of the hash.
	Signature string `json:"signature,omitempty"`

	hex string
}

// Marshal returns the canonical encoding of the header.
func (h *Header) Marshal() ([]byte, error) {
	return entry.Encode(h)
}

// Unmarshal decodes a header written by Marshal.
func (h *Header) Unmarshal(data []byte) error {
	return entry.DecodeInto(data, h)
}

// Hash returns the SHA256 hash of the canonical encoding, without the
// signature.
func (h *Header) Hash() ([]byte, error) {
	unsigned := *h
	unsigned.Signature = ""
	data, err := unsigned.Marshal()
	if err != nil {
		return nil, err
	}
	return crypto.SHA256(data), nil
}

// Hex returns the hex representation of the header hash. It is computed once.
func (h *Header) Hex() string {
	if h.hex == "" {
		hash, _ := h.Hash()
		h.hex = common.EncodeToString(hash)
	}
	return h.hex
}

// Sign sets the author's signature. The key must be the author's.
func (h *Header) Sign(priv *ecdsa.PrivateKey) error {
	sig, err := keys.SignAddress(priv, h.Hex())
	if err != nil {
		return err
	}
	h.Signature = sig
	return nil
}

// VerifySignature checks the author's signature.
func (h *Header) VerifySignature() (bool, error) {
	if h.Signature == "" {
		return false, nil
	}
	return keys.VerifyAddress(string(h.Agent), h.Hex(), h.Signature)
}

// Sources returns the agents that signed the write.
func (h *Header) Sources() []entry.AgentRef {
	return Sources(h.Provenances)
}

// SignedBy reports whether agent is among the header's provenances.
func (h *Header) SignedBy(agent entry.AgentRef) bool {
	for _, p := range h.Provenances {
		if p.Agent == agent {
			return true
		}
	}
	return false
}

// VerifyProvenances checks every signature against the entry address.
func (h *Header) VerifyProvenances() error {
	if len(h.Provenances) == 0 {
		return fmt.Errorf("header %d of %s carries no provenance", h.Index, h.Agent)
	}
	for _, p := range h.Provenances {
		ok, err := p.Verify(h.EntryAddress)
		if err != nil {
			return fmt.Errorf("provenance of %s: %v", p.Agent, err)
		}
		if !ok {
			return fmt.Errorf("invalid signature from %s on %s", p.Agent, h.EntryAddress)
		}
	}
	return nil
}

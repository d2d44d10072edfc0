package node

import (
	"crypto/ecdsa"

	"github.com/peerbadge/badges/src/chain"
	"github.com/peerbadge/badges/src/crypto/keys"
	"github.com/peerbadge/badges/src/entry"
)

// Agent holds the key controlling a chain.
type Agent struct {
	Key     *ecdsa.PrivateKey
	Moniker string

	pubHex string
}

// NewAgent is a factory method for an Agent.
func NewAgent(key *ecdsa.PrivateKey, moniker string) *Agent {
	return &Agent{
		Key:     key,
		Moniker: moniker,
	}
}

// Ref returns the agent's reference, its hex public key.
func (a *Agent) Ref() entry.AgentRef {
	if len(a.pubHex) == 0 {
		a.pubHex = keys.PublicKeyHex(&a.Key.PublicKey)
	}
	return entry.AgentRef(a.pubHex)
}

// Identity returns the AgentID entry that opens the agent's chain.
func (a *Agent) Identity() *entry.AgentID {
	return &entry.AgentID{PubKey: a.Ref(), Nick: a.Moniker}
}

// Provenance signs address.
func (a *Agent) Provenance(address entry.Address) (chain.Provenance, error) {
	sig, err := keys.SignAddress(a.Key, string(address))
	if err != nil {
		return chain.Provenance{}, err
	}
	return chain.Provenance{Agent: a.Ref(), Signature: sig}, nil
}

// Package keys implements the public key cryptography that identifies agents.
//
// Every agent owns a secp256k1 key-pair. The hex encoding of the uncompressed
// public key is the agent's reference: it is the address of the agent's
// identity entry, the base of the agent's links, and the name under which its
// chain is stored. Provenances attached to a write are ECDSA signatures, by the
// listed agents, over the content address of the entry being written.
package keys

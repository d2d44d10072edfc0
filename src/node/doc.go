// Package node implements a participant of the badges network.
//
// A Node owns one agent chain. Every write, local or replicated, goes through
// the same pipeline: check the signatures, assemble the chain-full validation
// package of the writing chain from the store, run the validation engine,
// then store the entry and append its header. Local writes are published to
// peers through a Publisher; replicated writes arrive through Receive and are
// re-validated against the local copy of the author's chain.
package node

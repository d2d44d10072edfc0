// Package wamp replicates agent chains between nodes over a WAMP router.
//
// Every node runs a Peer connected to the same realm. A Peer publishes the
// records its node commits on TopicRecords and the links it adds on
// TopicLinks, and feeds what other peers publish to its node, which
// re-validates it against its own copy of the author's chain. Each peer also
// registers a procedure named after its agent through which others fetch the
// chain from a given index, to fill the gaps left by missed events.
//
// Server hosts the router behind a websocket endpoint. It serves plain
// websockets, or TLS when it is given a certificate.
package wamp

import (
	"github.com/gammazero/nexus/v3/wamp"
	"github.com/peerbadge/badges/src/entry"
)

const (
	// TopicRecords carries committed records.
	TopicRecords = "badges.records"
	// TopicLinks carries signed link operations.
	TopicLinks = "badges.links"
	// TopicHello carries the agent reference of peers joining the realm.
	TopicHello = "badges.hello"

	chainProcedurePrefix = "badges.chain."

	// ErrProcessing indicates that the callee could not serve a call.
	ErrProcessing = wamp.URI("io.badges.processing_error")
)

// ChainProcedure returns the procedure serving the chain of agent.
func ChainProcedure(agent entry.AgentRef) string {
	return chainProcedurePrefix + string(agent)
}

// Package issuance orchestrates the multi-step badge flows on top of a node:
// creating a class, issuing and accepting claims, asserting a credential, and
// the read-only queries over the link graph.
//
// The flows are not transactional. Every commit they make is valid on its
// own, so a flow that fails half way can simply be run again.
package issuance

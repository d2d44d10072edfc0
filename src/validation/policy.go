package validation

import (
	"github.com/peerbadge/badges/src/chain"
	"github.com/peerbadge/badges/src/entry"
)

// Op is the kind of write being validated.
type Op uint8

const (
	// Create is the first write of an entry, or the addition of a link.
	Create Op = iota
	// Modify replaces a previous version of an entry.
	Modify
	// Delete removes an entry or a link.
	Delete
)

func (op Op) String() string {
	switch op {
	case Create:
		return "create"
	case Modify:
		return "modify"
	case Delete:
		return "delete"
	}
	return "unknown"
}

// Policy holds the rules that vary between deployments. The zero value is
// the canonical rule set.
type Policy struct {
	// RequireCreatorSignature rejects a BadgeClass whose creator is not
	// among the signers of the write.
	RequireCreatorSignature bool
	// StrictCreatorLinks checks that the base of a creator->badge_class link
	// is the creator of the class.
	StrictCreatorLinks bool
	// AllowForeignAssertions accepts a BadgeAssertion committed on a chain
	// other than its recipient's.
	AllowForeignAssertions bool
}

// Data is the context of an entry validation.
type Data struct {
	Op Op
	// Old is the replaced version on Modify.
	Old entry.Entry
	// Package is the chain-full package of the writing chain, without the
	// candidate entry.
	Package *chain.Package
	// Sources are the agents whose provenance accompanies the write.
	Sources []entry.AgentRef
}

func (d Data) signedBy(agent entry.AgentRef) bool {
	for _, s := range d.Sources {
		if s == agent {
			return true
		}
	}
	return false
}

func (d Data) chainOwner() (entry.AgentRef, error) {
	if d.Package == nil {
		return "", newErr(MissingAgentIdentity, "no validation package")
	}
	owner, ok := d.Package.AgentID()
	if !ok {
		return "", newErr(MissingAgentIdentity, "package must hold exactly one agent id")
	}
	return owner, nil
}

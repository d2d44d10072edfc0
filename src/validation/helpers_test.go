package validation

import (
	"testing"

	"github.com/peerbadge/badges/src/chain"
	"github.com/peerbadge/badges/src/entry"
	"github.com/stretchr/testify/require"
)

const (
	alice entry.AgentRef = "0X04A1"
	bob   entry.AgentRef = "0X04B0"
	carol entry.AgentRef = "0X04C0"
	dave  entry.AgentRef = "0X04D0"
	erin  entry.AgentRef = "0X04E0"
	frank entry.AgentRef = "0X04F0"
)

func addressOf(t *testing.T, e entry.Entry) entry.Address {
	t.Helper()
	addr, err := entry.AddressOf(e)
	require.NoError(t, err)
	return addr
}

// chainOf returns the package of owner's chain made of its identity followed
// by entries.
func chainOf(owner entry.AgentRef, entries ...entry.Entry) *chain.Package {
	all := []entry.Entry{&entry.AgentID{PubKey: owner}}
	return &chain.Package{Entries: append(all, entries...)}
}

func create(pkg *chain.Package, sources ...entry.AgentRef) Data {
	return Data{Op: Create, Package: pkg, Sources: sources}
}

func claim(issuer, recipient entry.AgentRef, class entry.Address) *entry.BadgeClaim {
	return &entry.BadgeClaim{Issuer: issuer, Recipient: recipient, BadgeClass: class}
}

func requireErrType(t *testing.T, err error, want ErrType) {
	t.Helper()
	require.Error(t, err)
	verr, ok := As(err)
	require.True(t, ok, "%v is not a validation error", err)
	require.Equal(t, want, verr.Type(), "got %v", err)
}

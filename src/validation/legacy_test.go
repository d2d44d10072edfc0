package validation

import (
	"testing"

	"github.com/peerbadge/badges/src/chain"
	"github.com/peerbadge/badges/src/entry"
	"github.com/stretchr/testify/require"
)

func withIssuers(b *entry.Badge, issuers ...entry.AgentRef) *entry.Badge {
	c := b.Copy()
	c.Issuers = append(c.Issuers, issuers...)
	return c
}

func modify(old entry.Entry, pkg *chain.Package, sources ...entry.AgentRef) Data {
	return Data{Op: Modify, Old: old, Package: pkg, Sources: sources}
}

func TestBadgeCreate(t *testing.T) {
	initial := entry.InitialBadge(frank, "bafkclass")
	require.NoError(t, ValidateEntry(initial, create(chainOf(bob), bob), Policy{}))

	err := ValidateEntry(withIssuers(initial, bob), create(chainOf(bob), bob), Policy{})
	requireErrType(t, err, NonEmptyInitialBadge)

	withEvidence := initial.Copy()
	withEvidence.Evidences = []entry.Address{"bafkevidence"}
	err = ValidateEntry(withEvidence, create(chainOf(bob), bob), Policy{})
	requireErrType(t, err, NonEmptyInitialBadge)

	err = ValidateEntry(initial, Data{Op: Delete, Package: chainOf(bob)}, Policy{})
	requireErrType(t, err, ImmutableEntryViolation)
}

func TestBadgeUpdate(t *testing.T) {
	class := &entry.BadgeClass{Name: "go", CreatorAgent: alice, ValidatorsRequired: 2}
	classAddr := addressOf(t, class)
	v0 := entry.InitialBadge(frank, classAddr)

	t.Run("creator appends itself", func(t *testing.T) {
		err := ValidateEntry(withIssuers(v0, alice), modify(v0, chainOf(alice, class), alice), Policy{})
		require.NoError(t, err)
	})

	t.Run("class not in chain", func(t *testing.T) {
		err := ValidateEntry(withIssuers(v0, alice), modify(v0, chainOf(alice), alice), Policy{})
		requireErrType(t, err, BadgeClassNotInChain)
	})

	t.Run("recipient among issuers", func(t *testing.T) {
		err := ValidateEntry(withIssuers(v0, frank), modify(v0, chainOf(frank, class), frank), Policy{})
		requireErrType(t, err, SelfClaim)
	})

	t.Run("recipient changed", func(t *testing.T) {
		next := withIssuers(v0, alice)
		next.Recipient = bob
		err := ValidateEntry(next, modify(v0, chainOf(alice, class), alice), Policy{})
		requireErrType(t, err, ImmutableBadgeField)
	})

	t.Run("class changed", func(t *testing.T) {
		next := withIssuers(v0, alice)
		next.BadgeClass = "bafkother"
		err := ValidateEntry(next, modify(v0, chainOf(alice, class), alice), Policy{})
		requireErrType(t, err, ImmutableBadgeField)
	})

	t.Run("recipient keeps issuers", func(t *testing.T) {
		v1 := withIssuers(v0, alice)
		v2 := v1.Copy()
		v2.Evidences = []entry.Address{"bafkevidence"}
		require.NoError(t, ValidateEntry(v2, modify(v1, chainOf(frank, class), frank), Policy{}))

		err := ValidateEntry(withIssuers(v1, bob), modify(v1, chainOf(frank, class), frank), Policy{})
		requireErrType(t, err, IssuerListTampered)
	})

	t.Run("two issuers at once", func(t *testing.T) {
		err := ValidateEntry(withIssuers(v0, alice, bob), modify(v0, chainOf(alice, class), alice), Policy{})
		requireErrType(t, err, InvalidIssuerAppend)
	})

	t.Run("issuer replaced", func(t *testing.T) {
		v1 := withIssuers(v0, bob)
		swapped := withIssuers(v0, carol, alice)
		err := ValidateEntry(swapped, modify(v1, chainOf(alice, class), alice), Policy{})
		requireErrType(t, err, InvalidIssuerAppend)
	})

	t.Run("writer appends someone else", func(t *testing.T) {
		err := ValidateEntry(withIssuers(v0, alice), modify(v0, chainOf(bob, class), bob), Policy{})
		requireErrType(t, err, UnauthorizedWriter)
	})

	t.Run("issuer without badge", func(t *testing.T) {
		err := ValidateEntry(withIssuers(v0, bob), modify(v0, chainOf(bob, class), bob), Policy{})
		requireErrType(t, err, IssuerNotCredentialed)
	})

	t.Run("issuer with incomplete badge", func(t *testing.T) {
		own := withIssuers(entry.InitialBadge(bob, classAddr), alice)
		err := ValidateEntry(withIssuers(v0, bob), modify(v0, chainOf(bob, class, own), bob), Policy{})
		requireErrType(t, err, IssuerNotCredentialed)
	})

	t.Run("issuer with completed badge", func(t *testing.T) {
		own := withIssuers(entry.InitialBadge(bob, classAddr), alice, carol)
		err := ValidateEntry(withIssuers(v0, bob), modify(v0, chainOf(bob, class, own), bob), Policy{})
		require.NoError(t, err)
	})

	t.Run("replacing something else", func(t *testing.T) {
		err := ValidateEntry(withIssuers(v0, alice), modify(class, chainOf(alice, class), alice), Policy{})
		requireErrType(t, err, ImmutableBadgeField)
	})
}

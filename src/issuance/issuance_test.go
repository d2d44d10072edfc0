package issuance

import (
	"sync"
	"testing"

	"github.com/peerbadge/badges/src/chain"
	"github.com/peerbadge/badges/src/common"
	"github.com/peerbadge/badges/src/crypto/keys"
	"github.com/peerbadge/badges/src/entry"
	"github.com/peerbadge/badges/src/node"
	"github.com/peerbadge/badges/src/store"
	"github.com/peerbadge/badges/src/validation"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bus delivers every published record and link to all the other nodes,
// synchronously and in order.
type bus struct {
	mu     sync.Mutex
	nodes  []*node.Node
	errors []error
}

type busPort struct {
	bus  *bus
	from *node.Node
}

func (p *busPort) PublishRecord(r *chain.Record) error {
	for _, n := range p.bus.nodes {
		if n != p.from {
			p.bus.report(n.Receive(r))
		}
	}
	return nil
}

func (p *busPort) PublishLink(lr *chain.LinkRecord) error {
	for _, n := range p.bus.nodes {
		if n != p.from {
			p.bus.report(n.ReceiveLink(lr))
		}
	}
	return nil
}

func (b *bus) report(err error) {
	if err == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errors = append(b.errors, err)
}

// network starts one workflow per moniker, all connected to the same bus.
func network(t *testing.T, legacy bool, monikers ...string) map[string]*Workflow {
	t.Helper()
	b := &bus{}
	nodes := make([]*node.Node, len(monikers))
	for i, m := range monikers {
		key, err := keys.GenerateECDSAKey()
		require.NoError(t, err)
		nodes[i] = node.NewNode(node.TestConfig(t), node.NewAgent(key, m), store.NewInmemStore(100))
		nodes[i].SetPublisher(&busPort{bus: b, from: nodes[i]})
	}
	b.nodes = nodes

	res := make(map[string]*Workflow, len(monikers))
	for i, m := range monikers {
		require.NoError(t, nodes[i].Init())
		res[m] = NewWorkflow(nodes[i], legacy, common.NewTestEntry(t, logrus.DebugLevel, m))
	}

	t.Cleanup(func() {
		assert.Empty(t, b.errors, "replication errors")
	})
	return res
}

func TestCreateClass(t *testing.T) {
	ws := network(t, false, "alice", "bob")
	alice, bob := ws["alice"], ws["bob"]

	class, err := alice.CreateClass("go", "writes go", "go.png", 2, true)
	require.NoError(t, err)

	e, err := bob.GetEntry(class)
	require.NoError(t, err)
	assert.Equal(t, &entry.BadgeClass{
		Name:               "go",
		Description:        "writes go",
		Image:              "go.png",
		CreatorAgent:       alice.MyAddress(),
		ValidatorsRequired: 2,
	}, e)

	for _, w := range []*Workflow{alice, bob} {
		all, err := w.AllClasses()
		require.NoError(t, err)
		assert.Equal(t, []entry.Address{class}, all)

		created, err := w.CreatedClasses(alice.MyAddress())
		require.NoError(t, err)
		assert.Equal(t, []entry.Address{class}, created)

		held, err := w.AssertionsHeldBy(alice.MyAddress())
		require.NoError(t, err)
		assert.Len(t, held, 1)

		forClass, err := w.AssertionsForClass(class)
		require.NoError(t, err)
		assert.Equal(t, held, forClass)
	}

	t.Run("anchor is shared", func(t *testing.T) {
		other, err := bob.CreateClass("rust", "", "", 0, false)
		require.NoError(t, err)

		a1, err := alice.Anchor()
		require.NoError(t, err)
		a2, err := bob.Anchor()
		require.NoError(t, err)
		assert.Equal(t, a1, a2)

		all, err := alice.AllClasses()
		require.NoError(t, err)
		assert.ElementsMatch(t, []entry.Address{class, other}, all)

		held, err := bob.AssertionsHeldBy(bob.MyAddress())
		require.NoError(t, err)
		assert.Empty(t, held, "no self assertion")
	})
}

func TestIssueClaim(t *testing.T) {
	ws := network(t, false, "alice", "bob", "carol")
	alice, bob, carol := ws["alice"], ws["bob"], ws["carol"]

	class, err := alice.CreateClass("go", "", "", 1, false)
	require.NoError(t, err)

	_, err = alice.IssueClaim(bob.MyAddress(), class, nil)
	assert.True(t, validation.Is(err, validation.IssuerNotCredentialed), "%v", err)

	_, err = alice.AssertOwnCredential(class)
	require.NoError(t, err)

	_, err = alice.IssueClaim(alice.MyAddress(), class, nil)
	assert.True(t, validation.Is(err, validation.SelfClaim), "%v", err)

	claim, err := alice.IssueClaim(bob.MyAddress(), class, []entry.Address{"bafkevidence"})
	require.NoError(t, err)

	issued, err := carol.ClaimsIssuedBy(alice.MyAddress(), class)
	require.NoError(t, err)
	assert.Equal(t, []entry.Address{claim}, issued)

	received, err := carol.ClaimsReceivedBy(bob.MyAddress(), "")
	require.NoError(t, err)
	assert.Equal(t, []entry.Address{claim}, received)

	forClass, err := carol.ClaimsForClass(class)
	require.NoError(t, err)
	assert.Equal(t, []entry.Address{claim}, forClass)

	t.Run("accept", func(t *testing.T) {
		_, err := carol.AcceptClaim(claim)
		assert.ErrorIs(t, err, ErrNotRecipient)

		addr, err := bob.AcceptClaim(claim)
		require.NoError(t, err)
		assert.Equal(t, claim, addr)

		again, err := bob.AcceptClaim(claim)
		require.NoError(t, err)
		assert.Equal(t, claim, again)

		headers, err := bob.store.EntryHeaders(claim)
		require.NoError(t, err)
		require.Len(t, headers, 2)
		assert.Equal(t, bob.MyAddress(), headers[1].Agent)
		assert.ElementsMatch(t, []entry.AgentRef{alice.MyAddress(), bob.MyAddress()}, headers[1].Sources())
	})

	t.Run("wrong kind", func(t *testing.T) {
		_, err := bob.AcceptClaim(class)
		assert.ErrorIs(t, err, ErrWrongKind)
	})
}

// TestQuorum plays the quorum scenario: a class needs two claims, and an
// agent holding one cannot assert it until a second one arrives.
func TestQuorum(t *testing.T) {
	ws := network(t, false, "a", "b", "d", "e", "f")
	a, f := ws["a"], ws["f"]

	class, err := a.CreateClass("go", "", "", 2, true)
	require.NoError(t, err)

	// the creator credentials the issuers directly
	for _, m := range []string{"b", "d", "e"} {
		_, err := a.IssueClaim(ws[m].MyAddress(), class, nil)
		require.NoError(t, err)
		_, err = ws[m].AssertOwnCredential(class)
		require.NoError(t, err, m)
	}

	_, err = ws["b"].IssueClaim(f.MyAddress(), class, nil)
	require.NoError(t, err)

	status, err := f.QuorumStatus(class)
	require.NoError(t, err)
	assert.Equal(t, 2, status.Required)
	assert.Equal(t, 0, status.Observed)
	assert.Len(t, status.Pending, 1)
	assert.False(t, status.PendingCreatorClaim)
	assert.False(t, status.CanAssert())

	_, err = f.AssertOwnCredential(class)
	require.Error(t, err)
	verr, ok := validation.As(err)
	require.True(t, ok)
	assert.Equal(t, validation.InsufficientClaims, verr.Type())
	assert.Equal(t, 2, verr.Required())
	assert.Equal(t, 1, verr.Actual())

	_, err = ws["d"].IssueClaim(f.MyAddress(), class, nil)
	require.NoError(t, err)

	status, err = f.QuorumStatus(class)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Observed, "the first claim was accepted by the failed attempt")
	assert.Len(t, status.Pending, 1)
	assert.True(t, status.CanAssert())

	assertion, err := f.AssertOwnCredential(class)
	require.NoError(t, err)

	held, err := a.AssertionsHeldBy(f.MyAddress())
	require.NoError(t, err)
	assert.Equal(t, []entry.Address{assertion}, held)

	// f now holds the class and can vouch for others
	_, err = f.IssueClaim(ws["e"].MyAddress(), class, nil)
	require.NoError(t, err)
}

// TestCreatorBypass checks that a single claim from the creator is enough,
// whatever the quorum.
func TestCreatorBypass(t *testing.T) {
	ws := network(t, false, "a", "f")
	a, f := ws["a"], ws["f"]

	class, err := a.CreateClass("go", "", "", 5, true)
	require.NoError(t, err)
	_, err = a.IssueClaim(f.MyAddress(), class, nil)
	require.NoError(t, err)

	status, err := f.QuorumStatus(class)
	require.NoError(t, err)
	assert.False(t, status.Satisfied(), "the claim is pending, not in the chain")
	assert.True(t, status.PendingCreatorClaim)
	assert.True(t, status.CanAssert())

	_, err = f.AssertOwnCredential(class)
	require.NoError(t, err)

	status, err = f.QuorumStatus(class)
	require.NoError(t, err)
	assert.True(t, status.CreatorBypass)
	assert.True(t, status.Satisfied())
}

// TestForeignAssertion checks that a credentialed issuer cannot assert a
// class on behalf of someone else from its own chain.
func TestForeignAssertion(t *testing.T) {
	ws := network(t, false, "a", "b", "f")
	a, b, f := ws["a"], ws["b"], ws["f"]

	class, err := a.CreateClass("go", "", "", 2, true)
	require.NoError(t, err)
	_, err = a.IssueClaim(b.MyAddress(), class, nil)
	require.NoError(t, err)
	_, err = b.AssertOwnCredential(class)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = b.IssueClaim(f.MyAddress(), class, nil)
		require.NoError(t, err)
	}

	_, err = b.node.Commit(&entry.BadgeAssertion{BadgeClass: class, Recipient: f.MyAddress()})
	assert.True(t, validation.Is(err, validation.UnauthorizedWriter), "%v", err)

	held, err := a.AssertionsHeldBy(f.MyAddress())
	require.NoError(t, err)
	assert.Empty(t, held)
}

func TestRawClaimCount(t *testing.T) {
	ws := network(t, false, "a", "b", "f")
	a, b, f := ws["a"], ws["b"], ws["f"]

	class, err := a.CreateClass("go", "", "", 2, true)
	require.NoError(t, err)
	_, err = a.IssueClaim(b.MyAddress(), class, nil)
	require.NoError(t, err)
	_, err = b.AssertOwnCredential(class)
	require.NoError(t, err)

	// one issuer, two distinct claims
	_, err = b.IssueClaim(f.MyAddress(), class, []entry.Address{"bafkone"})
	require.NoError(t, err)
	_, err = b.IssueClaim(f.MyAddress(), class, []entry.Address{"bafktwo"})
	require.NoError(t, err)

	_, err = f.AssertOwnCredential(class)
	require.NoError(t, err)
}

func TestLegacyBadges(t *testing.T) {
	ws := network(t, true, "alice", "bob", "carol")
	alice, bob, carol := ws["alice"], ws["bob"], ws["carol"]

	class, err := alice.CreateClass("go", "", "", 2, false)
	require.NoError(t, err)

	badge, err := alice.ClaimAgentDeservesBadge(bob.MyAddress(), class, []entry.Address{"bafkevidence"})
	require.NoError(t, err)

	got, err := carol.GetBadge(bob.MyAddress(), class)
	require.NoError(t, err)
	assert.Equal(t, []entry.AgentRef{alice.MyAddress()}, got.Issuers)
	assert.Equal(t, []entry.Address{"bafkevidence"}, got.Evidences)

	history, err := carol.GetHistory(badge)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, badge, history[0].Address)
	assert.Empty(t, history[0].Entry.(*entry.Badge).Issuers)

	completed, err := carol.BadgesToRecipient(bob.MyAddress(), true)
	require.NoError(t, err)
	assert.Equal(t, []entry.Address{badge}, completed, "the creator completes a badge")

	tentative, err := carol.BadgesToRecipient(bob.MyAddress(), false)
	require.NoError(t, err)
	assert.Empty(t, tentative)

	issued, err := carol.BadgesFromIssuer(alice.MyAddress())
	require.NoError(t, err)
	assert.Equal(t, []entry.Address{badge}, issued)

	versions, err := carol.BadgesForClass(class)
	require.NoError(t, err)
	assert.Equal(t, []entry.Address{history[1].Address}, versions)

	t.Run("uncredentialed issuer", func(t *testing.T) {
		_, err := carol.ClaimAgentDeservesBadge(bob.MyAddress(), class, nil)
		assert.True(t, validation.Is(err, validation.IssuerNotCredentialed), "%v", err)
	})

	t.Run("twice", func(t *testing.T) {
		_, err := alice.ClaimAgentDeservesBadge(bob.MyAddress(), class, nil)
		assert.True(t, validation.Is(err, validation.InvalidIssuerAppend), "%v", err)
	})
}

func TestLegacyDisabled(t *testing.T) {
	ws := network(t, false, "alice")
	alice := ws["alice"]

	_, err := alice.ClaimAgentDeservesBadge("0X04B0", "bafkclass", nil)
	assert.ErrorIs(t, err, ErrLegacyDisabled)
	_, err = alice.GetBadge("0X04B0", "bafkclass")
	assert.ErrorIs(t, err, ErrLegacyDisabled)
	_, err = alice.BadgesToRecipient("0X04B0", true)
	assert.ErrorIs(t, err, ErrLegacyDisabled)
}

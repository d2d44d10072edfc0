package wamp

import (
	"context"
	"testing"
	"time"

	"github.com/gammazero/nexus/v3/router"
	"github.com/gammazero/nexus/v3/wamp"
	"github.com/peerbadge/badges/src/common"
	"github.com/peerbadge/badges/src/crypto/keys"
	"github.com/peerbadge/badges/src/entry"
	"github.com/peerbadge/badges/src/links"
	"github.com/peerbadge/badges/src/node"
	"github.com/peerbadge/badges/src/store"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	realm   = "badges.test"
	timeout = 5 * time.Second
	tick    = 10 * time.Millisecond
)

func newRouter(t *testing.T) router.Router {
	t.Helper()
	r, err := router.NewRouter(&router.Config{
		RealmConfigs: []*router.RealmConfig{
			{URI: wamp.URI(realm), AnonymousAuth: true},
		},
	}, common.NewTestEntry(t, logrus.InfoLevel, "router"))
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r
}

func newNode(t *testing.T, moniker string) *node.Node {
	t.Helper()
	key, err := keys.GenerateECDSAKey()
	require.NoError(t, err)
	n := node.NewNode(node.TestConfig(t), node.NewAgent(key, moniker), store.NewInmemStore(100))
	require.NoError(t, n.Init())
	return n
}

func startPeer(t *testing.T, r router.Router, n *node.Node) *Peer {
	t.Helper()
	logger := common.NewTestEntry(t, logrus.DebugLevel, n.Agent().Moniker)
	cli, err := ConnectLocal(r, realm, logger)
	require.NoError(t, err)
	p := NewPeer(cli, n, timeout, logger)
	require.NoError(t, p.Start())
	t.Cleanup(func() { p.Close() })
	return p
}

func knows(n *node.Node, agent entry.AgentRef, length int) func() bool {
	return func() bool {
		return n.ChainLength(agent) == length
	}
}

func TestGossip(t *testing.T) {
	r := newRouter(t)
	alice, bob := newNode(t, "alice"), newNode(t, "bob")
	startPeer(t, r, alice)
	startPeer(t, r, bob)

	a, b := alice.Agent().Ref(), bob.Agent().Ref()

	require.Eventually(t, knows(bob, a, 1), timeout, tick, "bob syncs alice's genesis")
	require.Eventually(t, knows(alice, b, 1), timeout, tick, "alice syncs bob's genesis")

	class, err := alice.Commit(&entry.BadgeClass{Name: "go", CreatorAgent: a, ValidatorsRequired: 1})
	require.NoError(t, err)
	require.Eventually(t, knows(bob, a, 2), timeout, tick)
	assert.True(t, bob.Store().HasEntry(class))

	require.NoError(t, alice.LinkEntries(a, class, links.CreatorToBadgeClass, ""))
	require.Eventually(t, func() bool {
		ls, err := bob.Store().GetLinks(a, links.CreatorToBadgeClass, "")
		return err == nil && len(ls) == 1
	}, timeout, tick)
}

func TestLateJoiner(t *testing.T) {
	r := newRouter(t)
	alice := newNode(t, "alice")
	startPeer(t, r, alice)
	a := alice.Agent().Ref()

	class, err := alice.Commit(&entry.BadgeClass{Name: "go", CreatorAgent: a, ValidatorsRequired: 1})
	require.NoError(t, err)
	_, err = alice.Commit(&entry.BadgeAssertion{BadgeClass: class, Recipient: a})
	require.NoError(t, err)

	bob := newNode(t, "bob")
	startPeer(t, r, bob)

	require.Eventually(t, knows(bob, a, 3), timeout, tick)
	require.Eventually(t, knows(alice, bob.Agent().Ref(), 1), timeout, tick)
	require.NoError(t, bob.Audit(context.Background(), a))
}

func TestSyncChain(t *testing.T) {
	r := newRouter(t)
	alice, bob := newNode(t, "alice"), newNode(t, "bob")
	startPeer(t, r, alice)
	a := alice.Agent().Ref()

	_, err := alice.Commit(entry.NewAnchor())
	require.NoError(t, err)

	// bob's peer only serves his chain, it does not announce itself
	logger := common.NewTestEntry(t, logrus.DebugLevel, "bob")
	cli, err := ConnectLocal(r, realm, logger)
	require.NoError(t, err)
	p := NewPeer(cli, bob, timeout, logger)
	defer p.Close()

	require.NoError(t, p.SyncChain(context.Background(), a))
	assert.Equal(t, 2, bob.ChainLength(a))
	require.NoError(t, p.SyncChain(context.Background(), a), "nothing left to sync")

	err = p.SyncChain(context.Background(), "0X04UNKNOWN")
	assert.Error(t, err, "no peer serves that chain")
}

func TestCloseStopsSyncs(t *testing.T) {
	r := newRouter(t)
	alice, bob := newNode(t, "alice"), newNode(t, "bob")
	startPeer(t, r, alice)

	logger := common.NewTestEntry(t, logrus.DebugLevel, "bob")
	cli, err := ConnectLocal(r, realm, logger)
	require.NoError(t, err)
	p := NewPeer(cli, bob, timeout, logger)
	require.NoError(t, p.Close())

	// an event delivered while closing must not start a sync
	p.syncAsync(alice.Agent().Ref())
	p.Wait()
	p.syncingMu.Lock()
	defer p.syncingMu.Unlock()
	assert.Empty(t, p.syncing)
	assert.Equal(t, 0, bob.ChainLength(alice.Agent().Ref()))
}

func TestServer(t *testing.T) {
	logger := common.NewTestEntry(t, logrus.InfoLevel, "server")
	server, err := NewServer("127.0.0.1:0", realm, "", "", logger)
	require.NoError(t, err)
	require.NoError(t, server.Listen())
	go server.Run()
	defer server.Shutdown()

	alice, bob := newNode(t, "alice"), newNode(t, "bob")
	for _, n := range []*node.Node{alice, bob} {
		l := common.NewTestEntry(t, logrus.DebugLevel, n.Agent().Moniker)
		cli, err := Dial(DialConfig{URL: server.URL(), Realm: realm, ResponseTimeout: timeout}, l)
		require.NoError(t, err)
		p := NewPeer(cli, n, timeout, l)
		require.NoError(t, p.Start())
		defer p.Close()
	}

	require.Eventually(t, knows(bob, alice.Agent().Ref(), 1), timeout, tick)

	_, err = alice.Commit(entry.NewAnchor())
	require.NoError(t, err)
	require.Eventually(t, knows(bob, alice.Agent().Ref(), 2), timeout, tick)
}

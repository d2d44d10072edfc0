package engine

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/peerbadge/badges/src/config"
	"github.com/peerbadge/badges/src/crypto/keys"
	"github.com/peerbadge/badges/src/entry"
	"github.com/peerbadge/badges/src/store/grpcstore"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, moniker string) *config.Config {
	conf := config.NewTestConfig(t, logrus.DebugLevel)
	conf.Moniker = moniker
	conf.SetDataDir(t.TempDir())
	return conf
}

// start runs e in the background and shuts it down at the end of the test.
func start(t *testing.T, e *Engine) {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- e.Run() }()
	t.Cleanup(func() {
		e.Shutdown()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("engine did not stop")
		}
	})
}

func TestInit(t *testing.T) {
	conf := testConfig(t, "alice")
	e := NewEngine(conf)
	require.NoError(t, e.Init())
	defer e.Shutdown()

	assert.NotNil(t, conf.Key, "a key is generated")
	assert.Nil(t, e.Server)
	assert.Nil(t, e.Peer)
	assert.Nil(t, e.Service)
	assert.Nil(t, e.GRPC)
	assert.Equal(t, 1, e.Node.ChainLength(e.Node.Agent().Ref()))
	assert.Equal(t, "alice", e.Node.Agent().Moniker)
}

func TestKeyfile(t *testing.T) {
	conf := testConfig(t, "alice")
	e := NewEngine(conf)
	require.NoError(t, e.Init())
	e.Shutdown()

	key, err := keys.NewSimpleKeyfile(conf.Keyfile()).ReadKey()
	require.NoError(t, err)
	assert.Equal(t, keys.PublicKeyHex(&conf.Key.PublicKey), keys.PublicKeyHex(&key.PublicKey))

	_, err = Keygen(conf.Keyfile())
	assert.Error(t, err, "keygen does not overwrite a key")

	again := testConfig(t, "alice")
	again.SetDataDir(conf.DataDir)
	e = NewEngine(again)
	require.NoError(t, e.Init())
	defer e.Shutdown()
	assert.Equal(t, keys.PublicKeyHex(&key.PublicKey), keys.PublicKeyHex(&again.Key.PublicKey))
}

func TestPersistence(t *testing.T) {
	conf := testConfig(t, "alice")
	conf.Store = true
	conf.DatabaseDir = filepath.Join(conf.DataDir, "db")

	e := NewEngine(conf)
	require.NoError(t, e.Init())
	class, err := e.Workflow.CreateClass("go", "", "", 1, false)
	require.NoError(t, err)
	me := e.Node.Agent().Ref()
	length := e.Node.ChainLength(me)
	e.Shutdown()

	again := testConfig(t, "alice")
	again.Store = true
	again.DatabaseDir = conf.DatabaseDir
	again.Key = conf.Key

	e = NewEngine(again)
	require.NoError(t, e.Init())
	defer e.Shutdown()

	assert.Equal(t, length, e.Node.ChainLength(me), "the chain is not re-initialized")
	classes, err := e.Workflow.CreatedClasses(me)
	require.NoError(t, err)
	assert.Equal(t, []entry.Address{class}, classes)
}

func TestGossip(t *testing.T) {
	aliceConf := testConfig(t, "alice")
	aliceConf.NoGossip = false
	aliceConf.GossipAddr = "127.0.0.1:0"
	aliceConf.GRPCAddr = "127.0.0.1:0"

	alice := NewEngine(aliceConf)
	require.NoError(t, alice.Init())
	require.NotNil(t, alice.Server)
	require.NotNil(t, alice.Peer)
	start(t, alice)

	bobConf := testConfig(t, "bob")
	bobConf.NoGossip = false
	bobConf.GossipURL = alice.Server.URL()

	bob := NewEngine(bobConf)
	require.NoError(t, bob.Init())
	require.Nil(t, bob.Server)
	start(t, bob)

	a := alice.Node.Agent().Ref()
	class, err := alice.Workflow.CreateClass("go", "", "", 1, false)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return bob.Node.Store().HasEntry(class)
	}, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return alice.Node.ChainLength(bob.Node.Agent().Ref()) == 1
	}, 5*time.Second, 10*time.Millisecond)

	t.Run("entry service", func(t *testing.T) {
		cli, err := grpcstore.Dial(alice.GRPCAddr(), grpcstore.DialOptions{Timeout: 5 * time.Second})
		require.NoError(t, err)
		defer cli.Close()

		e, err := cli.GetEntry(class)
		require.NoError(t, err)
		bc, ok := e.(*entry.BadgeClass)
		require.True(t, ok)
		assert.Equal(t, a, bc.CreatorAgent)
	})
}

// TestRunPeerFailure checks that Run stops every component when the gossip
// peer cannot start.
func TestRunPeerFailure(t *testing.T) {
	aliceConf := testConfig(t, "alice")
	aliceConf.NoGossip = false
	aliceConf.GossipAddr = "127.0.0.1:0"

	alice := NewEngine(aliceConf)
	require.NoError(t, alice.Init())
	start(t, alice)

	// same key: the chain procedure is already registered on alice's router
	twinConf := testConfig(t, "twin")
	twinConf.Key = aliceConf.Key
	twinConf.NoGossip = false
	twinConf.GossipAddr = "127.0.0.1:0"
	twinConf.GossipURL = alice.Server.URL()

	twin := NewEngine(twinConf)
	require.NoError(t, twin.Init())
	require.NotNil(t, twin.Server)

	done := make(chan error, 1)
	go func() { done <- twin.Run() }()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}

	select {
	case <-twin.shutdownCh:
	default:
		t.Error("the engine was not shut down")
	}
}

// Package engine assembles a badges node from a configuration: the key, the
// store, the node, the issuance workflow, the gossip peer and the API
// services.
package engine

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"

	"github.com/peerbadge/badges/src/config"
	"github.com/peerbadge/badges/src/crypto/keys"
	"github.com/peerbadge/badges/src/issuance"
	bwamp "github.com/peerbadge/badges/src/net/wamp"
	"github.com/peerbadge/badges/src/node"
	"github.com/peerbadge/badges/src/service"
	"github.com/peerbadge/badges/src/store"
	"github.com/peerbadge/badges/src/store/grpcstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

// Engine is the top-level object of a badges node.
type Engine struct {
	Config   *config.Config
	Registry *prometheus.Registry
	Store    store.Store
	Node     *node.Node
	Workflow *issuance.Workflow
	Server   *bwamp.Server
	Peer     *bwamp.Peer
	Service  *service.Service
	GRPC     *grpc.Server

	grpcListener net.Listener
	logger       *logrus.Entry

	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

// NewEngine returns an Engine that still needs to be initialized.
func NewEngine(conf *config.Config) *Engine {
	return &Engine{
		Config:     conf,
		logger:     conf.Logger(),
		shutdownCh: make(chan struct{}),
	}
}

// Init builds every component in dependency order.
func (e *Engine) Init() error {
	if err := e.initKey(); err != nil {
		return err
	}

	if err := e.initStore(); err != nil {
		return err
	}

	if err := e.initNode(); err != nil {
		return err
	}

	e.Workflow = issuance.NewWorkflow(e.Node, e.Config.LegacyBadges, e.logger)

	if err := e.initGossip(); err != nil {
		return err
	}

	e.initService()

	if err := e.initGRPC(); err != nil {
		return err
	}

	return nil
}

func (e *Engine) initKey() error {
	if e.Config.Key != nil {
		return nil
	}

	simpleKeyfile := keys.NewSimpleKeyfile(e.Config.Keyfile())

	privKey, err := simpleKeyfile.ReadKey()
	if err != nil {
		e.logger.WithError(err).Warn("Cannot read private key from file")

		privKey, err = Keygen(e.Config.Keyfile())
		if err != nil {
			e.logger.WithError(err).Error("Cannot generate a new private key")
			return err
		}

		e.logger.WithField("pub", keys.PublicKeyHex(&privKey.PublicKey)).Info("Created a new key")
	}

	e.Config.Key = privKey
	return nil
}

func (e *Engine) initStore() error {
	if !e.Config.Store {
		e.Store = store.NewInmemStore(e.Config.CacheSize)
		e.logger.Debug("Created new in-mem store")
		return nil
	}

	e.logger.WithField("path", e.Config.DatabaseDir).Debug("Attempting to load or create database")

	s, err := store.LoadOrCreateBadgerStore(e.Config.CacheSize, e.Config.DatabaseDir, e.logger.WithField("prefix", "store"))
	if err != nil {
		return err
	}
	e.Store = s
	return nil
}

func (e *Engine) initNode() error {
	e.Registry = prometheus.NewRegistry()
	e.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	moniker := e.Config.Moniker
	if moniker == "" {
		moniker, _ = os.Hostname()
	}

	agent := node.NewAgent(e.Config.Key, moniker)

	e.logger.WithFields(logrus.Fields{
		"agent":   agent.Ref(),
		"moniker": moniker,
	}).Debug("AGENT")

	conf := node.NewConfig(e.Config.Policy(), e.logger.Logger, e.Registry)
	e.Node = node.NewNode(conf, agent, e.Store)

	if err := e.Node.Init(); err != nil {
		return fmt.Errorf("failed to initialize node: %w", err)
	}

	return nil
}

func (e *Engine) initGossip() error {
	if e.Config.NoGossip {
		return nil
	}

	logger := e.logger.WithField("prefix", "gossip")

	if e.Config.GossipAddr != "" {
		server, err := bwamp.NewServer(
			e.Config.GossipAddr,
			e.Config.GossipRealm,
			e.Config.GossipCertFile,
			e.Config.GossipKeyFile,
			logger,
		)
		if err != nil {
			return err
		}
		if err := server.Listen(); err != nil {
			server.Shutdown()
			return err
		}
		e.Server = server
	}

	switch {
	case e.Config.GossipURL != "":
		cli, err := bwamp.Dial(bwamp.DialConfig{
			URL:             e.Config.GossipURL,
			Realm:           e.Config.GossipRealm,
			CAFile:          e.Config.GossipCAFile,
			ResponseTimeout: e.Config.ResponseTimeout,
		}, logger)
		if err != nil {
			return fmt.Errorf("dialing %s: %w", e.Config.GossipURL, err)
		}
		e.Peer = bwamp.NewPeer(cli, e.Node, e.Config.ResponseTimeout, logger)
	case e.Server != nil:
		cli, err := bwamp.ConnectLocal(e.Server.Router(), e.Config.GossipRealm, logger)
		if err != nil {
			return err
		}
		e.Peer = bwamp.NewPeer(cli, e.Node, e.Config.ResponseTimeout, logger)
	default:
		logger.Warn("Neither a gossip address nor a gossip URL is set. Replication is off")
	}

	return nil
}

func (e *Engine) initService() {
	if e.Config.NoService || e.Config.ServiceAddr == "" {
		return
	}
	e.Service = service.NewService(e.Config.ServiceAddr, e.Workflow, e.Registry, e.logger.WithField("prefix", "service"))
}

func (e *Engine) initGRPC() error {
	if e.Config.GRPCAddr == "" {
		return nil
	}

	l, err := net.Listen("tcp", e.Config.GRPCAddr)
	if err != nil {
		return err
	}

	e.grpcListener = l
	e.GRPC = grpc.NewServer()
	grpcstore.RegisterEntriesServer(e.GRPC, &grpcstore.Server{Store: e.Store})
	return nil
}

// GRPCAddr returns the address the entry service listens on, or an empty
// string when it is disabled.
func (e *Engine) GRPCAddr() string {
	if e.grpcListener == nil {
		return ""
	}
	return e.grpcListener.Addr().String()
}

// Run starts the network components and blocks until Shutdown is called or
// one of them fails.
func (e *Engine) Run() error {
	g, ctx := errgroup.WithContext(context.Background())

	if e.Server != nil {
		g.Go(e.Server.Run)
	}

	if e.Peer != nil {
		if err := e.Peer.Start(); err != nil {
			e.Shutdown()
			g.Wait()
			return err
		}
	}

	if e.Service != nil {
		g.Go(e.Service.Serve)
	}

	if e.GRPC != nil {
		g.Go(func() error {
			e.logger.WithField("address", e.GRPCAddr()).Info("Entry service listening")
			err := e.GRPC.Serve(e.grpcListener)
			if errors.Is(err, grpc.ErrServerStopped) {
				return nil
			}
			return err
		})
	}

	select {
	case <-e.shutdownCh:
	case <-ctx.Done():
		e.Shutdown()
	}

	return g.Wait()
}

// Shutdown stops every component and closes the store. It is safe to call
// more than once.
func (e *Engine) Shutdown() {
	e.shutdownOnce.Do(func() {
		e.logger.Info("Shutting down")

		if e.Peer != nil {
			if err := e.Peer.Close(); err != nil {
				e.logger.WithError(err).Debug("Closing gossip peer")
			}
		}

		if e.Server != nil {
			e.Server.Shutdown()
		}

		if e.Service != nil {
			if err := e.Service.Shutdown(context.Background()); err != nil {
				e.logger.WithError(err).Error("Shutting down service")
			}
		}

		if e.GRPC != nil {
			e.GRPC.Stop()
		}

		if e.Store != nil {
			if err := e.Store.Close(); err != nil {
				e.logger.WithError(err).Error("Closing store")
			}
		}

		close(e.shutdownCh)
	})
}

// Keygen generates a new key and writes it to keyfile. It refuses to
// overwrite an existing key.
func Keygen(keyfile string) (*ecdsa.PrivateKey, error) {
	simpleKeyfile := keys.NewSimpleKeyfile(keyfile)

	if _, err := os.Stat(keyfile); err == nil {
		return nil, fmt.Errorf("another key already lives under %s", keyfile)
	}

	privKey, err := keys.GenerateECDSAKey()
	if err != nil {
		return nil, err
	}

	if err := simpleKeyfile.WriteKey(privKey); err != nil {
		return nil, err
	}

	return privKey, nil
}

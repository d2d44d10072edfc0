package wamp

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gammazero/nexus/v3/client"
	"github.com/gammazero/nexus/v3/router"
	"github.com/gammazero/nexus/v3/wamp"
	"github.com/peerbadge/badges/src/chain"
	"github.com/peerbadge/badges/src/entry"
	"github.com/peerbadge/badges/src/node"
	"github.com/sirupsen/logrus"
)

// DialConfig holds the settings to reach a remote router.
type DialConfig struct {
	URL                string
	Realm              string
	CAFile             string
	InsecureSkipVerify bool
	ResponseTimeout    time.Duration
}

// Dial opens a WAMP session with a remote router. A CAFile that does not exist
// is ignored and the platform roots are used.
func Dial(conf DialConfig, logger *logrus.Entry) (*client.Client, error) {
	cfg := client.Config{
		Realm:           conf.Realm,
		ResponseTimeout: conf.ResponseTimeout,
		Logger:          logger,
	}

	tlscfg := &tls.Config{}

	if conf.InsecureSkipVerify {
		logger.Debug("Skip Verify. Accepting any certificate provided by the router.")
		tlscfg.InsecureSkipVerify = true
	} else if _, err := os.Stat(conf.CAFile); conf.CAFile == "" || os.IsNotExist(err) {
		logger.Debug("No certificate file found. Relying on platform trusted certificates.")
	} else {
		certPEM, err := os.ReadFile(conf.CAFile)
		if err != nil {
			return nil, err
		}

		roots := x509.NewCertPool()
		if !roots.AppendCertsFromPEM(certPEM) {
			return nil, errors.New("failed to import certificate to trust")
		}
		tlscfg.RootCAs = roots

		block, _ := pem.Decode(certPEM)
		if block == nil {
			return nil, errors.New("failed to decode certificate to trust")
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, err
		}

		logger.Debugf("Trusting certificate %s with CN: %s", conf.CAFile, cert.Subject.CommonName)

		// the certificate validates even if its CN is not the DNS name
		tlscfg.ServerName = cert.Subject.CommonName
	}

	cfg.TlsCfg = tlscfg

	return client.ConnectNet(context.Background(), conf.URL, cfg)
}

// ConnectLocal opens a WAMP session with an in-process router.
func ConnectLocal(r router.Router, realm string, logger *logrus.Entry) (*client.Client, error) {
	return client.ConnectLocal(r, client.Config{
		Realm:  realm,
		Logger: logger,
	})
}

// Peer replicates the chains of a node through a WAMP session. It implements
// node.Publisher.
type Peer struct {
	node    *node.Node
	client  *client.Client
	timeout time.Duration
	logger  *logrus.Entry

	// syncing holds the agents whose chain is being fetched, so that a burst
	// of out of order records triggers a single sync.
	syncing   map[entry.AgentRef]bool
	syncingMu sync.Mutex
	wg        sync.WaitGroup
	// closed stops new syncs once Close waits for the running ones.
	closed    bool
}

// NewPeer returns a Peer for n over an open session. Start must be called
// before anything is exchanged.
func NewPeer(cli *client.Client, n *node.Node, timeout time.Duration, logger *logrus.Entry) *Peer {
	return &Peer{
		node:    n,
		client:  cli,
		timeout: timeout,
		logger:  logger.WithField("prefix", "gossip"),
		syncing: make(map[entry.AgentRef]bool),
	}
}

// Start subscribes to the gossip topics, serves the node's chain, plugs the
// peer in as the node's publisher and announces the node to the realm.
func (p *Peer) Start() error {
	if err := p.client.Subscribe(TopicRecords, p.onRecord, nil); err != nil {
		return fmt.Errorf("subscribing to %s: %w", TopicRecords, err)
	}
	if err := p.client.Subscribe(TopicLinks, p.onLink, nil); err != nil {
		return fmt.Errorf("subscribing to %s: %w", TopicLinks, err)
	}
	if err := p.client.Subscribe(TopicHello, p.onHello, nil); err != nil {
		return fmt.Errorf("subscribing to %s: %w", TopicHello, err)
	}

	proc := ChainProcedure(p.node.Agent().Ref())
	if err := p.client.Register(proc, p.serveChain, nil); err != nil {
		p.logger.WithError(err).Error("Failed to register procedure")
		return err
	}
	p.logger.WithField("procedure", proc).Debug("Registered procedure with router")

	p.node.SetPublisher(p)

	return p.Announce()
}

// Announce publishes the node's agent so that peers sync its chain.
func (p *Peer) Announce() error {
	return p.client.Publish(TopicHello, nil, wamp.List{string(p.node.Agent().Ref())}, nil)
}

// PublishRecord implements node.Publisher.
func (p *Peer) PublishRecord(r *chain.Record) error {
	data, err := r.Marshal()
	if err != nil {
		return err
	}
	return p.client.Publish(TopicRecords, nil, wamp.List{string(data)}, nil)
}

// PublishLink implements node.Publisher.
func (p *Peer) PublishLink(lr *chain.LinkRecord) error {
	data, err := lr.Marshal()
	if err != nil {
		return err
	}
	return p.client.Publish(TopicLinks, nil, wamp.List{string(data)}, nil)
}

// SyncChain fetches the part of agent's chain the node does not have yet
// from the agent's peer, and applies it.
func (p *Peer) SyncChain(ctx context.Context, agent entry.AgentRef) error {
	skip := p.node.ChainLength(agent) - 1

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	result, err := p.client.Call(ctx, ChainProcedure(agent), nil, wamp.List{skip}, nil, nil)
	if err != nil {
		return err
	}
	if len(result.Arguments) != 1 {
		return fmt.Errorf("chain of %s: expected 1 result, got %d", agent, len(result.Arguments))
	}
	raw, ok := wamp.AsList(result.Arguments[0])
	if !ok {
		return fmt.Errorf("chain of %s: result is not a list", agent)
	}

	records := make([]*chain.Record, 0, len(raw))
	for i, item := range raw {
		s, ok := wamp.AsString(item)
		if !ok {
			return fmt.Errorf("chain of %s: record %d is not a string", agent, i)
		}
		r := &chain.Record{}
		if err := r.Unmarshal([]byte(s)); err != nil {
			return err
		}
		records = append(records, r)
	}

	if err := p.node.ReceiveChain(records); err != nil {
		return err
	}

	p.logger.WithField("agent", agent).WithField("records", len(records)).Debug("Chain synced")
	return nil
}

// Wait blocks until the syncs started by incoming events are done.
func (p *Peer) Wait() {
	p.wg.Wait()
}

// Close unregisters the chain procedure and leaves the realm.
func (p *Peer) Close() error {
	p.syncingMu.Lock()
	p.closed = true
	p.syncingMu.Unlock()

	p.client.Unregister(ChainProcedure(p.node.Agent().Ref()))
	err := p.client.Close()
	p.wg.Wait()
	return err
}

func (p *Peer) onRecord(event *wamp.Event) {
	r := &chain.Record{}
	if err := decodeArg(event.Arguments, r.Unmarshal); err != nil {
		p.logger.WithError(err).Warn("Dropping record")
		return
	}

	err := p.node.Receive(r)
	switch {
	case err == nil:
	case errors.Is(err, node.ErrChainGap):
		p.syncAsync(r.Header.Agent)
	default:
		p.logger.WithError(err).WithField("author", r.Header.Agent).Debug("Record rejected")
	}
}

func (p *Peer) onLink(event *wamp.Event) {
	lr := &chain.LinkRecord{}
	if err := decodeArg(event.Arguments, lr.Unmarshal); err != nil {
		p.logger.WithError(err).Warn("Dropping link")
		return
	}
	if err := p.node.ReceiveLink(lr); err != nil {
		p.logger.WithError(err).WithField("link", lr.Link.String()).Debug("Link rejected")
	}
}

func (p *Peer) onHello(event *wamp.Event) {
	if len(event.Arguments) != 1 {
		return
	}
	s, ok := wamp.AsString(event.Arguments[0])
	if !ok {
		return
	}
	agent := entry.AgentRef(s)
	if agent == p.node.Agent().Ref() {
		return
	}

	known := p.node.ChainLength(agent) > 0
	p.syncAsync(agent)
	if !known {
		// a newcomer does not know us either
		if err := p.Announce(); err != nil {
			p.logger.WithError(err).Warn("Announcing")
		}
	}
}

// syncAsync syncs agent's chain in the background. Event handlers must not
// block on calls through the same session.
func (p *Peer) syncAsync(agent entry.AgentRef) {
	p.syncingMu.Lock()
	if p.closed || p.syncing[agent] {
		p.syncingMu.Unlock()
		return
	}
	p.syncing[agent] = true
	p.wg.Add(1)
	p.syncingMu.Unlock()

	go func() {
		defer p.wg.Done()
		defer func() {
			p.syncingMu.Lock()
			delete(p.syncing, agent)
			p.syncingMu.Unlock()
		}()
		if err := p.SyncChain(context.Background(), agent); err != nil {
			p.logger.WithError(err).WithField("agent", agent).Debug("Chain sync failed")
		}
	}()
}

// serveChain returns the node's own records from index skip+1.
func (p *Peer) serveChain(ctx context.Context, inv *wamp.Invocation) client.InvokeResult {
	if len(inv.Arguments) != 1 {
		return errResult(fmt.Sprintf("Invocation should contain 1 argument, not %d", len(inv.Arguments)))
	}
	skip, ok := wamp.AsInt64(inv.Arguments[0])
	if !ok {
		return errResult("Error reading invocation argument")
	}

	records, err := p.node.Records(p.node.Agent().Ref(), int(skip))
	if err != nil {
		return errResult(err.Error())
	}

	list := make(wamp.List, 0, len(records))
	for _, r := range records {
		data, err := r.Marshal()
		if err != nil {
			return errResult(err.Error())
		}
		list = append(list, string(data))
	}
	return client.InvokeResult{Args: wamp.List{list}}
}

func decodeArg(args wamp.List, unmarshal func([]byte) error) error {
	if len(args) != 1 {
		return fmt.Errorf("expected 1 argument, got %d", len(args))
	}
	s, ok := wamp.AsString(args[0])
	if !ok {
		return errors.New("argument is not a string")
	}
	return unmarshal([]byte(s))
}

func errResult(msg string) client.InvokeResult {
	return client.InvokeResult{
		Err:  ErrProcessing,
		Args: wamp.List{msg},
	}
}

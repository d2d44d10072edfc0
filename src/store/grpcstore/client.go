package grpcstore

import (
	"context"
	"fmt"
	"time"

	cm "github.com/peerbadge/badges/src/common"
	"github.com/peerbadge/badges/src/crypto"
	"github.com/peerbadge/badges/src/entry"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client reads and writes entries over the Entries gRPC service. Every entry
// it returns has been checked against the requested address.
type Client struct {
	cc     *grpc.ClientConn
	client EntriesClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

// DialOptions configure Dial.
type DialOptions struct {
	// Timeout applies to the initial dial and to every RPC when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int
}

// Dial connects to an Entries service at target.
func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return NewClient(cc, opts.Timeout), nil
}

// NewClient wraps an existing connection.
func NewClient(cc *grpc.ClientConn, timeout time.Duration) *Client {
	return &Client{cc: cc, client: NewEntriesClient(cc), Timeout: timeout}
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

// PutEntry sends e to the remote store and checks the address it replies
// with.
func (c *Client) PutEntry(e entry.Entry) (entry.Address, error) {
	data, err := entry.Marshal(e)
	if err != nil {
		return "", err
	}
	expected, err := crypto.ContentAddress(data)
	if err != nil {
		return "", err
	}

	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.Put(ctx, wrapperspb.Bytes(data))
	if err != nil {
		return "", mapRPC(err, "")
	}
	if reply.GetValue() != expected {
		return "", crypto.ErrCIDMismatch
	}
	return entry.Address(expected), nil
}

// GetEntry fetches the entry stored under address.
func (c *Client) GetEntry(address entry.Address) (entry.Entry, error) {
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.Get(ctx, wrapperspb.String(string(address)))
	if err != nil {
		return nil, mapRPC(err, address)
	}
	data := reply.GetValue()
	e, err := entry.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("remote entry %s: %v", address, err)
	}
	if err := checkAddress(address, e, data); err != nil {
		return nil, err
	}
	return e, nil
}

// HasEntry reports whether the remote store holds address. Transport errors
// read as false.
func (c *Client) HasEntry(address entry.Address) bool {
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.Has(ctx, wrapperspb.String(string(address)))
	if err != nil {
		return false
	}
	return reply.GetValue()
}

func (c *Client) ctx() (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), c.Timeout)
}

func mapRPC(err error, address entry.Address) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.NotFound:
		return cm.NewStoreErr("RemoteEntries", cm.KeyNotFound, string(address))
	case codes.DataLoss:
		return crypto.ErrCIDMismatch
	default:
		return err
	}
}

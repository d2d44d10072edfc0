package grpcstore

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/peerbadge/badges/src/chain"
	cm "github.com/peerbadge/badges/src/common"
	"github.com/peerbadge/badges/src/entry"
	"github.com/peerbadge/badges/src/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func newTestClient(t *testing.T, s store.Store) *Client {
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterEntriesServer(srv, &Server{Store: s})

	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.Dial() }
	cc, err := grpc.DialContext(
		context.Background(),
		"bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { cc.Close() })

	return NewClient(cc, 2*time.Second)
}

func TestRoundTrip(t *testing.T) {
	s := store.NewInmemStore(10)
	client := newTestClient(t, s)

	class := &entry.BadgeClass{Name: "go", CreatorAgent: "0X04AA", ValidatorsRequired: 3}
	want, err := entry.AddressOf(class)
	require.NoError(t, err)
	require.NoError(t, s.AppendHeader(&chain.Header{Agent: "0X04AA", Kind: entry.KindBadgeClass, EntryAddress: want}))

	addr, err := client.PutEntry(class)
	require.NoError(t, err)
	assert.Equal(t, want, addr)
	assert.True(t, s.HasEntry(addr), "the entry must land in the served store")
	assert.True(t, client.HasEntry(addr))

	got, err := client.GetEntry(addr)
	require.NoError(t, err)
	assert.Equal(t, class, got)
}

// TestPutUncommitted checks that entries no chain commits never reach the
// store.
func TestPutUncommitted(t *testing.T) {
	s := store.NewInmemStore(10)
	client := newTestClient(t, s)

	class := &entry.BadgeClass{Name: "go", CreatorAgent: "0X04AA", ValidatorsRequired: 3}
	addr, err := entry.AddressOf(class)
	require.NoError(t, err)

	_, err = client.PutEntry(class)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
	assert.False(t, s.HasEntry(addr))

	t.Run("non-canonical bytes", func(t *testing.T) {
		require.NoError(t, s.AppendHeader(&chain.Header{Agent: "0X04AA", Kind: entry.KindBadgeClass, EntryAddress: addr}))
		data, err := entry.Marshal(class)
		require.NoError(t, err)

		srv := &Server{Store: s}
		_, err = srv.Put(context.Background(), wrapperspb.Bytes(append([]byte(" "), data...)))
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
		assert.False(t, s.HasEntry(addr))
	})
}

func TestAgentIDs(t *testing.T) {
	s := store.NewInmemStore(10)
	client := newTestClient(t, s)

	id := &entry.AgentID{PubKey: "0X04AA", Nick: "alice"}
	_, err := client.PutEntry(id)
	assert.Error(t, err, "identities are not accepted remotely")

	_, err = s.PutEntry(id)
	require.NoError(t, err)

	got, err := client.GetEntry("0X04AA")
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestNotFound(t *testing.T) {
	client := newTestClient(t, store.NewInmemStore(10))

	_, err := client.GetEntry("bafkmissing")
	assert.True(t, cm.IsStore(err, cm.KeyNotFound))
	assert.False(t, client.HasEntry("bafkmissing"))
}

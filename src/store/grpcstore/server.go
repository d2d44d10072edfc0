// Package grpcstore exposes the entries of a store.Store as a gRPC blob
// service, and provides a client that fetches and checks them remotely.
package grpcstore

import (
	"bytes"
	"context"
	"errors"

	cm "github.com/peerbadge/badges/src/common"
	"github.com/peerbadge/badges/src/crypto"
	"github.com/peerbadge/badges/src/entry"
	"github.com/peerbadge/badges/src/store"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Server serves the entries of Store.
type Server struct {
	UnimplementedEntriesServer
	Store store.Store
}

// Put restores the body of an entry that a chain of Store already commits.
// The bytes must be the canonical encoding of the entry and hash to an
// address some stored header points at, so nothing reaches the store that
// was not validated as part of a chain. Identities are written by their
// owner's chain only.
func (s *Server) Put(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	data := in.GetValue()
	e, err := entry.Unmarshal(data)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if e.Kind() == entry.KindAgentID {
		return nil, status.Error(codes.PermissionDenied, "agent ids cannot be put remotely")
	}
	canonical, err := entry.Marshal(e)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if !bytes.Equal(canonical, data) {
		return nil, status.Error(codes.InvalidArgument, "entry is not canonically encoded")
	}
	addr, err := crypto.ContentAddress(data)
	if err != nil {
		return nil, status.Error(codes.Internal, "cid computation failed")
	}
	if _, err := s.Store.EntryHeaders(entry.Address(addr)); err != nil {
		return nil, status.Errorf(codes.PermissionDenied, "%s is not committed by any known chain", addr)
	}
	stored, err := s.Store.PutEntry(e)
	if err != nil {
		return nil, mapErr(err)
	}
	if string(stored) != addr {
		return nil, status.Error(codes.DataLoss, crypto.ErrCIDMismatch.Error())
	}
	return wrapperspb.String(addr), nil
}

// Get returns the canonical bytes of the entry stored under the requested
// address.
func (s *Server) Get(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	addr := entry.Address(in.GetValue())
	if addr == "" {
		return nil, status.Error(codes.InvalidArgument, "empty address")
	}
	e, err := s.Store.GetEntry(addr)
	if err != nil {
		return nil, mapErr(err)
	}
	data, err := entry.Marshal(e)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	if err := checkAddress(addr, e, data); err != nil {
		return nil, status.Error(codes.DataLoss, err.Error())
	}
	return wrapperspb.Bytes(data), nil
}

// Has reports whether the requested address is stored.
func (s *Server) Has(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	if s == nil || s.Store == nil {
		return nil, status.Error(codes.FailedPrecondition, "missing store")
	}
	return wrapperspb.Bool(s.Store.HasEntry(entry.Address(in.GetValue()))), nil
}

// checkAddress verifies that data is the entry stored under addr.
func checkAddress(addr entry.Address, e entry.Entry, data []byte) error {
	if id, ok := e.(*entry.AgentID); ok {
		if id.PubKey != addr {
			return crypto.ErrCIDMismatch
		}
		return nil
	}
	return crypto.VerifyContentAddress(string(addr), data)
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case cm.IsStore(err, cm.KeyNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, crypto.ErrCIDMismatch):
		return status.Error(codes.DataLoss, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

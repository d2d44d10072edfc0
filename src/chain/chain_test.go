package chain

import (
	"crypto/ecdsa"
	"fmt"
	"testing"

	"github.com/peerbadge/badges/src/common"
	"github.com/peerbadge/badges/src/crypto"
	"github.com/peerbadge/badges/src/crypto/keys"
	"github.com/peerbadge/badges/src/entry"
	"github.com/peerbadge/badges/src/links"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type agent struct {
	key *ecdsa.PrivateKey
	ref entry.AgentRef
}

func newAgent(t *testing.T) agent {
	key, err := keys.GenerateECDSAKey()
	require.NoError(t, err)
	return agent{key: key, ref: entry.AgentRef(keys.PublicKeyHex(&key.PublicKey))}
}

func (a agent) provenance(t *testing.T, addr entry.Address) Provenance {
	sig, err := keys.SignAddress(a.key, string(addr))
	require.NoError(t, err)
	return Provenance{Agent: a.ref, Signature: sig}
}

// fakeSource is a map-backed Source.
type fakeSource struct {
	headers map[entry.AgentRef][]*Header
	entries map[entry.Address]entry.Entry
}

func (f *fakeSource) ChainHeaders(agent entry.AgentRef, skip int) ([]*Header, error) {
	hs, ok := f.headers[agent]
	if !ok {
		return nil, common.NewStoreErr("Chains", common.UnknownParticipant, string(agent))
	}
	return hs[skip+1:], nil
}

func (f *fakeSource) GetEntry(addr entry.Address) (entry.Entry, error) {
	e, ok := f.entries[addr]
	if !ok {
		return nil, common.NewStoreErr("Entries", common.KeyNotFound, string(addr))
	}
	return e, nil
}

func (f *fakeSource) commit(t *testing.T, a agent, e entry.Entry) *Header {
	addr, err := entry.AddressOf(e)
	require.NoError(t, err)
	prev := ""
	if hs := f.headers[a.ref]; len(hs) > 0 {
		prev = hs[len(hs)-1].Hex()
	}
	h := &Header{
		Agent:        a.ref,
		Index:        len(f.headers[a.ref]),
		Kind:         e.Kind(),
		EntryAddress: addr,
		PrevHeader:   prev,
		Provenances:  []Provenance{a.provenance(t, addr)},
	}
	f.headers[a.ref] = append(f.headers[a.ref], h)
	f.entries[addr] = e
	return h
}

func TestSources(t *testing.T) {
	provs := []Provenance{{Agent: "a"}, {Agent: "b"}, {Agent: "a"}}
	assert.Equal(t, []entry.AgentRef{"a", "b"}, Sources(provs))
	assert.Empty(t, Sources(nil))
}

func TestHeaderProvenances(t *testing.T) {
	alice, bob := newAgent(t), newAgent(t)

	addr, err := entry.AddressOf(&entry.BadgeAssertion{BadgeClass: "bafkclass", Recipient: alice.ref})
	require.NoError(t, err)

	h := &Header{
		Agent:        alice.ref,
		Kind:         entry.KindBadgeAssertion,
		EntryAddress: addr,
		Provenances:  []Provenance{alice.provenance(t, addr), bob.provenance(t, addr)},
	}
	require.NoError(t, h.VerifyProvenances())
	assert.True(t, h.SignedBy(bob.ref))
	assert.Equal(t, []entry.AgentRef{alice.ref, bob.ref}, h.Sources())

	t.Run("wrong address", func(t *testing.T) {
		forged := *h
		forged.EntryAddress = "bafkother"
		assert.Error(t, forged.VerifyProvenances())
	})

	t.Run("no provenance", func(t *testing.T) {
		empty := *h
		empty.Provenances = nil
		assert.Error(t, empty.VerifyProvenances())
	})
}

func TestHeaderHash(t *testing.T) {
	h1 := &Header{Agent: "0X04AA", Index: 1, Kind: entry.KindAnchor, EntryAddress: "bafk"}
	h2 := &Header{Agent: "0X04AA", Index: 1, Kind: entry.KindAnchor, EntryAddress: "bafk"}
	h3 := &Header{Agent: "0X04AA", Index: 2, Kind: entry.KindAnchor, EntryAddress: "bafk"}

	assert.Equal(t, h1.Hex(), h2.Hex())
	assert.NotEqual(t, h1.Hex(), h3.Hex())

	t.Run("signature", func(t *testing.T) {
		alice := newAgent(t)
		h := &Header{Agent: alice.ref, Index: 0, Kind: entry.KindAgentID, EntryAddress: alice.ref}
		before := h.Hex()
		require.NoError(t, h.Sign(alice.key))
		assert.Equal(t, before, h.Hex(), "the signature is not hashed")

		ok, err := h.VerifySignature()
		require.NoError(t, err)
		assert.True(t, ok)

		forged := *h
		forged.Index = 1
		forged.hex = ""
		ok, err = forged.VerifySignature()
		require.NoError(t, err)
		assert.False(t, ok)
	})

	data, err := h1.Marshal()
	require.NoError(t, err)
	var back Header
	require.NoError(t, back.Unmarshal(data))
	assert.Equal(t, h1.Hex(), back.Hex())
}

func TestRecordDecode(t *testing.T) {
	alice := newAgent(t)
	src := &fakeSource{headers: map[entry.AgentRef][]*Header{}, entries: map[entry.Address]entry.Entry{}}

	id := &entry.AgentID{PubKey: alice.ref, Nick: "alice"}
	class := &entry.BadgeClass{Name: "go", CreatorAgent: alice.ref, ValidatorsRequired: 1}
	h0 := src.commit(t, alice, id)
	h1 := src.commit(t, alice, class)

	r0, err := NewRecord(h0, id)
	require.NoError(t, err)
	r1, err := NewRecord(h1, class)
	require.NoError(t, err)

	data, err := r1.Marshal()
	require.NoError(t, err)
	var wire Record
	require.NoError(t, wire.Unmarshal(data))

	e, err := wire.Decode()
	require.NoError(t, err)
	assert.Equal(t, class, e)

	e, err = r0.Decode()
	require.NoError(t, err)
	assert.Equal(t, id, e)

	t.Run("tampered entry", func(t *testing.T) {
		tampered := *r1
		tampered.Entry, err = entry.Marshal(&entry.BadgeClass{Name: "go", CreatorAgent: alice.ref})
		require.NoError(t, err)
		_, err := tampered.Decode()
		assert.Error(t, err)
	})

	t.Run("wrong kind", func(t *testing.T) {
		wrong := *r1
		wrong.Header.Kind = entry.KindBadgeClaim
		_, err := wrong.Decode()
		assert.Error(t, err)
	})

	t.Run("non-canonical bytes", func(t *testing.T) {
		padded := *r1
		padded.Entry = append([]byte(" "), r1.Entry...)
		addr, err := crypto.ContentAddress(padded.Entry)
		require.NoError(t, err)
		padded.Header.EntryAddress = entry.Address(addr)
		_, err = padded.Decode()
		assert.ErrorIs(t, err, ErrNonCanonical)
	})
}

func TestLinkRecordSignature(t *testing.T) {
	alice := newAgent(t)
	lr := &LinkRecord{Link: links.Link{Base: "bafkanchor", Target: "bafkclass", Type: links.AnchorToBadgeClass}}
	require.NoError(t, lr.Sign(alice.key))
	assert.Equal(t, alice.ref, lr.Author)

	ok, err := lr.Verify()
	require.NoError(t, err)
	assert.True(t, ok)

	// a signed addition cannot be replayed as a removal
	lr.Removed = true
	ok, err = lr.Verify()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAssemble(t *testing.T) {
	alice, bob := newAgent(t), newAgent(t)
	src := &fakeSource{headers: map[entry.AgentRef][]*Header{}, entries: map[entry.Address]entry.Entry{}}

	src.commit(t, alice, &entry.AgentID{PubKey: alice.ref})
	class := &entry.BadgeClass{Name: "go", CreatorAgent: alice.ref, ValidatorsRequired: 1}
	src.commit(t, alice, class)
	classAddr, err := entry.AddressOf(class)
	require.NoError(t, err)
	src.commit(t, alice, &entry.BadgeAssertion{BadgeClass: classAddr, Recipient: alice.ref})
	src.commit(t, alice, &entry.BadgeClaim{Issuer: alice.ref, Recipient: bob.ref, BadgeClass: classAddr})

	pkg, err := Assemble(src, alice.ref)
	require.NoError(t, err)
	require.Len(t, pkg.Entries, 4)

	owner, ok := pkg.AgentID()
	assert.True(t, ok)
	assert.Equal(t, alice.ref, owner)

	c, ok := pkg.BadgeClass(classAddr)
	require.True(t, ok)
	assert.Equal(t, class, c)
	assert.Len(t, pkg.Claims(), 1)
	assert.Len(t, pkg.Assertions(), 1)
	assert.Empty(t, pkg.Badges())

	for n := 0; n <= 4; n++ {
		t.Run(fmt.Sprintf("prefix %d", n), func(t *testing.T) {
			prefix, err := AssemblePrefix(src, alice.ref, n)
			require.NoError(t, err)
			assert.Len(t, prefix.Entries, n)
		})
	}

	empty, err := AssemblePrefix(src, alice.ref, 0)
	require.NoError(t, err)
	_, ok = empty.AgentID()
	assert.False(t, ok)

	_, err = Assemble(src, bob.ref)
	assert.True(t, common.IsStore(err, common.UnknownParticipant))
}

func TestPackageAgentIDMustBeUnique(t *testing.T) {
	pkg := &Package{Entries: []entry.Entry{
		&entry.AgentID{PubKey: "0X04AA"},
		&entry.AgentID{PubKey: "0X04BB"},
	}}
	_, ok := pkg.AgentID()
	assert.False(t, ok)
}

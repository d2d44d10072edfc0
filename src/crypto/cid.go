package crypto

import (
	"errors"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// ErrCIDMismatch is returned when bytes do not hash to the CID they are
// supposed to be stored under.
var ErrCIDMismatch = errors.New("crypto: cid mismatch")

// CIDv1RawSHA256 returns a CIDv1 (raw + sha2-256) derived from data.
func CIDv1RawSHA256(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// ContentAddress returns the string form of the CIDv1 of data. Entries are
// identified by the content address of their canonical encoding.
func ContentAddress(data []byte) (string, error) {
	id, err := CIDv1RawSHA256(data)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// IsContentAddress reports whether s parses as a CID.
func IsContentAddress(s string) bool {
	id, err := cid.Decode(s)
	return err == nil && id.Defined()
}

// VerifyContentAddress checks that data hashes to address.
func VerifyContentAddress(address string, data []byte) error {
	want, err := cid.Decode(address)
	if err != nil {
		return err
	}
	got, err := CIDv1RawSHA256(data)
	if err != nil {
		return err
	}
	if !got.Equals(want) {
		return ErrCIDMismatch
	}
	return nil
}

package keys

import (
	"crypto/elliptic"

	"github.com/btcsuite/btcd/btcec"
)

// Curve returns secp256k1, as implemented by btcsuite.
func Curve() elliptic.Curve {
	return btcec.S256()
}

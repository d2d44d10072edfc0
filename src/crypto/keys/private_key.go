package keys

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec"
)

// GenerateECDSAKey creates a new agent key on secp256k1.
func GenerateECDSAKey() (*ecdsa.PrivateKey, error) {
	priv, err := btcec.NewPrivateKey(btcec.S256())
	if err != nil {
		return nil, err
	}
	return priv.ToECDSA(), nil
}

// DumpPrivateKey returns the 32-byte big-endian D value of a key.
func DumpPrivateKey(priv *ecdsa.PrivateKey) []byte {
	if priv == nil {
		return nil
	}
	return (*btcec.PrivateKey)(priv).Serialize()
}

// ParsePrivateKey is the inverse of DumpPrivateKey. D must lie in [1, N).
func ParsePrivateKey(d []byte) (*ecdsa.PrivateKey, error) {
	if len(d) != btcec.PrivKeyBytesLen {
		return nil, fmt.Errorf("invalid private key length %d, need %d bytes", len(d), btcec.PrivKeyBytesLen)
	}

	priv, _ := btcec.PrivKeyFromBytes(btcec.S256(), d)

	if priv.D.Sign() <= 0 {
		return nil, fmt.Errorf("invalid private key, zero")
	}
	if priv.D.Cmp(btcec.S256().N) >= 0 {
		return nil, fmt.Errorf("invalid private key, >=N")
	}

	return priv.ToECDSA(), nil
}

// PrivateKeyHex is the form keyfiles hold.
func PrivateKeyHex(key *ecdsa.PrivateKey) string {
	return hex.EncodeToString(DumpPrivateKey(key))
}

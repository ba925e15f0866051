// Package signature wraps the secp256k1 primitives used to attest reports.
//
// The aggregator only ever asks one question of this package: is a given
// signature over a given digest valid for a given public key. Every failure of
// the underlying primitive (malformed key, out of range scalar, malleable
// signature) is reported as "invalid", never as an error.
package signature

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// PublicKeyLength is the size of a compressed secp256k1 public key.
const PublicKeyLength = 33

// PublicKey is a compressed secp256k1 public key identifying an oracle's
// signing key.
type PublicKey [PublicKeyLength]byte

func PublicKeyFromECDSA(pub *ecdsa.PublicKey) PublicKey {
	var k PublicKey
	copy(k[:], crypto.CompressPubkey(pub))
	return k
}

func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var k PublicKey
	if len(b) != PublicKeyLength {
		return k, fmt.Errorf("public key must be %d bytes, got %d", PublicKeyLength, len(b))
	}
	copy(k[:], b)
	return k, nil
}

func (k PublicKey) IsZero() bool {
	return k == PublicKey{}
}

func (k PublicKey) Hex() string {
	return hexutil.Encode(k[:])
}

func (k PublicKey) String() string {
	return k.Hex()
}

func (k PublicKey) MarshalText() ([]byte, error) {
	return []byte(k.Hex()), nil
}

func (k *PublicKey) UnmarshalText(text []byte) error {
	b, err := hexutil.Decode(string(text))
	if err != nil {
		return fmt.Errorf("invalid public key %q: %w", text, err)
	}
	pk, err := PublicKeyFromBytes(b)
	if err != nil {
		return err
	}
	*k = pk
	return nil
}

// Signature is an ECDSA signature together with the public key it claims to
// be from.
type Signature struct {
	R         [32]byte
	S         [32]byte
	PublicKey PublicKey
}

// Verifier checks a single signature against a message digest.
type Verifier interface {
	Verify(digest [32]byte, sig Signature) bool
}

var _ Verifier = Secp256k1Verifier{}

type Secp256k1Verifier struct{}

func (Secp256k1Verifier) Verify(digest [32]byte, sig Signature) bool {
	if _, err := crypto.DecompressPubkey(sig.PublicKey[:]); err != nil {
		return false
	}
	rs := make([]byte, 64)
	copy(rs[:32], sig.R[:])
	copy(rs[32:], sig.S[:])
	return crypto.VerifySignature(sig.PublicKey[:], digest[:], rs)
}

package signature

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// Signer holds an oracle's signing key. It lives off-ledger; the aggregator
// itself never signs.
type Signer struct {
	key *ecdsa.PrivateKey
	pub PublicKey
}

func NewSigner(key *ecdsa.PrivateKey) *Signer {
	return &Signer{key: key, pub: PublicKeyFromECDSA(&key.PublicKey)}
}

func GenerateSigner() (*Signer, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}
	return NewSigner(key), nil
}

func (s *Signer) PublicKey() PublicKey {
	return s.pub
}

// Sign produces a canonical (low-s) signature over digest.
func (s *Signer) Sign(digest [32]byte) (Signature, error) {
	raw, err := crypto.Sign(digest[:], s.key)
	if err != nil {
		return Signature{}, fmt.Errorf("failed to sign digest: %w", err)
	}
	sig := Signature{PublicKey: s.pub}
	copy(sig.R[:], raw[:32])
	copy(sig.S[:], raw[32:64])
	return sig, nil
}

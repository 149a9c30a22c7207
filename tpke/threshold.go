package tpke

import (
	"crypto/cipher"
	"errors"
	"fmt"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/share"
	"go.dedis.ch/kyber/v3/util/random"
)

var ErrNotEnoughShares = errors.New("tpke: not enough decryption shares")

// KeyShare is one validator's share Z_i = g1^{s_i} of the decryption key.
type KeyShare struct {
	Index int
	Key   *PrivateKey
}

// DecryptionShare is e(Z_i, U) for a given ciphertext.
type DecryptionShare struct {
	Index int
	Value kyber.Point
}

// DealShares splits a fresh key into n shares, any t of which decrypt. It is a
// trusted dealer meant for tests and local networks; production shares come
// from DKG.
func DealShares(t, n int, rand cipher.Stream) (*PrivateKey, *PublicKey, []*KeyShare, error) {
	if t <= 0 || n < t {
		return nil, nil, nil, fmt.Errorf("tpke: invalid threshold %d of %d", t, n)
	}
	if rand == nil {
		rand = random.New()
	}
	secret := suite.G1().Scalar().Pick(rand)
	poly := share.NewPriPoly(suite.G1(), t, secret, rand)
	sk, pk := keyPairFromScalar(secret)

	shares := make([]*KeyShare, 0, n)
	for _, s := range poly.Shares(n) {
		shares = append(shares, &KeyShare{
			Index: s.I,
			Key:   &PrivateKey{point: suite.G1().Point().Mul(s.V, nil)},
		})
	}
	return sk, pk, shares, nil
}

// DecryptionShare computes this share's contribution for c.
func (ks *KeyShare) DecryptionShare(c *Ciphertext) (*DecryptionShare, error) {
	if ks == nil || ks.Key == nil || ks.Key.point == nil {
		return nil, ErrNilKey
	}
	if !c.Check() {
		return nil, ErrInvalidCiphertext
	}
	return &DecryptionShare{
		Index: ks.Index,
		Value: suite.Pair(ks.Key.point, c.Nonce),
	}, nil
}

// Combine interpolates t of n decryption shares and opens c.
func Combine(c *Ciphertext, shares []*DecryptionShare, t, n int) ([]byte, error) {
	if !c.Check() {
		return nil, ErrInvalidCiphertext
	}
	pub := make([]*share.PubShare, 0, len(shares))
	for _, s := range shares {
		if s == nil || s.Value == nil {
			continue
		}
		pub = append(pub, &share.PubShare{I: s.Index, V: s.Value})
	}
	if len(pub) < t {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrNotEnoughShares, len(pub), t)
	}
	shared, err := share.RecoverCommit(suite.GT(), pub, t, n)
	if err != nil {
		return nil, fmt.Errorf("tpke: combine shares: %w", err)
	}
	return c.open(shared)
}

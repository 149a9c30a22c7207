// Package tpke implements threshold public key encryption over the bn256
// pairing groups.
//
// Ciphertext layout: nonce U (G2) || tag W (G1) || body
//
//	U    = g2^r
//	K    = e(g1, Y)^r              Y the epoch public key
//	body = ChaCha20-Poly1305(HKDF(K, U), msg)
//	W    = H(U || body)^r
//
// Anyone can check e(W, g2) == e(H(U || body), U) without a key. Holders of
// Z = g1^s recover K = e(Z, U); holders of shares of s recover it by
// interpolating e(Z_i, U) in GT.
package tpke

import (
	"crypto/cipher"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"go.dedis.ch/kyber/v3"
	"go.dedis.ch/kyber/v3/util/random"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

var (
	ErrInvalidCiphertext = errors.New("tpke: invalid ciphertext")
	ErrDecryption        = errors.New("tpke: decryption failed")
	ErrNilKey            = errors.New("tpke: nil key")
)

var kdfInfo = []byte("sealedtx/tpke/aead")

type hashablePoint interface {
	Hash([]byte) kyber.Point
}

// Ciphertext is an encrypted message under a PublicKey.
type Ciphertext struct {
	Nonce kyber.Point // G2
	Tag   kyber.Point // G1
	Body  []byte
}

// Encrypt seals msg to pk. A nil rand uses the system source; every call
// draws a fresh r, so encrypting the same message twice gives different bytes.
func Encrypt(msg []byte, pk *PublicKey, rand cipher.Stream) (*Ciphertext, error) {
	if pk == nil || pk.point == nil {
		return nil, ErrNilKey
	}
	if rand == nil {
		rand = random.New()
	}
	r := suite.G1().Scalar().Pick(rand)
	nonce := suite.G2().Point().Mul(r, nil)
	shared := suite.GT().Point().Mul(r, suite.Pair(suite.G1().Point().Base(), pk.point))

	nonceBytes, err := nonce.MarshalBinary()
	if err != nil {
		return nil, err
	}
	aead, err := newAEAD(shared, nonceBytes)
	if err != nil {
		return nil, err
	}
	body := aead.Seal(nil, zeroNonce(aead), msg, nonceBytes)

	h, err := hashToG1(nonceBytes, body)
	if err != nil {
		return nil, err
	}
	return &Ciphertext{
		Nonce: nonce,
		Tag:   suite.G1().Point().Mul(r, h),
		Body:  body,
	}, nil
}

// Check verifies the pairing relation between nonce, body and tag. It needs no
// key and rejects ciphertexts whose parts were not produced together.
func (c *Ciphertext) Check() bool {
	if c == nil || c.Nonce == nil || c.Tag == nil {
		return false
	}
	nonceBytes, err := c.Nonce.MarshalBinary()
	if err != nil {
		return false
	}
	h, err := hashToG1(nonceBytes, c.Body)
	if err != nil {
		return false
	}
	left := suite.Pair(c.Tag, suite.G2().Point().Base())
	right := suite.Pair(h, c.Nonce)
	return left.Equal(right)
}

// Decrypt opens c with the full decryption key sk.
func Decrypt(c *Ciphertext, sk *PrivateKey) ([]byte, error) {
	if sk == nil || sk.point == nil {
		return nil, ErrNilKey
	}
	if !c.Check() {
		return nil, ErrInvalidCiphertext
	}
	return c.open(suite.Pair(sk.point, c.Nonce))
}

func (c *Ciphertext) open(shared kyber.Point) ([]byte, error) {
	nonceBytes, err := c.Nonce.MarshalBinary()
	if err != nil {
		return nil, ErrInvalidCiphertext
	}
	aead, err := newAEAD(shared, nonceBytes)
	if err != nil {
		return nil, err
	}
	msg, err := aead.Open(nil, zeroNonce(aead), c.Body, nonceBytes)
	if err != nil {
		return nil, ErrDecryption
	}
	return msg, nil
}

// MarshalBinary encodes the ciphertext as U || W || body.
func (c *Ciphertext) MarshalBinary() ([]byte, error) {
	if c == nil || c.Nonce == nil || c.Tag == nil {
		return nil, ErrInvalidCiphertext
	}
	u, err := c.Nonce.MarshalBinary()
	if err != nil {
		return nil, err
	}
	w, err := c.Tag.MarshalBinary()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(u)+len(w)+len(c.Body))
	out = append(out, u...)
	out = append(out, w...)
	out = append(out, c.Body...)
	return out, nil
}

// ParseCiphertext decodes the output of MarshalBinary. It checks the encoding
// only; call Check for the pairing relation.
func ParseCiphertext(b []byte) (*Ciphertext, error) {
	if len(b) < G2Size+G1Size+chacha20poly1305.Overhead {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidCiphertext, len(b))
	}
	nonce := suite.G2().Point()
	if err := nonce.UnmarshalBinary(b[:G2Size]); err != nil {
		return nil, fmt.Errorf("%w: nonce: %v", ErrInvalidCiphertext, err)
	}
	tag := suite.G1().Point()
	if err := tag.UnmarshalBinary(b[G2Size : G2Size+G1Size]); err != nil {
		return nil, fmt.Errorf("%w: tag: %v", ErrInvalidCiphertext, err)
	}
	body := make([]byte, len(b)-G2Size-G1Size)
	copy(body, b[G2Size+G1Size:])
	return &Ciphertext{Nonce: nonce, Tag: tag, Body: body}, nil
}

func hashToG1(parts ...[]byte) (kyber.Point, error) {
	hp, ok := suite.G1().Point().(hashablePoint)
	if !ok {
		return nil, errors.New("tpke: G1 points are not hashable")
	}
	var msg []byte
	for _, p := range parts {
		msg = append(msg, p...)
	}
	return hp.Hash(msg), nil
}

// newAEAD derives a single use key from the shared GT element.
func newAEAD(shared kyber.Point, salt []byte) (cipher.AEAD, error) {
	secret, err := shared.MarshalBinary()
	if err != nil {
		return nil, err
	}
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, salt, kdfInfo), key); err != nil {
		return nil, err
	}
	return chacha20poly1305.New(key)
}

// The key is fresh for every ciphertext, so a zero nonce is safe.
func zeroNonce(aead cipher.AEAD) []byte {
	return make([]byte, aead.NonceSize())
}

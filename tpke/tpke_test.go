package tpke

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt(t *testing.T) {
	sk, pk := GenerateKey(nil)
	msg := []byte("transfer 10 NAM to bob")

	ct, err := Encrypt(msg, pk, nil)
	require.NoError(t, err)
	assert.True(t, ct.Check())

	out, err := Decrypt(ct, sk)
	require.NoError(t, err)
	assert.Equal(t, msg, out)
}

func TestDefaultKeysPair(t *testing.T) {
	ct, err := Encrypt([]byte("hello"), DefaultPublicKey(), nil)
	require.NoError(t, err)

	out, err := Decrypt(ct, DefaultPrivateKey())
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), out)
}

func TestEncryptIsRandomized(t *testing.T) {
	_, pk := GenerateKey(nil)
	a, err := Encrypt([]byte("same"), pk, nil)
	require.NoError(t, err)
	b, err := Encrypt([]byte("same"), pk, nil)
	require.NoError(t, err)

	ab, err := a.MarshalBinary()
	require.NoError(t, err)
	bb, err := b.MarshalBinary()
	require.NoError(t, err)
	assert.NotEqual(t, ab, bb)
}

func TestDecryptWrongKey(t *testing.T) {
	_, pk := GenerateKey(nil)
	other, _ := GenerateKey(nil)

	ct, err := Encrypt([]byte("secret"), pk, nil)
	require.NoError(t, err)

	_, err = Decrypt(ct, other)
	assert.ErrorIs(t, err, ErrDecryption)

	_, err = Decrypt(ct, nil)
	assert.ErrorIs(t, err, ErrNilKey)
}

func TestCheckRejectsTampering(t *testing.T) {
	sk, pk := GenerateKey(nil)
	ct, err := Encrypt([]byte("payload bytes"), pk, nil)
	require.NoError(t, err)

	ct.Body[0] ^= 0xff
	assert.False(t, ct.Check())

	_, err = Decrypt(ct, sk)
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestCheckRejectsSwappedTag(t *testing.T) {
	_, pk := GenerateKey(nil)
	a, err := Encrypt([]byte("first"), pk, nil)
	require.NoError(t, err)
	b, err := Encrypt([]byte("second"), pk, nil)
	require.NoError(t, err)

	a.Tag = b.Tag
	assert.False(t, a.Check())
}

func TestMarshalParse(t *testing.T) {
	sk, pk := GenerateKey(nil)
	ct, err := Encrypt([]byte("round trip"), pk, nil)
	require.NoError(t, err)

	raw, err := ct.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, raw, G2Size+G1Size+len(ct.Body))

	parsed, err := ParseCiphertext(raw)
	require.NoError(t, err)
	assert.True(t, parsed.Check())

	out, err := Decrypt(parsed, sk)
	require.NoError(t, err)
	assert.Equal(t, []byte("round trip"), out)
}

func TestParseCiphertextRejectsGarbage(t *testing.T) {
	_, err := ParseCiphertext([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidCiphertext)

	junk := make([]byte, G2Size+G1Size+32)
	for i := range junk {
		junk[i] = 0xab
	}
	_, err = ParseCiphertext(junk)
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestKeyEncoding(t *testing.T) {
	sk, pk := GenerateKey(nil)

	skb, err := sk.MarshalBinary()
	require.NoError(t, err)
	sk2, err := ParsePrivateKey(skb)
	require.NoError(t, err)
	assert.True(t, sk.Equal(sk2))

	pk2, err := PublicKeyFromHex(pk.String())
	require.NoError(t, err)
	assert.True(t, pk.Equal(pk2))

	def, err := PrivateKeyFromHex("")
	require.NoError(t, err)
	assert.True(t, def.Equal(DefaultPrivateKey()))

	_, err = PrivateKeyFromHex("zz")
	assert.Error(t, err)
}

func TestThresholdDecryption(t *testing.T) {
	sk, pk, shares, err := DealShares(3, 5, nil)
	require.NoError(t, err)
	require.Len(t, shares, 5)

	msg := []byte("threshold message")
	ct, err := Encrypt(msg, pk, nil)
	require.NoError(t, err)

	var dec []*DecryptionShare
	for _, i := range []int{0, 2, 4} {
		ds, err := shares[i].DecryptionShare(ct)
		require.NoError(t, err)
		dec = append(dec, ds)
	}
	out, err := Combine(ct, dec, 3, 5)
	require.NoError(t, err)
	assert.Equal(t, msg, out)

	full, err := Decrypt(ct, sk)
	require.NoError(t, err)
	assert.Equal(t, msg, full)

	_, err = Combine(ct, dec[:2], 3, 5)
	assert.ErrorIs(t, err, ErrNotEnoughShares)
}

func TestDealSharesRejectsBadThreshold(t *testing.T) {
	_, _, _, err := DealShares(4, 3, nil)
	assert.Error(t, err)
	_, _, _, err = DealShares(0, 3, nil)
	assert.Error(t, err)
}

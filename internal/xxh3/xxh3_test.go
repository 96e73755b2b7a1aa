package xxh3

import (
	"encoding/binary"
	"hash"
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	zeebo "github.com/zeebo/xxh3"
)

var testLengths = []int{
	0, 1, 2, 3, 4, 5, 7, 8, 9, 15, 16, 17, 31, 32, 33, 63, 64, 65, 95, 96, 97, 127, 128,
	129, 130, 143, 144, 159, 160, 200, 239, 240, 241, 255, 256, 257, 300, 511, 512, 513,
	1023, 1024, 1025, 1087, 1088, 1089, 2048, 2049, 4096, 10000,
}

func randomBytes(r *rand.Rand, n int) []byte {
	b := make([]byte, n)
	r.Read(b)
	return b
}

func TestKnownVectors(t *testing.T) {
	data := []byte("http://github.com/ndtao2020")

	h64, err := Hash64WithSecret(data, DefaultSecret[:])
	require.NoError(t, err)
	assert.Equal(t, uint64(6566294078340352781), h64)

	h128, err := Hash128WithSecret(data, DefaultSecret[:])
	require.NoError(t, err)
	assert.Equal(t, Uint128{Hi: 0xabb6e685efb72f6c, Lo: 0x354c07ffc2a41441}, h128)

	empty, err := Hash64WithSecret(nil, DefaultSecret[:])
	require.NoError(t, err)
	assert.Equal(t, uint64(0x2D06800538D394C2), empty)

	empty128, err := Hash128WithSecret(nil, DefaultSecret[:])
	require.NoError(t, err)
	assert.Equal(t, Uint128{Hi: 0x99aa06d3014798d8, Lo: 0x6001c324468d497f}, empty128)
}

func TestDefaultSecretMatchesSeedZero(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for _, n := range testLengths {
		data := randomBytes(r, n)

		got64, err := Hash64WithSecret(data, DefaultSecret[:])
		require.NoError(t, err)
		assert.Equal(t, zeebo.Hash(data), got64, "len=%d", n)

		got128, err := Hash128WithSecret(data, DefaultSecret[:])
		require.NoError(t, err)
		want := zeebo.Hash128(data)
		assert.Equal(t, Uint128{Hi: want.Hi, Lo: want.Lo}, got128, "len=%d", n)
	}
}

func TestStreamingMatchesOneShot(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	secret := randomBytes(r, SecretSize)
	splits := []int{1, 3, 17, 64, 100, 255, 256, 257, 700}

	for _, n := range testLengths {
		data := randomBytes(r, n)
		want64, _ := Hash64WithSecret(data, secret)
		want128, _ := Hash128WithSecret(data, secret)

		h, err := New(secret)
		require.NoError(t, err)
		for i := 0; i < n; {
			k := splits[r.Intn(len(splits))]
			if i+k > n {
				k = n - i
			}
			_, _ = h.Write(data[i : i+k])
			i += k
		}
		assert.Equal(t, want64, h.Sum64(), "len=%d", n)
		assert.Equal(t, want128, h.Sum128(), "len=%d", n)
		// digests are pure reads
		assert.Equal(t, want64, h.Sum64(), "len=%d", n)
	}
}

func TestHasherReset(t *testing.T) {
	h, err := New(DefaultSecret[:])
	require.NoError(t, err)

	_, _ = h.Write(make([]byte, 5000))
	h.Reset()
	assert.Equal(t, zeebo.Hash(nil), h.Sum64())

	_, _ = h.Write([]byte("abc"))
	assert.Equal(t, zeebo.Hash([]byte("abc")), h.Sum64())
}

func TestSecretSize(t *testing.T) {
	for _, n := range []int{0, 1, 136, 191, 193, 256} {
		_, err := Hash64WithSecret([]byte("x"), make([]byte, n))
		assert.ErrorIs(t, err, ErrSecretSize)
		_, err = Hash128WithSecret([]byte("x"), make([]byte, n))
		assert.ErrorIs(t, err, ErrSecretSize)
		h, err := New(make([]byte, n))
		assert.ErrorIs(t, err, ErrSecretSize)
		assert.Nil(t, h)
	}
}

func TestSecretIsCopied(t *testing.T) {
	secret := append([]byte(nil), DefaultSecret[:]...)
	h, err := New(secret)
	require.NoError(t, err)
	secret[0] ^= 0xff

	_, _ = h.Write([]byte("payload"))
	assert.Equal(t, zeebo.Hash([]byte("payload")), h.Sum64())
}

func TestHasherAsHash64(t *testing.T) {
	h, err := New(DefaultSecret[:])
	require.NoError(t, err)

	var hh hash.Hash64 = h
	assert.Equal(t, 8, hh.Size())
	assert.Equal(t, stripeLen, hh.BlockSize())

	_, err = io.WriteString(hh, "payload")
	require.NoError(t, err)
	sum := hh.Sum([]byte{0xaa})
	require.Len(t, sum, 9)
	assert.Equal(t, byte(0xaa), sum[0])
	assert.Equal(t, zeebo.Hash([]byte("payload")), binary.BigEndian.Uint64(sum[1:]))
	assert.Equal(t, hh.Sum64(), binary.BigEndian.Uint64(sum[1:]))
}

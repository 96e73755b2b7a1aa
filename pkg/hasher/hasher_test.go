package hasher

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var vectorInput = []byte("http://github.com/ndtao2020")

const vector128 = "228247660873216781895902422224452457537"

func TestKnownVectors(t *testing.T) {
	assert.Equal(t, uint32(3662585684), Hash32(vectorInput, 0))
	assert.Equal(t, uint64(3958957532803539408), Hash64(vectorInput, 0))
	assert.Equal(t, uint64(6566294078340352781), Hash3(vectorInput, 0))
	assert.Equal(t, vector128, Hash128(vectorInput, 0).Big().String())
}

func TestKnownVectorsWithSecret(t *testing.T) {
	h3, err := Hash3WithSecret(vectorInput, DefaultSecret())
	require.NoError(t, err)
	assert.Equal(t, uint64(6566294078340352781), h3)

	h128, err := Hash128WithSecret(vectorInput, DefaultSecret())
	require.NoError(t, err)
	assert.Equal(t, vector128, h128.Big().String())
	assert.Equal(t, "abb6e685efb72f6c354c07ffc2a41441", h128.String())
}

func TestEmptyInput(t *testing.T) {
	assert.Equal(t, uint32(0x02CC5D05), Hash32(nil, 0))
	assert.Equal(t, uint64(0xEF46DB3751D8E999), Hash64(nil, 0))
	assert.Equal(t, uint64(0x2D06800538D394C2), Hash3(nil, 0))
	assert.Equal(t, "99aa06d3014798d86001c324468d497f", Hash128([]byte{}, 0).String())
}

func TestDeterminism(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for _, n := range []int{0, 1, 15, 100, 241, 5000} {
		b := make([]byte, n)
		r.Read(b)
		for _, seed := range []uint64{0, 1, 0xdeadbeefcafebabe} {
			assert.Equal(t, Hash32(b, uint32(seed)), Hash32(b, uint32(seed)))
			assert.Equal(t, Hash64(b, seed), Hash64(b, seed))
			assert.Equal(t, Hash3(b, seed), Hash3(b, seed))
			assert.Equal(t, Hash128(b, seed), Hash128(b, seed))
		}
	}
}

func TestSeedChangesDigest(t *testing.T) {
	assert.NotEqual(t, Hash32(vectorInput, 0), Hash32(vectorInput, 1))
	assert.NotEqual(t, Hash64(vectorInput, 0), Hash64(vectorInput, 1))
	assert.NotEqual(t, Hash3(vectorInput, 0), Hash3(vectorInput, 1))
	assert.NotEqual(t, Hash128(vectorInput, 0), Hash128(vectorInput, 1))
}

func TestSeed32Range(t *testing.T) {
	f, err := Get("xxh32")
	require.NoError(t, err)

	d, err := f.Sum(vectorInput, Params{Seed: math.MaxUint32})
	require.NoError(t, err)
	assert.Equal(t, uint64(Hash32(vectorInput, math.MaxUint32)), d.Uint64())

	_, err = f.Sum(vectorInput, Params{Seed: 1<<32 + 1})
	assert.ErrorIs(t, err, ErrSeedOutOfRange)
	s, err := f.New(Params{Seed: 1 << 32})
	assert.ErrorIs(t, err, ErrSeedOutOfRange)
	assert.Nil(t, s)
	_, err = BatchFamily(f, [][]byte{vectorInput}, Params{Seed: 1 << 40})
	assert.ErrorIs(t, err, ErrSeedOutOfRange)

	f64, err := Get("xxh64")
	require.NoError(t, err)
	_, err = f64.Sum(vectorInput, Params{Seed: 1<<32 + 1})
	assert.NoError(t, err)
}

func TestConcurrentOneShot(t *testing.T) {
	want := Hash3(vectorInput, 9)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, want, Hash3(vectorInput, 9))
			}
		}()
	}
	wg.Wait()
}

func TestValidateSecret(t *testing.T) {
	require.NoError(t, ValidateSecret(make([]byte, SecretSize)))

	err := ValidateSecret(make([]byte, 10))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidSecretLength))

	var lerr *SecretLengthError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, 10, lerr.Got)
	assert.Equal(t, 192, lerr.Want)
	assert.Contains(t, err.Error(), "192")
}

func TestSecretRejection(t *testing.T) {
	for _, n := range []int{0, 1, 128, 191, 193, 1024} {
		secret := make([]byte, n)

		_, err := Hash3WithSecret(vectorInput, secret)
		assert.ErrorIs(t, err, ErrInvalidSecretLength, "len=%d", n)

		_, err = Hash128WithSecret(vectorInput, secret)
		assert.ErrorIs(t, err, ErrInvalidSecretLength, "len=%d", n)

		h, err := NewHasher3(Params{Secret: secret})
		assert.ErrorIs(t, err, ErrInvalidSecretLength, "len=%d", n)
		assert.Nil(t, h)

		d3, err := Batch3([][]byte{vectorInput}, Params{Secret: secret})
		assert.ErrorIs(t, err, ErrInvalidSecretLength, "len=%d", n)
		assert.Nil(t, d3)

		d128, err := Batch128([][]byte{vectorInput}, Params{Secret: secret})
		assert.ErrorIs(t, err, ErrInvalidSecretLength, "len=%d", n)
		assert.Nil(t, d128)
	}
}

func TestDefaultSecretIsCopy(t *testing.T) {
	s := DefaultSecret()
	s[0] = 0
	assert.Equal(t, byte(0xb8), DefaultSecret()[0])
}

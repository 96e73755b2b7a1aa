package hasher

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/cespare/xxhash/v2"
	"github.com/pierrec/xxHash/xxHash32"
	zeebo "github.com/zeebo/xxh3"

	"edu/xxhasher/internal/xxh3"
)

// Uint128 is a 128-bit XXH3 digest.
type Uint128 struct {
	Hi, Lo uint64
}

// String renders the full digest as 32 lowercase hex digits.
func (u Uint128) String() string { return fmt.Sprintf("%016x%016x", u.Hi, u.Lo) }

// Bytes returns the canonical big-endian representation.
func (u Uint128) Bytes() [16]byte {
	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], u.Hi)
	binary.BigEndian.PutUint64(b[8:], u.Lo)
	return b
}

// Big returns the digest as an arbitrary precision integer.
func (u Uint128) Big() *big.Int {
	b := u.Bytes()
	return new(big.Int).SetBytes(b[:])
}

// Hash32 returns the XXH32 digest of data.
func Hash32(data []byte, seed uint32) uint32 {
	return xxHash32.Checksum(data, seed)
}

// Hash64 returns the XXH64 digest of data.
func Hash64(data []byte, seed uint64) uint64 {
	if seed == DefaultSeed {
		return xxhash.Sum64(data)
	}
	d := xxhash.NewWithSeed(seed)
	_, _ = d.Write(data)
	return d.Sum64()
}

// Hash3 returns the XXH3 64-bit digest of data.
func Hash3(data []byte, seed uint64) uint64 {
	return zeebo.HashSeed(data, seed)
}

// Hash3WithSecret returns the XXH3 64-bit digest of data keyed by secret.
func Hash3WithSecret(data, secret []byte) (uint64, error) {
	if err := ValidateSecret(secret); err != nil {
		return 0, err
	}
	return xxh3.Hash64WithSecret(data, secret)
}

// Hash128 returns the XXH3 128-bit digest of data.
func Hash128(data []byte, seed uint64) Uint128 {
	v := zeebo.Hash128Seed(data, seed)
	return Uint128{Hi: v.Hi, Lo: v.Lo}
}

// Hash128WithSecret returns the XXH3 128-bit digest of data keyed by secret.
func Hash128WithSecret(data, secret []byte) (Uint128, error) {
	if err := ValidateSecret(secret); err != nil {
		return Uint128{}, err
	}
	v, err := xxh3.Hash128WithSecret(data, secret)
	if err != nil {
		return Uint128{}, err
	}
	return Uint128{Hi: v.Hi, Lo: v.Lo}, nil
}

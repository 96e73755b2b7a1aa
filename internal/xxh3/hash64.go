package xxh3

import (
	"errors"
	"math/bits"
)

// ErrSecretSize is returned when a secret is not exactly SecretSize bytes.
var ErrSecretSize = errors.New("xxh3: secret must be 192 bytes")

// Hash64WithSecret returns the XXH3-64 digest of b keyed by secret.
func Hash64WithSecret(b, secret []byte) (uint64, error) {
	if len(secret) != SecretSize {
		return 0, ErrSecretSize
	}
	return hash64(b, secret), nil
}

func hash64(b, s []byte) uint64 {
	n := len(b)
	switch {
	case n <= 16:
		return hash64Short(b, s)
	case n <= 128:
		return hash64Len17To128(b, s)
	case n <= 240:
		return hash64Len129To240(b, s)
	}
	acc := hashLongAcc(b, s)
	return mergeLong64(&acc, s, uint64(n))
}

func hash64Short(b, s []byte) uint64 {
	n := len(b)
	switch {
	case n > 8:
		lo := readU64(b, 0) ^ (readU64(s, 24) ^ readU64(s, 32))
		hi := readU64(b, n-8) ^ (readU64(s, 40) ^ readU64(s, 48))
		acc := uint64(n) + bits.ReverseBytes64(lo) + hi + mul128Fold64(lo, hi)
		return avalanche(acc)
	case n >= 4:
		in64 := uint64(readU32(b, n-4)) + uint64(readU32(b, 0))<<32
		return rrmxmx(in64^(readU64(s, 8)^readU64(s, 16)), uint64(n))
	case n > 0:
		combined := uint32(b[0])<<16 | uint32(b[n>>1])<<24 | uint32(b[n-1]) | uint32(n)<<8
		return xxh64Avalanche(uint64(combined) ^ uint64(readU32(s, 0)^readU32(s, 4)))
	}
	return xxh64Avalanche(readU64(s, 56) ^ readU64(s, 64))
}

func hash64Len17To128(b, s []byte) uint64 {
	n := len(b)
	acc := uint64(n) * prime64_1
	if n > 32 {
		if n > 64 {
			if n > 96 {
				acc += mix16B(b, 48, s, 96)
				acc += mix16B(b, n-64, s, 112)
			}
			acc += mix16B(b, 32, s, 64)
			acc += mix16B(b, n-48, s, 80)
		}
		acc += mix16B(b, 16, s, 32)
		acc += mix16B(b, n-32, s, 48)
	}
	acc += mix16B(b, 0, s, 0)
	acc += mix16B(b, n-16, s, 16)
	return avalanche(acc)
}

func hash64Len129To240(b, s []byte) uint64 {
	n := len(b)
	acc := uint64(n) * prime64_1
	for i := 0; i < 8; i++ {
		acc += mix16B(b, 16*i, s, 16*i)
	}
	acc = avalanche(acc)

	rounds := n / 16
	for i := 8; i < rounds; i++ {
		acc += mix16B(b, 16*i, s, 16*(i-8)+midSizeStartOffset)
	}
	acc += mix16B(b, n-16, s, secretSizeMin-midSizeLastOffset)
	return avalanche(acc)
}

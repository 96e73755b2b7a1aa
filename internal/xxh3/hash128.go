package xxh3

import "math/bits"

// Hash128WithSecret returns the XXH3-128 digest of b keyed by secret.
func Hash128WithSecret(b, secret []byte) (Uint128, error) {
	if len(secret) != SecretSize {
		return Uint128{}, ErrSecretSize
	}
	return hash128(b, secret), nil
}

func hash128(b, s []byte) Uint128 {
	n := len(b)
	switch {
	case n <= 16:
		return hash128Short(b, s)
	case n <= 128:
		return hash128Len17To128(b, s)
	case n <= 240:
		return hash128Len129To240(b, s)
	}
	acc := hashLongAcc(b, s)
	return mergeLong128(&acc, s, uint64(n))
}

func hash128Short(b, s []byte) Uint128 {
	n := len(b)
	switch {
	case n > 8:
		inLo := readU64(b, 0)
		inHi := readU64(b, n-8)
		mHi, mLo := bits.Mul64(inLo^inHi^(readU64(s, 32)^readU64(s, 40)), prime64_1)
		mLo += uint64(n-1) << 54
		inHi ^= readU64(s, 48) ^ readU64(s, 56)
		mHi += inHi + uint64(uint32(inHi))*(prime32_2-1)
		mLo ^= bits.ReverseBytes64(mHi)

		hHi, hLo := bits.Mul64(mLo, prime64_2)
		hHi += mHi * prime64_2
		return Uint128{Hi: avalanche(hHi), Lo: avalanche(hLo)}
	case n >= 4:
		in64 := uint64(readU32(b, 0)) + uint64(readU32(b, n-4))<<32
		hi, lo := bits.Mul64(in64^(readU64(s, 16)^readU64(s, 24)), prime64_1+uint64(n)<<2)
		hi += lo << 1
		lo ^= hi >> 3
		lo ^= lo >> 35
		lo *= primeMx2
		lo ^= lo >> 28
		return Uint128{Hi: avalanche(hi), Lo: lo}
	case n > 0:
		lo := uint32(b[0])<<16 | uint32(b[n>>1])<<24 | uint32(b[n-1]) | uint32(n)<<8
		hi := bits.RotateLeft32(bits.ReverseBytes32(lo), 13)
		return Uint128{
			Hi: xxh64Avalanche(uint64(hi) ^ uint64(readU32(s, 8)^readU32(s, 12))),
			Lo: xxh64Avalanche(uint64(lo) ^ uint64(readU32(s, 0)^readU32(s, 4))),
		}
	}
	return Uint128{
		Hi: xxh64Avalanche(readU64(s, 80) ^ readU64(s, 88)),
		Lo: xxh64Avalanche(readU64(s, 64) ^ readU64(s, 72)),
	}
}

func hash128Len17To128(b, s []byte) Uint128 {
	n := len(b)
	acc := Uint128{Lo: uint64(n) * prime64_1}
	if n > 32 {
		if n > 64 {
			if n > 96 {
				acc = mix32B(acc, b, 48, n-64, s, 96)
			}
			acc = mix32B(acc, b, 32, n-48, s, 64)
		}
		acc = mix32B(acc, b, 16, n-32, s, 32)
	}
	acc = mix32B(acc, b, 0, n-16, s, 0)
	return finish128(acc, n)
}

func hash128Len129To240(b, s []byte) Uint128 {
	n := len(b)
	acc := Uint128{Lo: uint64(n) * prime64_1}
	for i := 0; i < 4; i++ {
		acc = mix32B(acc, b, 32*i, 32*i+16, s, 32*i)
	}
	acc.Lo = avalanche(acc.Lo)
	acc.Hi = avalanche(acc.Hi)

	rounds := n / 32
	for i := 4; i < rounds; i++ {
		acc = mix32B(acc, b, 32*i, 32*i+16, s, midSizeStartOffset+32*(i-4))
	}
	acc = mix32B(acc, b, n-16, n-32, s, secretSizeMin-midSizeLastOffset-16)
	return finish128(acc, n)
}

func finish128(acc Uint128, n int) Uint128 {
	lo := acc.Lo + acc.Hi
	hi := acc.Lo*prime64_1 + acc.Hi*prime64_4 + uint64(n)*prime64_2
	return Uint128{Hi: 0 - avalanche(hi), Lo: avalanche(lo)}
}

package xxh3

func accumulate512(acc *[accNB]uint64, in []byte, off int, secret []byte, soff int) {
	for i := 0; i < accNB; i++ {
		v := readU64(in, off+8*i)
		k := v ^ readU64(secret, soff+8*i)
		acc[i^1] += v
		acc[i] += uint64(uint32(k)) * (k >> 32)
	}
}

func scrambleAcc(acc *[accNB]uint64, secret []byte, soff int) {
	for i := 0; i < accNB; i++ {
		a := acc[i]
		a ^= a >> 47
		a ^= readU64(secret, soff+8*i)
		acc[i] = a * prime32_1
	}
}

func accumulate(acc *[accNB]uint64, in []byte, off int, secret []byte, soff int, stripes int) {
	for n := 0; n < stripes; n++ {
		accumulate512(acc, in, off+n*stripeLen, secret, soff+n*secretConsumeRate)
	}
}

// consumeStripes feeds stripes into acc, scrambling at block boundaries, and
// returns the updated count of stripes consumed in the current block.
func consumeStripes(acc *[accNB]uint64, soFar int, in []byte, off int, stripes int, secret []byte) int {
	if toEnd := stripesPerBlock - soFar; toEnd <= stripes {
		accumulate(acc, in, off, secret, soFar*secretConsumeRate, toEnd)
		scrambleAcc(acc, secret, secretLimit)
		after := stripes - toEnd
		accumulate(acc, in, off+toEnd*stripeLen, secret, 0, after)
		return after
	}
	accumulate(acc, in, off, secret, soFar*secretConsumeRate, stripes)
	return soFar + stripes
}

func hashLongAcc(in []byte, secret []byte) [accNB]uint64 {
	acc := initAcc
	n := len(in)
	blocks := (n - 1) / blockLen
	for b := 0; b < blocks; b++ {
		accumulate(&acc, in, b*blockLen, secret, 0, stripesPerBlock)
		scrambleAcc(&acc, secret, secretLimit)
	}

	stripes := ((n - 1) - blockLen*blocks) / stripeLen
	accumulate(&acc, in, blocks*blockLen, secret, 0, stripes)
	accumulate512(&acc, in, n-stripeLen, secret, secretLimit-secretLastAccStart)
	return acc
}

func mergeAccs(acc *[accNB]uint64, secret []byte, soff int, start uint64) uint64 {
	r := start
	for i := 0; i < 4; i++ {
		r += mul128Fold64(acc[2*i]^readU64(secret, soff+16*i), acc[2*i+1]^readU64(secret, soff+16*i+8))
	}
	return avalanche(r)
}

func mergeLong64(acc *[accNB]uint64, secret []byte, n uint64) uint64 {
	return mergeAccs(acc, secret, secretMergeStart, n*prime64_1)
}

func mergeLong128(acc *[accNB]uint64, secret []byte, n uint64) Uint128 {
	return Uint128{
		Lo: mergeAccs(acc, secret, secretMergeStart, n*prime64_1),
		Hi: mergeAccs(acc, secret, SecretSize-stripeLen-secretMergeStart, ^(n * prime64_2)),
	}
}

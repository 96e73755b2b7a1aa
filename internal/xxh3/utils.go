package xxh3

import (
	"encoding/binary"
	"math/bits"
)

// Uint128 is a 128-bit digest split into its high and low halves.
type Uint128 struct {
	Hi, Lo uint64
}

func readU32(b []byte, off int) uint32 { return binary.LittleEndian.Uint32(b[off:]) }
func readU64(b []byte, off int) uint64 { return binary.LittleEndian.Uint64(b[off:]) }

func mul128Fold64(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	return hi ^ lo
}

func xxh64Avalanche(h uint64) uint64 {
	h ^= h >> 33
	h *= prime64_2
	h ^= h >> 29
	h *= prime64_3
	h ^= h >> 32
	return h
}

func avalanche(h uint64) uint64 {
	h ^= h >> 37
	h *= primeMx1
	h ^= h >> 32
	return h
}

func rrmxmx(h uint64, n uint64) uint64 {
	h ^= bits.RotateLeft64(h, 49) ^ bits.RotateLeft64(h, 24)
	h *= primeMx2
	h ^= (h >> 35) + n
	h *= primeMx2
	h ^= h >> 28
	return h
}

func mix16B(in []byte, off int, secret []byte, soff int) uint64 {
	lo := readU64(in, off)
	hi := readU64(in, off+8)
	return mul128Fold64(lo^readU64(secret, soff), hi^readU64(secret, soff+8))
}

// mix32B folds two 16-byte lanes into a 128-bit accumulator.
func mix32B(acc Uint128, in []byte, off1, off2 int, secret []byte, soff int) Uint128 {
	acc.Lo += mix16B(in, off1, secret, soff)
	acc.Lo ^= readU64(in, off2) + readU64(in, off2+8)
	acc.Hi += mix16B(in, off2, secret, soff+16)
	acc.Hi ^= readU64(in, off1) + readU64(in, off1+8)
	return acc
}

package xxh3

import "hash"

var _ hash.Hash64 = (*Hasher)(nil)

// Hasher is a streaming XXH3 state keyed by a fixed secret. It produces the
// same digests as Hash64WithSecret/Hash128WithSecret over the concatenation
// of everything written since construction or the last Reset.
//
// A Hasher is not safe for concurrent use.
type Hasher struct {
	acc      [accNB]uint64
	buf      [bufferSize]byte
	buffered int
	stripes  int
	total    uint64
	secret   [SecretSize]byte
}

// New returns a Hasher bound to a copy of secret.
func New(secret []byte) (*Hasher, error) {
	if len(secret) != SecretSize {
		return nil, ErrSecretSize
	}
	h := &Hasher{}
	copy(h.secret[:], secret)
	h.Reset()
	return h, nil
}

// Reset discards buffered input; the secret is kept.
func (h *Hasher) Reset() {
	h.acc = initAcc
	h.buffered = 0
	h.stripes = 0
	h.total = 0
}

// Size returns the number of bytes Sum will return.
func (h *Hasher) Size() int { return 8 }

// BlockSize returns the stripe length.
func (h *Hasher) BlockSize() int { return stripeLen }

// Write adds more data to the running hash. It never returns an error.
func (h *Hasher) Write(b []byte) (int, error) {
	n := len(b)
	h.total += uint64(n)
	if h.buffered+n <= bufferSize {
		copy(h.buf[h.buffered:], b)
		h.buffered += n
		return n, nil
	}

	s := h.secret[:]
	if h.buffered > 0 {
		load := bufferSize - h.buffered
		copy(h.buf[h.buffered:], b[:load])
		b = b[load:]
		h.stripes = consumeStripes(&h.acc, h.stripes, h.buf[:], 0, bufferStripes, s)
		h.buffered = 0
	}

	if len(b) > bufferSize {
		off := 0
		for len(b)-off > bufferSize {
			h.stripes = consumeStripes(&h.acc, h.stripes, b, off, bufferStripes, s)
			off += bufferSize
		}
		// keep the last consumed stripe around for a short tail at digest time
		copy(h.buf[bufferSize-stripeLen:], b[off-stripeLen:off])
		b = b[off:]
	}

	copy(h.buf[:], b)
	h.buffered = len(b)
	return n, nil
}

// Sum appends the big-endian 64-bit digest to b.
func (h *Hasher) Sum(b []byte) []byte {
	v := h.Sum64()
	return append(b,
		byte(v>>56), byte(v>>48), byte(v>>40), byte(v>>32),
		byte(v>>24), byte(v>>16), byte(v>>8), byte(v),
	)
}

// Sum64 returns the 64-bit digest. It does not change the state.
func (h *Hasher) Sum64() uint64 {
	if h.total <= 240 {
		return hash64(h.buf[:h.total], h.secret[:])
	}
	acc := h.digestLong()
	return mergeLong64(&acc, h.secret[:], h.total)
}

// Sum128 returns the 128-bit digest. It does not change the state.
func (h *Hasher) Sum128() Uint128 {
	if h.total <= 240 {
		return hash128(h.buf[:h.total], h.secret[:])
	}
	acc := h.digestLong()
	return mergeLong128(&acc, h.secret[:], h.total)
}

func (h *Hasher) digestLong() [accNB]uint64 {
	acc := h.acc
	s := h.secret[:]
	if h.buffered >= stripeLen {
		stripes := (h.buffered - 1) / stripeLen
		consumeStripes(&acc, h.stripes, h.buf[:], 0, stripes, s)
		accumulate512(&acc, h.buf[:], h.buffered-stripeLen, s, secretLimit-secretLastAccStart)
		return acc
	}

	var last [stripeLen]byte
	catchup := stripeLen - h.buffered
	copy(last[:], h.buf[bufferSize-catchup:])
	copy(last[catchup:], h.buf[:h.buffered])
	accumulate512(&acc, last[:], 0, s, secretLimit-secretLastAccStart)
	return acc
}

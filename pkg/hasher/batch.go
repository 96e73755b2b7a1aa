package hasher

type updateResetter interface {
	Update([]byte)
	Reset()
}

// runBatch drives one hasher over every chunk: update, digest, reset. The
// reset between chunks keeps each digest independent of its neighbours.
func runBatch[T any](h updateResetter, chunks [][]byte, digest func() T) []T {
	out := make([]T, len(chunks))
	for i, c := range chunks {
		h.Update(c)
		out[i] = digest()
		h.Reset()
	}
	return out
}

// Batch32 returns the XXH32 digest of each chunk, in input order.
func Batch32(chunks [][]byte, seed uint32) []uint32 {
	h := NewHasher32(seed)
	return runBatch(h, chunks, h.Digest)
}

// Batch64 returns the XXH64 digest of each chunk, in input order.
func Batch64(chunks [][]byte, seed uint64) []uint64 {
	h := NewHasher64(seed)
	return runBatch(h, chunks, h.Digest)
}

// Batch3 returns the XXH3 64-bit digest of each chunk, in input order. An
// invalid secret aborts the whole batch before any chunk is hashed.
func Batch3(chunks [][]byte, p Params) ([]uint64, error) {
	h, err := NewHasher3(p)
	if err != nil {
		return nil, err
	}
	return runBatch(h, chunks, h.Digest), nil
}

// Batch128 returns the XXH3 128-bit digest of each chunk as 32 lowercase hex
// digits, in input order.
func Batch128(chunks [][]byte, p Params) ([]string, error) {
	h, err := NewHasher3(p)
	if err != nil {
		return nil, err
	}
	return runBatch(h, chunks, func() string { return h.Digest128().String() }), nil
}

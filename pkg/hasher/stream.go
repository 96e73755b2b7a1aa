package hasher

import (
	"hash"

	"github.com/cespare/xxhash/v2"
	"github.com/pierrec/xxHash/xxHash32"
	zeebo "github.com/zeebo/xxh3"

	"edu/xxhasher/internal/xxh3"
)

// Streaming hashers accumulate input across Update calls. Digest never
// consumes the accumulated state; Reset restores a hasher to the state of a
// freshly constructed one with the same seed or secret.
//
// A hasher belongs to a single owner and is not safe for concurrent use.

// Hasher32 is a streaming XXH32 hasher.
type Hasher32 struct {
	h    hash.Hash32
	seed uint32
}

func NewHasher32(seed uint32) *Hasher32 {
	return &Hasher32{h: xxHash32.New(seed), seed: seed}
}

func (s *Hasher32) Update(b []byte) { _, _ = s.h.Write(b) }

func (s *Hasher32) Write(b []byte) (int, error) { return s.h.Write(b) }

func (s *Hasher32) Digest() uint32 { return s.h.Sum32() }

func (s *Hasher32) Reset() { s.h.Reset() }

// Seed returns the seed bound at construction.
func (s *Hasher32) Seed() uint32 { return s.seed }

// Hasher64 is a streaming XXH64 hasher.
type Hasher64 struct {
	d    *xxhash.Digest
	seed uint64
}

func NewHasher64(seed uint64) *Hasher64 {
	return &Hasher64{d: xxhash.NewWithSeed(seed), seed: seed}
}

func (s *Hasher64) Update(b []byte) { _, _ = s.d.Write(b) }

func (s *Hasher64) Write(b []byte) (int, error) { return s.d.Write(b) }

func (s *Hasher64) Digest() uint64 { return s.d.Sum64() }

// Reset rebinds the seed remembered at construction; xxhash.Digest.Reset
// alone would fall back to seed 0.
func (s *Hasher64) Reset() { s.d.ResetWithSeed(s.seed) }

func (s *Hasher64) Seed() uint64 { return s.seed }

// Hasher3 is a streaming XXH3 hasher producing 64- and 128-bit digests over
// the same accumulated input. It is keyed either by a seed or, when
// Params.Secret is set, by that secret.
type Hasher3 struct {
	seeded *zeebo.Hasher
	keyed  *xxh3.Hasher
	seed   uint64
}

// NewHasher3 validates the secret (if any) before building the hasher; on
// error no hasher is returned.
func NewHasher3(p Params) (*Hasher3, error) {
	if p.UsesSecret() {
		if err := ValidateSecret(p.Secret); err != nil {
			return nil, err
		}
		k, err := xxh3.New(p.Secret)
		if err != nil {
			return nil, err
		}
		return &Hasher3{keyed: k}, nil
	}
	return &Hasher3{seeded: zeebo.NewSeed(p.Seed), seed: p.Seed}, nil
}

func (s *Hasher3) Update(b []byte) { _, _ = s.Write(b) }

func (s *Hasher3) Write(b []byte) (int, error) {
	if s.keyed != nil {
		return s.keyed.Write(b)
	}
	return s.seeded.Write(b)
}

func (s *Hasher3) Digest() uint64 {
	if s.keyed != nil {
		return s.keyed.Sum64()
	}
	return s.seeded.Sum64()
}

func (s *Hasher3) Digest128() Uint128 {
	if s.keyed != nil {
		v := s.keyed.Sum128()
		return Uint128{Hi: v.Hi, Lo: v.Lo}
	}
	v := s.seeded.Sum128()
	return Uint128{Hi: v.Hi, Lo: v.Lo}
}

func (s *Hasher3) Reset() {
	if s.keyed != nil {
		s.keyed.Reset()
		return
	}
	s.seeded.Reset()
}

// Keyed reports whether the hasher is bound to a secret instead of a seed.
func (s *Hasher3) Keyed() bool { return s.keyed != nil }

// Seed returns the bound seed; it is meaningless when Keyed is true.
func (s *Hasher3) Seed() uint64 { return s.seed }

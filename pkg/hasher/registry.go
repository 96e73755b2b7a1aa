package hasher

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
)

var ErrUnknownAlgorithm = errors.New("unknown algorithm")

// Digest is a family-agnostic digest value of Size bytes (4, 8 or 16).
type Digest struct {
	Size int
	Hi   uint64
	Lo   uint64
}

// String renders the digest as zero-padded lowercase hex of Size bytes.
func (d Digest) String() string {
	switch d.Size {
	case 4:
		return fmt.Sprintf("%08x", uint32(d.Lo))
	case 8:
		return fmt.Sprintf("%016x", d.Lo)
	}
	return Uint128{Hi: d.Hi, Lo: d.Lo}.String()
}

// Uint64 returns the low 64 bits.
func (d Digest) Uint64() uint64 { return d.Lo }

func (d Digest) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

// Streamer is the family-agnostic view of a streaming hasher.
type Streamer interface {
	io.Writer
	Update(b []byte)
	Sum() Digest
	Reset()
}

// Family is one hash family reachable by name.
type Family interface {
	Name() string
	// Size is the digest width in bytes.
	Size() int
	Sum(data []byte, p Params) (Digest, error)
	New(p Params) (Streamer, error)
}

var (
	registry = map[string]Family{}
	aliases  = map[string]string{}
)

func Register(f Family, alias ...string) {
	registry[f.Name()] = f
	for _, a := range alias {
		aliases[a] = f.Name()
	}
}

func Get(name string) (Family, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if a, ok := aliases[n]; ok {
		n = a
	}
	if f, ok := registry[n]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownAlgorithm, name)
}

func List() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// BatchFamily runs the batch contract over any registered family.
func BatchFamily(f Family, chunks [][]byte, p Params) ([]Digest, error) {
	s, err := f.New(p)
	if err != nil {
		return nil, err
	}
	return runBatch(s, chunks, s.Sum), nil
}

func noSecret(name string, p Params) error {
	if p.UsesSecret() {
		return fmt.Errorf("%s: %w", name, ErrSecretNotSupported)
	}
	return nil
}

// check32 applies the key checks of the 32-bit family.
func check32(name string, p Params) error {
	if err := noSecret(name, p); err != nil {
		return err
	}
	if p.Seed > math.MaxUint32 {
		return fmt.Errorf("%s: %w: %d does not fit in 32 bits", name, ErrSeedOutOfRange, p.Seed)
	}
	return nil
}

type family32 struct{}

func (family32) Name() string { return "xxh32" }
func (family32) Size() int    { return 4 }

func (f family32) Sum(data []byte, p Params) (Digest, error) {
	if err := check32(f.Name(), p); err != nil {
		return Digest{}, err
	}
	return Digest{Size: 4, Lo: uint64(Hash32(data, uint32(p.Seed)))}, nil
}

func (f family32) New(p Params) (Streamer, error) {
	if err := check32(f.Name(), p); err != nil {
		return nil, err
	}
	return streamer32{NewHasher32(uint32(p.Seed))}, nil
}

type streamer32 struct{ *Hasher32 }

func (s streamer32) Sum() Digest { return Digest{Size: 4, Lo: uint64(s.Digest())} }

type family64 struct{}

func (family64) Name() string { return "xxh64" }
func (family64) Size() int    { return 8 }

func (f family64) Sum(data []byte, p Params) (Digest, error) {
	if err := noSecret(f.Name(), p); err != nil {
		return Digest{}, err
	}
	return Digest{Size: 8, Lo: Hash64(data, p.Seed)}, nil
}

func (f family64) New(p Params) (Streamer, error) {
	if err := noSecret(f.Name(), p); err != nil {
		return nil, err
	}
	return streamer64{NewHasher64(p.Seed)}, nil
}

type streamer64 struct{ *Hasher64 }

func (s streamer64) Sum() Digest { return Digest{Size: 8, Lo: s.Digest()} }

type family3 struct{}

func (family3) Name() string { return "xxh3" }
func (family3) Size() int    { return 8 }

func (family3) Sum(data []byte, p Params) (Digest, error) {
	if p.UsesSecret() {
		v, err := Hash3WithSecret(data, p.Secret)
		if err != nil {
			return Digest{}, err
		}
		return Digest{Size: 8, Lo: v}, nil
	}
	return Digest{Size: 8, Lo: Hash3(data, p.Seed)}, nil
}

func (family3) New(p Params) (Streamer, error) {
	h, err := NewHasher3(p)
	if err != nil {
		return nil, err
	}
	return streamer3{h}, nil
}

type streamer3 struct{ *Hasher3 }

func (s streamer3) Sum() Digest { return Digest{Size: 8, Lo: s.Digest()} }

type family128 struct{}

func (family128) Name() string { return "xxh128" }
func (family128) Size() int    { return 16 }

func (family128) Sum(data []byte, p Params) (Digest, error) {
	if p.UsesSecret() {
		v, err := Hash128WithSecret(data, p.Secret)
		if err != nil {
			return Digest{}, err
		}
		return Digest{Size: 16, Hi: v.Hi, Lo: v.Lo}, nil
	}
	v := Hash128(data, p.Seed)
	return Digest{Size: 16, Hi: v.Hi, Lo: v.Lo}, nil
}

func (family128) New(p Params) (Streamer, error) {
	h, err := NewHasher3(p)
	if err != nil {
		return nil, err
	}
	return streamer128{h}, nil
}

type streamer128 struct{ *Hasher3 }

func (s streamer128) Sum() Digest {
	v := s.Digest128()
	return Digest{Size: 16, Hi: v.Hi, Lo: v.Lo}
}

func init() {
	Register(family32{}, "32", "xxhash32")
	Register(family64{}, "64", "xxhash64")
	Register(family3{}, "xxh3-64", "xxh3_64")
	Register(family128{}, "128", "xxh3-128", "xxh3_128")
}

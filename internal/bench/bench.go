// Package bench measures xxHash throughput next to common cryptographic
// digests over one in-memory buffer.
package bench

import (
	"context"
	"fmt"
	"hash"
	"io"
	"math/rand"
	"time"

	"github.com/c0mm4nd/go-ripemd"
	"github.com/ddulesov/gogost/gost28147"
	"github.com/ddulesov/gogost/gost341194"
	"github.com/ddulesov/gogost/gost34112012256"
	"github.com/ddulesov/gogost/gost34112012512"
	"github.com/emmansun/gmsm/sm3"
	md5simd "github.com/minio/md5-simd"
	sha256simd "github.com/minio/sha256-simd"
	"github.com/pedroalbanese/whirlpool"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/ripemd160"
	"golang.org/x/crypto/sha3"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"edu/xxhasher/pkg/hasher"
)

const (
	DefaultSize     = 1 << 20
	DefaultDuration = time.Second
)

type Options struct {
	Size     int
	Duration time.Duration
	// Families defaults to every registered xxHash family.
	Families []string
	// Baselines defaults to Baselines(); pass an empty non-nil slice to skip them.
	Baselines []string
	Seed      uint64
}

type Result struct {
	Name       string        `json:"name"`
	Bytes      int64         `json:"bytes"`
	Elapsed    time.Duration `json:"elapsed_ns"`
	Throughput float64       `json:"bytes_per_sec"`
}

var baselines = []string{
	"md5", "sha256", "sha3-256", "blake2b-256", "blake3",
	"ripemd128", "ripemd160", "ripemd256", "ripemd320",
	"whirlpool", "sm3", "streebog-256", "streebog-512", "gost94",
}

// Baselines lists the reference digests Run knows about.
func Baselines() []string { return append([]string(nil), baselines...) }

type target struct {
	name string
	run  func(buf []byte)
	done func()
}

func familyTarget(name string, p hasher.Params) (target, error) {
	f, err := hasher.Get(name)
	if err != nil {
		return target{}, err
	}
	if _, err := f.Sum(nil, p); err != nil {
		return target{}, err
	}
	return target{name: f.Name(), run: func(buf []byte) { _, _ = f.Sum(buf, p) }}, nil
}

func hashTarget(name string, h hash.Hash, done func()) target {
	var out []byte
	return target{name: name, done: done, run: func(buf []byte) {
		h.Reset()
		h.Write(buf)
		out = h.Sum(out[:0])
	}}
}

// newBaseline returns a fresh digest for a baseline name. done, when set,
// releases resources held by the digest.
func newBaseline(name string) (h hash.Hash, done func(), err error) {
	switch name {
	case "md5":
		srv := md5simd.NewServer()
		mh := srv.NewHash()
		return mh, func() { mh.Close(); srv.Close() }, nil
	case "sha256":
		return sha256simd.New(), nil, nil
	case "sha3-256":
		return sha3.New256(), nil, nil
	case "blake2b-256":
		b, err := blake2b.New256(nil)
		return b, nil, err
	case "blake3":
		return blake3.New(), nil, nil
	case "ripemd128":
		return ripemd.New128(), nil, nil
	case "ripemd160":
		return ripemd160.New(), nil, nil
	case "ripemd256":
		return ripemd.New256(), nil, nil
	case "ripemd320":
		return ripemd.New320(), nil, nil
	case "whirlpool":
		return whirlpool.New(), nil, nil
	case "sm3":
		return sm3.New(), nil, nil
	case "streebog-256":
		return gost34112012256.New(), nil, nil
	case "streebog-512":
		return gost34112012512.New(), nil, nil
	case "gost94":
		return gost341194.New(&gost28147.SboxIdGostR341194TestParamSet), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown baseline: %s", name)
}

func baselineTarget(name string) (target, error) {
	h, done, err := newBaseline(name)
	if err != nil {
		return target{}, err
	}
	return hashTarget(name, h, done), nil
}

// Run hashes one random buffer of opts.Size bytes with each target for at
// least opts.Duration (and at least once).
func Run(ctx context.Context, opts Options) ([]Result, error) {
	if opts.Size <= 0 {
		opts.Size = DefaultSize
	}
	if opts.Duration <= 0 {
		opts.Duration = DefaultDuration
	}
	families := opts.Families
	if len(families) == 0 {
		families = hasher.List()
	}
	bases := opts.Baselines
	if bases == nil {
		bases = baselines
	}

	p := hasher.Params{Seed: opts.Seed}
	var targets []target
	defer func() {
		for _, t := range targets {
			if t.done != nil {
				t.done()
			}
		}
	}()
	for _, name := range families {
		t, err := familyTarget(name, p)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	for _, name := range bases {
		t, err := baselineTarget(name)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	buf := make([]byte, opts.Size)
	rand.New(rand.NewSource(int64(opts.Size))).Read(buf)

	out := make([]Result, 0, len(targets))
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		var n int64
		start := time.Now()
		for {
			t.run(buf)
			n += int64(len(buf))
			if time.Since(start) >= opts.Duration || ctx.Err() != nil {
				break
			}
		}
		el := time.Since(start)
		out = append(out, Result{Name: t.name, Bytes: n, Elapsed: el, Throughput: float64(n) / el.Seconds()})
	}
	return out, nil
}

// Format writes one aligned row per result with grouped digits.
func Format(w io.Writer, results []Result) error {
	p := message.NewPrinter(language.English)
	if _, err := p.Fprintf(w, "%-12s %18s %12s %14s\n", "algo", "bytes", "elapsed", "MiB/s"); err != nil {
		return err
	}
	for _, r := range results {
		if _, err := p.Fprintf(w, "%-12s %18d %12v %14.1f\n",
			r.Name, r.Bytes, r.Elapsed.Round(time.Millisecond), r.Throughput/(1<<20)); err != nil {
			return err
		}
	}
	return nil
}

package hasher

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// BatchParallel splits chunks into contiguous ranges and hashes each range on
// its own hasher. Results are identical to BatchFamily. Every hasher is built
// before any chunk is processed, so an invalid secret aborts the batch
// without partial results.
func BatchParallel(ctx context.Context, f Family, chunks [][]byte, p Params, workers int) ([]Digest, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(chunks) {
		workers = len(chunks)
	}
	if workers <= 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return BatchFamily(f, chunks, p)
	}

	hashers := make([]Streamer, workers)
	for i := range hashers {
		s, err := f.New(p)
		if err != nil {
			return nil, err
		}
		hashers[i] = s
	}

	out := make([]Digest, len(chunks))
	per := (len(chunks) + workers - 1) / workers
	g, ctx := errgroup.WithContext(ctx)
	for w, h := range hashers {
		lo := w * per
		hi := min(lo+per, len(chunks))
		if lo >= hi {
			continue
		}
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if i%64 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				h.Update(chunks[i])
				out[i] = h.Sum()
				h.Reset()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

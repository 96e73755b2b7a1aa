package runner

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"edu/xxhasher/pkg/hasher"
	"edu/xxhasher/pkg/workerpool"
)

type Options struct {
	Workers       int
	LogPath       string
	Event         func(event string, kv map[string]any)
	ProgressEvery uint64
}

// OpenFunc opens one named input for reading.
type OpenFunc func(ctx context.Context, name string) (io.ReadCloser, error)

type Result struct {
	Algo   string
	Name   string
	Digest hasher.Digest
	Bytes  int64
	Err    error
}

func (r Result) MarshalJSON() ([]byte, error) {
	out := struct {
		Algo   string `json:"algo"`
		Name   string `json:"name"`
		Digest string `json:"digest,omitempty"`
		Bytes  int64  `json:"bytes"`
		Error  string `json:"error,omitempty"`
	}{Algo: r.Algo, Name: r.Name, Bytes: r.Bytes}
	if r.Err != nil {
		out.Error = r.Err.Error()
	} else {
		out.Digest = r.Digest.String()
	}
	return json.Marshal(out)
}

type Runner struct {
	opts    Options
	logMu   sync.Mutex
	logFile *os.File
}

func New(opts Options) (*Runner, error) {
	r := &Runner{opts: opts}
	if opts.LogPath != "" {
		f, err := os.Create(opts.LogPath)
		if err != nil {
			return nil, err
		}
		r.logFile = f
	}
	return r, nil
}

func (r *Runner) Close() error {
	if r.logFile != nil {
		return r.logFile.Close()
	}
	return nil
}

func (r *Runner) logEvent(event string, kv map[string]any) {
	rec := map[string]any{"ts": time.Now().Format(time.RFC3339Nano), "event": event}
	for k, v := range kv {
		rec[k] = v
	}
	if r.logFile != nil {
		b, _ := json.Marshal(rec)
		r.logMu.Lock()
		_, _ = r.logFile.Write(append(b, '\n'))
		r.logMu.Unlock()
	}
	if r.opts.Event != nil {
		r.opts.Event(event, rec)
	}
}

func (r *Runner) workers(n int) int {
	w := r.opts.Workers
	if w <= 0 {
		w = runtime.NumCPU()
	}
	if w > n {
		w = n
	}
	if w < 1 {
		w = 1
	}
	return w
}

// SumAll streams every input through its own pass of f and returns results in
// input order. Per-input failures land in Result.Err; the returned error is
// reserved for bad parameters and cancellation.
func (r *Runner) SumAll(ctx context.Context, f hasher.Family, p hasher.Params, inputs []string, open OpenFunc) ([]Result, error) {
	start := time.Now()
	workers := r.workers(len(inputs))

	// one streamer per worker, built up front so parameter errors surface
	// before any input is opened
	streamers := make([]hasher.Streamer, workers)
	for i := range streamers {
		s, err := f.New(p)
		if err != nil {
			return nil, err
		}
		streamers[i] = s
	}

	r.logEvent("start", map[string]any{"workers": workers, "algo": f.Name(), "inputs": len(inputs)})

	every := r.opts.ProgressEvery
	if every == 0 {
		every = 100
	}
	results := make([]Result, len(inputs))
	var finished, total, failed atomic.Uint64

	pool := workerpool.New(ctx, workers, func(ctx context.Context, worker int, i int) {
		res := sumOne(ctx, streamers[worker], inputs[i], open)
		res.Algo = f.Name()
		results[i] = res

		kv := map[string]any{"name": res.Name, "bytes": res.Bytes}
		if res.Err != nil {
			failed.Add(1)
			kv["error"] = res.Err.Error()
		} else {
			kv["digest"] = res.Digest.String()
		}
		r.logEvent("file", kv)

		sum := total.Add(uint64(res.Bytes))
		if n := finished.Add(1); n%every == 0 {
			r.logEvent("progress", map[string]any{"done": n, "bytes": sum})
		}
	})
	for i := range inputs {
		if !pool.Submit(i) {
			break
		}
	}
	pool.Close()

	if err := ctx.Err(); err != nil {
		r.logEvent("done", map[string]any{"error": err.Error(), "done": finished.Load()})
		return nil, err
	}

	elapsed := time.Since(start)
	r.logEvent("done", map[string]any{
		"done":        finished.Load(),
		"failed":      failed.Load(),
		"bytes":       total.Load(),
		"duration_ms": elapsed.Milliseconds(),
	})
	return results, nil
}

func sumOne(ctx context.Context, s hasher.Streamer, name string, open OpenFunc) Result {
	res := Result{Name: name}
	rc, err := open(ctx, name)
	if err != nil {
		res.Err = err
		return res
	}
	defer rc.Close()

	s.Reset()
	res.Bytes, res.Err = io.Copy(s, ctxReader{ctx: ctx, r: rc})
	if res.Err == nil {
		res.Digest = s.Sum()
	}
	return res
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

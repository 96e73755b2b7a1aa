package web

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/encoding/unicode"

	"edu/xxhasher/pkg/hasher"
)

const maxBody = 32 << 20

type Options struct {
	// Workers bounds /api/batch fan-out; 0 means NumCPU.
	Workers int
	Logger  *log.Logger
}

type Server struct {
	opts Options
	mux  *http.ServeMux

	mu     sync.Mutex
	srv    *http.Server
	closed bool
}

type HashRequest struct {
	Algo     string   `json:"algo"`
	Seed     uint64   `json:"seed"`
	Secret   string   `json:"secret,omitempty"`
	Data     string   `json:"data"`
	Chunks   []string `json:"chunks,omitempty"`
	Encoding string   `json:"encoding,omitempty"`
}

type HashResponse struct {
	Algo   string        `json:"algo"`
	Digest hasher.Digest `json:"digest"`
}

type BatchResponse struct {
	Algo    string          `json:"algo"`
	Digests []hasher.Digest `json:"digests"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	s := &Server{opts: opts, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /api/algorithms", s.handleAlgorithms)
	s.mux.HandleFunc("POST /api/hash", s.handleHash)
	s.mux.HandleFunc("POST /api/batch", s.handleBatch)
	return s
}

func (s *Server) Handler() http.Handler { return s.logRequests(s.mux) }

// Start serves on addr until Shutdown is called. It returns nil at once when
// Shutdown already ran.
func (s *Server) Start(addr string) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.srv = hs
	s.mu.Unlock()

	s.opts.Logger.Printf("listening on %s", addr)
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	hs := s.srv
	s.closed = true
	s.mu.Unlock()
	if hs == nil {
		return nil
	}
	return hs.Shutdown(ctx)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, req)
		s.opts.Logger.Printf("%s %s %d %s", req.Method, req.URL.Path, sw.status, time.Since(start).Round(time.Microsecond))
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

func (s *Server) handleAlgorithms(w http.ResponseWriter, _ *http.Request) {
	type algo struct {
		Name   string `json:"name"`
		Bits   int    `json:"bits"`
		Secret bool   `json:"secret"`
	}
	var out []algo
	for _, name := range hasher.List() {
		f, _ := hasher.Get(name)
		_, err := f.Sum(nil, hasher.Params{Secret: hasher.DefaultSecret()})
		out = append(out, algo{Name: name, Bits: f.Size() * 8, Secret: err == nil})
	}
	writeJSON(w, http.StatusOK, out)
}

// decodeRequest resolves the family, params and decoder shared by both
// endpoints.
func decodeRequest(w http.ResponseWriter, req *http.Request) (HashRequest, hasher.Family, hasher.Params, func(string) ([]byte, error), bool) {
	var hr HashRequest
	req.Body = http.MaxBytesReader(w, req.Body, maxBody)
	if err := json.NewDecoder(req.Body).Decode(&hr); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return hr, nil, hasher.Params{}, nil, false
	}
	if hr.Algo == "" {
		hr.Algo = "xxh3"
	}
	f, err := hasher.Get(hr.Algo)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return hr, nil, hasher.Params{}, nil, false
	}
	p := hasher.Params{Seed: hr.Seed}
	if hr.Secret != "" {
		secret, err := hex.DecodeString(hr.Secret)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("secret: %w", err))
			return hr, nil, hasher.Params{}, nil, false
		}
		if err := hasher.ValidateSecret(secret); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return hr, nil, hasher.Params{}, nil, false
		}
		p.Secret = secret
	}
	dec, err := decoder(hr.Encoding)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return hr, nil, hasher.Params{}, nil, false
	}
	return hr, f, p, dec, true
}

func decoder(encoding string) (func(string) ([]byte, error), error) {
	switch strings.ToLower(encoding) {
	case "", "text", "utf8", "utf-8":
		return func(s string) ([]byte, error) { return []byte(s), nil }, nil
	case "hex":
		return hex.DecodeString, nil
	case "base64":
		return base64.StdEncoding.DecodeString, nil
	case "utf16le", "utf-16le":
		enc := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()
		return func(s string) ([]byte, error) { return enc.Bytes([]byte(s)) }, nil
	}
	return nil, fmt.Errorf("unsupported encoding: %s", encoding)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, hasher.ErrInvalidSecretLength),
		errors.Is(err, hasher.ErrSecretNotSupported),
		errors.Is(err, hasher.ErrSeedOutOfRange),
		errors.Is(err, hasher.ErrUnknownAlgorithm):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) handleHash(w http.ResponseWriter, req *http.Request) {
	hr, f, p, dec, ok := decodeRequest(w, req)
	if !ok {
		return
	}
	data, err := dec(hr.Data)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("data: %w", err))
		return
	}
	d, err := f.Sum(data, p)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, HashResponse{Algo: f.Name(), Digest: d})
}

func (s *Server) handleBatch(w http.ResponseWriter, req *http.Request) {
	hr, f, p, dec, ok := decodeRequest(w, req)
	if !ok {
		return
	}
	chunks := make([][]byte, len(hr.Chunks))
	for i, c := range hr.Chunks {
		b, err := dec(c)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("chunk %d: %w", i, err))
			return
		}
		chunks[i] = b
	}
	ds, err := hasher.BatchParallel(req.Context(), f, chunks, p, s.opts.Workers)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if ds == nil {
		ds = []hasher.Digest{}
	}
	writeJSON(w, http.StatusOK, BatchResponse{Algo: f.Name(), Digests: ds})
}

package runner

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edu/xxhasher/pkg/hasher"
)

func memOpen(files map[string][]byte) OpenFunc {
	return func(_ context.Context, name string) (io.ReadCloser, error) {
		b, ok := files[name]
		if !ok {
			return nil, fmt.Errorf("%s: %w", name, os.ErrNotExist)
		}
		return io.NopCloser(bytes.NewReader(b)), nil
	}
}

func sampleFiles(n int) (map[string][]byte, []string) {
	files := map[string][]byte{}
	var names []string
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("f%03d", i)
		files[name] = bytes.Repeat([]byte{byte(i)}, i*37)
		names = append(names, name)
	}
	return files, names
}

func TestSumAllMatchesOneShot(t *testing.T) {
	files, names := sampleFiles(50)
	for _, algo := range hasher.List() {
		f, err := hasher.Get(algo)
		require.NoError(t, err)
		for _, workers := range []int{0, 1, 4} {
			r, err := New(Options{Workers: workers})
			require.NoError(t, err)

			res, err := r.SumAll(context.Background(), f, hasher.Params{Seed: 7}, names, memOpen(files))
			require.NoError(t, err)
			require.Len(t, res, len(names))
			for i, got := range res {
				want, err := f.Sum(files[names[i]], hasher.Params{Seed: 7})
				require.NoError(t, err)
				assert.Equal(t, names[i], got.Name)
				assert.Equal(t, want, got.Digest, "%s %s", algo, got.Name)
				assert.Equal(t, int64(len(files[names[i]])), got.Bytes)
				assert.NoError(t, got.Err)
			}
			require.NoError(t, r.Close())
		}
	}
}

func TestSumAllPerInputErrors(t *testing.T) {
	files, _ := sampleFiles(2)
	r, err := New(Options{Workers: 2})
	require.NoError(t, err)
	f, _ := hasher.Get("xxh64")

	res, err := r.SumAll(context.Background(), f, hasher.Params{}, []string{"f000", "missing", "f001"}, memOpen(files))
	require.NoError(t, err)
	assert.NoError(t, res[0].Err)
	assert.ErrorIs(t, res[1].Err, os.ErrNotExist)
	assert.NoError(t, res[2].Err)
}

func TestSumAllBadParams(t *testing.T) {
	r, _ := New(Options{})
	f, _ := hasher.Get("xxh3")
	_, err := r.SumAll(context.Background(), f, hasher.Params{Secret: []byte("short")}, []string{"a"}, memOpen(nil))
	assert.ErrorIs(t, err, hasher.ErrInvalidSecretLength)

	f, _ = hasher.Get("xxh32")
	_, err = r.SumAll(context.Background(), f, hasher.Params{Secret: hasher.DefaultSecret()}, []string{"a"}, memOpen(nil))
	assert.ErrorIs(t, err, hasher.ErrSecretNotSupported)
}

func TestSumAllCancelled(t *testing.T) {
	files, names := sampleFiles(10)
	r, _ := New(Options{Workers: 2})
	f, _ := hasher.Get("xxh3")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := r.SumAll(ctx, f, hasher.Params{}, names, memOpen(files))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

func TestEventsAndLog(t *testing.T) {
	files, names := sampleFiles(6)
	logPath := filepath.Join(t.TempDir(), "events.jsonl")

	var mu sync.Mutex
	seen := map[string]int{}
	r, err := New(Options{
		Workers:       3,
		LogPath:       logPath,
		ProgressEvery: 2,
		Event: func(event string, kv map[string]any) {
			mu.Lock()
			seen[event]++
			mu.Unlock()
			assert.Contains(t, kv, "ts")
		},
	})
	require.NoError(t, err)
	f, _ := hasher.Get("xxh128")
	_, err = r.SumAll(context.Background(), f, hasher.Params{}, names, memOpen(files))
	require.NoError(t, err)
	require.NoError(t, r.Close())

	assert.Equal(t, 1, seen["start"])
	assert.Equal(t, 6, seen["file"])
	assert.Equal(t, 3, seen["progress"])
	assert.Equal(t, 1, seen["done"])

	fh, err := os.Open(logPath)
	require.NoError(t, err)
	defer fh.Close()
	var lines int
	sc := bufio.NewScanner(fh)
	for sc.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		assert.NotEmpty(t, rec["event"])
		lines++
	}
	assert.Equal(t, 11, lines)
}

func TestNewBadLogPath(t *testing.T) {
	_, err := New(Options{LogPath: filepath.Join(t.TempDir(), "no", "such", "dir", "log")})
	assert.Error(t, err)
}

func TestResultJSON(t *testing.T) {
	b, err := json.Marshal(Result{Algo: "xxh32", Name: "a", Digest: hasher.Digest{Size: 4, Lo: 0xda4e9f54}, Bytes: 27})
	require.NoError(t, err)
	assert.JSONEq(t, `{"algo":"xxh32","name":"a","digest":"da4e9f54","bytes":27}`, string(b))

	b, err = json.Marshal(Result{Algo: "xxh64", Name: "b", Err: os.ErrNotExist})
	require.NoError(t, err)
	assert.JSONEq(t, `{"algo":"xxh64","name":"b","bytes":0,"error":"file does not exist"}`, string(b))
}

func TestCheckRoundTrip(t *testing.T) {
	files, names := sampleFiles(5)
	r, _ := New(Options{Workers: 2})
	f, _ := hasher.Get("xxh3")
	res, err := r.SumAll(context.Background(), f, hasher.Params{}, names, memOpen(files))
	require.NoError(t, err)

	var lines []string
	for _, sr := range res {
		assert.Equal(t, "xxh3", sr.Algo)
		lines = append(lines, FormatLine(sr))
	}
	assert.True(t, strings.HasPrefix(lines[0], "XXH3_"))
	checks, err := r.Check(context.Background(), f, hasher.Params{}, lines, memOpen(files))
	require.NoError(t, err)
	require.Len(t, checks, len(names))
	for _, c := range checks {
		assert.True(t, c.OK(), c.Name)
	}
}

func TestCheckFailures(t *testing.T) {
	files := map[string][]byte{"url": []byte("http://github.com/ndtao2020"), "other": []byte("x")}
	r, _ := New(Options{})
	f, _ := hasher.Get("xxh64")

	lines := []string{
		"# generated",
		"36f10ae68f9ca1d0  url",
		"",
		"36F10AE68F9CA1D0 *url",
		"36f10ae68f9ca1d0  other",
		"36f10ae68f9ca1d0  missing",
		"not-a-checksum",
		"36f10ae6  url",
	}
	checks, err := r.Check(context.Background(), f, hasher.Params{}, lines, memOpen(files))
	require.NoError(t, err)
	require.Len(t, checks, 6)

	assert.True(t, checks[0].OK())
	assert.Equal(t, 2, checks[0].Line)
	assert.True(t, checks[1].OK())
	assert.ErrorIs(t, checks[2].Err, ErrMismatch)
	assert.ErrorIs(t, checks[3].Err, os.ErrNotExist)
	assert.ErrorIs(t, checks[4].Err, ErrMalformedLine)
	assert.ErrorIs(t, checks[5].Err, ErrMalformedLine)
	assert.True(t, strings.HasPrefix(checks[5].Err.Error(), "line 8"))
}

func TestCheckDetectsFamily(t *testing.T) {
	files := map[string][]byte{"url": []byte("http://github.com/ndtao2020")}
	r, _ := New(Options{Workers: 2})

	lines := []string{
		"da4e9f54  url",
		"36f10ae68f9ca1d0  url",
		"XXH3_5b2029acae3a4b0d  url",
		"abb6e685efb72f6c354c07ffc2a41441  url",
		"XXH64 (url) = 36f10ae68f9ca1d0",
		"XXH3 (url) = 5b2029acae3a4b0d",
		"XXH128 (url) = 0000e685efb72f6c354c07ffc2a41441",
		"XXH32 (url) = 36f10ae68f9ca1d0",
		"XXH9 (url) = da4e9f54",
	}
	checks, err := r.Check(context.Background(), nil, hasher.Params{}, lines, memOpen(files))
	require.NoError(t, err)
	require.Len(t, checks, len(lines))

	wantAlgo := []string{"xxh32", "xxh64", "xxh3", "xxh128", "xxh64", "xxh3", "xxh128"}
	for i, algo := range wantAlgo {
		assert.Equal(t, algo, checks[i].Algo, "line %d", i+1)
	}
	for i := 0; i < 6; i++ {
		assert.True(t, checks[i].OK(), "line %d: %v", i+1, checks[i].Err)
	}
	assert.ErrorIs(t, checks[6].Err, ErrMismatch)
	assert.ErrorIs(t, checks[7].Err, ErrMalformedLine)
	assert.ErrorIs(t, checks[8].Err, ErrMalformedLine)
}

func TestCheckPrefixedWideDigest(t *testing.T) {
	files := map[string][]byte{"url": []byte("http://github.com/ndtao2020")}
	r, _ := New(Options{})
	checks, err := r.Check(context.Background(), nil, hasher.Params{}, []string{"XXH3_abb6e685efb72f6c354c07ffc2a41441  url"}, memOpen(files))
	require.NoError(t, err)
	require.Len(t, checks, 1)
	assert.ErrorIs(t, checks[0].Err, ErrMalformedLine)
	assert.NotErrorIs(t, checks[0].Err, ErrMismatch)
}

func TestCheckRejectsOtherFamily(t *testing.T) {
	r, _ := New(Options{})
	f, _ := hasher.Get("xxh64")
	checks, err := r.Check(context.Background(), f, hasher.Params{}, []string{"XXH3_5b2029acae3a4b0d  url"}, memOpen(nil))
	require.NoError(t, err)
	require.Len(t, checks, 1)
	assert.ErrorIs(t, checks[0].Err, ErrMalformedLine)
}

func TestParseLine(t *testing.T) {
	e, err := ParseLine("XXH3_5B2029ACAE3A4B0D  dir/my file (1).txt")
	require.NoError(t, err)
	assert.Equal(t, Entry{Algo: "xxh3", Digest: "5b2029acae3a4b0d", Name: "dir/my file (1).txt"}, e)

	e, err = ParseLine("XXH128 (a) = b) = abb6e685efb72f6c354c07ffc2a41441")
	require.NoError(t, err)
	assert.Equal(t, "a) = b", e.Name)
	assert.Equal(t, "xxh128", e.Algo)

	for _, bad := range []string{
		"da4e9f54",
		"da4e9f54  ",
		"XXH64 (x) 36f10ae68f9ca1d0",
		"XXH64 () = 36f10ae68f9ca1d0",
		"XXH3_abb6e685efb72f6c354c07ffc2a41441  x",
		"XXH3_da4e9f54  x",
	} {
		_, err := ParseLine(bad)
		assert.ErrorIs(t, err, ErrMalformedLine, bad)
	}
}

package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"edu/xxhasher/internal/bench"
	"edu/xxhasher/internal/runner"
	"edu/xxhasher/internal/source"
	"edu/xxhasher/internal/web"
	"edu/xxhasher/pkg/hasher"
)

// commandContext is cancelled on SIGINT/SIGTERM and after --timeout.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() { cancel(); stop() }
}

func stringSetting(cmd *cobra.Command, flag, key string) string {
	if cmd.Flags().Changed(flag) {
		v, _ := cmd.Flags().GetString(flag)
		return v
	}
	return viper.GetString(key)
}

// resolveParams picks the family, seed and optional secret from flags, then
// config, then env.
func resolveParams(cmd *cobra.Command) (hasher.Family, hasher.Params, error) {
	f, err := hasher.Get(stringSetting(cmd, "algo", "algo"))
	if err != nil {
		return nil, hasher.Params{}, err
	}

	p := hasher.Params{Seed: viper.GetUint64("seed")}
	if cmd.Flags().Changed("seed") {
		p.Seed, _ = cmd.Flags().GetUint64("seed")
	}

	secretHex, _ := cmd.Flags().GetString("secret-hex")
	secretFile := stringSetting(cmd, "secret-file", "secret_file")
	switch {
	case secretHex != "":
		s, err := hex.DecodeString(strings.TrimSpace(secretHex))
		if err != nil {
			return nil, hasher.Params{}, fmt.Errorf("secret-hex: %w", err)
		}
		p.Secret = s
	case secretFile != "":
		s, err := os.ReadFile(secretFile)
		if err != nil {
			return nil, hasher.Params{}, fmt.Errorf("secret-file: %w", err)
		}
		p.Secret = s
	}
	if p.UsesSecret() {
		if err := hasher.ValidateSecret(p.Secret); err != nil {
			return nil, hasher.Params{}, err
		}
	}
	return f, p, nil
}

// algoPinned reports whether the family was chosen by flag, config file or
// environment rather than left to the default.
func algoPinned(cmd *cobra.Command) bool {
	if cmd.Flags().Changed("algo") || viper.InConfig("algo") {
		return true
	}
	_, ok := os.LookupEnv(envPrefix + "_ALGO")
	return ok
}

func printEvent(out io.Writer) func(string, map[string]any) {
	return func(event string, kv map[string]any) {
		if !verbose {
			return
		}
		keys := make([]string, 0, len(kv))
		for k := range kv {
			if k != "event" && k != "ts" {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		var b strings.Builder
		fmt.Fprintf(&b, "[%s]", event)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, kv[k])
		}
		fmt.Fprintln(out, b.String())
	}
}

func newRunner(cmd *cobra.Command) (*runner.Runner, error) {
	return runner.New(runner.Options{
		Workers: viper.GetInt("workers"),
		LogPath: viper.GetString("log"),
		Event:   printEvent(cmd.ErrOrStderr()),
	})
}

func sourceOptions(cmd *cobra.Command) (source.Options, error) {
	opts := source.Options{Stdin: cmd.InOrStdin()}
	if cmd.Flags().Lookup("decompress") != nil {
		opts.Decompress, _ = cmd.Flags().GetString("decompress")
	}
	if err := viper.UnmarshalKey("s3", &opts.S3); err != nil {
		return opts, fmt.Errorf("s3 config: %w", err)
	}
	return opts, nil
}

func runHash(cmd *cobra.Command, args []string) error {
	f, p, err := resolveParams(cmd)
	if err != nil {
		return err
	}
	isHex, _ := cmd.Flags().GetBool("hex")
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return err
		}
		if isHex {
			if data, err = hex.DecodeString(strings.TrimSpace(string(data))); err != nil {
				return fmt.Errorf("stdin: %w", err)
			}
		}
		d, err := f.Sum(data, p)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s  -\n", d)
		return nil
	}

	for _, a := range args {
		data := []byte(a)
		if isHex {
			if data, err = hex.DecodeString(a); err != nil {
				return fmt.Errorf("%q: %w", a, err)
			}
		}
		d, err := f.Sum(data, p)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s  %s\n", d, a)
	}
	return nil
}

func runSum(cmd *cobra.Command, args []string) error {
	f, p, err := resolveParams(cmd)
	if err != nil {
		return err
	}
	sopts, err := sourceOptions(cmd)
	if err != nil {
		return err
	}
	open := func(ctx context.Context, name string) (io.ReadCloser, error) {
		return source.Open(ctx, name, sopts)
	}
	output, _ := cmd.Flags().GetString("output")
	if output != "text" && output != "json" {
		return fmt.Errorf("unknown output format: %s", output)
	}

	r, err := newRunner(cmd)
	if err != nil {
		return err
	}
	defer r.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	if checkFile, _ := cmd.Flags().GetString("check"); checkFile != "" {
		if !algoPinned(cmd) {
			f = nil
		}
		return runCheck(ctx, cmd, r, f, p, checkFile, open, output)
	}

	if len(args) == 0 {
		args = []string{"-"}
	}
	results, err := r.SumAll(ctx, f, p, args, open)
	if err != nil {
		return err
	}

	var failed int
	out := cmd.OutOrStdout()
	if output == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return err
		}
	}
	for _, res := range results {
		if res.Err != nil {
			failed++
			if output == "text" {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", res.Name, res.Err)
			}
			continue
		}
		if output == "text" {
			fmt.Fprintln(out, runner.FormatLine(res))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d inputs could not be read", failed, len(results))
	}
	return nil
}

func readLines(ctx context.Context, name string, open runner.OpenFunc) ([]string, error) {
	rc, err := open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var lines []string
	scanner := bufio.NewScanner(rc)
	buf := make([]byte, 0, 4*1024*1024)
	scanner.Buffer(buf, 4*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

func runCheck(ctx context.Context, cmd *cobra.Command, r *runner.Runner, f hasher.Family, p hasher.Params, checkFile string, open runner.OpenFunc, output string) error {
	lines, err := readLines(ctx, checkFile, open)
	if err != nil {
		return err
	}
	checks, err := r.Check(ctx, f, p, lines, open)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var failed int
	for _, c := range checks {
		if !c.OK() {
			failed++
		}
	}
	if output == "json" {
		type row struct {
			Line  int    `json:"line"`
			Name  string `json:"name,omitempty"`
			OK    bool   `json:"ok"`
			Error string `json:"error,omitempty"`
		}
		rows := make([]row, 0, len(checks))
		for _, c := range checks {
			rw := row{Line: c.Line, Name: c.Name, OK: c.OK()}
			if c.Err != nil {
				rw.Error = c.Err.Error()
			}
			rows = append(rows, rw)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rows); err != nil {
			return err
		}
	} else {
		for _, c := range checks {
			switch {
			case c.OK():
				fmt.Fprintf(out, "%s: OK\n", c.Name)
			case errors.Is(c.Err, runner.ErrMismatch):
				fmt.Fprintf(out, "%s: FAILED\n", c.Name)
			case errors.Is(c.Err, runner.ErrMalformedLine):
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", checkFile, c.Err)
			default:
				fmt.Fprintf(out, "%s: FAILED open or read (%v)\n", c.Name, c.Err)
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d checksums did not match", failed, len(checks))
	}
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	f, p, err := resolveParams(cmd)
	if err != nil {
		return err
	}
	batchFile, _ := cmd.Flags().GetString("file")
	isHex, _ := cmd.Flags().GetBool("hex")
	parallel, _ := cmd.Flags().GetBool("parallel")
	output, _ := cmd.Flags().GetString("output")

	sopts, err := sourceOptions(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	lines, err := readLines(ctx, batchFile, func(ctx context.Context, name string) (io.ReadCloser, error) {
		return source.Open(ctx, name, sopts)
	})
	if err != nil {
		return err
	}
	chunks := make([][]byte, len(lines))
	for i, l := range lines {
		l = strings.TrimRight(l, "\r")
		if !isHex {
			chunks[i] = []byte(l)
			continue
		}
		if chunks[i], err = hex.DecodeString(l); err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
	}

	start := time.Now()
	var digests []hasher.Digest
	if parallel {
		digests, err = hasher.BatchParallel(ctx, f, chunks, p, viper.GetInt("workers"))
	} else {
		digests, err = hasher.BatchFamily(f, chunks, p)
	}
	if err != nil {
		return err
	}
	if verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "[batch] algo=%s chunks=%d duration=%v\n", f.Name(), len(chunks), time.Since(start))
	}

	out := cmd.OutOrStdout()
	if output == "json" {
		return json.NewEncoder(out).Encode(struct {
			Algo    string          `json:"algo"`
			Digests []hasher.Digest `json:"digests"`
		}{f.Name(), digests})
	}
	w := bufio.NewWriter(out)
	for _, d := range digests {
		fmt.Fprintln(w, d)
	}
	return w.Flush()
}

func runBench(cmd *cobra.Command, args []string) error {
	size, _ := cmd.Flags().GetInt("size")
	duration, _ := cmd.Flags().GetDuration("duration")
	families, _ := cmd.Flags().GetStringSlice("families")
	noBase, _ := cmd.Flags().GetBool("no-baselines")
	seed, _ := cmd.Flags().GetUint64("seed")

	opts := bench.Options{Size: size, Duration: duration, Families: families, Seed: seed}
	if noBase {
		opts.Baselines = []string{}
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	results, err := bench.Run(ctx, opts)
	if err != nil {
		return err
	}
	return bench.Format(cmd.OutOrStdout(), results)
}

func runList(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Supported algorithms:")
	for _, name := range hasher.List() {
		f, err := hasher.Get(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  - %s (%d-bit)\n", name, f.Size()*8)
	}
	return nil
}

func runWeb(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	server := web.New(web.Options{Workers: viper.GetInt("workers")})

	ctx, cancel := commandContext(cmd)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(addr)
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Println("Shutting down web server...")
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		return server.Shutdown(sctx)
	})
	return g.Wait()
}

package main

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "XXHASHER"

var (
	workers int
	timeout time.Duration
	config  string
	logPath string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "xxhasher",
	Short: "xxhasher - fast non-cryptographic hashing with the xxHash family",
	Long: `xxhasher computes XXH32, XXH64, XXH3-64 and XXH3-128 digests over strings,
files, stdin and S3 objects, one-shot, streaming or in batches.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if config != "" {
			viper.SetConfigFile(config)
			if err := viper.ReadInConfig(); err != nil {
				log.Printf("Warning: Could not read config file: %v", err)
			}
		}

		if workers > 0 {
			viper.Set("workers", workers)
		}
		if logPath != "" {
			viper.Set("log", logPath)
		}
	},
}

var hashCmd = &cobra.Command{
	Use:   "hash [strings...]",
	Short: "Hash strings given as arguments (or stdin)",
	RunE:  runHash,
}

var sumCmd = &cobra.Command{
	Use:   "sum [files...]",
	Short: "Stream files, stdin (-) or s3://bucket/key objects",
	Long: `Print one "<digest>  <name>" line per input. Compressed inputs (.gz, .zst,
.lz4) are decoded first unless --decompress=none. With --check, verify a list
previously written by sum. The family of each listed digest is detected from
its tag or width unless --algo, the config file or XXHASHER_ALGO names one.`,
	RunE: runSum,
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Hash every line of a file as an independent chunk",
	RunE:  runBatch,
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure throughput against cryptographic digests",
	RunE:  runBench,
}

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Start the HTTP JSON API",
	RunE:  runWeb,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List supported algorithms",
	RunE:  runList,
}

func addHashFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("algo", "a", "", "Hash algorithm: xxh32, xxh64, xxh3, xxh128 (default from config: xxh3)")
	cmd.Flags().Uint64("seed", 0, "Seed value")
	cmd.Flags().String("secret-file", "", "File holding a raw 192-byte XXH3 secret")
	cmd.Flags().String("secret-hex", "", "192-byte XXH3 secret as hex")
	cmd.MarkFlagsMutuallyExclusive("secret-file", "secret-hex")
}

func init() {
	rootCmd.PersistentFlags().IntVarP(&workers, "workers", "t", 0, "Number of worker threads (default: CPU cores)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Abort after this long")
	rootCmd.PersistentFlags().StringVar(&config, "config", "", "Config file path")
	rootCmd.PersistentFlags().StringVar(&logPath, "log", "", "Log file path for events")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	addHashFlags(hashCmd)
	hashCmd.Flags().Bool("hex", false, "Arguments are hex-encoded bytes")

	addHashFlags(sumCmd)
	sumCmd.Flags().String("decompress", "auto", "Input compression: auto, none, gzip, zstd, lz4")
	sumCmd.Flags().StringP("check", "c", "", "Verify digests listed in this file")
	sumCmd.Flags().StringP("output", "o", "text", "Output format: text or json")

	addHashFlags(batchCmd)
	batchCmd.Flags().StringP("file", "f", "", "Chunk file, one chunk per line (- for stdin)")
	batchCmd.Flags().Bool("hex", false, "Lines are hex-encoded bytes")
	batchCmd.Flags().Bool("parallel", false, "Spread chunks over --workers hashers")
	batchCmd.Flags().StringP("output", "o", "text", "Output format: text or json")
	batchCmd.MarkFlagRequired("file")

	benchCmd.Flags().Int("size", 1<<20, "Buffer size in bytes")
	benchCmd.Flags().Duration("duration", time.Second, "Minimum time per algorithm")
	benchCmd.Flags().StringSlice("families", nil, "xxHash families to run (default: all)")
	benchCmd.Flags().Bool("no-baselines", false, "Skip the cryptographic baselines")
	benchCmd.Flags().Uint64("seed", 0, "Seed value")

	webCmd.Flags().String("addr", ":8080", "Server address (host:port)")

	rootCmd.AddCommand(hashCmd)
	rootCmd.AddCommand(sumCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(benchCmd)
	rootCmd.AddCommand(webCmd)
	rootCmd.AddCommand(listCmd)

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	viper.SetDefault("workers", runtime.NumCPU())
	viper.SetDefault("algo", "xxh3")
	viper.SetDefault("seed", 0)
	viper.SetDefault("secret_file", "")
	viper.SetDefault("s3.endpoint", "")
	viper.SetDefault("s3.access_key", "")
	viper.SetDefault("s3.secret_key", "")
	viper.SetDefault("s3.region", "")
	viper.SetDefault("s3.secure", true)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"
	"image"
	"os"

	"image-compressor-go/internal/batch"
	"image-compressor-go/internal/config"
	"image-compressor-go/internal/logger"
	"image-compressor-go/internal/sniff"
	"image-compressor-go/internal/statistics"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	_ "image/jpeg"
	_ "image/png"
)

var (
	cfgFile      string
	fileList     string
	outputDir    string
	quality      float64
	minSizeBytes int64
	minWidth     int
	minHeight    int
	targetSize   int64
	cacheDBPath  string
	timeoutHours int64
	workers      int
	verbose      bool
	quiet        bool
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "image-compressor",
	Short: "Batch-compress JPG/PNG images to size and dimension targets",
	Long: `image-compressor reads a list of image paths and compresses each file
to meet a per-file target: a maximum byte size for JPG (searched over
scale and quality) and a maximum dimension for PNG.

Features:
- Adaptive JPG search: binary search over quality, geometric scale fallback
- Learned-parameter cache keyed by image similarity, persisted in SQLite
- Fixed-size worker pool with per-file failure isolation
- Memory-bounded decoding of very large sources via subsampling
- Aggregate report with per-outcome counts and bytes saved`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCompress(args)
	},
}

// inspectCmd prints what the tool knows about a single file.
var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Show sniffed format, dimensions and EXIF date of a file",
	Long: `Inspects a single file: prints the format detected from its header
bytes (independent of extension), its probed dimensions, its size, and
the EXIF capture date if present. Useful for debugging skipped files.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInspect(args[0])
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress non-error output")

	rootCmd.Flags().StringVar(&fileList, "list", "", "text file with one image path per line")
	rootCmd.Flags().StringVar(&outputDir, "output", "", "directory for compressed files")
	rootCmd.Flags().Float64Var(&quality, "quality", 0, "upper bound of the JPG quality search (0-1]")
	rootCmd.Flags().Int64Var(&minSizeBytes, "min-size", 0, "skip files at or below this many bytes")
	rootCmd.Flags().IntVar(&minWidth, "min-width", 0, "skip images not wider than this")
	rootCmd.Flags().IntVar(&minHeight, "min-height", 0, "skip images not taller than this")
	rootCmd.Flags().Int64Var(&targetSize, "target-size", 0, "maximum byte size for compressed JPGs")
	rootCmd.Flags().StringVar(&cacheDBPath, "cache", "", "path of the learned-parameter cache database")
	rootCmd.Flags().Int64Var(&timeoutHours, "timeout-hours", 0, "abort outstanding work after this many hours")
	rootCmd.Flags().IntVar(&workers, "workers", 0, "worker count (default: one per CPU)")

	rootCmd.AddCommand(inspectCmd)
}

// initConfig loads configuration file and environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.image-compressor")
		viper.AddConfigPath("/etc/image-compressor")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// runCompress executes the batch compression run.
func runCompress(args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := setupLogger(cfg)
	stats := statistics.NewStatistics()
	engine := batch.NewEngine(cfg, log, stats)

	if err := engine.Run(context.Background()); err != nil {
		return fmt.Errorf("batch failed: %w", err)
	}

	if !quiet {
		fmt.Println("\n" + stats.GetSummary())
	}

	// A timed-out batch still reports partial results and exits 0.
	return nil
}

// runInspect prints format, dimensions, size, and EXIF date of a file.
func runInspect(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("file does not exist: %s", path)
	}

	format := sniff.DetectFile(path)
	fmt.Printf("File:   %s\n", path)
	fmt.Printf("Size:   %d bytes\n", info.Size())
	fmt.Printf("Format: %s (from header bytes)\n", format)

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if cfg, _, err := image.DecodeConfig(f); err == nil {
		fmt.Printf("Pixels: %dx%d\n", cfg.Width, cfg.Height)
	} else {
		fmt.Println("Pixels: not decodable")
	}

	if format == sniff.JPEG {
		if _, err := f.Seek(0, 0); err == nil {
			if x, err := exif.Decode(f); err == nil {
				if date, err := x.DateTime(); err == nil {
					fmt.Printf("Taken:  %s\n", date.Format("2006-01-02 15:04:05"))
				}
			}
		}
	}

	return nil
}

// loadConfig loads configuration and applies CLI overrides.
func loadConfig(args []string) (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}

	if fileList != "" {
		cfg.FileListPath = fileList
	}
	if cfg.FileListPath == "" && len(args) > 0 {
		cfg.FileListPath = args[0]
	}
	if outputDir != "" {
		cfg.OutputDirectory = outputDir
	}
	if quality > 0 {
		cfg.Compression.Quality = quality
	}
	if minSizeBytes > 0 {
		cfg.Compression.MinSizeBytes = minSizeBytes
	}
	if minWidth > 0 {
		cfg.Compression.MinWidth = minWidth
	}
	if minHeight > 0 {
		cfg.Compression.MinHeight = minHeight
	}
	if targetSize > 0 {
		cfg.Compression.TargetMaxSizeBytes = targetSize
	}
	if cacheDBPath != "" {
		cfg.Cache.DBPath = cacheDBPath
	}
	if timeoutHours > 0 {
		cfg.Performance.TimeoutHours = timeoutHours
	}
	if workers > 0 {
		cfg.Performance.Workers = workers
	}

	if cfg.FileListPath == "" {
		return nil, fmt.Errorf("no file list given (use --list or a positional argument)")
	}
	if !fileExists(cfg.FileListPath) {
		return nil, fmt.Errorf("file list does not exist: %s", cfg.FileListPath)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setupLogger configures and returns a logger.
func setupLogger(cfg *config.Config) *logrus.Logger {
	loggerCfg := logger.LoggerConfig{
		Level:      cfg.Logging.Level,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
		Console:    !quiet,
	}

	if verbose {
		loggerCfg.Level = "debug"
	}
	if quiet {
		loggerCfg.Level = "error"
	}

	log, err := logger.NewLogger(loggerCfg)
	if err != nil {
		log = logrus.New()
		log.SetLevel(logrus.InfoLevel)
	}

	return log
}

// fileExists returns true if the given path exists and is a file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

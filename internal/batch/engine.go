// Package batch drives a compression run: it streams the path list,
// fans the files out over a fixed worker pool, aggregates outcomes, and
// owns the learned-parameter cache lifecycle (open, load, flush, close).
package batch

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"image-compressor-go/internal/cache"
	"image-compressor-go/internal/compress"
	"image-compressor-go/internal/config"
	"image-compressor-go/internal/statistics"
)

// Engine runs one batch over a file list.
type Engine struct {
	config    *config.Config
	logger    *logrus.Logger
	stats     *statistics.Statistics
	processor *compress.Processor
}

// NewEngine returns an Engine wired to the given configuration.
func NewEngine(cfg *config.Config, logger *logrus.Logger, stats *statistics.Statistics) *Engine {
	return &Engine{
		config:    cfg,
		logger:    logger,
		stats:     stats,
		processor: compress.NewProcessor(cfg.CompressionParams(), logger),
	}
}

// Run processes every path in the configured file list. It returns an
// error only for setup problems (missing list, unwritable output dir);
// per-file failures and even a global timeout are absorbed into the
// aggregate statistics so the run always produces a report and a cache
// flush of whatever was learned.
func (e *Engine) Run(ctx context.Context) error {
	if err := os.MkdirAll(e.config.OutputDirectory, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	store, paramCache := e.openCache()
	if store != nil {
		defer store.Close()
	}

	timeout := time.Duration(e.config.Performance.TimeoutHours) * time.Hour
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	workers := e.config.Performance.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	e.logger.Infof("Starting batch with %d workers, timeout %v", workers, timeout)

	jobs := make(chan string, workers*4)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for path := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				report := e.processor.ProcessImage(path, e.config.OutputDirectory, paramCache)
				e.stats.Record(report)
			}
		}()
	}

	enqueueErr := e.enqueuePaths(ctx, jobs)
	close(jobs)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("All tasks completed")
	case <-ctx.Done():
		e.logger.Warn("Batch timed out with tasks outstanding, reporting partial results")
	}

	e.stats.Finalize()
	e.flushCache(store, paramCache)

	if enqueueErr != nil {
		return enqueueErr
	}
	return nil
}

// enqueuePaths streams the list file line by line, so the driver never
// materializes the whole list. Each pending task holds only a path
// string; decode-time memory is bounded per task by the decoder.
func (e *Engine) enqueuePaths(ctx context.Context, jobs chan<- string) error {
	f, err := os.Open(e.config.FileListPath)
	if err != nil {
		return fmt.Errorf("open file list %s: %w", e.config.FileListPath, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		path := strings.TrimSpace(scanner.Text())
		if path == "" {
			continue
		}
		e.stats.IncrementTotalFiles()
		select {
		case jobs <- path:
		case <-ctx.Done():
			e.logger.Warn("Timeout while submitting tasks, remaining paths dropped")
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read file list %s: %w", e.config.FileListPath, err)
	}
	return nil
}

// openCache opens the durable store and loads it into memory. Durable
// failures degrade to an empty in-memory cache; the batch's deliverable
// is compressed images, not the cache.
func (e *Engine) openCache() (*cache.Store, *cache.ParamCache) {
	store, err := cache.OpenStore(e.config.Cache.DBPath, e.logger)
	if err != nil {
		e.logger.WithError(err).Warn("Cannot open learned-parameter store, running with empty cache")
		return nil, cache.NewParamCache()
	}
	return store, store.LoadAll()
}

// flushCache merges the in-memory snapshot back into durable storage.
// A snapshot is taken first: workers stranded by a timeout may still be
// writing to the live map.
func (e *Engine) flushCache(store *cache.Store, paramCache *cache.ParamCache) {
	e.logger.Infof("Learned-parameter cache holds %d entries", paramCache.Len())
	if store == nil {
		return
	}
	if err := store.FlushAll(paramCache.Snapshot()); err != nil {
		e.logger.WithError(err).Error("Failed to flush learned-parameter cache")
	}
}

package batch

import (
	"context"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-compressor-go/internal/cache"
	"image-compressor-go/internal/compress"
	"image-compressor-go/internal/config"
	"image-compressor-go/internal/statistics"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.OutputDirectory = filepath.Join(dir, "out")
	cfg.Cache.DBPath = filepath.Join(dir, "cache.db")
	cfg.Compression = config.CompressionConfig{
		Quality:            0.9,
		MinSizeBytes:       1024,
		MinWidth:           100,
		MinHeight:          100,
		TargetMaxSizeBytes: 60 * 1024,
	}
	cfg.Performance.Workers = 2
	cfg.Performance.TimeoutHours = 1
	return cfg
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func writeFileList(t *testing.T, paths ...string) string {
	t.Helper()
	listPath := filepath.Join(t.TempDir(), "files.txt")
	require.NoError(t, os.WriteFile(listPath, []byte(strings.Join(paths, "\n")+"\n"), 0644))
	return listPath
}

func noiseImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	seed := uint32(99)
	for i := 0; i < len(img.Pix); i += 4 {
		seed ^= seed << 13
		seed ^= seed >> 17
		seed ^= seed << 5
		img.Pix[i] = uint8(seed)
		img.Pix[i+1] = uint8(seed >> 8)
		img.Pix[i+2] = uint8(seed >> 16)
		img.Pix[i+3] = 0xff
	}
	return img
}

func writeJPEG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, jpeg.Encode(f, noiseImage(w, h), &jpeg.Options{Quality: 95}))
	return path
}

func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, noiseImage(w, h)))
	return path
}

func TestRunEndToEnd(t *testing.T) {
	srcDir := t.TempDir()
	bigJPEG := writeJPEG(t, srcDir, "big.jpg", 800, 600)
	smallPNG := writePNG(t, srcDir, "small.png", 50, 50)
	missing := filepath.Join(srcDir, "gone.jpg")

	cfg := testConfig(t)
	cfg.FileListPath = writeFileList(t, bigJPEG, smallPNG, missing)

	stats := statistics.NewStatistics()
	engine := NewEngine(cfg, testLogger(), stats)
	require.NoError(t, engine.Run(context.Background()))

	assert.Equal(t, int64(3), stats.TotalFiles)
	assert.Equal(t, int64(1), stats.SuccessCount())
	assert.Equal(t, int64(1), stats.Count(compress.SkippedConditionNotMet))
	assert.Equal(t, int64(1), stats.Count(compress.SkippedNotFound))
	assert.Equal(t, int64(0), stats.FailedCount())

	// The JPG was written under the target cap; the small PNG was not.
	info, err := os.Stat(filepath.Join(cfg.OutputDirectory, "big.jpg"))
	require.NoError(t, err)
	assert.LessOrEqual(t, info.Size(), cfg.Compression.TargetMaxSizeBytes)

	_, err = os.Stat(filepath.Join(cfg.OutputDirectory, "small.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunFlushesLearnedParameters(t *testing.T) {
	srcDir := t.TempDir()
	jpgPath := writeJPEG(t, srcDir, "photo.jpg", 800, 600)

	cfg := testConfig(t)
	cfg.FileListPath = writeFileList(t, jpgPath)

	stats := statistics.NewStatistics()
	require.NoError(t, NewEngine(cfg, testLogger(), stats).Run(context.Background()))
	require.Equal(t, int64(1), stats.SuccessCount())

	// The run flushed what it learned; a fresh store sees it.
	store, err := cache.OpenStore(cfg.Cache.DBPath, testLogger())
	require.NoError(t, err)
	defer store.Close()
	assert.Greater(t, store.LoadAll().Len(), 0)
}

func TestRunSkipsBlankLines(t *testing.T) {
	srcDir := t.TempDir()
	jpgPath := writeJPEG(t, srcDir, "photo.jpg", 800, 600)

	listPath := filepath.Join(t.TempDir(), "files.txt")
	require.NoError(t, os.WriteFile(listPath, []byte("\n"+jpgPath+"\n\n   \n"), 0644))

	cfg := testConfig(t)
	cfg.FileListPath = listPath

	stats := statistics.NewStatistics()
	require.NoError(t, NewEngine(cfg, testLogger(), stats).Run(context.Background()))
	assert.Equal(t, int64(1), stats.TotalFiles)
}

func TestRunMissingFileList(t *testing.T) {
	cfg := testConfig(t)
	cfg.FileListPath = filepath.Join(t.TempDir(), "nope.txt")

	err := NewEngine(cfg, testLogger(), statistics.NewStatistics()).Run(context.Background())
	assert.Error(t, err)
}

func TestRunUnopenableCacheStillCompresses(t *testing.T) {
	srcDir := t.TempDir()
	jpgPath := writeJPEG(t, srcDir, "photo.jpg", 800, 600)

	cfg := testConfig(t)
	cfg.FileListPath = writeFileList(t, jpgPath)
	// Pointing the store at a directory makes it unopenable.
	cfg.Cache.DBPath = t.TempDir()

	stats := statistics.NewStatistics()
	require.NoError(t, NewEngine(cfg, testLogger(), stats).Run(context.Background()))
	assert.Equal(t, int64(1), stats.SuccessCount())
}

func TestRunCancelledContext(t *testing.T) {
	srcDir := t.TempDir()
	var paths []string
	for i := 0; i < 3; i++ {
		paths = append(paths, writeJPEG(t, srcDir, "p"+string(rune('a'+i))+".jpg", 400, 300))
	}

	cfg := testConfig(t)
	cfg.FileListPath = writeFileList(t, paths...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats := statistics.NewStatistics()
	// A dead context is absorbed like a timeout: no error, partial stats.
	require.NoError(t, NewEngine(cfg, testLogger(), stats).Run(ctx))
	assert.Equal(t, int64(0), stats.SuccessCount())
}

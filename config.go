package filetable

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/filetable/source"
)

// DefaultBatchSize is the number of rows per record batch when Config.BatchSize is 0.
const DefaultBatchSize = 1024

// Config configures the file table functions and mapping tables.
// The zero Config is valid.
type Config struct {
	// Logger for internal logging.
	// OPTIONAL: Uses slog.Default() if nil.
	// If LogLevel is set and Logger is nil, a text logger at that level is created.
	Logger *slog.Logger

	// LogLevel sets the logging level of the created logger.
	// OPTIONAL: Ignored when Logger is provided.
	LogLevel *slog.Level

	// Allocator for Arrow memory management.
	// OPTIONAL: Uses memory.DefaultAllocator if nil.
	Allocator memory.Allocator

	// Opener opens scans over file sources.
	// OPTIONAL: Uses source.LocalOpener if nil.
	Opener source.Opener

	// BatchSize is the default number of rows per record batch.
	// OPTIONAL: Uses DefaultBatchSize if 0. MUST NOT be negative.
	BatchSize int
}

// Standard errors returned by the filetable package.
var (
	// ErrInvalidConfig indicates Config validation failed.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrAlreadyInitialized is returned by a second InitFunctionTable call.
	ErrAlreadyInitialized = errors.New("function table already initialized")

	// ErrNotInitialized is returned by Functions before InitFunctionTable.
	ErrNotInitialized = errors.New("function table not initialized")
)

// validateConfig checks the Config fields that have no usable default.
func validateConfig(cfg Config) error {
	if cfg.BatchSize < 0 {
		return fmt.Errorf("batch size must not be negative, got %d", cfg.BatchSize)
	}
	return nil
}

// settings is a validated Config with defaults applied.
type settings struct {
	logger    *slog.Logger
	allocator memory.Allocator
	opener    source.Opener
	batchSize int
}

func newSettings(cfg Config) (settings, error) {
	if err := validateConfig(cfg); err != nil {
		return settings{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
		if cfg.LogLevel != nil {
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: *cfg.LogLevel}))
		}
	}

	allocator := cfg.Allocator
	if allocator == nil {
		allocator = memory.DefaultAllocator
	}

	opener := cfg.Opener
	if opener == nil {
		opener = source.NewLocalOpener(logger)
	}

	batchSize := cfg.BatchSize
	if batchSize == 0 {
		batchSize = DefaultBatchSize
	}

	return settings{
		logger:    logger,
		allocator: allocator,
		opener:    opener,
		batchSize: batchSize,
	}, nil
}

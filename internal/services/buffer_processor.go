package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/ava/domain"
	"github.com/fastygo/ava/internal/infrastructure/buffer"
	"github.com/fastygo/ava/repository"
)

// ErrBufferFull is returned when the buffer already holds MaxSize items.
var ErrBufferFull = errors.New("buffer is full")

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// ProcessorConfig controls draining and retention of the buffer.
type ProcessorConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
	MaxSize    int
	Retention  time.Duration
	// CleanupSpec is a cron spec for the retention sweep.
	CleanupSpec string
}

// BufferProcessor replays buffered profile and society updates against Postgres.
type BufferProcessor struct {
	store     *buffer.Store
	monitor   ConnectionHealth
	profiles  repository.ProfileRepository
	societies repository.SocietyRepository
	logger    *zap.Logger
	cron      *cron.Cron
	cfg       ProcessorConfig
}

func NewBufferProcessor(
	store *buffer.Store,
	monitor ConnectionHealth,
	profiles repository.ProfileRepository,
	societies repository.SocietyRepository,
	logger *zap.Logger,
	cfg ProcessorConfig,
) (*BufferProcessor, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	if cfg.CleanupSpec == "" {
		cfg.CleanupSpec = "0 0 * * * *"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	bp := &BufferProcessor{
		store:     store,
		monitor:   monitor,
		profiles:  profiles,
		societies: societies,
		logger:    logger,
		cfg:       cfg,
		cron:      cron.New(cron.WithSeconds()),
	}

	drainSpec := fmt.Sprintf("@every %s", cfg.Interval)
	if _, err := bp.cron.AddFunc(drainSpec, bp.runDrain); err != nil {
		return nil, fmt.Errorf("schedule buffer drain: %w", err)
	}
	if _, err := bp.cron.AddFunc(cfg.CleanupSpec, bp.runCleanup); err != nil {
		return nil, fmt.Errorf("schedule buffer cleanup: %w", err)
	}
	return bp, nil
}

func (bp *BufferProcessor) runDrain() {
	ctx, cancel := context.WithTimeout(context.Background(), bp.cfg.Interval)
	defer cancel()
	if err := bp.Drain(ctx); err != nil {
		bp.logger.Error("buffer drain failed", zap.Error(err))
	}
}

func (bp *BufferProcessor) runCleanup() {
	removed, err := bp.Cleanup(time.Now())
	if err != nil {
		bp.logger.Error("buffer cleanup failed", zap.Error(err))
		return
	}
	if removed > 0 {
		bp.logger.Warn("expired buffered writes dropped", zap.Int("count", removed))
	}
}

// Start launches the cron scheduler.
func (bp *BufferProcessor) Start() {
	if bp == nil || bp.cron == nil {
		return
	}
	bp.cron.Start()
	bp.logger.Info("buffer processor started", zap.Duration("interval", bp.cfg.Interval))
}

// Stop waits for running jobs or for ctx, whichever ends first.
func (bp *BufferProcessor) Stop(ctx context.Context) {
	if bp == nil || bp.cron == nil {
		return
	}
	stopCtx := bp.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	bp.logger.Info("buffer processor stopped")
}

// Drain replays one batch. Failed items go to the back of the queue until
// they run out of retries.
func (bp *BufferProcessor) Drain(ctx context.Context) error {
	if bp == nil || bp.store == nil {
		return nil
	}
	if bp.monitor != nil && !bp.monitor.IsOnline() {
		bp.logger.Debug("skipping buffer drain (offline)")
		return nil
	}

	items, err := bp.store.Peek(bp.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, item := range items {
		if err := bp.apply(ctx, item); err != nil {
			item.Retries++
			logger := bp.logger.With(
				zap.String("item_id", item.ID),
				zap.String("entity", item.Entity),
				zap.Int("retries", item.Retries),
				zap.Error(err))

			if item.Retries >= bp.cfg.MaxRetries || isPermanent(err) {
				logger.Warn("dropping buffered write")
				if err := bp.store.Remove(item); err != nil {
					logger.Error("failed to remove buffered write", zap.NamedError("remove_error", err))
				}
				continue
			}
			logger.Info("buffered write failed, requeueing")
			if err := bp.store.Requeue(item); err != nil {
				logger.Error("failed to requeue buffered write", zap.NamedError("requeue_error", err))
			}
			continue
		}

		if err := bp.store.Remove(item); err != nil {
			bp.logger.Warn("failed to purge replayed write", zap.String("item_id", item.ID), zap.Error(err))
		}
	}
	return nil
}

// Cleanup drops items older than the retention window.
func (bp *BufferProcessor) Cleanup(now time.Time) (int, error) {
	if bp == nil || bp.store == nil {
		return 0, nil
	}
	return bp.store.Cleanup(now.Add(-bp.cfg.Retention))
}

// BufferOperation stores item for later replay.
func (bp *BufferProcessor) BufferOperation(_ context.Context, item buffer.Item) error {
	if bp == nil || bp.store == nil {
		return errors.New("buffer processor not configured")
	}
	if bp.cfg.MaxSize > 0 {
		size, err := bp.store.Size()
		if err != nil {
			return err
		}
		if size >= bp.cfg.MaxSize {
			return ErrBufferFull
		}
	}
	return bp.store.Enqueue(item)
}

// Size returns the number of buffered items.
func (bp *BufferProcessor) Size() int {
	if bp == nil || bp.store == nil {
		return 0
	}
	size, err := bp.store.Size()
	if err != nil {
		return 0
	}
	return size
}

func (bp *BufferProcessor) apply(ctx context.Context, item buffer.Item) error {
	if item.Operation != buffer.OperationUpdate {
		return fmt.Errorf("%w: operation %q", errUnsupported, item.Operation)
	}

	switch item.Entity {
	case buffer.EntityProfile:
		var profile domain.UserProfile
		if err := json.Unmarshal(item.Data, &profile); err != nil {
			return fmt.Errorf("%w: %v", errUnsupported, err)
		}
		return bp.profiles.Update(ctx, &profile)

	case buffer.EntitySociety:
		var society domain.Society
		if err := json.Unmarshal(item.Data, &society); err != nil {
			return fmt.Errorf("%w: %v", errUnsupported, err)
		}
		return bp.societies.Update(ctx, &society)

	default:
		return fmt.Errorf("%w: entity %q", errUnsupported, item.Entity)
	}
}

var errUnsupported = errors.New("unsupported buffer item")

// isPermanent reports failures that a retry cannot fix.
func isPermanent(err error) bool {
	return errors.Is(err, errUnsupported) || domain.IsDomainError(err, domain.ErrCodeNotFound)
}

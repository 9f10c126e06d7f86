package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/todolist/domain"
	"github.com/fastygo/todolist/internal/infrastructure/buffer"
	"github.com/fastygo/todolist/repository"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// ProcessorConfig controls how frequently the buffer is drained.
type ProcessorConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
	Retention  time.Duration
}

// ActivityProcessor moves buffered task events into the activity log.
type ActivityProcessor struct {
	store   *buffer.Store
	monitor ConnectionHealth
	events  repository.EventRepository
	logger  *zap.Logger
	cron    *cron.Cron
	cfg     ProcessorConfig
}

func NewActivityProcessor(
	store *buffer.Store,
	monitor ConnectionHealth,
	events repository.EventRepository,
	logger *zap.Logger,
	cfg ProcessorConfig,
) *ActivityProcessor {
	if cfg.Interval < time.Second {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 72 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &ActivityProcessor{
		store:   store,
		monitor: monitor,
		events:  events,
		logger:  logger,
		cfg:     cfg,
		cron:    cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = p.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := p.Drain(ctx); err != nil {
			p.logger.Error("activity drain failed", zap.Error(err))
		}
	})
	_, _ = p.cron.AddFunc("@hourly", func() {
		if _, err := p.Cleanup(time.Now()); err != nil {
			p.logger.Error("activity cleanup failed", zap.Error(err))
		}
	})

	return p
}

// Start launches the cron scheduler.
func (p *ActivityProcessor) Start() {
	if p == nil || p.cron == nil {
		return
	}
	p.cron.Start()
	p.logger.Info("activity processor started", zap.Duration("interval", p.cfg.Interval))
}

// Stop waits for running jobs or for ctx to expire.
func (p *ActivityProcessor) Stop(ctx context.Context) error {
	if p == nil || p.cron == nil {
		return nil
	}
	stopCtx := p.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	p.logger.Info("activity processor stopped")
	return nil
}

// Drain writes one batch of buffered events to the activity log.
// Failed items are requeued until MaxRetries, then dropped.
func (p *ActivityProcessor) Drain(ctx context.Context) error {
	if p == nil || p.store == nil {
		return nil
	}
	if p.monitor != nil && !p.monitor.IsOnline() {
		p.logger.Debug("skipping activity drain (storage offline)")
		return nil
	}

	items, err := p.store.GetBatch(p.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, item := range items {
		if err := p.processItem(ctx, item); err != nil {
			p.logger.Error("failed to process activity item",
				zap.String("item_id", item.ID),
				zap.String("kind", item.Kind),
				zap.Error(err))

			item.Retries++
			if item.Retries >= p.cfg.MaxRetries {
				p.logger.Warn("dropping activity item (max retries reached)", zap.String("item_id", item.ID))
				if err := p.store.Remove(item); err != nil {
					p.logger.Warn("failed to remove activity item", zap.Error(err))
				}
				continue
			}
			if err := p.store.Requeue(item); err != nil {
				p.logger.Error("failed to requeue activity item", zap.Error(err))
			}
			continue
		}

		if err := p.store.Remove(item); err != nil {
			p.logger.Warn("failed to purge processed activity item", zap.Error(err))
		}
	}
	return nil
}

// Cleanup drops buffered items older than the retention window.
func (p *ActivityProcessor) Cleanup(now time.Time) (int, error) {
	if p == nil || p.store == nil {
		return 0, nil
	}
	removed, err := p.store.Cleanup(now.Add(-p.cfg.Retention))
	if removed > 0 {
		p.logger.Warn("expired buffered activity", zap.Int("removed", removed))
	}
	return removed, err
}

// Submit tries to write items immediately and buffers whatever could not be written.
func (p *ActivityProcessor) Submit(ctx context.Context, items []buffer.Item) error {
	if p == nil || p.store == nil {
		return errors.New("activity processor not configured")
	}

	pending := items
	if p.monitor == nil || p.monitor.IsOnline() {
		pending = pending[:0:0]
		for _, item := range items {
			if err := p.processItem(ctx, item); err != nil {
				p.logger.Warn("immediate activity write failed, buffering",
					zap.String("item_id", item.ID), zap.Error(err))
				pending = append(pending, item)
			}
		}
	}
	if len(pending) == 0 {
		return nil
	}
	return p.store.EnqueueAll(pending)
}

// Size returns the number of buffered items.
func (p *ActivityProcessor) Size() int {
	if p == nil || p.store == nil {
		return 0
	}
	size, err := p.store.Size()
	if err != nil {
		return 0
	}
	return size
}

func (p *ActivityProcessor) processItem(ctx context.Context, item buffer.Item) error {
	switch item.Kind {
	case buffer.KindTaskEvent:
		var event domain.TaskEvent
		if err := json.Unmarshal(item.Data, &event); err != nil {
			return err
		}
		if event.ID == "" {
			event.ID = item.ID
		}
		return p.events.Append(ctx, &event)
	default:
		return fmt.Errorf("unsupported activity kind %q", item.Kind)
	}
}

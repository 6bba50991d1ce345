package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"finboard/internal/amqp"
	"finboard/internal/log"
)

// Reloader reloads the dataset from its backend.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Consumer delivers dataset-changed notifications.
type Consumer interface {
	ConsumeDatasetChanged(ctx context.Context, handler amqp.Handler) error
}

// RefreshWorker reloads the timeline when a dataset-changed message arrives
// and on a fixed interval as a backup for lost messages.
type RefreshWorker struct {
	reloader Reloader
	consumer Consumer
	interval time.Duration
	logger   *log.Logger
}

// NewRefreshWorker creates a worker. A nil consumer disables messaging and a
// zero interval disables periodic reloads.
func NewRefreshWorker(reloader Reloader, consumer Consumer, interval time.Duration, logger *log.Logger) *RefreshWorker {
	if logger == nil {
		logger = log.Nop()
	}
	return &RefreshWorker{
		reloader: reloader,
		consumer: consumer,
		interval: interval,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleDatasetChanged processes a single dataset-changed message.
func (w *RefreshWorker) HandleDatasetChanged(ctx context.Context, msg *amqp.DatasetChangedMessage) error {
	w.logger.InfoContext(ctx, "Processing dataset changed message",
		"source", msg.Source,
		log.FieldTransactions, msg.Transactions,
		"published_at", msg.Timestamp)
	return w.reloader.Reload(ctx)
}

// Run blocks until ctx is cancelled.
func (w *RefreshWorker) Run(ctx context.Context) error {
	if w.consumer == nil && w.interval <= 0 {
		w.logger.InfoContext(ctx, "Refresh worker idle: no AMQP consumer and periodic refresh disabled")
		<-ctx.Done()
		return nil
	}

	var wg sync.WaitGroup
	if w.consumer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := w.consumer.ConsumeDatasetChanged(ctx, w.HandleDatasetChanged)
			if err != nil && !errors.Is(err, context.Canceled) {
				w.logger.ErrorContext(ctx, "Message consumption failed", log.FieldError, err)
			}
		}()
	}

	if w.interval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.periodic(ctx)
		}()
	}

	wg.Wait()
	return nil
}

func (w *RefreshWorker) periodic(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.InfoContext(ctx, "Periodic refresh started", "interval", w.interval.String())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.reloader.Reload(ctx); err != nil && ctx.Err() == nil {
				w.logger.ErrorContext(ctx, "Periodic refresh failed", log.FieldError, err)
			}
		}
	}
}

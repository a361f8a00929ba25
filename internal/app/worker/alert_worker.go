package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"job_alert_service/internal/app/service"
	"job_alert_service/internal/platform/logger"
)

// AlertWorker runs delta batches through the alert pipeline in the
// background so the webhook can answer immediately.
type AlertWorker struct {
	pipeline service.Processor
	queue    chan []string
	workers  int
	log      *zap.SugaredLogger
	wg       sync.WaitGroup
}

func NewAlertWorker(pipeline service.Processor, workers, queueSize int, log *zap.SugaredLogger) *AlertWorker {
	if workers < 1 {
		workers = 1
	}
	return &AlertWorker{
		pipeline: pipeline,
		queue:    make(chan []string, queueSize),
		workers:  workers,
		log:      log,
	}
}

// Submit queues a batch without blocking. It returns false when the queue is
// full and the batch was dropped; the next scan picks those jobs up.
func (w *AlertWorker) Submit(uris []string) bool {
	select {
	case w.queue <- uris:
		return true
	default:
		w.log.Warnw("Alert queue full, dropping delta batch", logger.FieldJobs, uris)
		return false
	}
}

// Start launches the worker goroutines. They stop once ctx is cancelled;
// batches still queued at that point are not processed.
func (w *AlertWorker) Start(ctx context.Context) {
	w.log.Infow("Alert worker started", "workers", w.workers, "queue_size", cap(w.queue))
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx)
	}
}

// Wait blocks until every worker goroutine has returned.
func (w *AlertWorker) Wait() {
	w.wg.Wait()
	w.log.Info("Alert worker stopped")
}

func (w *AlertWorker) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case uris := <-w.queue:
			w.process(ctx, uris)
		}
	}
}

func (w *AlertWorker) process(ctx context.Context, uris []string) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Errorw("Recovered from panic while processing delta batch", logger.FieldJobs, uris, "panic", r)
		}
	}()
	summary := w.pipeline.Process(ctx, uris)
	w.log.Infow("Processed delta batch",
		"requested", summary.Requested,
		"created", summary.Created,
		"existing", summary.Existing,
		"failed", summary.Failed,
	)
}

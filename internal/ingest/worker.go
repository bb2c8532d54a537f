package ingest

import (
	"context"
	"fmt"

	"github.com/yungbote/textdigest-backend/internal/logger"
	"github.com/yungbote/textdigest-backend/internal/repos"
)

// Worker is the pipeline coordinator: a long-lived consumer loop that pulls
// one job message at a time, dispatches it to the stage handler, and acks
// only on success. Failed deliveries are left to reappear after the queue's
// visibility timeout; once a message has been delivered more than
// maxAttempts times the document is moved to the error status and the
// message is dropped.
type Worker struct {
	log         *logger.Logger
	queue       Queue
	registry    *Registry
	docs        repos.DocumentRepo
	maxAttempts int
}

func NewWorker(baseLog *logger.Logger, queue Queue, registry *Registry, docs repos.DocumentRepo, maxAttempts int) *Worker {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Worker{
		log:         baseLog.With("component", "IngestWorker"),
		queue:       queue,
		registry:    registry,
		docs:        docs,
		maxAttempts: maxAttempts,
	}
}

func (w *Worker) Start(ctx context.Context) {
	go func() {
		w.log.Info("Ingest worker started")
		for {
			select {
			case <-ctx.Done():
				w.log.Info("Ingest worker stopped")
				return
			default:
			}
			if err := w.runOnce(ctx); err != nil {
				w.log.Warn("Receive failed", "error", err)
			}
		}
	}()
}

// runOnce performs a single receive/dispatch cycle. Start drives it in a
// loop; tests call it directly.
func (w *Worker) runOnce(ctx context.Context) error {
	delivery, err := w.queue.Receive(ctx)
	if err != nil {
		return err
	}
	if delivery == nil {
		return nil
	}

	msg, err := DecodeJobMessage(delivery.Body)
	if err != nil {
		// A payload that cannot be decoded will never succeed; drop it.
		w.log.Error("Dropping undecodable job message", "error", err)
		return w.queue.Ack(ctx, delivery)
	}

	log := w.log.With("stage", string(msg.Stage), "doc_id", msg.DocID, "attempt", delivery.Attempts)

	if delivery.Attempts > w.maxAttempts {
		log.Error("Job exceeded max delivery attempts, marking document as errored")
		if err := w.docs.MarkError(ctx, nil, msg.DocUUID(), fmt.Sprintf("stage %s failed after %d attempts", msg.Stage, w.maxAttempts)); err != nil {
			log.Error("Failed to mark document as errored", "error", err)
		}
		return w.queue.Ack(ctx, delivery)
	}

	h, ok := w.registry.Get(msg.Stage)
	if !ok {
		log.Error("No handler registered for stage")
		return w.queue.Ack(ctx, delivery)
	}

	runErr := w.runHandler(ctx, h, msg)
	if runErr == nil {
		log.Info("Stage complete")
		return w.queue.Ack(ctx, delivery)
	}

	if IsFatal(runErr) {
		log.Error("Stage failed fatally", "error", runErr)
		if err := w.docs.MarkError(ctx, nil, msg.DocUUID(), runErr.Error()); err != nil {
			log.Error("Failed to mark document as errored", "error", err)
		}
		return w.queue.Ack(ctx, delivery)
	}

	// Transient failure: leave the message unacked so the visibility timeout
	// redelivers it. The document stays at its last committed status.
	log.Warn("Stage failed, leaving message for redelivery", "error", runErr)
	return nil
}

func (w *Worker) runHandler(ctx context.Context, h Handler, msg JobMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stage panic: %v", r)
		}
	}()
	return h.Run(ctx, msg)
}

package ingest

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/redcorridor/intel-cli/internal/model"
)

// ErrQueueFull is returned by Enqueue when the worker cannot accept more
// reports right now.
var ErrQueueFull = eris.New("ingest: queue full")

// Worker serializes ingestion behind a queue so the HTTP surface can
// accept reports concurrently while the store keeps a single writer.
type Worker struct {
	pipeline *Pipeline
	jobs     chan *model.ExtractionRecord
	log      *zap.Logger
}

// NewWorker returns a worker with the given queue depth.
func NewWorker(p *Pipeline, depth int) *Worker {
	return &Worker{
		pipeline: p,
		jobs:     make(chan *model.ExtractionRecord, depth),
		log:      zap.L().With(zap.String("component", "ingest.worker")),
	}
}

// Enqueue hands a record to the worker without blocking.
func (w *Worker) Enqueue(rec *model.ExtractionRecord) error {
	select {
	case w.jobs <- rec:
		return nil
	default:
		return eris.Wrapf(ErrQueueFull, "report %s", rec.ReportID)
	}
}

// Run processes queued reports until the context is canceled. A failed
// report is logged and dropped; it stays in the archive for a later
// rebuild, so nothing is lost.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec := <-w.jobs:
			if _, err := w.pipeline.IngestRecord(ctx, rec); err != nil {
				w.log.Error("worker: ingest failed",
					zap.String("report_id", rec.ReportID),
					zap.Error(err))
			}
		}
	}
}

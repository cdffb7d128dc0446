package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"fuelpump/internal/dto"

	"github.com/rs/zerolog/log"
)

const (
	QueueShiftReport = "jobs:shift_report"

	JobShiftReport = "shift_report"
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts,omitempty"`
}

// JobHandler processes the payload of one job type. A returned error moves
// the job to the dead letter queue.
type JobHandler interface {
	Process(ctx context.Context, raw json.RawMessage) error
}

// Dispatcher enqueues async jobs. The worker pool dequeues them.
type Dispatcher struct {
	q Queue
}

func NewDispatcher(q Queue) *Dispatcher {
	return &Dispatcher{q: q}
}

// EnqueueShiftReport pushes a closed shift's report job.
func (d *Dispatcher) EnqueueShiftReport(ctx context.Context, payload dto.ShiftReportPayload) error {
	return d.enqueue(ctx, QueueShiftReport, JobShiftReport, payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return pushJob(ctx, d.q, queue, Job{Type: jobType, Payload: data})
}

func pushJob(ctx context.Context, q Queue, queue string, job Job) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.Push(ctx, queue, encoded)
}

// StartWorkerPool launches numWorkers goroutines consuming the job queues.
// Each goroutine blocks on Pop, so idle workers cost nothing. The returned
// WaitGroup is done once every worker has seen ctx cancelled.
func StartWorkerPool(ctx context.Context, q Queue, numWorkers int, handlers map[string]JobHandler) *sync.WaitGroup {
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runWorker(ctx, q, id, handlers)
		}(i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
	return &wg
}

func runWorker(ctx context.Context, q Queue, id int, handlers map[string]JobHandler) {
	queues := []string{QueueShiftReport}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// waits up to 5s then loops to check ctx
			queue, raw, err := q.Pop(ctx, 5*time.Second, queues...)
			if err != nil {
				if !errors.Is(err, ErrQueueEmpty) && ctx.Err() == nil {
					log.Warn().Err(err).Int("worker", id).Msg("worker: pop failed")
					time.Sleep(time.Second)
				}
				continue
			}
			processJob(ctx, q, handlers, queue, raw)
		}
	}
}

func processJob(ctx context.Context, q Queue, handlers map[string]JobHandler, queue string, raw []byte) {
	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		return
	}

	h, ok := handlers[job.Type]
	if !ok {
		SendToDLQ(ctx, q, queue, job.Type, job.Payload, "no handler for job type", job.Attempts)
		return
	}

	log.Debug().Str("type", job.Type).Str("queue", queue).Msg("processing job")
	if err := safeProcess(ctx, h, job.Payload); err != nil {
		SendToDLQ(ctx, q, queue, job.Type, job.Payload, err.Error(), job.Attempts+1)
	}
}

func safeProcess(ctx context.Context, h JobHandler, payload json.RawMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.Process(ctx, payload)
}

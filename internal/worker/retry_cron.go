package worker

// retry_cron.go
// Background goroutine that periodically replays dead-lettered jobs onto
// their original queue. Uses the delivery breaker so a downed SMTP relay is
// not hammered with replays.

import (
	"context"
	"encoding/json"
	"time"

	"fuelpump/internal/infra"

	"github.com/rs/zerolog/log"
)

const (
	retryTickInterval = 30 * time.Second
	retryBatchSize    = 10
	MaxJobAttempts    = 5
)

// RetryCronConfig holds all dependencies for the replay goroutine.
type RetryCronConfig struct {
	Queue    Queue
	Breaker  *infra.Breaker
	Queues   []string
	Interval time.Duration
}

// StartRetryCron launches a background goroutine that ticks every Interval
// (30s by default) and replays a batch of each DLQ. It respects the context
// for graceful shutdown.
func StartRetryCron(ctx context.Context, cfg RetryCronConfig) {
	if cfg.Interval <= 0 {
		cfg.Interval = retryTickInterval
	}
	if len(cfg.Queues) == 0 {
		cfg.Queues = []string{QueueShiftReport}
	}
	go func() {
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				processRetries(ctx, cfg)
			}
		}
	}()
}

func processRetries(ctx context.Context, cfg RetryCronConfig) int {
	if cfg.Breaker != nil && cfg.Breaker.State() == infra.BreakerOpen {
		log.Debug().Msg("retry_cron: breaker is open, skipping tick")
		return 0
	}

	replayed := 0
	for _, queue := range cfg.Queues {
		for i := 0; i < retryBatchSize; i++ {
			raw, ok, err := cfg.Queue.TryPop(ctx, DLQPrefix+queue)
			if err != nil {
				log.Error().Err(err).Str("queue", queue).Msg("retry_cron: failed to read DLQ")
				break
			}
			if !ok {
				break
			}

			var entry DLQEntry
			if err := json.Unmarshal(raw, &entry); err != nil {
				log.Error().Err(err).Str("queue", queue).Msg("retry_cron: dropping unreadable DLQ entry")
				continue
			}

			if entry.Attempts >= MaxJobAttempts {
				pushEntry(ctx, cfg.Queue, ParkedPrefix+queue, entry)
				log.Error().
					Str("queue", queue).
					Str("job_type", entry.JobType).
					Int("attempts", entry.Attempts).
					Msg("retry_cron: max attempts exceeded, job parked")
				continue
			}

			job := Job{Type: entry.JobType, Payload: entry.Payload, Attempts: entry.Attempts}
			if err := pushJob(ctx, cfg.Queue, entry.OriginalQueue, job); err != nil {
				log.Error().Err(err).Str("queue", queue).Msg("retry_cron: replay failed")
				pushEntry(ctx, cfg.Queue, DLQPrefix+queue, entry)
				break
			}
			replayed++
		}
	}
	if replayed > 0 {
		log.Info().Int("count", replayed).Msg("retry_cron: replayed dead-lettered jobs")
	}
	return replayed
}

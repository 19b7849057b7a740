package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"bancas/internal/infra"
	"bancas/internal/metrics"
	"bancas/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueuePagoEventos = "jobs:pago_eventos"

	JobPagoEvento = "pago_evento"

	// MaxJobAttempts counts the first try; a job failing this many times
	// goes to the dead letter queue.
	MaxJobAttempts = 3
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// Queue is the push side of a Redis list.
type Queue interface {
	Push(ctx context.Context, key string, data []byte) error
}

type RedisQueue struct{ rdb *redis.Client }

func NewRedisQueue(rdb *redis.Client) *RedisQueue { return &RedisQueue{rdb: rdb} }

func (q *RedisQueue) Push(ctx context.Context, key string, data []byte) error {
	return q.rdb.LPush(ctx, key, data).Err()
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	queue Queue
	cb    *infra.CircuitBreaker
}

// NewDispatcher publishes through cb so an unreachable Redis fails fast.
func NewDispatcher(queue Queue, cb *infra.CircuitBreaker) *Dispatcher {
	if cb == nil {
		cb = infra.NewCircuitBreaker(infra.DefaultBreakerConfig())
	}
	return &Dispatcher{queue: queue, cb: cb}
}

// PublishPagoEvento pushes an applied payment or reversal for auditing.
func (d *Dispatcher) PublishPagoEvento(ctx context.Context, evento model.EventoPago) error {
	return d.enqueue(ctx, QueuePagoEventos, JobPagoEvento, evento)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(Job{Type: jobType, Payload: data})
	if err != nil {
		return err
	}
	return d.cb.Execute(func() error {
		return d.queue.Push(ctx, queue, encoded)
	})
}

// JobHandler processes one payload. A returned error makes the job retry.
type JobHandler interface {
	Process(ctx context.Context, raw json.RawMessage) error
}

// WorkerHandlers maps job types to their handler.
type WorkerHandlers map[string]JobHandler

// StartWorkerPool launches numWorkers goroutines consuming the event queue.
// Each goroutine blocks on BRPOP, zero CPU when idle.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, handlers WorkerHandlers, numWorkers int) {
	q := NewRedisQueue(rdb)
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, q, handlers, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb *redis.Client, q Queue, handlers WorkerHandlers, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop: waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, QueuePagoEventos).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					log.Warn().Err(err).Int("worker", id).Msg("worker: BRPOP failed")
					time.Sleep(time.Second)
				}
				continue
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, q, handlers, result[0], result[1])
		}
	}
}

// processJob runs one raw job. Failed jobs are requeued with one more
// attempt until MaxJobAttempts, then parked in the DLQ.
func processJob(ctx context.Context, q Queue, handlers WorkerHandlers, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		SendToDLQ(ctx, q, queue, "unknown", json.RawMessage(raw), "malformed job: "+err.Error(), 0)
		return
	}

	h, ok := handlers[job.Type]
	if !ok {
		SendToDLQ(ctx, q, queue, job.Type, job.Payload, "no handler for job type", job.Attempts)
		return
	}

	err := h.Process(ctx, job.Payload)
	if err == nil {
		metrics.Jobs.WithLabelValues(job.Type, "ok").Inc()
		return
	}

	job.Attempts++
	if job.Attempts >= MaxJobAttempts || errors.Is(err, errPermanent) {
		SendToDLQ(ctx, q, queue, job.Type, job.Payload, err.Error(), job.Attempts)
		return
	}

	log.Warn().Err(err).
		Str("type", job.Type).
		Int("attempts", job.Attempts).
		Msg("worker: job failed, requeued")
	metrics.Jobs.WithLabelValues(job.Type, "retry").Inc()
	encoded, mErr := json.Marshal(job)
	if mErr == nil {
		mErr = q.Push(ctx, queue, encoded)
	}
	if mErr != nil {
		SendToDLQ(ctx, q, queue, job.Type, job.Payload, "requeue failed: "+mErr.Error(), job.Attempts)
	}
}

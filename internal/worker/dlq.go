package worker

// Dead letter list for jobs that ran out of attempts or can never succeed.
// One Redis list per source queue: dlq:{queue}. Entries are kept for manual
// replay; payment events parked here still have their ledger row committed.

import (
	"context"
	"encoding/json"
	"time"

	"bancas/internal/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DLQPrefix = "dlq:"

// DLQEntry is a parked job plus what is needed to trace it back to a ticket.
type DLQEntry struct {
	Queue    string          `json:"queue"`
	JobType  string          `json:"jobType"`
	TicketID string          `json:"ticketId,omitempty"`
	Payload  json.RawMessage `json:"payload"`
	Reason   string          `json:"reason"`
	Attempts int             `json:"attempts"`
	ParkedAt time.Time       `json:"parkedAt"`
}

// SendToDLQ parks a job. Failures to park are logged only: the worker has
// nothing better to do with the job at this point.
func SendToDLQ(ctx context.Context, q Queue, queue string, jobType string, payload json.RawMessage, reason string, attempts int) {
	entry := DLQEntry{
		Queue:    queue,
		JobType:  jobType,
		Payload:  payload,
		Reason:   reason,
		Attempts: attempts,
		ParkedAt: time.Now().UTC(),
	}
	if json.Valid(payload) {
		var ref struct {
			TicketID string `json:"ticketId"`
		}
		if json.Unmarshal(payload, &ref) == nil {
			entry.TicketID = ref.TicketID
		}
	} else {
		quoted, _ := json.Marshal(string(payload))
		entry.Payload = quoted
	}

	metrics.Jobs.WithLabelValues(jobType, "dlq").Inc()

	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: marshal entry")
		return
	}
	key := DLQPrefix + queue
	if err := q.Push(ctx, key, data); err != nil {
		log.Error().Err(err).Str("dlq_key", key).Str("ticket_id", entry.TicketID).Msg("dlq: push failed, job lost")
		return
	}

	log.Warn().
		Str("queue", queue).
		Str("job_type", jobType).
		Str("ticket_id", entry.TicketID).
		Str("reason", reason).
		Int("attempts", attempts).
		Msg("dlq: job parked")
}

// DLQLength is reported by /health.
func DLQLength(ctx context.Context, rdb *redis.Client, queue string) (int64, error) {
	return rdb.LLen(ctx, DLQPrefix+queue).Result()
}

package worker

// sorteo_cron.go
// Closes OPEN sorteos whose draw time has passed, on a cron schedule.

import (
	"context"
	"fmt"

	"bancas/internal/metrics"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// SorteoCloser is the slice of SorteoService the cron needs.
type SorteoCloser interface {
	CerrarVencidos(ctx context.Context) (int64, error)
}

// StartSorteoCron schedules the close job with a standard cron spec or a
// descriptor such as "@every 1m". It stops when ctx is cancelled.
func StartSorteoCron(ctx context.Context, spec string, closer SorteoCloser) (*cron.Cron, error) {
	logger := cronLogger{}
	c := cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	if _, err := c.AddFunc(spec, func() { closeDue(ctx, closer) }); err != nil {
		return nil, fmt.Errorf("sorteo_cron: schedule %q: %w", spec, err)
	}
	c.Start()
	log.Info().Str("schedule", spec).Msg("sorteo_cron: started")

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		log.Info().Msg("sorteo_cron: shutting down")
	}()
	return c, nil
}

func closeDue(ctx context.Context, closer SorteoCloser) {
	n, err := closer.CerrarVencidos(ctx)
	if err != nil {
		log.Error().Err(err).Msg("sorteo_cron: failed to close due sorteos")
		return
	}
	if n > 0 {
		metrics.SorteosCerrados.Add(float64(n))
		log.Info().Int64("count", n).Msg("sorteo_cron: sorteos closed")
	}
}

// cronLogger routes cron's own logging through zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}

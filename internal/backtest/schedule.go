package backtest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// ParseSchedule parses a standard 5-field cron expression.
func ParseSchedule(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(strings.TrimSpace(expr))
	if err != nil {
		return nil, fmt.Errorf("invalid backtest schedule %q: %w", expr, err)
	}
	return sched, nil
}

// StartScheduler runs a backtest of the last `days` complete days on every tick
// of expr until ctx is cancelled. An empty expression disables it.
func StartScheduler(ctx context.Context, expr string, runner *Runner, days int) error {
	if strings.TrimSpace(expr) == "" {
		log.Info().Msg("scheduled backtest disabled")
		return nil
	}
	sched, err := ParseSchedule(expr)
	if err != nil {
		return err
	}

	log.Info().Str("cron", expr).Int("days", days).Msg("scheduled backtest enabled")

	go func() {
		for {
			now := time.Now()
			next := sched.Next(now)
			log.Info().Time("next_run", next).Msg("next scheduled backtest")

			timer := time.NewTimer(next.Sub(now))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}

			start := WindowStart(next, days)
			if _, err := runner.Run(ctx, start, days); err != nil {
				log.Error().Err(err).Msg("scheduled backtest failed")
			}
		}
	}()
	return nil
}

// WindowStart returns the first day of the `days`-long window that ends the day before at.
func WindowStart(at time.Time, days int) time.Time {
	y, m, d := at.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -days)
}

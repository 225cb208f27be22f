package state

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/exchangebot/core/logger"
)

// RunJanitor calls Sweep every interval until ctx is done.
func RunJanitor(ctx context.Context, sw Sweeper, interval time.Duration) {
	if sw == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			n, err := sw.Sweep(ctx)
			if err != nil {
				logger.Warn(ctx, "state", "sweep",
					slog.String("status", "fail"),
					logger.Err(err),
				)
				continue
			}
			if n > 0 {
				logger.Info(ctx, "state", "sweep",
					slog.String("status", "ok"),
					slog.Int("count", n),
					slog.Duration("duration", logger.Took(start)),
				)
			}
		}
	}
}

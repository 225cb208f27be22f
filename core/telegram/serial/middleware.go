package serial

import (
	"errors"
	"log/slog"

	"github.com/m3rciful/exchangebot/core/logger"
	"github.com/m3rciful/exchangebot/core/metrics"
	tghelpers "github.com/m3rciful/exchangebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Middleware moves every update into the lane of its sender. It must be
// the outermost middleware of a bot running with Synchronous set so that
// updates reach it in arrival order.
func (l *Lanes) Middleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		userID, chatID := tghelpers.IDs(c)
		key := userID
		if key == 0 {
			key = chatID
		}
		ctx := tghelpers.BuildContext(c)

		err := l.Submit(ctx, key, "update", func() error { return next(c) })
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrQueueFull):
			metrics.LaneRejected.WithLabelValues("full").Inc()
			logger.Warn(ctx, "tg.serial", "update.drop",
				slog.String("status", "rejected"),
				slog.String("cause", "lane_full"),
			)
			if c.Callback() != nil {
				_ = c.Respond(&tele.CallbackResponse{Text: "Please wait, still working on your previous request."})
			}
			return nil
		case errors.Is(err, ErrQueueClosed):
			metrics.LaneRejected.WithLabelValues("closed").Inc()
			logger.Debug(ctx, "tg.serial", "update.drop",
				slog.String("status", "skip"),
				slog.String("cause", "shutdown"),
			)
			return nil
		default:
			return err
		}
	}
}

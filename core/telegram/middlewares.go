package telegram

import (
	"github.com/m3rciful/exchangebot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// DefaultMiddlewares builds the shared middleware chain. When lane is set
// it runs first so that the rest of the chain executes inside the
// per-session lane.
func DefaultMiddlewares(lane func(tele.HandlerFunc) tele.HandlerFunc) []Middleware {
	var mws []Middleware
	if lane != nil {
		mws = append(mws, Middleware{Name: "serial", Use: lane})
	}
	return append(mws,
		Middleware{Name: "recover", Use: middleware.RecoverMiddleware},
		Middleware{Name: "logger", Use: middleware.LoggerMiddleware},
		Middleware{Name: "metrics", Use: middleware.MessageMetricsMiddleware},
	)
}

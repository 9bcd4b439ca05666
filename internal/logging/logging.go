// Package logging attaches a zap-backed subscriber to the event bus so that
// request activity is logged without the serving path importing a logger.
package logging

import (
	"context"

	"go.uber.org/zap"

	eventbus "github.com/tvarn/fieldplan/internal/eventbus"
	events "github.com/tvarn/fieldplan/internal/events"
	reqid "github.com/tvarn/fieldplan/internal/reqid"
)

// Attach subscribes log handlers on bus. It returns a function that removes
// the subscriptions.
func Attach(bus *eventbus.Bus, logger *zap.Logger) (detach func()) {
	unsubs := []func(){
		eventbus.Subscribe(bus, func(ctx context.Context, e events.HTTPFinish) {
			rid, _ := reqid.FromContext(ctx)
			logger.Info("http request",
				zap.String("rid", rid),
				zap.String("method", e.Request.Method),
				zap.String("path", e.Request.URL.Path),
				zap.Int("status", e.Status),
				zap.Duration("duration", e.Duration),
			)
		}),
		eventbus.Subscribe(bus, func(ctx context.Context, e events.PlanFinish) {
			rid, _ := reqid.FromContext(ctx)
			fields := []zap.Field{
				zap.String("rid", rid),
				zap.String("resource", e.Resource),
				zap.Int("selects", e.Selects),
				zap.Int("loads", e.Loads),
				zap.Duration("duration", e.Duration),
			}
			if e.Err != nil {
				logger.Warn("plan failed", append(fields, zap.Error(e.Err))...)
				return
			}
			logger.Debug("plan built", fields...)
		}),
		eventbus.Subscribe(bus, func(ctx context.Context, e events.ExtractFinish) {
			rid, _ := reqid.FromContext(ctx)
			logger.Debug("extraction applied",
				zap.String("rid", rid),
				zap.String("resource", e.Resource),
				zap.Duration("duration", e.Duration),
			)
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

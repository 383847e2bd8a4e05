package metricspush

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/bookingsync/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const minInterval = 10 * time.Second

var Module = fx.Module("metrics.push",
	fx.Provide(NewPusher),
	fx.Invoke(startWorker),
)

// Worker pushes the gatherer on a fixed interval and once more on stop so
// the last job run is not lost.
type Worker struct {
	pusher   Pusher
	gatherer prometheus.Gatherer
	interval time.Duration
	log      *zap.Logger
}

func NewWorker(pusher Pusher, gatherer prometheus.Gatherer, interval time.Duration, log *zap.Logger) *Worker {
	if interval < minInterval {
		interval = minInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{
		pusher:   pusher,
		gatherer: gatherer,
		interval: interval,
		log:      log.Named("metricspush"),
	}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.push(ctx)
	for {
		select {
		case <-ticker.C:
			w.push(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (w *Worker) push(ctx context.Context) {
	if w.pusher == nil {
		return
	}
	pushCtx, cancel := context.WithTimeout(ctx, defaultPushTimeout)
	defer cancel()
	if err := w.pusher.Push(pushCtx, w.gatherer); err != nil {
		w.log.Warn("metricspush.push.failed", zap.Error(err))
	}
}

func startWorker(lc fx.Lifecycle, cfg config.Config, pusher Pusher, log *zap.Logger) {
	if pusher == nil {
		return
	}
	w := NewWorker(pusher, prometheus.DefaultGatherer, cfg.MetricsPush.Interval, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			w.log.Info("metricspush.started", zap.Duration("interval", w.interval))
			go func() {
				defer close(done)
				w.Run(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			<-done
			w.push(stopCtx)
			return nil
		},
	})
}

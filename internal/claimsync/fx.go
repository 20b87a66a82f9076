package claimsync

import (
	"context"

	"go.uber.org/fx"
)

var Module = fx.Module("claimsync",
	fx.Provide(ProvideConfig),
	fx.Provide(New),
	fx.Invoke(StartWorker),
)

func StartWorker(lc fx.Lifecycle, syncer *Syncer) {
	var cancel context.CancelFunc
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			go func() {
				defer close(done)
				syncer.RunForever(ctx)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel == nil {
				return nil
			}
			cancel()
			select {
			case <-done:
			case <-ctx.Done():
			}
			return nil
		},
	})
}

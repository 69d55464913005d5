package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/rideops/callcenter/internal/app"
	"github.com/rideops/callcenter/internal/events"
)

// Start registers the event consumers of c and starts the view schedule, the
// asynchronous event delivery when configured, and the cross-instance relay.
// The returned func stops them, delivering events already queued.
func Start(ctx context.Context, c *app.Container) (func(), error) {
	c.Notifications.RegisterHandlers()
	c.Refresher.Subscribe(c.Dispatcher)
	for _, eventType := range events.AllEventTypes {
		c.Dispatcher.Subscribe(eventType, func(_ context.Context, event events.Event) error {
			c.Metrics.RecordEvent(string(event.Type))
			return nil
		})
	}

	ctx, cancel := context.WithCancel(ctx)
	if err := c.Refresher.Start(ctx); err != nil {
		cancel()
		return nil, err
	}

	async, _ := c.Dispatcher.(*events.AsyncDispatcher)
	if async != nil {
		go async.Run()
	}

	relayDone := make(chan struct{})
	if c.Relay != nil {
		c.Relay.Subscribe(c.Dispatcher)
		go func() {
			defer close(relayDone)
			if err := c.Relay.Run(ctx); err != nil {
				c.Logger.Warn("realtime relay stopped", zap.Error(err))
			}
		}()
	} else {
		close(relayDone)
	}

	return func() {
		cancel()
		<-relayDone
		if async != nil {
			async.Close()
			async.Wait()
		}
		c.Refresher.Stop()
	}, nil
}

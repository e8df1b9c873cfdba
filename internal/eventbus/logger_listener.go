package eventbus

import (
	"context"

	"github.com/annel0/tileworld/internal/logging"
)

// StartLoggingListener подписывается на все события и пишет их в лог компонента.
// Функция неблокирующая.
func StartLoggingListener(bus EventBus, logger *logging.Logger) (Subscription, error) {
	sub, err := bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		switch ev.EventType {
		case EventChunkSpawned, EventChunkDespawned:
			var payload ChunkEvent
			if err := ev.Decode(&payload); err != nil {
				logger.Warn("[EventBus] %s %s: битая полезная нагрузка: %v", ev.ID, ev.EventType, err)
				return
			}
			logger.Debug("[EventBus] %s chunk(%d,%d) tick=%d", ev.EventType, payload.X, payload.Y, payload.Tick)
		default:
			logger.Debug("[EventBus] %s %s src=%s prio=%d size=%dB", ev.ID, ev.EventType, ev.Source, ev.Priority, len(ev.Payload))
		}
	})
	if err != nil {
		return nil, err
	}
	logger.Info("🪵 LoggingListener: подписка на все события активирована")
	return sub, nil
}

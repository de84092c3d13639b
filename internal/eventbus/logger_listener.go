package eventbus

import (
	"context"

	"github.com/annel0/pilotsim/internal/logging"
)

// StartLoggingListener подписывается на все события и пишет их в лог компонента eventbus.
// Функция неблокирующая.
func StartLoggingListener(ctx context.Context, bus EventBus) (Subscription, error) {
	logger := logging.GetComponentLogger("eventbus")
	sub, err := bus.Subscribe(ctx, Filter{}, func(ctx context.Context, ev *Envelope) {
		switch ev.EventType {
		case TypeHook:
			var p HookPayload
			if err := ev.Decode(&p); err == nil {
				logger.Debug("[кадр %d] хук %s пилота %d (%s)", p.Frame, p.Hook, p.Pilot, p.Name)
				return
			}
		case TypeDeath:
			var p DeathPayload
			if err := ev.Decode(&p); err == nil {
				logger.Debug("[кадр %d] пилот %d удалён", p.Frame, p.Pilot)
				return
			}
		}
		logger.Debug("%s %s src=%s prio=%d size=%dB", ev.ID, ev.EventType, ev.Source, ev.Priority, len(ev.Payload))
	})
	if err != nil {
		return nil, err
	}
	logger.Info("🪵 LoggingListener: подписка на все события активирована")
	return sub, nil
}

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/stakevault/internal/domain"
)

// Listener bridges ledger events from the signal bus to the notifier.
// Operators typically subscribe to withdrawals and admin actions; stake and
// claim events are noisy and filtered out by default via the event list.
type Listener struct {
	bus      domain.SignalBus
	notifier *Notifier
	logger   *slog.Logger
}

// NewListener creates a Listener over the given bus and notifier.
func NewListener(bus domain.SignalBus, notifier *Notifier, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		bus:      bus,
		notifier: notifier,
		logger:   logger.With("component", "notify_listener"),
	}
}

// Run subscribes to the withdrawal and admin channels and forwards events
// until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	msgs, err := l.bus.Subscribe(ctx, domain.ChannelWithdrawals, domain.ChannelAdmin)
	if err != nil {
		return fmt.Errorf("notify: subscribe: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			l.handle(ctx, msg.Payload)
		}
	}
}

// handle decodes one event payload and dispatches it. Malformed payloads are
// logged and dropped.
func (l *Listener) handle(ctx context.Context, payload []byte) {
	var event map[string]any
	if err := json.Unmarshal(payload, &event); err != nil {
		l.logger.WarnContext(ctx, "dropping malformed event", "error", err)
		return
	}
	eventType, _ := event["type"].(string)
	if eventType == "" {
		return
	}

	title, message := render(eventType, event)
	if err := l.notifier.Notify(ctx, eventType, title, message); err != nil {
		l.logger.WarnContext(ctx, "notification delivery failed", "type", eventType, "error", err)
	}
}

// render formats an event into a human-readable title and body.
func render(eventType string, event map[string]any) (string, string) {
	switch eventType {
	case domain.EventWithdraw:
		return "Position withdrawn",
			fmt.Sprintf("account %v withdrew %v (fee %v, rewards %v)",
				event["account"], event["payout"], event["fee"], event["rewards"])
	case domain.EventPaused:
		return "Pause flag changed",
			fmt.Sprintf("token %v paused=%v", event["token"], event["paused"])
	case domain.EventOwnershipTransferred:
		return "Stake ownership transferred",
			fmt.Sprintf("token %v: %v -> %v", event["token"], event["old_owner"], event["new_owner"])
	case domain.EventStakeOwnerAdded:
		return "Stake owner added",
			fmt.Sprintf("token %v: owner %v", event["token"], event["owner"])
	default:
		return eventType, string(mustJSON(event))
	}
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return b
}

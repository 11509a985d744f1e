package notify

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/finzora/signal-engine/internal/domain"
)

// Notifier delivers alerts raised by a monitoring pass. Implementations
// decide the channel; the dispatcher decides what is worth delivering.
type Notifier interface {
	Notify(ctx context.Context, userID string, alert domain.SmartAlert) error
}

// LogNotifier writes alerts to the structured log. It stands in for a real
// delivery channel in single-binary deployments.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier creates a Notifier backed by the given logger.
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Notify implements the Notifier interface.
func (n *LogNotifier) Notify(ctx context.Context, userID string, alert domain.SmartAlert) error {
	event := n.log.Warn()
	if alert.Type == domain.AlertCritical {
		event = n.log.Error()
	}
	event.
		Str("user_id", userID).
		Str("alert_id", alert.ID).
		Str("alert_type", string(alert.Type)).
		Str("title", alert.Title).
		Msg(alert.Message)
	return nil
}

// Dispatcher filters and deduplicates alerts before handing them to a
// Notifier. Only critical and warning alerts are delivered; an alert ID is
// delivered at most once until Reset is called, so a monitor ticking every
// few minutes does not repeat itself all day.
type Dispatcher struct {
	notifier Notifier
	mu       sync.Mutex
	seen     map[string]bool
}

// NewDispatcher creates a Dispatcher wrapping the given notifier.
func NewDispatcher(n Notifier) *Dispatcher {
	return &Dispatcher{notifier: n, seen: make(map[string]bool)}
}

// Dispatch sends the alerts that warrant delivery and returns how many
// were actually sent.
func (d *Dispatcher) Dispatch(ctx context.Context, userID string, alerts []domain.SmartAlert) (int, error) {
	sent := 0
	for _, alert := range alerts {
		if alert.Type != domain.AlertCritical && alert.Type != domain.AlertWarning {
			continue
		}

		key := userID + "/" + alert.ID
		d.mu.Lock()
		already := d.seen[key]
		if !already {
			d.seen[key] = true
		}
		d.mu.Unlock()
		if already {
			continue
		}

		if err := d.notifier.Notify(ctx, userID, alert); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

// Reset clears the dedup state, allowing previously delivered alerts to be
// sent again. Call it on a slow cadence, e.g. once a day.
func (d *Dispatcher) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = make(map[string]bool)
}

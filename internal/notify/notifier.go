// Package notify announces engine activity to operators. Notifications are
// dispatched to all registered senders (Telegram, Discord) and filtered by
// event kind so operators receive only the alerts they care about. Delivery
// is best-effort: the engine never blocks on or fails because of a sender.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Event kinds the engine emits.
const (
	EventPositionOpened = "position_opened"
	EventPositionClosed = "position_closed"
	EventStopTriggered  = "stop_triggered"
	EventError          = "error"
)

// sendTimeout bounds a single detached dispatch.
const sendTimeout = 10 * time.Second

// Sender is the interface each notification channel implements.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier dispatches notifications to one or more Senders. It maintains a
// set of allowed event kinds; events outside the set are dropped. A nil
// *Notifier is valid and drops everything, so callers never need a nil
// check.
type Notifier struct {
	senders []Sender
	events  map[string]bool // allowed event kinds; empty allows all
	logger  *slog.Logger
}

// New creates a Notifier delivering to the given senders. Only events whose
// kind appears in events are forwarded; an empty list allows everything.
func New(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify sends a notification to all senders if the event kind is allowed.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if n == nil {
		return nil
	}
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out",
			slog.String("event", event),
		)
		return nil
	}
	return n.dispatch(ctx, title, message)
}

// NotifyAsync dispatches in the background, detached from the caller's
// cancellation, with a bounded timeout. Failures are logged, never returned;
// the engine's hot path must not wait on chat APIs.
func (n *Notifier) NotifyAsync(ctx context.Context, event, title, message string) {
	if n == nil || len(n.senders) == 0 {
		return
	}
	detached := context.WithoutCancel(ctx)
	go func() {
		sendCtx, cancel := context.WithTimeout(detached, sendTimeout)
		defer cancel()
		if err := n.Notify(sendCtx, event, title, message); err != nil {
			n.logger.WarnContext(sendCtx, "async notification failed",
				slog.String("event", event),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// dispatch fans out to all senders. Errors from individual senders are
// collected into a combined error; one sender failing does not prevent
// delivery to the rest.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

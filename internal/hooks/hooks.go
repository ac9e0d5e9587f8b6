// Package hooks fires governance notifications around pipeline and step
// lifecycle events. Notification failures never propagate: a broken webhook
// must not fail a promotion.
package hooks

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// Kind identifies a lifecycle event.
type Kind string

const (
	StepSucceeded     Kind = "step_succeeded"
	StepFailed        Kind = "step_failed"
	PipelineSucceeded Kind = "pipeline_succeeded"
	PipelineFailed    Kind = "pipeline_failed"
)

// Event describes one lifecycle occurrence to be announced.
type Event struct {
	Kind     Kind
	Pipeline string
	Step     string
	Model    string
	Err      error
	At       time.Time
}

// Message renders the fixed notification text for the event.
func (e Event) Message() string {
	switch e.Kind {
	case StepSucceeded:
		return fmt.Sprintf("Step %q of pipeline %q succeeded.", e.Step, e.Pipeline)
	case StepFailed:
		return fmt.Sprintf("Step %q of pipeline %q failed: %v", e.Step, e.Pipeline, e.Err)
	case PipelineSucceeded:
		return fmt.Sprintf("Pipeline %q finished successfully.", e.Pipeline)
	case PipelineFailed:
		return fmt.Sprintf("Pipeline %q failed: %v", e.Pipeline, e.Err)
	default:
		return fmt.Sprintf("Pipeline %q reported event %q.", e.Pipeline, e.Kind)
	}
}

// Notifier delivers one event to a destination.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Hooks fans events out to a set of notifiers, containing every error and
// panic a notifier raises.
type Hooks struct {
	notifiers []Notifier
}

// New builds a Hooks over the given notifiers. A nil or empty set is valid
// and makes every Fire a no-op.
func New(notifiers ...Notifier) *Hooks {
	return &Hooks{notifiers: notifiers}
}

// Fire announces the event on every notifier. It never returns an error and
// never panics.
func (h *Hooks) Fire(ctx context.Context, event Event) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	for _, n := range h.notifiers {
		fire(ctx, n, event)
	}
}

func fire(ctx context.Context, n Notifier, event Event) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"event":    event.Kind,
				"pipeline": event.Pipeline,
			}).Errorf("notifier panicked: %v", r)
		}
	}()
	if err := n.Notify(ctx, event); err != nil {
		log.WithFields(log.Fields{
			"event":    event.Kind,
			"pipeline": event.Pipeline,
		}).WithError(err).Warn("notification failed")
	}
}

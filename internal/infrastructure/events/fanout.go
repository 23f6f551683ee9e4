package events

import (
	"context"
	"errors"

	"github.com/samber/lo"

	"github.com/kanchangiri67/OncoCist/internal/core/domain"
	"github.com/kanchangiri67/OncoCist/internal/core/ports"
)

// Fanout delivers each event to every sink. A failing sink does not stop the
// others; the failures are joined into the returned error.
type Fanout struct {
	sinks []ports.EventPublisher
}

// NewFanout drops nil sinks, so optional backends can be passed unconditionally.
func NewFanout(sinks ...ports.EventPublisher) *Fanout {
	return &Fanout{sinks: lo.Filter(sinks, func(p ports.EventPublisher, _ int) bool { return p != nil })}
}

func (f *Fanout) Publish(ctx context.Context, e domain.Event) error {
	var errs []error
	for _, sink := range f.sinks {
		if err := sink.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) Len() int { return len(f.sinks) }

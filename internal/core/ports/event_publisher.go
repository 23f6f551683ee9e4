package ports

import (
	"context"

	"github.com/kanchangiri67/OncoCist/internal/core/domain"
)

// EventPublisher delivers pipeline events to the audit trail or a broker.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

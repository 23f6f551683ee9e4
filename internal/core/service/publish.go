package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/kanchangiri67/OncoCist/internal/core/domain"
	"github.com/kanchangiri67/OncoCist/internal/core/ports"
)

// publish delivers an event without failing the calling operation.
func publish(ctx context.Context, pub ports.EventPublisher, log zerolog.Logger, event domain.Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, event); err != nil {
		log.Warn().Err(err).
			Str("event_type", string(event.Type)).
			Str("event_id", event.ID).
			Msg("failed to publish event")
	}
}

// removeBlobs deletes keys best-effort; the rows referencing them are already gone.
func removeBlobs(ctx context.Context, blobs ports.BlobStore, log zerolog.Logger, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := blobs.Delete(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to remove stored file")
		}
	}
}

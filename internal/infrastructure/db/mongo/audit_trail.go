package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kanchangiri67/OncoCist/internal/core/domain"
)

const auditCollection = "scan_events"

// AuditTrail appends pipeline events to the scan_events collection. It
// implements ports.EventPublisher.
type AuditTrail struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewAuditTrail(db *mongo.Database) *AuditTrail {
	return &AuditTrail{coll: db.Collection(auditCollection), now: time.Now}
}

type auditDoc struct {
	EventID    string            `bson:"_id"`
	Type       string            `bson:"type"`
	AccountID  uint              `bson:"account_id,omitempty"`
	PatientID  uint              `bson:"patient_id,omitempty"`
	ScanID     uint              `bson:"scan_id,omitempty"`
	Attributes map[string]string `bson:"attributes,omitempty"`
	OccurredAt time.Time         `bson:"occurred_at"`
	RecordedAt time.Time         `bson:"recorded_at"`
}

// EnsureIndexes creates the lookup indexes used by audit queries.
func (a *AuditTrail) EnsureIndexes(ctx context.Context) error {
	_, err := a.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "scan_id", Value: 1}, {Key: "occurred_at", Value: -1}}},
		{Keys: bson.D{{Key: "patient_id", Value: 1}, {Key: "occurred_at", Value: -1}}},
		{Keys: bson.D{{Key: "type", Value: 1}}, Options: options.Index().SetName("type_1")},
	})
	if err != nil {
		return fmt.Errorf("audit indexes: %w", err)
	}
	return nil
}

// Publish inserts the event. A replayed event id is treated as already recorded.
func (a *AuditTrail) Publish(ctx context.Context, e domain.Event) error {
	_, err := a.coll.InsertOne(ctx, toAuditDoc(e, a.now()))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func toAuditDoc(e domain.Event, recordedAt time.Time) auditDoc {
	return auditDoc{
		EventID:    e.ID,
		Type:       string(e.Type),
		AccountID:  e.AccountID,
		PatientID:  e.PatientID,
		ScanID:     e.ScanID,
		Attributes: e.Attributes,
		OccurredAt: e.OccurredAt.UTC(),
		RecordedAt: recordedAt.UTC(),
	}
}

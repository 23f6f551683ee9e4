package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a pipeline state change published to the audit trail and brokers.
type EventType string

const (
	EventScanUploaded      EventType = "scan.uploaded"
	EventScanDeleted       EventType = "scan.deleted"
	EventPatientDeleted    EventType = "patient.deleted"
	EventPredictionCreated EventType = "prediction.created"
)

// Event is an immutable record of something that happened in the pipeline.
type Event struct {
	ID         string            `json:"id"`
	Type       EventType         `json:"type"`
	AccountID  uint              `json:"account_id,omitempty"`
	PatientID  uint              `json:"patient_id,omitempty"`
	ScanID     uint              `json:"scan_id,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// NewEvent stamps a fresh id and UTC timestamp.
func NewEvent(t EventType, now time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		OccurredAt: now.UTC(),
	}
}

// Package events publishes a notification after each clinical record is
// written, so downstream systems can follow a patient's progress without
// polling the database.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypePatientRegistered  = "patient.registered"
	TypeBaselineRecorded   = "baseline.recorded"
	TypeAssessmentRecorded = "assessment.recorded"
)

// Event is the envelope written to the topic.
type Event struct {
	ID               string    `json:"id"`
	Type             string    `json:"type"`
	PatientID        string    `json:"patient_id"`
	RegNo            string    `json:"reg_no"`
	AssessmentNumber int       `json:"assessment_number,omitempty"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// New builds an event with a fresh id and timestamp.
func New(eventType string, patientID uuid.UUID, regNo string) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		PatientID:  patientID.String(),
		RegNo:      regNo,
		OccurredAt: time.Now().UTC(),
	}
}

func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

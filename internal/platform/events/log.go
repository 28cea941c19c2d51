package events

import (
	"context"

	"github.com/rs/zerolog"
)

// LogPublisher records events in the service log. It is used when no broker
// is configured.
type LogPublisher struct {
	logger zerolog.Logger
}

func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With().Str("component", "events").Logger()}
}

func (p *LogPublisher) Publish(_ context.Context, evt Event) error {
	e := p.logger.Info().
		Str("event_id", evt.ID).
		Str("type", evt.Type).
		Str("patient_id", evt.PatientID).
		Str("reg_no", evt.RegNo)
	if evt.AssessmentNumber > 0 {
		e = e.Int("assessment_number", evt.AssessmentNumber)
	}
	e.Msg("record event")
	return nil
}

func (p *LogPublisher) Close() error { return nil }

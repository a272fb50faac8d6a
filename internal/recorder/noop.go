package recorder

import (
	"time"

	"FinUp/internal/model"
)

// NoopRecorder is used when no history sink is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordEvaluation(_ *EvaluationEvent) error                       { return nil }
func (n *NoopRecorder) RecordIndicators(_ time.Time, _ []model.EconomicIndicator) error { return nil }
func (n *NoopRecorder) Close() error                                                    { return nil }

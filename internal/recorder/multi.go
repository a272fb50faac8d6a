package recorder

import (
	"context"
	"errors"
	"time"

	"FinUp/internal/model"
)

// Multi fans every record out to several recorders. All of them are attempted.
type Multi []Recorder

func (m Multi) RecordEvaluation(evt *EvaluationEvent) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.RecordEvaluation(evt))
	}
	return errors.Join(errs...)
}

func (m Multi) RecordIndicators(at time.Time, inds []model.EconomicIndicator) error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.RecordIndicators(at, inds))
	}
	return errors.Join(errs...)
}

// Recent reads from the first member that keeps history, or fails with ErrNoHistory.
func (m Multi) Recent(ctx context.Context, accountID int64, limit int) ([]EvaluationEvent, error) {
	for _, r := range m {
		if h, ok := r.(HistoryReader); ok {
			return h.Recent(ctx, accountID, limit)
		}
	}
	return nil, ErrNoHistory
}

func (m Multi) Close() error {
	var errs []error
	for _, r := range m {
		errs = append(errs, r.Close())
	}
	return errors.Join(errs...)
}

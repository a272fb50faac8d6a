package recorder

import (
	"context"
	"errors"
	"time"

	"FinUp/internal/model"
	"FinUp/internal/portfolio"
)

// Trigger names what started an evaluation.
type Trigger string

const (
	TriggerSchedule Trigger = "schedule"
	TriggerCommand  Trigger = "command"
	TriggerAPI      Trigger = "api"
	TriggerCLI      Trigger = "cli"
)

// TierRecord is the per-tier part of an evaluation record.
type TierRecord struct {
	Tier       model.RiskTier `json:"tier"`
	Value      float64        `json:"value"`
	CurrentPct float64        `json:"current_pct"`
	TargetPct  float64        `json:"target_pct"`
	Delta      float64        `json:"delta"`
}

// EvaluationEvent is one evaluation pass, flattened for storage and streaming.
type EvaluationEvent struct {
	At              time.Time              `json:"at"`
	Trigger         Trigger                `json:"trigger"`
	AccountID       int64                  `json:"account_id"`
	Profile         model.RiskProfile      `json:"profile"`
	Empty           bool                   `json:"empty"`
	Total           float64                `json:"total"`
	Invested        float64                `json:"invested"`
	Stale           int                    `json:"stale"`
	Balanced        bool                   `json:"balanced"`
	Tiers           []TierRecord           `json:"tiers,omitempty"`
	Recommendations []model.Recommendation `json:"recommendations,omitempty"`
}

// NewEvaluationEvent flattens a report.
func NewEvaluationEvent(r *portfolio.Report, trigger Trigger) *EvaluationEvent {
	evt := &EvaluationEvent{
		At:       r.GeneratedAt,
		Trigger:  trigger,
		Empty:    r.Empty,
		Balanced: true,
	}
	if r.Account != nil {
		evt.AccountID = r.Account.ID
		evt.Profile = r.Account.Profile
	}
	if r.Snapshot != nil {
		evt.Total = r.Snapshot.Total
		evt.Invested = r.Snapshot.Invested
		evt.Stale = r.Snapshot.StaleCount()
	}
	if r.Plan != nil {
		evt.Balanced = r.Plan.Balanced()
		evt.Recommendations = r.Plan.Recommendations
		for _, d := range r.Plan.Deltas {
			evt.Tiers = append(evt.Tiers, TierRecord{
				Tier:       d.Tier,
				Value:      d.CurrentValue,
				CurrentPct: d.CurrentPct,
				TargetPct:  d.TargetPct,
				Delta:      d.Delta,
			})
		}
	}
	return evt
}

// Recorder persists evaluation history for analysis.
type Recorder interface {
	RecordEvaluation(evt *EvaluationEvent) error
	RecordIndicators(at time.Time, inds []model.EconomicIndicator) error
	Close() error
}

// ErrNoHistory is returned by readers that front no history store.
var ErrNoHistory = errors.New("history is not recorded")

// HistoryReader is implemented by recorders that can read back what they stored.
type HistoryReader interface {
	Recent(ctx context.Context, accountID int64, limit int) ([]EvaluationEvent, error)
}

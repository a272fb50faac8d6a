package recorder

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"FinUp/internal/model"
	"FinUp/internal/portfolio"

	"github.com/segmentio/kafka-go"
)

func sampleReport() *portfolio.Report {
	high := model.TierHigh
	return &portfolio.Report{
		Account:     &model.Account{ID: 7, CPF: "123", Profile: model.ProfileConservative},
		GeneratedAt: time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC),
		Snapshot: &model.Snapshot{
			Total:    10000,
			Invested: 9500,
			Valuations: []model.Valuation{
				{Value: 6000}, {Value: 3000}, {Value: 1000, Stale: true},
			},
		},
		Plan: &model.Plan{
			Profile:   model.ProfileConservative,
			Tolerance: 5,
			Deltas: [3]model.TierDelta{
				{Tier: model.TierLow, CurrentPct: 60, TargetPct: 70, Delta: -10, CurrentValue: 6000, OutOfBalance: true},
				{Tier: model.TierMedium, CurrentPct: 30, TargetPct: 30, CurrentValue: 3000},
				{Tier: model.TierHigh, CurrentPct: 10, TargetPct: 0, Delta: 10, CurrentValue: 1000, OutOfBalance: true},
			},
			Recommendations: []model.Recommendation{
				{Action: model.ActionTransfer, From: &high, To: model.TierLow, Amount: 1000},
				{Action: model.ActionTopUp, To: model.TierMedium, Amount: 12.5},
			},
			Divest: []model.RiskTier{model.TierHigh},
		},
	}
}

func TestNewEvaluationEvent(t *testing.T) {
	evt := NewEvaluationEvent(sampleReport(), TriggerAPI)
	if evt.AccountID != 7 || evt.Profile != model.ProfileConservative || evt.Trigger != TriggerAPI {
		t.Errorf("unexpected header %+v", evt)
	}
	if evt.Total != 10000 || evt.Invested != 9500 || evt.Stale != 1 || evt.Balanced {
		t.Errorf("unexpected totals %+v", evt)
	}
	if len(evt.Tiers) != 3 || evt.Tiers[2].Delta != 10 {
		t.Errorf("unexpected tiers %+v", evt.Tiers)
	}

	empty := NewEvaluationEvent(&portfolio.Report{Account: &model.Account{ID: 1}, Empty: true}, TriggerCLI)
	if !empty.Empty || !empty.Balanced || len(empty.Tiers) != 0 {
		t.Errorf("unexpected empty event %+v", empty)
	}
}

func TestSQLiteRecorder_RoundTrip(t *testing.T) {
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	first := NewEvaluationEvent(sampleReport(), TriggerSchedule)
	second := NewEvaluationEvent(sampleReport(), TriggerAPI)
	second.At = first.At.Add(time.Hour)
	other := NewEvaluationEvent(sampleReport(), TriggerAPI)
	other.AccountID = 99

	for _, evt := range []*EvaluationEvent{first, second, other} {
		if err := r.RecordEvaluation(evt); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	got, err := r.Recent(context.Background(), 7, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 evaluations, got %d", len(got))
	}
	if got[0].Trigger != TriggerAPI || !got[0].At.Equal(second.At) {
		t.Errorf("expected newest first, got %+v", got[0])
	}
	e := got[1]
	if e.Profile != model.ProfileConservative || e.Total != 10000 || e.Stale != 1 || e.Balanced {
		t.Errorf("unexpected evaluation %+v", e)
	}
	if len(e.Tiers) != 3 || e.Tiers[0].Tier != model.TierLow || e.Tiers[0].TargetPct != 70 {
		t.Errorf("unexpected tiers %+v", e.Tiers)
	}
	if len(e.Recommendations) != 2 {
		t.Fatalf("expected 2 recommendations, got %+v", e.Recommendations)
	}
	if rec := e.Recommendations[0]; rec.From == nil || *rec.From != model.TierHigh || rec.To != model.TierLow || rec.Amount != 1000 {
		t.Errorf("unexpected transfer %+v", rec)
	}
	if rec := e.Recommendations[1]; rec.From != nil || rec.Action != model.ActionTopUp {
		t.Errorf("unexpected top-up %+v", rec)
	}

	if got, _ := r.Recent(context.Background(), 7, 1); len(got) != 1 {
		t.Errorf("limit not applied, got %d", len(got))
	}

	inds := []model.EconomicIndicator{{Name: "SELIC", Code: 432, Date: first.At, Value: 15}}
	if err := r.RecordIndicators(first.At, inds); err != nil {
		t.Errorf("record indicators: %v", err)
	}
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaRecorder(t *testing.T) {
	w := &fakeWriter{}
	k := NewKafkaRecorder(w, time.Second)

	if err := k.RecordEvaluation(NewEvaluationEvent(sampleReport(), TriggerSchedule)); err != nil {
		t.Fatal(err)
	}
	if err := k.RecordIndicators(time.Now(), []model.EconomicIndicator{{Name: "IPCA", Code: 433, Value: 0.48}}); err != nil {
		t.Fatal(err)
	}
	if len(w.msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(w.msgs))
	}
	if string(w.msgs[0].Key) != "7" {
		t.Errorf("expected account key, got %q", w.msgs[0].Key)
	}
	var evt EvaluationEvent
	if err := json.Unmarshal(w.msgs[0].Value, &evt); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if evt.Profile != model.ProfileConservative || len(evt.Recommendations) != 2 {
		t.Errorf("unexpected payload %+v", evt)
	}

	w.err = errors.New("broker down")
	if err := k.RecordEvaluation(&EvaluationEvent{}); !errors.Is(err, w.err) {
		t.Errorf("expected wrapped writer error, got %v", err)
	}
	k.Close()
	if !w.closed {
		t.Error("writer not closed")
	}
}

type failing struct{ *NoopRecorder }

func (failing) RecordEvaluation(*EvaluationEvent) error { return errors.New("disk full") }

func TestMulti(t *testing.T) {
	w := &fakeWriter{}
	m := Multi{failing{NewNoopRecorder()}, NewKafkaRecorder(w, time.Second)}
	err := m.RecordEvaluation(NewEvaluationEvent(sampleReport(), TriggerAPI))
	if err == nil {
		t.Error("expected joined error")
	}
	if len(w.msgs) != 1 {
		t.Errorf("later recorders must still run, got %d messages", len(w.msgs))
	}
	if got, err := m.Recent(context.Background(), 7, 5); got != nil || !errors.Is(err, ErrNoHistory) {
		t.Errorf("no history reader: expected ErrNoHistory, got %v, %v", got, err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}

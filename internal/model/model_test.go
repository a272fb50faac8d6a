package model

import (
	"errors"
	"testing"
	"time"
)

func TestParseRiskTier(t *testing.T) {
	tests := []struct {
		in   string
		want RiskTier
	}{
		{"BAIXO", TierLow},
		{"baixo", TierLow},
		{"low", TierLow},
		{"MODERADO", TierMedium},
		{" Medium ", TierMedium},
		{"ALTO", TierHigh},
		{"high", TierHigh},
	}
	for _, tt := range tests {
		got, err := ParseRiskTier(tt.in)
		if err != nil {
			t.Errorf("%q: unexpected error %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%q: expected %s, got %s", tt.in, tt.want, got)
		}
	}
	if _, err := ParseRiskTier("EXTREMO"); err == nil {
		t.Error("expected error for unknown tier")
	}
}

func TestParseRiskProfile(t *testing.T) {
	tests := []struct {
		in   string
		want RiskProfile
	}{
		{"CONSERVADOR", ProfileConservative},
		{"Conservative", ProfileConservative},
		{"MODERADO", ProfileModerate},
		{"ARROJADO", ProfileAggressive},
		{"aggressive", ProfileAggressive},
	}
	for _, tt := range tests {
		got, err := ParseRiskProfile(tt.in)
		if err != nil {
			t.Errorf("%q: unexpected error %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%q: expected %s, got %s", tt.in, tt.want, got)
		}
	}
	if _, err := ParseRiskProfile(""); err == nil {
		t.Error("expected error for empty profile")
	}
}

func TestRiskTierText(t *testing.T) {
	b, err := TierMedium.MarshalText()
	if err != nil {
		t.Fatal(err)
	}
	var got RiskTier
	if err := got.UnmarshalText(b); err != nil {
		t.Fatal(err)
	}
	if got != TierMedium {
		t.Errorf("expected MEDIUM, got %s", got)
	}
	if _, err := RiskTier(7).MarshalText(); err == nil {
		t.Error("expected error for out of range tier")
	}
}

func TestHoldingValidate(t *testing.T) {
	applied := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	valid := Holding{ID: "1", Kind: KindEquity, Name: "PETR4", Quantity: 10, PurchasePrice: 30, Principal: 300, Tier: TierHigh, AppliedAt: applied}

	tests := []struct {
		name   string
		mutate func(h *Holding)
		ok     bool
	}{
		{"valid equity", func(h *Holding) {}, true},
		{"zero purchase price is accepted", func(h *Holding) { h.PurchasePrice = 0 }, true},
		{"missing id", func(h *Holding) { h.ID = "" }, false},
		{"unknown kind", func(h *Holding) { h.Kind = "BOND" }, false},
		{"bad tier", func(h *Holding) { h.Tier = RiskTier(9) }, false},
		{"missing applied_at", func(h *Holding) { h.AppliedAt = time.Time{} }, false},
		{"negative principal", func(h *Holding) { h.Principal = -1 }, false},
		{"equity without quantity", func(h *Holding) { h.Quantity = 0 }, false},
		{"crypto without name", func(h *Holding) { h.Kind = KindCrypto; h.Name = "" }, false},
		{"fund without name", func(h *Holding) { h.Kind = KindFund; h.Name = ""; h.Quantity = 0 }, true},
	}
	for _, tt := range tests {
		h := valid
		tt.mutate(&h)
		err := h.Validate()
		if tt.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
		}
		if !tt.ok {
			if err == nil {
				t.Errorf("%s: expected error", tt.name)
			} else if !errors.Is(err, ErrInvalidHolding) {
				t.Errorf("%s: expected ErrInvalidHolding, got %v", tt.name, err)
			}
		}
	}
}

func TestHoldingActive(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	h := Holding{}
	if !h.Active(now) {
		t.Error("holding without closed_at should be active")
	}
	h.ClosedAt = &future
	if !h.Active(now) {
		t.Error("holding closing in the future should be active")
	}
	h.ClosedAt = &past
	if h.Active(now) {
		t.Error("holding closed in the past should be inactive")
	}
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	s := Session{Token: "x"}
	if s.Expired(now) {
		t.Error("zero expiry should never expire")
	}
	s.ExpiresAt = now.Add(-time.Second)
	if !s.Expired(now) {
		t.Error("expected session to be expired")
	}
}

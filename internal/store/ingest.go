package store

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"FinUp/internal/model"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

var namePolicy = bluemonday.StrictPolicy()

// rawHolding is a database row before validation. Nullable numerics are pointers.
type rawHolding struct {
	Kind      model.Kind
	ID        int64
	Name      string
	Principal *float64
	Rate      *float64
	Purchase  *float64
	Quantity  *float64
	AppliedAt time.Time
	ClosedAt  *time.Time
	Tier      string
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// toHolding converts a row into a validated Holding.
func toHolding(r rawHolding) (model.Holding, error) {
	tier, err := model.ParseRiskTier(r.Tier)
	if err != nil {
		return model.Holding{}, fmt.Errorf("%w %s/%d: %v", model.ErrInvalidHolding, r.Kind, r.ID, err)
	}
	h := model.Holding{
		ID:        string(r.Kind) + "-" + strconv.FormatInt(r.ID, 10),
		Kind:      r.Kind,
		Name:      cleanName(r.Name),
		Tier:      tier,
		AppliedAt: r.AppliedAt,
		ClosedAt:  r.ClosedAt,
	}
	switch r.Kind {
	case model.KindFund:
		h.Principal = deref(r.Principal)
		h.YieldRate = deref(r.Rate)
	case model.KindCrypto:
		h.Principal = deref(r.Principal)
		h.PurchasePrice = deref(r.Purchase)
		h.Quantity = deref(r.Quantity)
	case model.KindEquity:
		h.Quantity = deref(r.Quantity)
		h.PurchasePrice = deref(r.Purchase)
		h.Principal = h.Quantity * h.PurchasePrice
	}
	if err := h.Validate(); err != nil {
		return model.Holding{}, err
	}
	return h, nil
}

// cleanName strips markup from free-text names. The policy escapes entities, which are undone again
// so formatters can apply their own escaping.
func cleanName(s string) string {
	return strings.TrimSpace(html.UnescapeString(namePolicy.Sanitize(s)))
}

// collect converts rows, dropping invalid ones with a warning.
func collect(rows []rawHolding) []model.Holding {
	out := make([]model.Holding, 0, len(rows))
	for _, r := range rows {
		h, err := toHolding(r)
		if err != nil {
			zap.L().Warn("skipping invalid holding row", zap.Error(err))
			continue
		}
		out = append(out, h)
	}
	return out
}

// profileOf parses the account profile, defaulting to conservative.
func profileOf(s string, accountID int64) model.RiskProfile {
	p, err := model.ParseRiskProfile(s)
	if err != nil {
		zap.L().Warn("unknown investor profile, using conservative",
			zap.Int64("account", accountID), zap.String("profile", s))
		return model.ProfileConservative
	}
	return p
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseDate reads the text dates SQLite hands back.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

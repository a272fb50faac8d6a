package model

import "time"

// Session is the authenticated identity a caller passes along with every request.
type Session struct {
	Token     string    `json:"-"`
	CPF       string    `json:"cpf"`
	AccountID int64     `json:"account_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the token is past its expiry. A zero expiry never expires.
func (s *Session) Expired(at time.Time) bool {
	return !s.ExpiresAt.IsZero() && !at.Before(s.ExpiresAt)
}

// Account is an investment account as held by the system of record.
type Account struct {
	ID            int64       `json:"id"`
	CPF           string      `json:"cpf"`
	HolderName    string      `json:"holder_name,omitempty"`
	Profile       RiskProfile `json:"profile"`
	InvestmentIDs []int64     `json:"-"`
}

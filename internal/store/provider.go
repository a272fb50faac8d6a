package store

import (
	"context"
	"errors"

	"FinUp/internal/model"
)

// ErrAccountNotFound is returned when no account matches the session.
var ErrAccountNotFound = errors.New("account not found")

// HoldingsProvider reads accounts and their holdings from the system of record.
type HoldingsProvider interface {
	// Account resolves the investment account of a session. A zero AccountID picks the first account of the CPF.
	Account(ctx context.Context, sess *model.Session) (*model.Account, error)
	// Holdings returns every valid holding of the account, active or not.
	Holdings(ctx context.Context, acct *model.Account) ([]model.Holding, error)
	Close() error
}

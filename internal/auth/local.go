package auth

import (
	"context"
	"strings"

	"FinUp/internal/model"
)

// Local opens sessions without a banking API: the token is the CPF itself.
// It exists for local runs against a seeded SQLite store and must not face the internet.
type Local struct{}

func (Local) Login(ctx context.Context, cpf, password string) (*model.Session, error) {
	cpf = strings.TrimSpace(cpf)
	if cpf == "" {
		return nil, ErrUnauthorized
	}
	return &model.Session{Token: cpf, CPF: cpf}, nil
}

func (Local) Resolve(ctx context.Context, sess *model.Session) error {
	if sess == nil || sess.Token == "" {
		return ErrUnauthorized
	}
	sess.CPF = sess.Token
	return nil
}

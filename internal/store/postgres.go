package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FinUp/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Postgres reads holdings from the banking system of record.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to dsn and verifies the connection.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	zap.L().Info("postgres holdings store connected")
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) Account(ctx context.Context, sess *model.Session) (*model.Account, error) {
	acct := &model.Account{CPF: sess.CPF}
	var holder *string
	err := p.pool.QueryRow(ctx, `
		SELECT c.id_conta, p.nome
		FROM usuario u
		JOIN pessoa p ON p.id_usuario = u.id_usuario
		JOIN conta c ON c.id_pessoa = p.id_pessoa
		WHERE u.cpf = $1 AND ($2::bigint = 0 OR c.id_conta = $2::bigint)
		ORDER BY c.id_conta
		LIMIT 1`, sess.CPF, sess.AccountID).Scan(&acct.ID, &holder)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query account: %w", err)
	}
	if holder != nil {
		acct.HolderName = *holder
	}

	rows, err := p.pool.Query(ctx,
		`SELECT id_investimento, perfil_invest FROM containvestimento WHERE id_conta = $1 ORDER BY id_investimento`, acct.ID)
	if err != nil {
		return nil, fmt.Errorf("query investment accounts: %w", err)
	}
	defer rows.Close()

	profile := ""
	for rows.Next() {
		var id int64
		var prof string
		if err := rows.Scan(&id, &prof); err != nil {
			return nil, fmt.Errorf("scan investment account: %w", err)
		}
		if profile == "" {
			profile = prof
		}
		acct.InvestmentIDs = append(acct.InvestmentIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	acct.Profile = profileOf(profile, acct.ID)
	return acct, nil
}

const (
	pgFunds = `SELECT id_fundo, COALESCE(nome, ''), valor_investido::float8, rentabilidade::float8,
		NULL::float8, NULL::float8, data_aplicacao::timestamptz, data_encerramento::timestamptz, perfil_risco
		FROM fundoinvestimento WHERE id_investimento = $1 ORDER BY id_fundo`
	pgCryptos = `SELECT id_cripto, nome, valor_investido::float8, NULL::float8,
		preco_compra::float8, NULL::float8, data_aplicacao::timestamptz, data_encerramento::timestamptz, perfil_risco
		FROM investimentos_cripto WHERE id_investimento = $1 ORDER BY id_cripto`
	pgEquities = `SELECT id_acoes, nome, NULL::float8, NULL::float8,
		preco_inicial::float8, quantidade::float8, data_aplicacao::timestamptz, data_encerramento::timestamptz, perfil_risco
		FROM acoes WHERE id_investimento = $1 ORDER BY id_acoes`
)

func (p *Postgres) Holdings(ctx context.Context, acct *model.Account) ([]model.Holding, error) {
	var raw []rawHolding
	for _, invID := range acct.InvestmentIDs {
		for _, q := range []struct {
			kind  model.Kind
			query string
		}{
			{model.KindFund, pgFunds},
			{model.KindCrypto, pgCryptos},
			{model.KindEquity, pgEquities},
		} {
			rows, err := p.scan(ctx, q.kind, q.query, invID)
			if err != nil {
				return nil, fmt.Errorf("load %s holdings of %d: %w", q.kind, invID, err)
			}
			raw = append(raw, rows...)
		}
	}
	return collect(raw), nil
}

func (p *Postgres) scan(ctx context.Context, kind model.Kind, query string, invID int64) ([]rawHolding, error) {
	rows, err := p.pool.Query(ctx, query, invID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []rawHolding
	for rows.Next() {
		r := rawHolding{Kind: kind}
		var applied *time.Time
		if err := rows.Scan(&r.ID, &r.Name, &r.Principal, &r.Rate, &r.Purchase, &r.Quantity, &applied, &r.ClosedAt, &r.Tier); err != nil {
			return nil, err
		}
		if applied == nil {
			zap.L().Warn("skipping holding without applied date", zap.String("kind", string(kind)), zap.Int64("id", r.ID))
			continue
		}
		r.AppliedAt = *applied
		out = append(out, r)
	}
	return out, rows.Err()
}

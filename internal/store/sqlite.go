package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"FinUp/internal/model"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLite is a local holdings store mirroring the banking schema.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies pending migrations.
func OpenSQLite(path string) (*SQLite, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	zap.L().Info("sqlite holdings store opened", zap.String("path", path))
	return s, nil
}

// Migrate applies the embedded schema migrations.
func (s *SQLite) Migrate() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("migration instance: %w", err)
	}
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}
	zap.L().Info("holdings migrations applied")
	return nil
}

// DB exposes the underlying handle for seeding and tooling.
func (s *SQLite) DB() *sql.DB { return s.db }

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Account(ctx context.Context, sess *model.Session) (*model.Account, error) {
	acct := &model.Account{CPF: sess.CPF}
	var holder sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT c.id_conta, p.nome
		FROM usuario u
		JOIN pessoa p ON p.id_usuario = u.id_usuario
		JOIN conta c ON c.id_pessoa = p.id_pessoa
		WHERE u.cpf = ? AND (? = 0 OR c.id_conta = ?)
		ORDER BY c.id_conta
		LIMIT 1`, sess.CPF, sess.AccountID, sess.AccountID).Scan(&acct.ID, &holder)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query account: %w", err)
	}
	acct.HolderName = holder.String

	rows, err := s.db.QueryContext(ctx,
		`SELECT id_investimento, perfil_invest FROM containvestimento WHERE id_conta = ? ORDER BY id_investimento`, acct.ID)
	if err != nil {
		return nil, fmt.Errorf("query investment accounts: %w", err)
	}
	defer rows.Close()

	profile := ""
	for rows.Next() {
		var id int64
		var p string
		if err := rows.Scan(&id, &p); err != nil {
			return nil, fmt.Errorf("scan investment account: %w", err)
		}
		if profile == "" {
			profile = p
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
	sqliteFunds = `SELECT id_fundo, COALESCE(nome, ''), valor_investido, rentabilidade, NULL, NULL,
		data_aplicacao, data_encerramento, perfil_risco FROM fundoinvestimento WHERE id_investimento = ? ORDER BY id_fundo`
	sqliteCryptos = `SELECT id_cripto, nome, valor_investido, NULL, preco_compra, quantidade,
		data_aplicacao, data_encerramento, perfil_risco FROM investimentos_cripto WHERE id_investimento = ? ORDER BY id_cripto`
	sqliteEquities = `SELECT id_acoes, nome, NULL, NULL, preco_inicial, quantidade,
		data_aplicacao, data_encerramento, perfil_risco FROM acoes WHERE id_investimento = ? ORDER BY id_acoes`
)

func (s *SQLite) Holdings(ctx context.Context, acct *model.Account) ([]model.Holding, error) {
	var raw []rawHolding
	for _, invID := range acct.InvestmentIDs {
		for _, q := range []struct {
			kind  model.Kind
			query string
		}{
			{model.KindFund, sqliteFunds},
			{model.KindCrypto, sqliteCryptos},
			{model.KindEquity, sqliteEquities},
		} {
			rows, err := s.scan(ctx, q.kind, q.query, invID)
			if err != nil {
				return nil, fmt.Errorf("load %s holdings of %d: %w", q.kind, invID, err)
			}
			raw = append(raw, rows...)
		}
	}
	return collect(raw), nil
}

func (s *SQLite) scan(ctx context.Context, kind model.Kind, query string, invID int64) ([]rawHolding, error) {
	rows, err := s.db.QueryContext(ctx, query, invID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []rawHolding
	for rows.Next() {
		r := rawHolding{Kind: kind}
		var principal, rate, purchase, qty sql.NullFloat64
		var applied string
		var closed sql.NullString
		if err := rows.Scan(&r.ID, &r.Name, &principal, &rate, &purchase, &qty, &applied, &closed, &r.Tier); err != nil {
			return nil, err
		}
		r.Principal = nullable(principal)
		r.Rate = nullable(rate)
		r.Purchase = nullable(purchase)
		r.Quantity = nullable(qty)

		if r.AppliedAt, err = parseDate(applied); err != nil {
			zap.L().Warn("skipping holding with bad applied date", zap.String("kind", string(kind)), zap.Int64("id", r.ID), zap.Error(err))
			continue
		}
		if closed.Valid && closed.String != "" {
			t, err := parseDate(closed.String)
			if err != nil {
				zap.L().Warn("ignoring bad closing date", zap.String("kind", string(kind)), zap.Int64("id", r.ID), zap.Error(err))
			} else {
				r.ClosedAt = &t
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullable(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Fixture describes one customer for seeding a local database.
type Fixture struct {
	CPF     string       `yaml:"cpf"`
	Name    string       `yaml:"name"`
	Profile string       `yaml:"profile"`
	Funds   []FundSeed   `yaml:"funds"`
	Cryptos []CryptoSeed `yaml:"cryptos"`
	Stocks  []EquitySeed `yaml:"stocks"`
}

type FundSeed struct {
	Name      string     `yaml:"name"`
	Amount    float64    `yaml:"amount"`
	Rate      float64    `yaml:"rate"`
	AppliedAt time.Time  `yaml:"applied_at"`
	ClosedAt  *time.Time `yaml:"closed_at"`
	Risk      string     `yaml:"risk"`
}

type CryptoSeed struct {
	Name          string     `yaml:"name"`
	Amount        float64    `yaml:"amount"`
	PurchasePrice float64    `yaml:"purchase_price"`
	AppliedAt     time.Time  `yaml:"applied_at"`
	ClosedAt      *time.Time `yaml:"closed_at"`
	Risk          string     `yaml:"risk"`
}

type EquitySeed struct {
	Ticker        string     `yaml:"ticker"`
	Quantity      float64    `yaml:"quantity"`
	PurchasePrice float64    `yaml:"purchase_price"`
	AppliedAt     time.Time  `yaml:"applied_at"`
	ClosedAt      *time.Time `yaml:"closed_at"`
	Risk          string     `yaml:"risk"`
}

// LoadFixtures reads a YAML list of fixtures.
func LoadFixtures(path string) ([]Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	var fx []Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	return fx, nil
}

const dateLayout = "2006-01-02"

func dateOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

// Seed inserts a customer with one account and one investment account. It returns the account id.
func (s *SQLite) Seed(ctx context.Context, f Fixture) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	insert := func(query string, args ...any) (int64, error) {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, err
		}
		return res.LastInsertId()
	}

	userID, err := insert(`INSERT INTO usuario (cpf) VALUES (?)`, f.CPF)
	if err != nil {
		return 0, fmt.Errorf("insert usuario: %w", err)
	}
	personID, err := insert(`INSERT INTO pessoa (id_usuario, nome) VALUES (?, ?)`, userID, f.Name)
	if err != nil {
		return 0, fmt.Errorf("insert pessoa: %w", err)
	}
	accountID, err := insert(`INSERT INTO conta (id_pessoa) VALUES (?)`, personID)
	if err != nil {
		return 0, fmt.Errorf("insert conta: %w", err)
	}
	profile := f.Profile
	if profile == "" {
		profile = "CONSERVADOR"
	}
	invID, err := insert(`INSERT INTO containvestimento (id_conta, perfil_invest) VALUES (?, ?)`, accountID, profile)
	if err != nil {
		return 0, fmt.Errorf("insert containvestimento: %w", err)
	}

	if err := seedHoldings(ctx, tx, invID, f); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return accountID, nil
}

func seedHoldings(ctx context.Context, tx *sql.Tx, invID int64, f Fixture) error {
	for _, h := range f.Funds {
		if _, err := tx.ExecContext(ctx, `INSERT INTO fundoinvestimento
			(id_investimento, nome, valor_investido, rentabilidade, data_aplicacao, data_encerramento, perfil_risco)
			VALUES (?,?,?,?,?,?,?)`,
			invID, h.Name, h.Amount, h.Rate, h.AppliedAt.Format(dateLayout), dateOrNil(h.ClosedAt), h.Risk); err != nil {
			return fmt.Errorf("insert fund %q: %w", h.Name, err)
		}
	}
	for _, h := range f.Cryptos {
		if _, err := tx.ExecContext(ctx, `INSERT INTO investimentos_cripto
			(id_investimento, nome, valor_investido, preco_compra, data_aplicacao, data_encerramento, perfil_risco)
			VALUES (?,?,?,?,?,?,?)`,
			invID, h.Name, h.Amount, h.PurchasePrice, h.AppliedAt.Format(dateLayout), dateOrNil(h.ClosedAt), h.Risk); err != nil {
			return fmt.Errorf("insert crypto %q: %w", h.Name, err)
		}
	}
	for _, h := range f.Stocks {
		if _, err := tx.ExecContext(ctx, `INSERT INTO acoes
			(id_investimento, nome, quantidade, preco_inicial, data_aplicacao, data_encerramento, perfil_risco)
			VALUES (?,?,?,?,?,?,?)`,
			invID, h.Ticker, h.Quantity, h.PurchasePrice, h.AppliedAt.Format(dateLayout), dateOrNil(h.ClosedAt), h.Risk); err != nil {
			return fmt.Errorf("insert stock %q: %w", h.Ticker, err)
		}
	}
	return nil
}

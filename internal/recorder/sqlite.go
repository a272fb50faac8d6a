package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"FinUp/internal/model"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists evaluation history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	// WAL so dashboards can read while evaluations are written.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	zap.L().Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS evaluations (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			source     TEXT,
			account_id INTEGER NOT NULL,
			profile    TEXT,
			empty      INTEGER,
			total      REAL,
			invested   REAL,
			stale      INTEGER,
			balanced   INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_eval_account_ts ON evaluations(account_id, timestamp)`,

		`CREATE TABLE IF NOT EXISTS evaluation_tiers (
			evaluation_id INTEGER NOT NULL REFERENCES evaluations(id),
			tier          TEXT NOT NULL,
			value         REAL,
			current_pct   REAL,
			target_pct    REAL,
			delta         REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tiers_eval ON evaluation_tiers(evaluation_id)`,

		`CREATE TABLE IF NOT EXISTS recommendations (
			evaluation_id INTEGER NOT NULL REFERENCES evaluations(id),
			seq           INTEGER NOT NULL,
			action_type   TEXT NOT NULL,
			from_tier     TEXT,
			to_tier       TEXT NOT NULL,
			amount        REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_recs_eval ON recommendations(evaluation_id)`,

		`CREATE TABLE IF NOT EXISTS indicators (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			name      TEXT NOT NULL,
			code      INTEGER,
			date      TEXT,
			value     REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_indicators_ts ON indicators(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (r *SQLiteRecorder) RecordEvaluation(evt *EvaluationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO evaluations
		(timestamp, source, account_id, profile, empty, total, invested, stale, balanced)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		evt.At.Unix(), string(evt.Trigger), evt.AccountID, evt.Profile.String(),
		boolInt(evt.Empty), evt.Total, evt.Invested, evt.Stale, boolInt(evt.Balanced),
	)
	if err != nil {
		return fmt.Errorf("insert evaluation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}

	for _, t := range evt.Tiers {
		if _, err := tx.Exec(`INSERT INTO evaluation_tiers
			(evaluation_id, tier, value, current_pct, target_pct, delta) VALUES (?,?,?,?,?,?)`,
			id, t.Tier.String(), t.Value, t.CurrentPct, t.TargetPct, t.Delta); err != nil {
			return fmt.Errorf("insert tier: %w", err)
		}
	}
	for i, rec := range evt.Recommendations {
		var from any
		if rec.From != nil {
			from = rec.From.String()
		}
		if _, err := tx.Exec(`INSERT INTO recommendations
			(evaluation_id, seq, action_type, from_tier, to_tier, amount) VALUES (?,?,?,?,?,?)`,
			id, i, string(rec.Action), from, rec.To.String(), rec.Amount); err != nil {
			return fmt.Errorf("insert recommendation: %w", err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordIndicators(at time.Time, inds []model.EconomicIndicator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ind := range inds {
		if _, err := r.db.Exec(`INSERT INTO indicators (timestamp, name, code, date, value) VALUES (?,?,?,?,?)`,
			at.Unix(), ind.Name, ind.Code, ind.Date.Format("2006-01-02"), ind.Value); err != nil {
			return fmt.Errorf("insert indicator %s: %w", ind.Name, err)
		}
	}
	return nil
}

// Recent returns the latest evaluations of an account, newest first.
func (r *SQLiteRecorder) Recent(ctx context.Context, accountID int64, limit int) ([]EvaluationEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id, timestamp, source, profile, empty, total, invested, stale, balanced
		FROM evaluations WHERE account_id = ? ORDER BY timestamp DESC, id DESC LIMIT ?`, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("query evaluations: %w", err)
	}

	var ids []int64
	var out []EvaluationEvent
	for rows.Next() {
		evt := EvaluationEvent{AccountID: accountID}
		var id, ts int64
		var trigger, profile string
		var empty, stale, balance int
		if err := rows.Scan(&id, &ts, &trigger, &profile, &empty, &evt.Total, &evt.Invested, &stale, &balance); err != nil {
			rows.Close()
			return nil, err
		}
		evt.At = time.Unix(ts, 0)
		evt.Trigger = Trigger(trigger)
		evt.Profile, _ = model.ParseRiskProfile(profile)
		evt.Empty = empty == 1
		evt.Stale = stale
		evt.Balanced = balance == 1
		ids = append(ids, id)
		out = append(out, evt)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, id := range ids {
		if out[i].Tiers, err = r.tiers(ctx, id); err != nil {
			return nil, err
		}
		if out[i].Recommendations, err = r.recommendations(ctx, id); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *SQLiteRecorder) tiers(ctx context.Context, evalID int64) ([]TierRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT tier, value, current_pct, target_pct, delta
		FROM evaluation_tiers WHERE evaluation_id = ? ORDER BY rowid`, evalID)
	if err != nil {
		return nil, fmt.Errorf("query tiers: %w", err)
	}
	defer rows.Close()

	var out []TierRecord
	for rows.Next() {
		var t TierRecord
		var tier string
		if err := rows.Scan(&tier, &t.Value, &t.CurrentPct, &t.TargetPct, &t.Delta); err != nil {
			return nil, err
		}
		if t.Tier, err = model.ParseRiskTier(tier); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) recommendations(ctx context.Context, evalID int64) ([]model.Recommendation, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT action_type, from_tier, to_tier, amount
		FROM recommendations WHERE evaluation_id = ? ORDER BY seq`, evalID)
	if err != nil {
		return nil, fmt.Errorf("query recommendations: %w", err)
	}
	defer rows.Close()

	var out []model.Recommendation
	for rows.Next() {
		var rec model.Recommendation
		var action, to string
		var from sql.NullString
		if err := rows.Scan(&action, &from, &to, &rec.Amount); err != nil {
			return nil, err
		}
		rec.Action = model.Action(action)
		if rec.To, err = model.ParseRiskTier(to); err != nil {
			return nil, err
		}
		if from.Valid {
			f, err := model.ParseRiskTier(from.String)
			if err != nil {
				return nil, err
			}
			rec.From = &f
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	zap.L().Info("closing sqlite recorder")
	return r.db.Close()
}

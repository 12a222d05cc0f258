package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	coremetrics "github.com/kilianp07/solarsim/core/metrics"
)

// SQLiteStore persists runs and their ledgers in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS runs (
        run_id TEXT PRIMARY KEY,
        case_name TEXT,
        start_ts INTEGER,
        net REAL,
        summary TEXT
    );
    CREATE TABLE IF NOT EXISTS steps (
        run_id TEXT,
        idx INTEGER,
        ts INTEGER,
        pv_w REAL,
        load_w REAL,
        battery_w REAL,
        residual_w REAL,
        soc_wh REAL,
        action TEXT,
        PRIMARY KEY(run_id, idx)
    );`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Append writes the summary and steps in one transaction.
func (s *SQLiteStore) Append(ctx context.Context, rec RunRecord) error {
	b, err := json.Marshal(rec.Summary)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	sum := rec.Summary
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, case_name, start_ts, net, summary) VALUES (?, ?, ?, ?, ?)`,
		sum.RunID, sum.Case, sum.Start.Unix(), sum.Net, string(b)); err != nil {
		return fmt.Errorf("insert run %s: %w", sum.RunID, err)
	}
	if len(rec.Steps) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO steps (run_id, idx, ts, pv_w, load_w, battery_w, residual_w, soc_wh, action)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()
		for _, st := range rec.Steps {
			if _, err := stmt.ExecContext(ctx, sum.RunID, st.Index, st.Time.Unix(),
				st.PVW, st.LoadW, st.BatteryW, st.ResidualW, st.SoCWh, st.Action); err != nil {
				return fmt.Errorf("insert step %d: %w", st.Index, err)
			}
		}
	}
	return tx.Commit()
}

// Query returns runs matching q ordered by start time. Steps are loaded only
// when q selects a single run.
func (s *SQLiteStore) Query(ctx context.Context, q RunQuery) ([]RunRecord, error) {
	var args []any
	query := `SELECT summary FROM runs WHERE 1=1`
	if q.RunID != "" {
		query += ` AND run_id = ?`
		args = append(args, q.RunID)
	}
	if q.Case != "" {
		query += ` AND case_name = ?`
		args = append(args, q.Case)
	}
	if !q.Since.IsZero() {
		query += ` AND start_ts >= ?`
		args = append(args, q.Since.Unix())
	}
	if !q.Until.IsZero() {
		query += ` AND start_ts <= ?`
		args = append(args, q.Until.Unix())
	}
	query += ` ORDER BY start_ts`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []RunRecord
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var r RunRecord
		if err := json.Unmarshal([]byte(data), &r.Summary); err != nil {
			return nil, fmt.Errorf("unmarshal summary: %w", err)
		}
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if q.RunID != "" && len(res) == 1 {
		steps, err := s.steps(ctx, q.RunID)
		if err != nil {
			return nil, err
		}
		res[0].Steps = steps
	}
	return res, nil
}

func (s *SQLiteStore) steps(ctx context.Context, runID string) ([]coremetrics.StepSample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, ts, pv_w, load_w, battery_w, residual_w, soc_wh, action
        FROM steps WHERE run_id = ? ORDER BY idx`, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []coremetrics.StepSample
	for rows.Next() {
		var st coremetrics.StepSample
		var ts int64
		if err := rows.Scan(&st.Index, &ts, &st.PVW, &st.LoadW, &st.BatteryW, &st.ResidualW, &st.SoCWh, &st.Action); err != nil {
			return nil, err
		}
		st.Time = time.Unix(ts, 0).UTC()
		st.NetW = st.LoadW - st.PVW
		out = append(out, st)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

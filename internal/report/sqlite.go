package report

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/toolgap/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// WriteSQLite exports the report into a fresh SQLite database at path.
// An existing file at path is replaced once the export succeeds.
func WriteSQLite(ctx context.Context, r *Report, path string) error {
	if r == nil {
		return fmt.Errorf("report cannot be nil")
	}

	return withLock(path, func() error {
		tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*.db")
		if err != nil {
			return fmt.Errorf("failed to create temp database: %w", err)
		}
		tmpPath := tmp.Name()
		tmp.Close()
		defer os.Remove(tmpPath)

		if err := exportSQLite(ctx, r, tmpPath); err != nil {
			return err
		}
		if err := os.Rename(tmpPath, path); err != nil {
			return fmt.Errorf("failed to rename temp database to %s: %w", path, err)
		}
		return nil
	})
}

func exportSQLite(ctx context.Context, r *Report, dbPath string) error {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var gapPolicy sql.NullString
	if r.Transitions != nil {
		gapPolicy = sql.NullString{String: string(r.Transitions.Policy), Valid: true}
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, command, input_dir, generated_at, total_calls, total_responses, gap_policy)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Command, r.InputDir, r.Generated, r.Totals.Calls, r.Totals.Responses, gapPolicy)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	if err := insertRates(ctx, tx, r); err != nil {
		return err
	}
	if err := insertTransitions(ctx, tx, r); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertRates(ctx context.Context, tx *sql.Tx, r *Report) error {
	if r.Rates == nil {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO label_rates (run_id, model, condition, label, count, total, rate, ci_lo, ci_hi)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare label_rates insert: %w", err)
	}
	defer stmt.Close()

	for _, g := range r.Rates.Groups {
		for _, rate := range g.Rates {
			_, err := stmt.ExecContext(ctx,
				r.RunID, g.Group.Model, conditionCell(g.Group), string(rate.Label), rate.Count, rate.Total,
				nullFloat(rate.Rate, rate.Defined), nullFloat(rate.CILo, rate.Defined), nullFloat(rate.CIHi, rate.Defined))
			if err != nil {
				return fmt.Errorf("insert rate %s %s: %w", g.Group, rate.Label, err)
			}
		}
	}
	return nil
}

func insertTransitions(ctx context.Context, tx *sql.Tx, r *Report) error {
	if r.Transitions == nil {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO transitions (run_id, model, from_label, to_label, count, probability)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare transitions insert: %w", err)
	}
	defer stmt.Close()

	for _, model := range r.Transitions.Models {
		m := r.Transitions.Matrix(model)
		for i, row := range m.Probabilities() {
			for j, to := range models.Labels {
				_, err := stmt.ExecContext(ctx,
					r.RunID, model, string(row.From), string(to), m.Counts[i][j], nullFloat(row.P[j], row.Defined))
				if err != nil {
					return fmt.Errorf("insert transition %s %s->%s: %w", model, row.From, to, err)
				}
			}
		}
	}
	return nil
}

func nullFloat(v float64, valid bool) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: valid}
}

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/restocklab/replaysim/internal/domain"
	"github.com/restocklab/replaysim/internal/repository"
)

type runRepository struct {
	db *sqlx.DB
}

func NewRunRepository(db *sqlx.DB) repository.RunRepository {
	return &runRepository{db: db}
}

func (r *runRepository) SaveReport(ctx context.Context, report *domain.SimulationReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode simulation report: %w", err)
	}
	summary, err := json.Marshal(report.Summary)
	if err != nil {
		return fmt.Errorf("encode run summary: %w", err)
	}

	query := `
        INSERT INTO simulation_runs (run_id, tenant_id, status, start_date, end_date, summary, report, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
        ON CONFLICT (run_id) DO UPDATE
        SET status = EXCLUDED.status, summary = EXCLUDED.summary, report = EXCLUDED.report
    `
	if _, err := r.db.ExecContext(ctx, query,
		report.RunID, report.Run.TenantID, report.Status,
		report.Run.StartDate, report.Run.EndDate, summary, payload,
	); err != nil {
		return fmt.Errorf("error saving simulation run: %w", err)
	}

	return nil
}

func (r *runRepository) GetReport(ctx context.Context, runID string) (*domain.SimulationReport, error) {
	query := `SELECT report FROM simulation_runs WHERE run_id = $1`

	var payload []byte
	if err := r.db.GetContext(ctx, &payload, query, runID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error loading simulation run: %w", err)
	}

	var report domain.SimulationReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("decode simulation report: %w", err)
	}

	return &report, nil
}

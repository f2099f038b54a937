package importing

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/bank-reconciliation-ledger/internal/domain/shared"
)

// PoolImporter fans rows of one batch out over a bounded worker pool. Row
// results are collected under a mutex; per-row ordering of the error list
// follows row index, matching the sequential importer.
type PoolImporter struct {
	base   *Importer
	pool   *ants.Pool
	logger *slog.Logger
}

type PoolConfig struct {
	Size int
}

// NewPoolImporter creates a parallel importer over a fixed-size ants pool.
func NewPoolImporter(logger *slog.Logger, base *Importer, config PoolConfig) (*PoolImporter, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &PoolImporter{
		base:   base,
		pool:   pool,
		logger: logger,
	}, nil
}

// ImportRows imports the batch with rows processed in parallel. Each row's
// insert stays individually atomic; the report is assembled once every worker
// has finished.
func (p *PoolImporter) ImportRows(ctx context.Context, orgID, statementID uuid.UUID, rows []shared.StatementRow) (*shared.ImportReport, error) {
	st, err := p.base.checkImportable(ctx, orgID, statementID)
	if err != nil {
		return nil, err
	}

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		rowErrors = make([]*shared.ImportError, len(rows))
		fatal     error
	)

	for i := range rows {
		i := i
		row := rows[i]

		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			importErr, rowFatal := p.base.importRow(ctx, st.ID, i, row)
			mu.Lock()
			defer mu.Unlock()
			if rowFatal != nil && fatal == nil {
				fatal = rowFatal
				return
			}
			if importErr != nil {
				rowErrors[i] = importErr
			}
		})
		if submitErr != nil {
			wg.Done()
			p.logger.Error("Failed to submit row to worker pool",
				"statement_id", statementID.String(),
				"row_index", i,
				"error", submitErr,
			)
			rowErrors[i] = &shared.ImportError{RowIndex: i, Reason: "worker pool rejected row: " + submitErr.Error()}
		}
	}
	wg.Wait()

	if fatal != nil {
		return nil, fatal
	}

	report := &shared.ImportReport{}
	for _, rowErr := range rowErrors {
		if rowErr != nil {
			report.ErrorCount++
			report.Errors = append(report.Errors, *rowErr)
			continue
		}
		report.ImportedCount++
	}

	p.base.finish(ctx, orgID, statementID, report)
	return report, nil
}

// Shutdown releases the worker pool.
func (p *PoolImporter) Shutdown() {
	p.logger.Info("Shutting down import worker pool", "running_workers", p.pool.Running())
	p.pool.Release()
}

// Running returns the number of busy workers.
func (p *PoolImporter) Running() int {
	return p.pool.Running()
}

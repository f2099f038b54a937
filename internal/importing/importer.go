package importing

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bank-reconciliation-ledger/internal/domain/audit"
	"github.com/bank-reconciliation-ledger/internal/domain/shared"
	"github.com/bank-reconciliation-ledger/internal/domain/statement"
)

// RowImporter imports a batch of normalized statement rows.
type RowImporter interface {
	ImportRows(ctx context.Context, orgID, statementID uuid.UUID, rows []shared.StatementRow) (*shared.ImportReport, error)
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "01/02/2006", "01/02/06"}

// Importer persists statement rows one at a time. A row that fails to parse
// is recorded in the report and skipped; the rest of the batch proceeds.
type Importer struct {
	statements statement.Repository
	normalizer *TypeNormalizer
	audits     audit.Repository
	logger     *slog.Logger
}

// NewImporter creates a sequential importer.
func NewImporter(logger *slog.Logger, statements statement.Repository, normalizer *TypeNormalizer, audits audit.Repository) *Importer {
	return &Importer{
		statements: statements,
		normalizer: normalizer,
		audits:     audits,
		logger:     logger,
	}
}

// ImportRows imports every row into the statement and reports per-row errors.
// Importing into a COMPLETED statement fails as a whole.
func (imp *Importer) ImportRows(ctx context.Context, orgID, statementID uuid.UUID, rows []shared.StatementRow) (*shared.ImportReport, error) {
	st, err := imp.checkImportable(ctx, orgID, statementID)
	if err != nil {
		return nil, err
	}

	report := &shared.ImportReport{}
	for i, row := range rows {
		importErr, fatal := imp.importRow(ctx, st.ID, i, row)
		if fatal != nil {
			return nil, fatal
		}
		if importErr != nil {
			report.ErrorCount++
			report.Errors = append(report.Errors, *importErr)
			continue
		}
		report.ImportedCount++
	}

	imp.finish(ctx, orgID, statementID, report)
	return report, nil
}

// checkImportable loads the statement and rejects COMPLETED ones.
func (imp *Importer) checkImportable(ctx context.Context, orgID, statementID uuid.UUID) (*statement.Statement, error) {
	st, err := imp.statements.GetByID(ctx, orgID, statementID)
	if err != nil {
		return nil, err
	}
	if st.Status == statement.StatusCompleted {
		return nil, shared.InvalidStateError{
			Resource: "statement",
			ID:       st.ID,
			State:    string(st.Status),
			Reason:   "cannot import rows into a completed statement",
		}
	}
	return st, nil
}

// importRow parses and persists one row. Each row's insert is its own atomic
// statement; a parse or write failure is reported per row. The one exception
// is the statement turning COMPLETED under the batch: the guarded insert
// reports InvalidStateError then, and the batch fails as a whole.
func (imp *Importer) importRow(ctx context.Context, statementID uuid.UUID, index int, row shared.StatementRow) (*shared.ImportError, error) {
	date, err := parseDate(row.Date)
	if err != nil {
		return &shared.ImportError{RowIndex: index, Field: "date", Reason: err.Error()}, nil
	}
	amount, err := parseAmount(row.Amount)
	if err != nil {
		return &shared.ImportError{RowIndex: index, Field: "amount", Reason: err.Error()}, nil
	}

	st := &statement.Transaction{
		ID:          uuid.New(),
		StatementID: statementID,
		Date:        date,
		Description: row.Description,
		Amount:      amount,
		Reference:   row.Reference,
		Type:        imp.normalizer.Normalize(row.RawType),
		CreatedAt:   time.Now(),
	}

	if err := imp.statements.CreateTransaction(ctx, st); err != nil {
		if errors.Is(err, shared.InvalidStateError{}) {
			return nil, err
		}
		imp.logger.Error("Failed to store statement row",
			"statement_id", statementID.String(),
			"row_index", index,
			"error", err,
		)
		return &shared.ImportError{RowIndex: index, Field: "", Reason: "store failure: " + err.Error()}, nil
	}
	return nil, nil
}

// finish logs and audits the batch outcome.
func (imp *Importer) finish(ctx context.Context, orgID, statementID uuid.UUID, report *shared.ImportReport) {
	imp.logger.Info("Statement rows imported",
		"statement_id", statementID.String(),
		"imported_count", report.ImportedCount,
		"error_count", report.ErrorCount,
	)

	detail := map[string]any{
		"imported_count": report.ImportedCount,
		"error_count":    report.ErrorCount,
	}
	if len(report.Errors) > 0 {
		detail["errors"] = report.Errors
	}
	if err := imp.audits.Record(ctx, audit.New(orgID, audit.KindStatementImported, statementID, detail)); err != nil {
		imp.logger.Error("Failed to record audit event",
			"kind", string(audit.KindStatementImported),
			"statement_id", statementID.String(),
			"error", err,
		)
	}
}

func parseDate(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, shared.ValidationError{Field: "date", Reason: "date is empty"}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, nil
		}
	}
	return time.Time{}, shared.ValidationError{Field: "date", Reason: "unrecognized date: " + trimmed}
}

func parseAmount(raw string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")

	// Bank exports often write negatives as (123.45).
	negative := false
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		negative = true
		cleaned = cleaned[1 : len(cleaned)-1]
	}

	if cleaned == "" {
		return decimal.Zero, shared.ValidationError{Field: "amount", Reason: "amount is empty"}
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, shared.ValidationError{Field: "amount", Reason: "unparseable amount: " + raw}
	}
	if negative {
		amount = amount.Neg()
	}
	return amount, nil
}

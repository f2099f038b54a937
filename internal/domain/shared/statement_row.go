package shared

// StatementRow is one normalized row handed to the importer by an external
// CSV/OFX parser. Date and Amount arrive as text; the importer owns parsing
// them and records per-row failures instead of aborting the batch.
type StatementRow struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Reference   string `json:"reference"`
	RawType     string `json:"raw_type"`
}

// ImportError describes one row the importer skipped.
type ImportError struct {
	RowIndex int    `json:"row_index"`
	Field    string `json:"field"`
	Reason   string `json:"reason"`
}

// ImportReport summarizes a batch import. Partial success is expected.
type ImportReport struct {
	ImportedCount int           `json:"imported_count"`
	ErrorCount    int           `json:"error_count"`
	Errors        []ImportError `json:"errors"`
}

// MatchReport summarizes one auto-match run over a statement.
type MatchReport struct {
	MatchedCount int `json:"matched_count"`
}

// Package matching pairs imported statement rows with ledger transactions.
// Amount equality is a hard gate; date and description only disambiguate
// among exact-amount candidates.
package matching

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bank-reconciliation-ledger/internal/domain/ledger"
	"github.com/bank-reconciliation-ledger/internal/domain/statement"
)

// amountTolerance is one cent in the account's minor unit.
var amountTolerance = decimal.New(1, -2)

// eligibilityThreshold is the strict lower bound an accepted score must exceed.
const eligibilityThreshold = 0.70

// Score rates one statement row against one candidate ledger transaction for
// the statement's account. It returns 0 when the amounts differ by a cent or
// more; otherwise 0.70 plus up to 0.15 each for date and description affinity.
func Score(row *statement.Transaction, candidate *ledger.Transaction, accountID uuid.UUID) float64 {
	signed := candidate.SignedAmount(accountID)
	if signed.Sub(row.Amount).Abs().GreaterThanOrEqual(amountTolerance) {
		return 0
	}
	return eligibilityThreshold + 0.15*dateScore(row.Date, candidate.Date) + 0.15*descriptionScore(candidate.Description, row.Description)
}

// dateScore decays linearly from 1.0 on the same day to 0 once the dates are
// more than three days apart.
func dateScore(a, b time.Time) float64 {
	daysApart := a.Sub(b).Hours() / 24
	if daysApart < 0 {
		daysApart = -daysApart
	}
	if daysApart > 3 {
		return 0
	}
	return (3 - daysApart) / 3
}

// descriptionScore is 1.0 when either description contains the other
// (case-insensitive). Otherwise it is the count of significant words (length
// >= 4) of the ledger description that also occur in the statement
// description, over the larger of the two significant-word counts.
func descriptionScore(ledgerDesc, statementDesc string) float64 {
	a := strings.ToLower(strings.TrimSpace(ledgerDesc))
	b := strings.ToLower(strings.TrimSpace(statementDesc))
	if a == "" && b == "" {
		return 0
	}
	if a != "" && b != "" && (strings.Contains(a, b) || strings.Contains(b, a)) {
		return 1.0
	}

	ledgerWords := significantWords(a)
	statementWords := significantWords(b)

	longer := len(ledgerWords)
	if len(statementWords) > longer {
		longer = len(statementWords)
	}
	if longer == 0 {
		return 0
	}

	inStatement := make(map[string]struct{}, len(statementWords))
	for _, w := range statementWords {
		inStatement[w] = struct{}{}
	}

	overlap := 0
	for _, w := range ledgerWords {
		if _, ok := inStatement[w]; ok {
			overlap++
		}
	}
	return float64(overlap) / float64(longer)
}

func significantWords(s string) []string {
	var words []string
	for _, w := range strings.Fields(s) {
		if len(w) >= 4 {
			words = append(words, w)
		}
	}
	return words
}

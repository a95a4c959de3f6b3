package sheets

import (
	"context"
	"time"

	"soci/internal/core"
)

// LedgerEntry is one exported payment row, denormalized so the ledger stays
// readable without access to the database.
type LedgerEntry struct {
	PaidAt        time.Time
	MemberNumber  string
	FullName      string
	Amount        core.Money
	ReceiptNumber string
}

// Ports for outbound adapters.
type (
	// LedgerWriter appends payment rows to the club's ledger spreadsheet.
	LedgerWriter interface {
		Append(ctx context.Context, e LedgerEntry) (rowRef string, err error)
	}
)

package sheets

import (
	"context"

	"smartspend/internal/core"
)

// Ports for outbound spreadsheet adapters.
type (
	// LedgerMirror overwrites the remote sheet with the full ledger.
	LedgerMirror interface {
		MirrorLedger(ctx context.Context, ledger []core.Expense) error
	}

	// LedgerReader reads back what the remote sheet currently holds.
	// skipped counts rows that could not be parsed.
	LedgerReader interface {
		ReadLedger(ctx context.Context) (ledger []core.Expense, skipped int, err error)
	}

	// LedgerSheet is a mirror that can also be read back.
	LedgerSheet interface {
		LedgerMirror
		LedgerReader
	}
)

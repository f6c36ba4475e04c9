package ledger

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"

	"stockwatch/internal/database"
)

// Store hands out scoped transactions. *database.GormDB implements it.
type Store interface {
	InTx(ctx context.Context, fn func(database.LedgerTx) error) error
}

// BatchResult summarizes one ledger batch. Per-row failures are counted here
// and never abort the batch.
type BatchResult struct {
	// Written is the number of ledger rows written
	Written int
	// Unchanged is the number of observations that needed no new row
	Unchanged int
	// Failed is the number of observations that could not be persisted
	Failed int
}

// isFatal reports errors that make the rest of the batch pointless
func isFatal(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone)
}

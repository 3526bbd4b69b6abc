package period

import (
	"context"
	"time"

	"bartally/internal/core/id"
)

// Gate adapts the period repository for the checks other domains make
// before writing period-owned data. It satisfies stocktake.PeriodGate and
// ledger.PeriodWindows.
type Gate struct {
	repo Repository
}

// NewGate creates a period gate over the repository.
func NewGate(repo Repository) *Gate {
	return &Gate{repo: repo}
}

// EnsureOpen verifies the period is still draft, holding a shared lock on
// its row for the rest of the transaction. A concurrent close takes the
// exclusive lock and therefore waits for (or is waited on by) every in-flight
// count; either way the closed check and the count write cannot interleave.
func (g *Gate) EnsureOpen(ctx context.Context, periodID id.ID) error {
	p, err := g.repo.GetForShare(ctx, periodID)
	if err != nil {
		return err
	}
	return p.CanMutate()
}

// ActiveWindow resolves the venue's period covering a business timestamp and
// reports whether that period is closed. Ledger ingest stamps the returned
// period onto each entry.
func (g *Gate) ActiveWindow(ctx context.Context, venueID id.ID, at time.Time) (id.ID, bool, error) {
	p, err := g.repo.FindActiveAt(ctx, venueID, at)
	if err != nil {
		return id.Nil(), false, err
	}
	return p.ID, p.IsClosed(), nil
}

package period

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bartally/internal/core/apperror"
	"bartally/internal/core/id"
	"bartally/internal/core/types"
)

func testPeriod(t *testing.T) *Period {
	t.Helper()
	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	p := New(id.New(), "August 2026", start, end)
	require.NoError(t, p.Validate(context.Background()))
	return p
}

func TestPeriodCloseReopenCycle(t *testing.T) {
	p := testPeriod(t)

	require.NoError(t, p.MarkClosed("alice"))
	assert.True(t, p.IsClosed())
	require.NotNil(t, p.ClosedAt)
	assert.Equal(t, "alice", *p.ClosedBy)
	assert.Equal(t, 1, p.CloseCycle)

	// Closing again is the losing side of a conflicting transition.
	err := p.MarkClosed("bob")
	assert.True(t, apperror.IsCode(err, apperror.CodeConflictingTransition))
	assert.Equal(t, 1, p.CloseCycle)

	require.NoError(t, p.MarkReopened("bob"))
	assert.False(t, p.IsClosed())
	assert.Equal(t, "bob", *p.ReopenedBy)
	// Prior close audit fields survive the reopen.
	assert.Equal(t, "alice", *p.ClosedBy)
	require.NotNil(t, p.ClosedAt)

	// Second cycle bumps the close counter.
	require.NoError(t, p.MarkClosed("carol"))
	assert.Equal(t, 2, p.CloseCycle)
	assert.Equal(t, "carol", *p.ClosedBy)
}

func TestPeriodReopenRequiresClosed(t *testing.T) {
	p := testPeriod(t)

	err := p.MarkReopened("alice")
	assert.True(t, apperror.IsCode(err, apperror.CodeNotClosed))
}

func TestPeriodCanMutate(t *testing.T) {
	p := testPeriod(t)
	require.NoError(t, p.CanMutate())

	require.NoError(t, p.MarkClosed("alice"))
	err := p.CanMutate()
	assert.True(t, apperror.IsCode(err, apperror.CodePeriodLocked))
}

func TestPeriodSetOverride(t *testing.T) {
	p := testPeriod(t)

	amount := types.MinorUnits(125_50)
	require.NoError(t, p.SetOverride(OverridePurchases, &amount))
	require.NotNil(t, p.PurchasesOverride)
	assert.Equal(t, amount, *p.PurchasesOverride)

	require.NoError(t, p.SetOverride(OverridePurchases, nil))
	assert.Nil(t, p.PurchasesOverride)

	negative := types.MinorUnits(-1)
	err := p.SetOverride(OverrideSales, &negative)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidQuantity))

	err = p.SetOverride(OverrideKind("waste"), &amount)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestPeriodContains(t *testing.T) {
	p := testPeriod(t)

	assert.True(t, p.Contains(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, p.Contains(time.Date(2026, 8, 31, 23, 59, 59, 0, time.UTC)))
	assert.False(t, p.Contains(time.Date(2026, 7, 31, 23, 59, 59, 0, time.UTC)))
	assert.False(t, p.Contains(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)))
}

func TestPeriodValidate(t *testing.T) {
	p := testPeriod(t)
	p.EndDate = p.StartDate.AddDate(0, 0, -1)
	err := p.Validate(context.Background())
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

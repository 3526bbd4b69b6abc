package stocktake

import "bartally/internal/core/numerator"

const (
	// NumeratorStrategy defines the numbering strategy for stocktake sheets.
	// Strict keeps the counting-sheet sequence gapless, which auditors
	// expect of stock records.
	NumeratorStrategy = numerator.StrategyStrict
)

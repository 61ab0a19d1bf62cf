// Package strategy defines the strategy identities shared by the scanner,
// the pre-buy filter, and the trade simulator.
package strategy

// Name identifies one scanning strategy.
type Name string

const (
	MeanReversion         Name = "Mean Reversion"
	PercentBReversion     Name = "%B Mean Reversion"
	BBRSICombo            Name = "BB+RSI Combo"
	High52Week            Name = "52-Week High"
	EMACrossover          Name = "EMA Crossover"
	ConsolidationBreakout Name = "Consolidation Breakout"
	BBSqueeze             Name = "BB Squeeze"
	SwingMomentum         Name = "Swing Momentum"
)

// Family groups strategies that share one exit state machine.
type Family int

const (
	FamilyUnknown Family = iota
	FamilyMeanReversion
	FamilyMomentum
	FamilySwing
)

// FamilyOf maps a strategy to its exit family. Unrecognized strategies fall
// into the momentum family, which carries the most conservative exits.
func FamilyOf(n Name) Family {
	switch n {
	case MeanReversion, PercentBReversion, BBRSICombo:
		return FamilyMeanReversion
	case High52Week, EMACrossover, ConsolidationBreakout, BBSqueeze:
		return FamilyMomentum
	case SwingMomentum:
		return FamilySwing
	default:
		return FamilyUnknown
	}
}

// Priority ranks strategies for deduplication: when one ticker fires on
// several strategies the same day, the higher priority wins.
func Priority(n Name) int {
	switch n {
	case BBRSICombo:
		return 7
	case MeanReversion:
		return 6
	case PercentBReversion:
		return 5
	case High52Week:
		return 4
	case EMACrossover:
		return 3
	case ConsolidationBreakout:
		return 2
	case BBSqueeze, SwingMomentum:
		return 1
	default:
		return 0
	}
}

// RequiresConfirmation reports whether the strategy waits for a
// confirmation bar before entering. The swing family enters immediately at
// the signal close; everything else defers to the global confirmation flag.
func RequiresConfirmation(n Name) bool {
	return FamilyOf(n) != FamilySwing
}

// Breakout reports whether the strategy buys strength at new highs, the
// kind of entry a bearish benchmark regime blocks.
func Breakout(n Name) bool {
	return n == High52Week || n == ConsolidationBreakout
}

// All lists every strategy the scanner can emit, in priority order.
func All() []Name {
	return []Name{
		BBRSICombo,
		MeanReversion,
		PercentBReversion,
		High52Week,
		EMACrossover,
		ConsolidationBreakout,
		BBSqueeze,
		SwingMomentum,
	}
}

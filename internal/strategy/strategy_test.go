package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFamilyOf(t *testing.T) {
	assert.Equal(t, FamilyMeanReversion, FamilyOf(MeanReversion))
	assert.Equal(t, FamilyMeanReversion, FamilyOf(PercentBReversion))
	assert.Equal(t, FamilyMeanReversion, FamilyOf(BBRSICombo))
	assert.Equal(t, FamilyMomentum, FamilyOf(High52Week))
	assert.Equal(t, FamilyMomentum, FamilyOf(EMACrossover))
	assert.Equal(t, FamilySwing, FamilyOf(SwingMomentum))
	assert.Equal(t, FamilyUnknown, FamilyOf(Name("made up")))
}

func TestPriorityOrderIsStrictAcrossFamilies(t *testing.T) {
	assert.Greater(t, Priority(BBRSICombo), Priority(MeanReversion))
	assert.Greater(t, Priority(MeanReversion), Priority(PercentBReversion))
	assert.Greater(t, Priority(High52Week), Priority(EMACrossover))
	assert.Greater(t, Priority(ConsolidationBreakout), Priority(BBSqueeze))
	assert.Equal(t, 0, Priority(Name("made up")))
}

func TestRequiresConfirmation(t *testing.T) {
	assert.True(t, RequiresConfirmation(High52Week))
	assert.True(t, RequiresConfirmation(MeanReversion))
	assert.False(t, RequiresConfirmation(SwingMomentum), "swing entries take the signal close immediately")
}

func TestBreakout(t *testing.T) {
	assert.True(t, Breakout(High52Week))
	assert.True(t, Breakout(ConsolidationBreakout))
	assert.False(t, Breakout(MeanReversion))
	assert.False(t, Breakout(EMACrossover))
}

func TestAllCoversEveryStrategy(t *testing.T) {
	names := All()
	assert.Len(t, names, 8)
	for _, n := range names {
		assert.NotEqual(t, FamilyUnknown, FamilyOf(n))
		assert.Greater(t, Priority(n), 0)
	}
}

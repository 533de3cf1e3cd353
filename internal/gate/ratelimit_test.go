package gate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/agentd/internal/action"
	"github.com/fyrsmithlabs/agentd/internal/risk"
)

// fakeClock pins the limiter to a controllable instant.
func fakeClock(l *Limiter) *time.Time {
	now := time.Unix(1700000000, 0)
	l.now = func() time.Time { return now }
	return &now
}

func TestClassOf(t *testing.T) {
	assert.Equal(t, ClassCommand, classOf(action.CapRunCommand))
	assert.Equal(t, ClassReadOnly, classOf(action.CapAnalyzeContent))
	assert.Equal(t, ClassMutation, classOf(action.CapCreateFile))
	assert.Equal(t, ClassMutation, classOf(action.CapEditFile))
	assert.Equal(t, ClassMutation, classOf(action.CapCreateProject))
}

func TestAllowWithinBudget(t *testing.T) {
	l := NewLimiter(map[string]Budget{
		ClassCommand: {Window: time.Minute, Max: 3, Burst: 3},
	})
	now := fakeClock(l)

	for i := 0; i < 3; i++ {
		_, ok, _ := l.Allow(action.CapRunCommand, risk.TierModerate)
		assert.True(t, ok, "request %d", i)
		*now = now.Add(time.Second)
	}

	class, ok, retry := l.Allow(action.CapRunCommand, risk.TierModerate)
	assert.False(t, ok)
	assert.Equal(t, ClassCommand, class)
	assert.Greater(t, retry, time.Duration(0))
}

func TestWindowSlides(t *testing.T) {
	l := NewLimiter(map[string]Budget{
		ClassCommand: {Window: time.Minute, Max: 2, Burst: 2},
	})
	now := fakeClock(l)

	_, ok, _ := l.Allow(action.CapRunCommand, risk.TierModerate)
	require.True(t, ok)
	*now = now.Add(time.Second)
	_, ok, _ = l.Allow(action.CapRunCommand, risk.TierModerate)
	require.True(t, ok)

	_, ok, _ = l.Allow(action.CapRunCommand, risk.TierModerate)
	require.False(t, ok)

	// Slide past the first hit; one slot opens up.
	*now = now.Add(61 * time.Second)
	_, ok, _ = l.Allow(action.CapRunCommand, risk.TierModerate)
	assert.True(t, ok)
}

func TestClassesAreIndependent(t *testing.T) {
	l := NewLimiter(map[string]Budget{
		ClassCommand:  {Window: time.Minute, Max: 1, Burst: 1},
		ClassMutation: {Window: time.Minute, Max: 5, Burst: 5},
	})
	fakeClock(l)

	_, ok, _ := l.Allow(action.CapRunCommand, risk.TierModerate)
	require.True(t, ok)
	_, ok, _ = l.Allow(action.CapRunCommand, risk.TierModerate)
	require.False(t, ok)

	// Command exhaustion leaves mutations unaffected.
	_, ok, _ = l.Allow(action.CapCreateFile, risk.TierSafe)
	assert.True(t, ok)
}

func TestDangerousDrawsFromBothBudgets(t *testing.T) {
	l := NewLimiter(map[string]Budget{
		ClassCommand:   {Window: time.Minute, Max: 10, Burst: 10},
		classDangerous: {Window: time.Minute, Max: 1, Burst: 1},
	})
	now := fakeClock(l)

	_, ok, _ := l.Allow(action.CapRunCommand, risk.TierDangerous)
	require.True(t, ok)

	*now = now.Add(time.Second)
	class, ok, _ := l.Allow(action.CapRunCommand, risk.TierDangerous)
	assert.False(t, ok)
	assert.Equal(t, classDangerous, class)

	// The dangerous denial consumed nothing from the command class.
	_, ok, _ = l.Allow(action.CapRunCommand, risk.TierModerate)
	assert.True(t, ok)
}

func TestBurstSubWindow(t *testing.T) {
	// 30 per minute but at most 2 back to back.
	l := NewLimiter(map[string]Budget{
		ClassMutation: {Window: time.Minute, Max: 30, Burst: 2},
	})
	now := fakeClock(l)

	_, ok, _ := l.Allow(action.CapCreateFile, risk.TierSafe)
	require.True(t, ok)
	_, ok, _ = l.Allow(action.CapCreateFile, risk.TierSafe)
	require.True(t, ok)

	_, ok, retry := l.Allow(action.CapCreateFile, risk.TierSafe)
	assert.False(t, ok)
	assert.Greater(t, retry, time.Duration(0))

	// Tokens refill at the sustained rate; a pause restores capacity.
	*now = now.Add(10 * time.Second)
	_, ok, _ = l.Allow(action.CapCreateFile, risk.TierSafe)
	assert.True(t, ok)
}

func TestUnknownClassUnlimited(t *testing.T) {
	l := NewLimiter(map[string]Budget{})
	fakeClock(l)

	for i := 0; i < 100; i++ {
		_, ok, _ := l.Allow(action.CapRunCommand, risk.TierModerate)
		require.True(t, ok)
	}
}

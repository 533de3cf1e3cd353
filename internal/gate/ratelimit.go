package gate

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/agentd/internal/action"
	"github.com/fyrsmithlabs/agentd/internal/risk"
)

// Capability classes share a rate budget.
const (
	ClassCommand  = "command"
	ClassMutation = "mutation"
	ClassReadOnly = "readonly"

	// classDangerous is the extra, stricter budget every Dangerous-tier
	// request draws from in addition to its capability class.
	classDangerous = "dangerous"
)

// classOf maps a capability to its rate-limit class.
func classOf(c action.Capability) string {
	switch c {
	case action.CapRunCommand:
		return ClassCommand
	case action.CapAnalyzeContent:
		return ClassReadOnly
	default:
		return ClassMutation
	}
}

// Budget defines one sliding-window rate budget with a burst sub-window.
type Budget struct {
	// Window is the sliding window length.
	Window time.Duration

	// Max is the number of requests allowed per window.
	Max int

	// Burst caps short spikes inside the window.
	Burst int
}

// DefaultBudgets returns the budgets used when configuration does not
// override them.
func DefaultBudgets() map[string]Budget {
	return map[string]Budget{
		ClassCommand:   {Window: time.Minute, Max: 10, Burst: 3},
		ClassMutation:  {Window: time.Minute, Max: 30, Burst: 10},
		ClassReadOnly:  {Window: time.Minute, Max: 60, Burst: 20},
		classDangerous: {Window: time.Minute, Max: 3, Burst: 1},
	}
}

// Limiter enforces sliding-window budgets per capability class. A denied
// request is not queued; callers receive a retry-after hint instead.
type Limiter struct {
	mu      sync.Mutex
	budgets map[string]Budget
	hits    map[string][]time.Time
	burst   map[string]*rate.Limiter
	now     func() time.Time
}

// NewLimiter creates a limiter. nil budgets fall back to DefaultBudgets.
func NewLimiter(budgets map[string]Budget) *Limiter {
	if budgets == nil {
		budgets = DefaultBudgets()
	}
	l := &Limiter{
		budgets: budgets,
		hits:    make(map[string][]time.Time),
		burst:   make(map[string]*rate.Limiter),
		now:     time.Now,
	}
	for class, b := range budgets {
		if b.Max <= 0 || b.Window <= 0 {
			continue
		}
		burst := b.Burst
		if burst <= 0 {
			burst = b.Max
		}
		perSecond := rate.Limit(float64(b.Max) / b.Window.Seconds())
		l.burst[class] = rate.NewLimiter(perSecond, burst)
	}
	return l
}

// Allow consumes budget for one request. Dangerous-tier requests draw
// from both their capability class and the stricter dangerous budget; if
// either denies, the whole request is denied and no budget is consumed.
func (l *Limiter) Allow(capability action.Capability, tier risk.Tier) (string, bool, time.Duration) {
	classes := []string{classOf(capability)}
	if tier == risk.TierDangerous {
		classes = append(classes, classDangerous)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for _, class := range classes {
		if ok, retry := l.checkLocked(class, now); !ok {
			return class, false, retry
		}
	}
	for _, class := range classes {
		l.hits[class] = append(l.hits[class], now)
		if lim := l.burst[class]; lim != nil {
			lim.AllowN(now, 1)
		}
	}
	return "", true, 0
}

// checkLocked tests one class without consuming. Caller holds l.mu.
func (l *Limiter) checkLocked(class string, now time.Time) (bool, time.Duration) {
	b, ok := l.budgets[class]
	if !ok || b.Max <= 0 {
		return true, 0
	}

	// Prune hits that slid out of the window.
	cutoff := now.Add(-b.Window)
	hits := l.hits[class]
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	hits = hits[i:]
	l.hits[class] = hits

	if len(hits) >= b.Max {
		retry := hits[0].Add(b.Window).Sub(now)
		if retry < 0 {
			retry = 0
		}
		return false, retry
	}

	if lim := l.burst[class]; lim != nil {
		if tokens := lim.TokensAt(now); tokens < 1 {
			// Burst sub-window exhausted; tokens refill at Max/Window.
			refill := time.Duration(float64(time.Second) * (1 - tokens) / float64(lim.Limit()))
			if refill < 0 {
				refill = 0
			}
			return false, refill
		}
	}
	return true, 0
}

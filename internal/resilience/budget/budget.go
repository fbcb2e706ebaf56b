// Package budget implements the per-cycle, per-capability call and spend
// budget required by the pipeline's backpressure policy: each external
// capability (scoring, fetch, search, synthesis, component selection,
// component rendering) gets a maximum call count and a maximum spend for
// the cycle currently running. Once either is exhausted, remaining work for
// that capability is deferred rather than attempted.
//
// The tracker is a fixed-window-per-cycle counter: the window here is
// "since the cycle started", not a rolling duration, so it is reset explicitly by
// the orchestrator at the top of each cycle instead of expiring entries on
// a clock.
package budget

import (
	"fmt"
	"sync"
)

// Limit is the ceiling for one capability: at most Calls invocations and at
// most Spend units (e.g. estimated token cost) per cycle. A zero value
// means unlimited for that dimension.
type Limit struct {
	Calls int
	Spend float64
}

// Decision reports whether a call against a capability's budget was
// admitted, with the calls and spend remaining in the current pipeline
// cycle.
type Decision struct {
	Capability     string
	Allowed        bool
	CallsRemaining int
	SpendRemaining float64
}

// usage tracks calls spent and cost spent for one capability within the
// current cycle.
type usage struct {
	calls int
	spend float64
}

// Tracker enforces per-capability budgets for a single pipeline cycle. It
// is safe for concurrent use by the bounded fan-out workers within a stage.
type Tracker struct {
	mu     sync.Mutex
	limits map[string]Limit
	used   map[string]*usage
}

// New creates a Tracker with the given per-capability limits. Capabilities
// not present in limits are treated as unlimited.
func New(limits map[string]Limit) *Tracker {
	t := &Tracker{
		limits: limits,
		used:   make(map[string]*usage, len(limits)),
	}
	for name := range limits {
		t.used[name] = &usage{}
	}
	return t
}

// Reset clears all spent counters, starting a fresh cycle's budget. Limits
// are unchanged.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for name := range t.limits {
		t.used[name] = &usage{}
	}
}

// Reserve checks whether one more call against capability, at the given
// estimated cost, fits within its remaining budget, and if so records it
// immediately. Reservation and spend are atomic with respect to other
// Reserve calls for the same capability.
func (t *Tracker) Reserve(capability string, cost float64) Decision {
	t.mu.Lock()
	defer t.mu.Unlock()

	limit, hasLimit := t.limits[capability]
	u, ok := t.used[capability]
	if !ok {
		u = &usage{}
		t.used[capability] = u
	}

	if !hasLimit {
		u.calls++
		u.spend += cost
		return Decision{Capability: capability, Allowed: true}
	}

	callsOK := limit.Calls <= 0 || u.calls < limit.Calls
	spendOK := limit.Spend <= 0 || u.spend+cost <= limit.Spend
	if !callsOK || !spendOK {
		return Decision{
			Capability:     capability,
			Allowed:        false,
			CallsRemaining: remaining(limit.Calls, u.calls),
			SpendRemaining: remainingF(limit.Spend, u.spend),
		}
	}

	u.calls++
	u.spend += cost
	return Decision{
		Capability:     capability,
		Allowed:        true,
		CallsRemaining: remaining(limit.Calls, u.calls),
		SpendRemaining: remainingF(limit.Spend, u.spend),
	}
}

// Exhausted reports whether the named capability has no remaining budget
// this cycle, without consuming any.
func (t *Tracker) Exhausted(capability string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	limit, hasLimit := t.limits[capability]
	if !hasLimit {
		return false
	}
	u := t.used[capability]
	if u == nil {
		return false
	}
	callsExhausted := limit.Calls > 0 && u.calls >= limit.Calls
	spendExhausted := limit.Spend > 0 && u.spend >= limit.Spend
	return callsExhausted || spendExhausted
}

// Remaining reports calls remaining this cycle for every capability that
// has a configured limit, for exporting as a gauge after each cycle.
// Unlimited capabilities are omitted since "remaining" is meaningless for
// them.
func (t *Tracker) Remaining() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]int, len(t.limits))
	for name, limit := range t.limits {
		if limit.Calls <= 0 {
			continue
		}
		u := t.used[name]
		used := 0
		if u != nil {
			used = u.calls
		}
		out[name] = remaining(limit.Calls, used)
	}
	return out
}

// Summary renders the current calls and spend for one capability as a
// short line of text.
func (t *Tracker) Summary(capability string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	u := t.used[capability]
	if u == nil {
		return fmt.Sprintf("%s: 0 calls", capability)
	}
	return fmt.Sprintf("%s: %d calls, %.2f spend", capability, u.calls, u.spend)
}

func remaining(limit, used int) int {
	if limit <= 0 {
		return 0
	}
	r := limit - used
	if r < 0 {
		return 0
	}
	return r
}

func remainingF(limit, used float64) float64 {
	if limit <= 0 {
		return 0
	}
	r := limit - used
	if r < 0 {
		return 0
	}
	return r
}

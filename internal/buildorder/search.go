package buildorder

import "fmt"

// ── Options and results ─────────────────────────────────────────────

// Options tunes the search. None of them change the optimum, only how much of the
// tree is walked and what is reported.
type Options struct {
	// CapBots stops building a non-output kind once there are as many of its bots
	// as the largest single spend of that resource.
	CapBots bool
	// TrackPlan records the build order that reached the best output.
	TrackPlan bool
}

// DefaultOptions enables every pruning rule and plan tracking.
func DefaultOptions() Options {
	return Options{CapBots: true, TrackPlan: true}
}

// Step is one bot order. Minute is the 1-based step in which it was paid for.
type Step struct {
	Minute int
	Kind   Resource
}

func (st Step) String() string {
	return fmt.Sprintf("minute %d: %s bot", st.Minute, st.Kind)
}

// Stats counts the work done by one search.
type Stats struct {
	Nodes  int // decision points visited
	Pruned int // decision points cut by the optimistic bound
	Leaves int // decision points where no further bot could be ordered
}

// Result is the outcome of searching one blueprint.
type Result struct {
	Output int
	Plan   []Step
	Stats  Stats
}

// searchOrder tries the output kind first so a tight bound shows up early.
var searchOrder = [NumResources]Resource{Geode, Obsidian, Clay, Ore}

// ── Entry points ────────────────────────────────────────────────────

// Optimize returns the most output obtainable from the blueprint within horizon steps.
func Optimize(bp *Blueprint, horizon int) int {
	return Solve(bp, horizon, DefaultOptions()).Output
}

// Solve searches from the canonical initial state.
func Solve(bp *Blueprint, horizon int, opts Options) Result {
	return SolveState(NewState(bp, horizon), opts)
}

// SolveState searches from an arbitrary state. Plan minutes are counted from s.
func SolveState(s State, opts Options) Result {
	e := &searcher{
		opts:  opts,
		start: s.TimeLeft,
	}
	for _, res := range Resources {
		e.maxSpend[res] = s.Blueprint.MaxSpend(res)
	}
	b := &bound{}
	out := e.search(s, b)
	return Result{Output: out, Plan: b.plan, Stats: e.stats}
}

// ── Branch and bound ────────────────────────────────────────────────

// bound is the best output proven achievable so far. It only ever grows and lives
// for one search.
type bound struct {
	best int
	plan []Step
}

func (b *bound) raise(v int, path []Step, track bool) {
	if v <= b.best {
		return
	}
	b.best = v
	if track {
		b.plan = append(b.plan[:0:0], path...)
	}
}

type searcher struct {
	opts     Options
	start    int
	maxSpend [NumResources]int
	path     []Step
	stats    Stats
}

func (e *searcher) search(s State, b *bound) int {
	e.stats.Nodes++
	if s.OptimisticScore() <= b.best {
		e.stats.Pruned++
		return b.best
	}

	best := s.IdleScore()
	b.raise(best, e.path, e.opts.TrackPlan)

	fired := false
	for _, kind := range searchOrder {
		if !s.HasPrerequisites(kind) || e.saturated(s, kind) {
			continue
		}
		next, ok := fastForward(s, kind)
		if !ok {
			continue
		}
		fired = true

		e.path = append(e.path, Step{Minute: e.start - next.TimeLeft + 1, Kind: kind})
		v := e.search(next.Construct(kind), b)
		e.path = e.path[:len(e.path)-1]

		if v > best {
			best = v
		}
	}
	if !fired {
		e.stats.Leaves++
	}
	return best
}

func (e *searcher) saturated(s State, kind Resource) bool {
	return e.opts.CapBots && kind != Output && s.Bots[kind] >= e.maxSpend[kind]
}

// fastForward waits until kind is affordable. It reports false if time runs out first.
func fastForward(s State, kind Resource) (State, bool) {
	for !s.CanAfford(kind) {
		if s.TimeLeft == 0 {
			return s, false
		}
		s = s.SimulateStep()
	}
	return s, true
}

// ── Plan replay ─────────────────────────────────────────────────────

// Replay executes a build order from the canonical initial state and returns the
// final output stockpile. Orders must be in non-decreasing, distinct minutes.
func Replay(bp *Blueprint, horizon int, plan []Step) (int, error) {
	s := NewState(bp, horizon)
	for i, st := range plan {
		if st.Kind < 0 || int(st.Kind) >= NumResources {
			return 0, fmt.Errorf("step %d: unknown bot kind %d", i, int(st.Kind))
		}
		if st.Minute < 1 || st.Minute > horizon {
			return 0, fmt.Errorf("step %d: minute %d outside 1..%d", i, st.Minute, horizon)
		}
		now := horizon - s.TimeLeft + 1
		if st.Minute < now {
			return 0, fmt.Errorf("step %d: minute %d already passed (now %d)", i, st.Minute, now)
		}
		for horizon-s.TimeLeft+1 < st.Minute {
			s = s.SimulateStep()
		}
		if !s.CanAfford(st.Kind) {
			return 0, fmt.Errorf("step %d: %s: cannot afford (stock %v)", i, st, s.Stock)
		}
		s = s.Construct(st.Kind)
	}
	for s.TimeLeft > 0 {
		s = s.SimulateStep()
	}
	return s.Stock[Output], nil
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"blueprint-optimizer/internal/buildorder"
)

// Mode selects how per-blueprint outputs are combined.
type Mode string

const (
	// ModeQuality sums id × output over every blueprint.
	ModeQuality Mode = "quality"
	// ModeProduct multiplies the outputs of the leading blueprints.
	ModeProduct Mode = "product"
	// ModeSolve reports each blueprint without combining.
	ModeSolve Mode = "solve"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeQuality, ModeProduct, ModeSolve:
		return m, nil
	}
	return "", fmt.Errorf("unknown mode %q (want quality, product or solve)", s)
}

// Outcome is the search result for one blueprint.
type Outcome struct {
	ID      int
	Output  int
	Plan    []buildorder.Step
	Stats   buildorder.Stats
	Elapsed time.Duration
	Cached  bool
}

// Quality is the blueprint's id multiplied by its output.
func (o Outcome) Quality() int { return o.ID * o.Output }

// QualitySum adds up the quality of every outcome.
func QualitySum(outcomes []Outcome) int {
	total := 0
	for _, o := range outcomes {
		total += o.Quality()
	}
	return total
}

// Product multiplies every output together.
func Product(outcomes []Outcome) int {
	p := 1
	for _, o := range outcomes {
		p *= o.Output
	}
	return p
}

// ── Runner ──────────────────────────────────────────────────────────

// Runner evaluates batches of blueprints. Each blueprint gets its own search and
// bound; only finished results are shared, through the optional cache.
type Runner struct {
	cfg   *Config
	cache *ResultCache
	runID string
}

// NewRunner creates a runner. cache may be nil.
func NewRunner(cfg *Config, cache *ResultCache) *Runner {
	return &Runner{cfg: cfg, cache: cache, runID: uuid.NewString()}
}

// RunID identifies this runner's results in logs, output and the cache.
func (r *Runner) RunID() string { return r.runID }

// Evaluate searches every blueprint, up to Runner.Workers at a time. Outcomes keep
// the input order.
func (r *Runner) Evaluate(ctx context.Context, bps []*buildorder.Blueprint, horizon int) ([]Outcome, error) {
	opts := r.cfg.SearchOptions()
	outcomes := make([]Outcome, len(bps))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Runner.Workers)
	for i, bp := range bps {
		i, bp := i, bp
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			o, err := r.evaluateOne(ctx, bp, horizon, opts)
			if err != nil {
				return fmt.Errorf("blueprint %d: %w", bp.ID, err)
			}
			outcomes[i] = o
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (r *Runner) evaluateOne(ctx context.Context, bp *buildorder.Blueprint, horizon int, opts buildorder.Options) (Outcome, error) {
	start := time.Now()
	if r.cache != nil {
		res, ok, err := r.cache.Get(ctx, bp, horizon, opts)
		if err != nil {
			return Outcome{}, err
		}
		if ok {
			if Verbose {
				fmt.Fprintf(logw(), "[verbose/cache] blueprint=%d hit output=%d\n", bp.ID, res.Output)
			}
			return newOutcome(bp, res, time.Since(start), true), nil
		}
	}

	res := buildorder.Solve(bp, horizon, opts)
	elapsed := time.Since(start)
	fmt.Fprintf(logw(), "[solve] blueprint=%d output=%d elapsed=%v\n", bp.ID, res.Output, elapsed)
	if Verbose {
		fmt.Fprintf(logw(), "[verbose/solve] blueprint=%d nodes=%d pruned=%d leaves=%d\n",
			bp.ID, res.Stats.Nodes, res.Stats.Pruned, res.Stats.Leaves)
	}

	if r.cache != nil {
		if err := r.cache.Put(ctx, bp, horizon, opts, res, r.runID); err != nil {
			return Outcome{}, err
		}
	}
	return newOutcome(bp, res, elapsed, false), nil
}

func newOutcome(bp *buildorder.Blueprint, res buildorder.Result, elapsed time.Duration, cached bool) Outcome {
	return Outcome{
		ID:      bp.ID,
		Output:  res.Output,
		Plan:    res.Plan,
		Stats:   res.Stats,
		Elapsed: elapsed,
		Cached:  cached,
	}
}

// Run evaluates bps in the given mode and assembles the report. For ModeProduct
// only the first count blueprints are searched.
func (r *Runner) Run(ctx context.Context, mode Mode, bps []*buildorder.Blueprint, horizon, count int) (*RunOutput, error) {
	start := time.Now()
	if mode == ModeProduct && count < len(bps) {
		bps = bps[:count]
	}
	fmt.Fprintf(logw(), "[init] run=%s mode=%s blueprints=%d horizon=%d workers=%d\n",
		r.runID, mode, len(bps), horizon, r.cfg.Runner.Workers)

	outcomes, err := r.Evaluate(ctx, bps, horizon)
	if err != nil {
		return nil, err
	}

	out := &RunOutput{
		RunID:   r.runID,
		Date:    start.UTC().Format(time.RFC3339),
		Mode:    string(mode),
		Horizon: horizon,
		Workers: r.cfg.Runner.Workers,
		Results: make([]BlueprintResult, len(outcomes)),
	}
	for i, o := range outcomes {
		out.Results[i] = newBlueprintResult(o)
	}
	// Answer stays nil in solve mode so a real zero is still reported.
	switch mode {
	case ModeQuality:
		answer := QualitySum(outcomes)
		out.Answer = &answer
	case ModeProduct:
		answer := Product(outcomes)
		out.Answer = &answer
	}
	out.TotalMs = time.Since(start).Milliseconds()
	fmt.Fprintf(logw(), "[done] run=%s answer=%s elapsed=%v\n", r.runID, out.answerText(), time.Since(start))
	return out, nil
}

var logOutput io.Writer = os.Stderr

func logw() io.Writer { return logOutput }

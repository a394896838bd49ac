package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

// BlueprintResult is the JSON-serialisable outcome of one blueprint.
type BlueprintResult struct {
	ID      int      `json:"id"`
	Output  int      `json:"output"`
	Quality int      `json:"quality"`
	Nodes   int      `json:"nodes"`
	Pruned  int      `json:"pruned"`
	TimeMs  int64    `json:"timeMs"`
	Cached  bool     `json:"cached,omitempty"`
	Plan    []string `json:"plan,omitempty"`
}

func newBlueprintResult(o Outcome) BlueprintResult {
	br := BlueprintResult{
		ID:      o.ID,
		Output:  o.Output,
		Quality: o.Quality(),
		Nodes:   o.Stats.Nodes,
		Pruned:  o.Stats.Pruned,
		TimeMs:  o.Elapsed.Milliseconds(),
		Cached:  o.Cached,
	}
	for _, st := range o.Plan {
		br.Plan = append(br.Plan, st.String())
	}
	return br
}

// RunOutput is the JSON-serialisable result of a full run.
type RunOutput struct {
	RunID   string            `json:"runId"`
	Date    string            `json:"date"`
	Mode    string            `json:"mode"`
	Horizon int               `json:"horizon"`
	Workers int               `json:"workers"`
	Results []BlueprintResult `json:"results"`
	Answer  *int              `json:"answer,omitempty"`
	TotalMs int64             `json:"totalMs"`
}

// answerText is the combined answer for logs, or "-" when the mode has none.
func (out *RunOutput) answerText() string {
	if out.Answer == nil {
		return "-"
	}
	return strconv.Itoa(*out.Answer)
}

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	totalColor  = color.New(color.FgGreen, color.Bold)
	cachedColor = color.New(color.FgYellow)
)

// WriteJSON writes the run as indented JSON.
func WriteJSON(w io.Writer, out *RunOutput) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// WriteTable writes one row per blueprint and a summary line. With withPlan the
// build order of each blueprint follows the table.
func WriteTable(w io.Writer, out *RunOutput, withPlan bool) {
	rule := fmt.Sprintf("%-10s %8s %8s %12s %8s", "----------", "--------", "--------", "------------", "--------")
	headerColor.Fprintf(w, "%-10s %8s %8s %12s %8s\n", "Blueprint", "Output", "Quality", "Nodes", "Time")
	fmt.Fprintln(w, rule)
	for _, r := range out.Results {
		line := fmt.Sprintf("%-10d %8d %8d %12d %7.2fs", r.ID, r.Output, r.Quality, r.Nodes, float64(r.TimeMs)/1000)
		if r.Cached {
			cachedColor.Fprintln(w, line+"  (cached)")
		} else {
			fmt.Fprintln(w, line)
		}
	}
	fmt.Fprintln(w, rule)

	switch {
	case out.Answer != nil && Mode(out.Mode) == ModeQuality:
		totalColor.Fprintf(w, "%-10s %8s %8d %12s %7.2fs\n", "QUALITY", "", *out.Answer, "", float64(out.TotalMs)/1000)
	case out.Answer != nil && Mode(out.Mode) == ModeProduct:
		totalColor.Fprintf(w, "%-10s %8d %8s %12s %7.2fs\n", "PRODUCT", *out.Answer, "", "", float64(out.TotalMs)/1000)
	default:
		totalColor.Fprintf(w, "%-10s %8s %8s %12s %7.2fs\n", "TOTAL", "", "", "", float64(out.TotalMs)/1000)
	}

	if withPlan {
		for _, r := range out.Results {
			fmt.Fprintln(w)
			fmt.Fprint(w, FormatPlan(r))
		}
	}
}

// FormatPlan renders one blueprint's build order, one order per line.
func FormatPlan(r BlueprintResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Blueprint %d (%d output):\n", r.ID, r.Output)
	if len(r.Plan) == 0 {
		sb.WriteString("  no bots built\n")
		return sb.String()
	}
	for _, st := range r.Plan {
		fmt.Fprintf(&sb, "  %s\n", st)
	}
	return sb.String()
}

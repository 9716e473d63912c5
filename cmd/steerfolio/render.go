package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/steerfolio/steerfolio/internal/config"
	"github.com/steerfolio/steerfolio/internal/engine"
	"github.com/steerfolio/steerfolio/internal/plan"
	"github.com/steerfolio/steerfolio/internal/propose"
	"github.com/steerfolio/steerfolio/internal/regime"
	"github.com/steerfolio/steerfolio/internal/validate"
)

// loadInputs reads the decision cycle inputs from a YAML file.
func loadInputs(path string) (engine.Inputs, error) {
	var in engine.Inputs
	raw, err := os.ReadFile(path)
	if err != nil {
		return in, fmt.Errorf("read inputs %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &in); err != nil {
		return in, fmt.Errorf("parse inputs %s: %w", path, err)
	}
	return in, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func classifyOnly(cfg config.Config, score float64) regime.Classification {
	return regime.NewClassifier(cfg.Ranges.Map()).Classify(score)
}

func renderDecision(w io.Writer, res engine.Result) {
	d := res.Decision
	fmt.Fprintf(w, "\nDecision %s\n", res.ID)
	fmt.Fprintf(w, "  Score       %.1f  (cycle %.2f / onchain %.2f / risk %.2f)\n",
		d.Score, d.Weights.Cycle, d.Weights.Onchain, d.Weights.Risk)
	fmt.Fprintf(w, "  Confidence  %.2f\n", d.Confidence)
	fmt.Fprintf(w, "  Regime      %s (%s, confidence %.2f)\n",
		res.Classification.Regime, res.Classification.Transition, res.Classification.Confidence)
	fmt.Fprintf(w, "  Policy      %s (speed %.1fx, one order per %s)\n",
		d.PolicyHint, d.SpeedMultiplier, plan.NewPacer(d.SpeedMultiplier).Interval().Round(time.Second))
	fmt.Fprintf(w, "  Budget      %d%% risky / %d%% stables\n", res.Budget.RiskyPct, res.Budget.StablesPct)

	for _, ev := range res.Overrides {
		fmt.Fprintf(w, "  Override    [%s] %s (%s)\n", ev.Type, ev.Message, ev.Adjustment)
	}
	for _, r := range d.Reasoning {
		fmt.Fprintf(w, "  Reasoning   %s\n", r)
	}
}

func renderTargets(w io.Writer, p propose.Proposal) {
	fmt.Fprintf(w, "\nTargets (%s, confidence %.2f)\n", p.Strategy, p.Confidence)
	if p.Fallback {
		fmt.Fprintln(w, "  NOTE: served from a fallback path")
	}
	for _, gw := range p.Targets.Sorted() {
		if gw.Pct == 0 {
			continue
		}
		bar := strings.Repeat("#", int(gw.Pct/2))
		fmt.Fprintf(w, "  %-14s %6.2f%%  %s\n", gw.Group, gw.Pct, bar)
	}
}

func renderValidation(w io.Writer, res validate.Result) {
	verdict := "VALID"
	if !res.Valid {
		verdict = "BLOCKED"
	}
	fmt.Fprintf(w, "\nValidation: %s  (volume %.1f%%, %d skipped)\n", verdict, res.TotalVolumePct, res.SkippedCount)

	for _, b := range res.BlockedReasons {
		fmt.Fprintf(w, "  BLOCK  %s\n", b)
	}
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "  WARN   %s\n", warn)
	}
	for _, rec := range res.Recommendations {
		fmt.Fprintf(w, "  ADVICE %s\n", rec)
	}
	for _, ch := range res.Changes {
		if ch.AbsoluteChange == 0 {
			continue
		}
		marker := " "
		if ch.SkipReason != "" {
			marker = "s"
		}
		fmt.Fprintf(w, "  %s %-14s %6.2f%% -> %6.2f%%  (%.2f abs, %s)\n",
			marker, ch.Group, ch.From, ch.To, ch.AbsoluteChange, ch.Priority)
	}
}

func renderPlan(w io.Writer, p plan.Plan) {
	status := "executable"
	if !p.Executable {
		status = "not executable"
	}
	fmt.Fprintf(w, "\nPlan %s: %s, %d changes\n", p.ID, status, p.TotalChanges)
	for _, phase := range p.Phases {
		if len(phase.Changes) == 0 {
			continue
		}
		note := phase.Note
		if phase.Deferred {
			note = "DEFERRED: " + note
		}
		fmt.Fprintf(w, "  [%s] %d changes  %s\n", phase.Kind, len(phase.Changes), note)
		for _, ch := range phase.Changes {
			fmt.Fprintf(w, "      %-14s %6.2f%% -> %6.2f%%\n", ch.Group, ch.From, ch.To)
		}
	}
}

func renderRegime(w io.Writer, c regime.Classification) {
	fmt.Fprintf(w, "Score %.1f -> %s\n", c.Score, c.Regime)
	fmt.Fprintf(w, "  %s\n", c.Regime.Description())
	fmt.Fprintf(w, "  Confidence %.2f, %s", c.Confidence, c.Transition)
	if c.Strength > 0 {
		fmt.Fprintf(w, " (strength %.2f)", c.Strength)
	}
	if c.Fallback {
		fmt.Fprint(w, " [fallback: invalid input]")
	}
	fmt.Fprintln(w)
}

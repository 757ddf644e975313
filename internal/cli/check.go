package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sergehoo/lynerp/internal/model"
	"github.com/sergehoo/lynerp/internal/probe"
)

// checkResult is one row of the check report.
type checkResult struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Target   string `json:"target"`
	Ready    bool   `json:"ready"`
	Optional bool   `json:"optional,omitempty"`
	Error    string `json:"error,omitempty"`
}

// NewCheckCommand creates the check command: probe every configured
// dependency exactly once and report the results, without retrying.
// Suitable as a container HEALTHCHECK or a quick environment sanity check.
func NewCheckCommand() *cobra.Command {
	checkCmd := &cobra.Command{
		Use:   "check [target...]",
		Short: "Probe each dependency once and report readiness",
		Long: `Probe every configured dependency (or the given targets) exactly once
and print a readiness report. No retries: this is a snapshot, not a wait.

Exits 0 when every required dependency is ready, 1 otherwise.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args)
		},
	}

	return checkCmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var waitees []probe.Waitee
	if len(args) == 0 {
		for _, d := range cfg.ResolveDependencies(nil) {
			checker, err := probe.ParseTarget(d.Name, d.Target)
			if err != nil {
				return err
			}
			waitees = append(waitees, probe.Waitee{Checker: checker, Optional: d.Optional})
		}
	} else {
		for _, target := range args {
			checker, err := probe.ParseTarget("", target)
			if err != nil {
				return err
			}
			waitees = append(waitees, probe.Waitee{Checker: checker})
		}
	}

	results := make([]checkResult, 0, len(waitees))
	failed := 0
	for _, w := range waitees {
		res := checkResult{
			Name:     w.Checker.Name(),
			Kind:     string(w.Checker.Kind()),
			Target:   w.Checker.Target(),
			Optional: w.Optional,
		}
		if err := w.Checker.Check(cmd.Context()); err != nil {
			res.Error = err.Error()
			if !w.Optional {
				failed++
			}
		} else {
			res.Ready = true
		}
		results = append(results, res)
	}

	if IsJSONOutput() {
		report := struct {
			Ready   bool          `json:"ready"`
			Results []checkResult `json:"results"`
		}{
			Ready:   failed == 0,
			Results: results,
		}
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return model.WrapBootError(model.ExitFailure, "failed to encode report", err)
		}
		fmt.Println(string(data))
	} else {
		for _, res := range results {
			status := "ready"
			if !res.Ready {
				status = "unreachable"
			}
			line := fmt.Sprintf("%-12s %-8s %-40s %s", res.Name, res.Kind, res.Target, status)
			if res.Error != "" {
				line += ": " + res.Error
			}
			fmt.Println(line)
		}
	}

	if failed > 0 {
		return model.NewBootError(model.ExitFailure,
			fmt.Sprintf("%d required dependency check(s) failed", failed))
	}
	return nil
}

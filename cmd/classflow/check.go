package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/classflow/classflow/advisor"
	"github.com/classflow/classflow/diagram"
)

var checkCmd = &cobra.Command{
	Use:   "check snapshot.json",
	Short: "Run structural checks on a snapshot",
	Long: "Check runs the deterministic structural checks locally. With --oracle it\n" +
		"also asks the configured advisory oracle for a verdict; an unreachable\n" +
		"oracle degrades to the local findings instead of failing.",
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().Bool("oracle", false, "also consult the advisory oracle")
	checkCmd.Flags().String("config", "", "advisor YAML config file")
}

func runCheck(cmd *cobra.Command, args []string) error {
	in, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open %s: %w", args[0], err)
	}
	defer in.Close()

	s, export, err := diagram.ReadDiagnosticExport(in)
	if err != nil {
		return err
	}

	useOracle, _ := cmd.Flags().GetBool("oracle")
	if !useOracle {
		sum := advisor.Summarize(s.Nodes(), s.Relationships())
		printLocalChecks(cmd, advisor.RunLocalChecks(sum))
		return nil
	}

	cfg := advisor.DefaultConfig()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		if cfg, err = advisor.LoadConfig(path); err != nil {
			return err
		}
	}
	report := advisor.NewClient(cfg).Verify(cmd.Context(), export.BoardID, s.Nodes(), s.Relationships())
	printLocalChecks(cmd, report.Local)
	printVerdict(cmd, report)
	return nil
}

func printLocalChecks(cmd *cobra.Command, checks advisor.LocalChecks) {
	out := cmd.OutOrStdout()
	if checks.OKStructural {
		color.New(color.FgGreen).Fprintln(out, "local checks: structurally clean")
	} else {
		color.New(color.FgYellow).Fprintln(out, "local checks: findings")
	}
	for _, id := range checks.Islands {
		fmt.Fprintf(out, "  island: %s\n", id)
	}
	for _, ref := range checks.BrokenRefs {
		fmt.Fprintf(out, "  broken reference: %s -> %s\n", ref.Source, ref.Target)
	}
	for _, id := range checks.Duplicates.Nodes {
		fmt.Fprintf(out, "  duplicate name: %s\n", id)
	}
	for _, cycle := range checks.InheritanceCycles {
		fmt.Fprintf(out, "  inheritance cycle: %s\n", strings.Join(cycle, " -> "))
	}
}

func printVerdict(cmd *cobra.Command, report *advisor.Report) {
	out := cmd.OutOrStdout()
	if !report.Verified {
		color.New(color.FgYellow).Fprintln(out, report.Note())
		return
	}

	v := report.Verdict
	if v.OKStructural {
		color.New(color.FgGreen).Fprintf(out, "oracle verdict: ok (score %.1f)\n", v.DesignScore)
	} else {
		color.New(color.FgRed).Fprintf(out, "oracle verdict: issues found (score %.1f)\n", v.DesignScore)
	}
	for _, s := range v.Suggestions {
		fmt.Fprintf(out, "  suggestion: %s\n", s)
	}
	for _, a := range v.PriorityActions {
		color.New(color.FgRed).Fprintf(out, "  action: %s\n", a)
	}
	for _, l := range v.Limitations {
		fmt.Fprintf(out, "  limitation: %s\n", l)
	}
}

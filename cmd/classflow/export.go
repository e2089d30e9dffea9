package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/classflow/classflow/diagram"
	"github.com/classflow/classflow/interchange"
)

var exportCmd = &cobra.Command{
	Use:   "export snapshot.json",
	Short: "Export a snapshot as an interchange document",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "write XML to this file instead of stdout")
}

func runExport(cmd *cobra.Command, args []string) error {
	in, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open %s: %w", args[0], err)
	}
	defer in.Close()

	s, _, err := diagram.ReadDiagnosticExport(in)
	if err != nil {
		return err
	}

	outPath, _ := cmd.Flags().GetString("output")
	out, done, err := openOutput(outPath)
	if err != nil {
		return err
	}
	defer done()

	warnings, err := interchange.New().Encode(out, s.Nodes(), s.Relationships())
	if err != nil {
		return err
	}
	for _, w := range warnings {
		color.New(color.FgYellow).Fprintln(cmd.ErrOrStderr(), "warning:", w)
	}
	color.New(color.FgGreen).Fprintf(cmd.ErrOrStderr(),
		"exported %d nodes, %d relationships\n", s.NodeCount(), s.RelationshipCount())
	return nil
}

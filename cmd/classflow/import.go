package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/classflow/classflow/diagram"
	"github.com/classflow/classflow/interchange"
)

var importCmd = &cobra.Command{
	Use:   "import file.xml",
	Short: "Import an interchange document into a snapshot",
	Long:  "Import decodes an XMI-style interchange document and writes the diagram as snapshot JSON.",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	importCmd.Flags().StringP("output", "o", "", "write snapshot JSON to this file instead of stdout")
	importCmd.Flags().String("board", "", "board id to stamp into the snapshot")
}

func runImport(cmd *cobra.Command, args []string) error {
	in, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open %s: %w", args[0], err)
	}
	defer in.Close()

	s, warnings, err := interchange.New().DecodeSnapshot(in)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		color.New(color.FgYellow).Fprintln(cmd.ErrOrStderr(), "warning:", w)
	}

	boardID, _ := cmd.Flags().GetString("board")
	outPath, _ := cmd.Flags().GetString("output")
	out, done, err := openOutput(outPath)
	if err != nil {
		return err
	}
	defer done()

	if err := diagram.NewDiagnosticExport(s, boardID, time.Now().UTC()).WriteTo(out); err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintf(cmd.ErrOrStderr(),
		"imported %d classes, %d relationships\n", s.NodeCount(), s.RelationshipCount())
	return nil
}

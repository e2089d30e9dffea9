// Command classflow works with class diagram snapshots from the command
// line: interchange import/export, layered code generation, and structural
// checking. It operates on snapshot JSON and interchange XML files; live
// board synchronization happens through the board package, not here.
package main

import (
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "classflow",
	Short:         "Class diagram toolkit",
	Long:          "classflow imports, exports, checks, and generates code from class diagram snapshots.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(checkCmd)

	rootCmd.PersistentFlags().Bool("verbose", false, "log debug detail to stderr")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")

	cobra.OnInitialize(func() {
		if noColor, _ := rootCmd.PersistentFlags().GetBool("no-color"); noColor {
			color.NoColor = true
		}
		level := slog.LevelWarn
		if verbose, _ := rootCmd.PersistentFlags().GetBool("verbose"); verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	})

	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// openOutput returns the destination writer for an -o flag, stdout when
// the flag is empty.
func openOutput(path string) (*os.File, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/classflow/classflow/codegen"
	"github.com/classflow/classflow/diagram"
)

var generateCmd = &cobra.Command{
	Use:   "generate snapshot.json",
	Short: "Generate Go source from a snapshot",
	Long: "Generate renders the entity layer as one blob by default. With --full it\n" +
		"renders the four-layer set (entity, access, logic, interface) into a\n" +
		"directory or a zip archive. With --watch it regenerates on every change\n" +
		"to the snapshot file.",
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().Bool("full", false, "generate all four layers instead of the entity blob")
	generateCmd.Flags().String("out", "", "directory for the full layer set")
	generateCmd.Flags().String("zip", "", "write the full layer set as a zip archive")
	generateCmd.Flags().String("pkg", "", "package base path the generated layers import each other through")
	generateCmd.Flags().Bool("watch", false, "regenerate whenever the snapshot file changes")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	watch, _ := cmd.Flags().GetBool("watch")
	if err := generateOnce(cmd, args[0]); err != nil {
		if !watch {
			return err
		}
		color.New(color.FgRed).Fprintln(cmd.ErrOrStderr(), "error:", err)
	}
	if !watch {
		return nil
	}
	return watchAndRegenerate(cmd, args[0])
}

func generateOnce(cmd *cobra.Command, snapshotPath string) error {
	in, err := os.Open(snapshotPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", snapshotPath, err)
	}
	defer in.Close()

	s, _, err := diagram.ReadDiagnosticExport(in)
	if err != nil {
		return err
	}

	pkgBase, _ := cmd.Flags().GetString("pkg")
	gen := codegen.New(codegen.WithPackageBase(pkgBase))

	full, _ := cmd.Flags().GetBool("full")
	if !full {
		blob, warnings, err := gen.GenerateEntities(s)
		if err != nil {
			return err
		}
		printWarnings(cmd.ErrOrStderr(), warnings)
		fmt.Fprint(cmd.OutOrStdout(), blob)
		return nil
	}

	fs, warnings, err := gen.Generate(cmd.Context(), s)
	if err != nil {
		return err
	}
	printWarnings(cmd.ErrOrStderr(), warnings)

	if zipPath, _ := cmd.Flags().GetString("zip"); zipPath != "" {
		f, err := os.Create(zipPath)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := fs.Zip(f); err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintf(cmd.ErrOrStderr(), "packaged %d files into %s\n", fs.Len(), zipPath)
		return nil
	}

	outDir, _ := cmd.Flags().GetString("out")
	if outDir == "" {
		outDir = "generated"
	}
	if err := fs.WriteDir(outDir); err != nil {
		return err
	}
	color.New(color.FgGreen).Fprintf(cmd.ErrOrStderr(), "wrote %d files under %s\n", fs.Len(), outDir)
	return nil
}

// watchAndRegenerate reruns generation on every write to the snapshot
// file until interrupted. Some editors replace the file on save, so the
// watch is on the parent directory.
func watchAndRegenerate(cmd *cobra.Command, snapshotPath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(snapshotPath)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	color.New(color.FgCyan).Fprintf(cmd.ErrOrStderr(), "watching %s\n", snapshotPath)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	target := filepath.Clean(snapshotPath)
	for {
		select {
		case <-interrupt:
			return nil
		case <-cmd.Context().Done():
			return nil
		case err := <-watcher.Errors:
			color.New(color.FgRed).Fprintln(cmd.ErrOrStderr(), "watch error:", err)
		case ev := <-watcher.Events:
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if err := generateOnce(cmd, snapshotPath); err != nil {
				color.New(color.FgRed).Fprintln(cmd.ErrOrStderr(), "error:", err)
			}
		}
	}
}

func printWarnings(w io.Writer, warnings []string) {
	for _, warning := range warnings {
		color.New(color.FgYellow).Fprintln(w, "warning:", warning)
	}
}

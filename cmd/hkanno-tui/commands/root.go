package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/strrl/hkanno-tui/internal/registry"
	"github.com/strrl/hkanno-tui/internal/tui"
	"github.com/strrl/hkanno-tui/internal/watch"
)

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hkanno-tui [file.hkx | folder]...",
		Short: "Edit Havok animation annotations in the terminal",
		Long: `hkanno-tui is a TUI for editing the annotation track of Havok .hkx files.
Files are converted to text with the hkanno tool, edited in tabs and written
back with the same tool on save. Folders given as arguments are scanned for
.hkx files.`,
		SilenceUsage: true,
		RunE:         runTUI,
	}

	f := rootCmd.PersistentFlags()
	f.StringVar(&globalFlags.configPath, "config", "", "JSON config file")
	f.StringVar(&globalFlags.toolDir, "tool-dir", "", "hkanno install directory (default: hkanno64 next to this executable)")
	f.StringVar(&globalFlags.tool, "tool", "", "hkanno executable name or path")
	f.StringVar(&globalFlags.logFile, "log-file", "", "write diagnostic logs to this file")
	f.BoolVar(&globalFlags.debug, "debug", false, "log at debug level")
	rootCmd.Flags().StringArrayVar(&globalFlags.watch, "watch", nil, "add new .hkx files appearing in this folder (repeatable)")

	rootCmd.AddCommand(NewDumpCommand())
	rootCmd.AddCommand(NewUpdateCommand())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runTUI(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	reg := registry.New()
	if len(args) > 0 {
		paths, err := watch.Expand(afero.NewOsFs(), args)
		if err != nil {
			return err
		}
		if _, err := reg.AddBatch(paths); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	err = tui.ShowTUI(ctx, tui.Options{
		Registry:  reg,
		Converter: a.conv,
		Fs:        afero.NewOsFs(),
		Log:       a.log,
		Logger:    a.logger,
		WatchDirs: a.cfg.Watch.Dirs,
	})

	// Kill conversions still running and let them clean up their staging
	// files before exiting.
	cancel()
	a.conv.Wait()

	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

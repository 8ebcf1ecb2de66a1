package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var dumpOutput string

// NewDumpCommand creates the dump command
func NewDumpCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump <file.hkx>",
		Short: "Print the annotations of a file without the TUI",
		Long: `Convert an .hkx file to annotation text with hkanno and print it.
The converter's own output is written to stderr.`,
		Args: cobra.ExactArgs(1),
		RunE: runDump,
	}
	cmd.Flags().StringVarP(&dumpOutput, "output", "o", "", "write the text to this file instead of stdout")
	return cmd
}

func runDump(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	source := args[0]
	if _, err := os.Stat(source); err != nil {
		return fmt.Errorf("source %s: %w", source, err)
	}

	text, err := a.conv.DumpWait(cmd.Context(), source)
	printLog(cmd, a)
	if err != nil {
		return err
	}

	if dumpOutput != "" {
		return os.WriteFile(dumpOutput, []byte(text), 0o644)
	}
	fmt.Fprint(cmd.OutOrStdout(), text)
	return nil
}

// printLog copies the operator log to stderr.
func printLog(cmd *cobra.Command, a *app) {
	if a.log.Len() == 0 {
		return
	}
	fmt.Fprintln(cmd.ErrOrStderr(), a.log.String())
}

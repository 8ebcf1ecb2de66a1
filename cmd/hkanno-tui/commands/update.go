package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// NewUpdateCommand creates the update command
func NewUpdateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "update <file.hkx> [text-file]",
		Short: "Write annotation text into a file without the TUI",
		Long: `Write annotation text into an .hkx file with hkanno.
The text is read from text-file, or from stdin when it is omitted or "-".
Any error output from the converter fails the command.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runUpdate,
	}
}

func runUpdate(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	target := args[0]
	if _, err := os.Stat(target); err != nil {
		return fmt.Errorf("target %s: %w", target, err)
	}

	var text []byte
	if len(args) == 2 && args[1] != "-" {
		text, err = os.ReadFile(args[1])
	} else {
		text, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("read annotation text: %w", err)
	}

	err = a.conv.Update(cmd.Context(), target, string(text))
	printLog(cmd, a)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s saved\n", target)
	return nil
}

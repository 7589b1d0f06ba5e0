// Command fixtimes corrects snapshot mtimes that drifted from their source
// during copy, grounded on original_source/fix_times.py.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ejrh/backup/internal/fixtimes"
	"github.com/ejrh/backup/internal/notify"
)

var rootCommand = &cobra.Command{
	Use:   "fixtimes TARGET SOURCE",
	Short: "Correct TARGET file mtimes that drifted from their SOURCE counterpart",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		notifier := notify.NewLogrus(logrus.StandardLogger())
		f := fixtimes.New(notifier)
		if err := f.Walk(args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Fixed %d file mtimes\n", f.Fixed)
		return nil
	},
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

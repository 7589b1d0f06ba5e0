// Command dedupe reports hard-link opportunities within an existing
// directory tree, grounded on original_source/dedupe.py. It never modifies
// the tree; see internal/dedupe for why this stays report-only.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ejrh/backup/internal/dedupe"
	"github.com/ejrh/backup/internal/notify"
)

var rootCommand = &cobra.Command{
	Use:   "dedupe TARGET",
	Short: "Report files under TARGET that could be merged into hard links",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		notifier := notify.NewLogrus(logrus.StandardLogger())
		d := dedupe.New(notifier)
		if err := d.Walk(args[0]); err != nil {
			return err
		}
		for _, c := range d.Candidates {
			fmt.Printf("Can dedupe: %s (from %s)\n", c.NewPath, c.ExistingPath)
		}
		return nil
	},
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

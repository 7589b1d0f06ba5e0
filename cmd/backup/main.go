// Command backup drives a single snapshot-session invocation: it parses the
// command-line contract from spec.md §6 and delegates everything else to
// internal/snapshot.Session, following the teacher's convention of keeping
// cmd/ thin (backend/torrent/cmd/backend.go registers commands, it does not
// implement them).
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ejrh/backup/internal/notify"
	"github.com/ejrh/backup/internal/snapshot"
	"github.com/ejrh/backup/internal/volume"
)

var (
	name       string
	useJournal bool
)

func init() {
	rootCommand.Flags().StringVar(&name, "name", "", "snapshot name (default: current date, YYYYMMDD)")
	rootCommand.Flags().BoolVar(&useJournal, "use-journal", false, "enable change-journal based reuse")
}

var rootCommand = &cobra.Command{
	Use:   "backup SOURCE TARGET",
	Short: "Take a content-aware incremental snapshot of SOURCE into TARGET",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, target := args[0], args[1]
		snapshotName := name
		if snapshotName == "" {
			snapshotName = time.Now().Format("20060102")
		}

		cfg := snapshot.Config{
			Source:         source,
			Target:         target,
			Name:           snapshotName,
			EnableJournal:  useJournal,
			EnableDirReuse: true,
		}

		notifier := notify.NewLogrus(logrus.StandardLogger())
		session := snapshot.New(cfg, notifier, volume.NewJournalAdapter())
		return session.Run()
	},
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/httpfetch/packages/config"
	"github.com/abdul-hamid-achik/httpfetch/packages/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded transfers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return err
		}
		path := flagRecord
		if path == "" {
			path = cfg.HistoryPath
		}
		if path == "" {
			return fmt.Errorf("no history file: pass --record or set historyPath in the config")
		}

		store, err := history.Open(path)
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := store.List(historyLimit)
		if err != nil {
			return err
		}
		for _, e := range entries {
			status := "failed"
			if e.Error == "" {
				status = statusColor(e.Status).Sprintf("%d", e.Status)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-7s %-40s %s %s\n",
				e.Method, e.URL, status, e.Duration.Round(time.Millisecond))
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum entries to show")
	historyCmd.Flags().StringVar(&flagRecord, "record", "", "SQLite history file")
}

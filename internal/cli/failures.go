package cli

import (
	"fmt"
	"os"
	"time"

	"agent-chat/internal/journal"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var failuresLimit int

var failuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "List recent failed sends from the local journal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if _, err := os.Stat(cfg.Journal.Path); err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No failures recorded.")
			return nil
		}

		j, err := journal.Open(cfg.Journal.Path, nil)
		if err != nil {
			return err
		}
		defer j.Close()

		entries, err := j.Recent(cmd.Context(), failuresLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No failures recorded.")
			return nil
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("TIME", "SESSION", "SEQ", "KIND", "STATUS", "ERROR")
		for _, e := range entries {
			status := "-"
			if e.Status != 0 {
				status = fmt.Sprintf("%d", e.Status)
			}
			t.Row(
				e.At.Local().Format(time.DateTime),
				shortSession(e.SessionID),
				fmt.Sprintf("%d", e.Seq),
				e.Kind,
				status,
				e.Error,
			)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), t.String())
		return err
	},
}

func init() {
	failuresCmd.Flags().IntVar(&failuresLimit, "limit", 20, "maximum number of entries to show")
}

func shortSession(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pathakanu/mediping/internal/config"
	"github.com/pathakanu/mediping/internal/reminder"
	"github.com/spf13/cobra"
)

const dueLayout = "2006-01-02 15:04"

func newDueCmd(loadConfig func() *config.Config) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "due",
		Short: "List the reminders that would be sent at a given minute",
		Long:  "due runs the dispatch query and recurrence rules for one minute without sending or tracking anything.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := loadConfig()

			when := time.Now().In(cfg.LocalTimezone)
			if strings.TrimSpace(at) != "" {
				parsed, err := time.ParseInLocation(dueLayout, strings.TrimSpace(at), cfg.LocalTimezone)
				if err != nil {
					return fmt.Errorf("invalid --at %q, want %q: %w", at, dueLayout, err)
				}
				when = parsed
			}

			log := newLogger(cfg)
			if cfg.LogFile == "" {
				log.SetOutput(cmd.ErrOrStderr())
			}
			db, store, err := openStore(cfg, log)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			due, err := reminder.DueAt(cmd.Context(), store, when)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(due) == 0 {
				_, err := fmt.Fprintf(out, "no reminders due at %s\n", when.Format(dueLayout))
				return err
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tUSER\tPHONE\tMEDICINE\tTIME\tTYPE")
			for _, d := range due {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", d.ID, d.User.UserName, d.User.PhoneNumber, d.Medicine, d.Time, d.ReminderType)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "instant to evaluate as \"YYYY-MM-DD HH:MM\" in LOCAL_TIMEZONE (default now)")
	return cmd
}

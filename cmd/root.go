package cmd

import (
	"github.com/pathakanu/mediping/internal/config"
	"github.com/spf13/cobra"
)

// Execute runs the mediping command line.
func Execute() error {
	return newRootCmd(config.Load).Execute()
}

func newRootCmd(loadConfig func() *config.Config) *cobra.Command {
	serveCmd := newServeCmd(loadConfig)

	rootCmd := &cobra.Command{
		Use:           "mediping",
		Short:         "Medicine reminders over WhatsApp with emergency escalation",
		Long:          "mediping sends scheduled medicine reminders over WhatsApp, tracks the replies, and texts the emergency contact when a reminder goes unanswered.",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          serveCmd.RunE,
	}

	rootCmd.AddCommand(
		serveCmd,
		newDueCmd(loadConfig),
		newVersionCmd(),
	)
	return rootCmd
}

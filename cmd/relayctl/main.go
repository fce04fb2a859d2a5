// Command relayctl checks a relay deployment and sends sample webhooks.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"call-relay/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "relayctl",
		Short:        "Operate the call event relay",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level, _ := cmd.Flags().GetString("log-level")
			config.SetupLogging(level, "console")
		},
	}
	root.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	root.AddCommand(newCheckCmd(), newSendSampleCmd())
	return root
}

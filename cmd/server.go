package cmd

import (
	"github.com/simpleg-eu/cp-core/server"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:     "server",
	Aliases: []string{"start"},
	Short:   "Start the authorization server",
	Run: func(_ *cobra.Command, _ []string) {
		server.Start(cfg)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

package cmd

import (
	"fmt"

	"github.com/simpleg-eu/cp-core/internal/remoteconfig"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read values from the remote configuration service",
}

var configGetCmd = &cobra.Command{
	Use:   "get <file> <key>",
	Short: "Print the value at key (\":\"-separated) in a remote configuration file",
	Args:  cobra.ExactArgs(2),
	RunE: func(c *cobra.Command, args []string) error {
		client, err := remoteconfig.Build(remoteconfig.Options{
			Params: remoteconfig.Params{
				Host:        cfg.ConfigHost,
				Stage:       cfg.ConfigStage,
				Environment: cfg.ConfigEnvironment,
				Component:   cfg.ConfigComponent,
			},
			AccessToken: cfg.ConfigAccessToken,
			BaseDir:     cfg.ConfigWorkingDir,
			Timeout:     cfg.ConfigTimeout,
		})
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()

		value, err := client.Get(c.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(c.OutOrStdout(), value)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configGetCmd)
}

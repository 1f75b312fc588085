package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(setServerCmd)
}

var setServerCmd = &cobra.Command{
	Use:   "set-server <url>",
	Short: "Set the server URL in the config",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.ServerURL = args[0]

		path := cfgFile
		if path == "" {
			var err error
			path, err = GetConfigPath()
			if err != nil {
				return err
			}
		}
		if err := SaveConfig(path, cfg); err != nil {
			return err
		}
		fmt.Println("Server URL set to", cfg.ServerURL)
		return nil
	},
}

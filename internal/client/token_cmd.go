package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(tokenCmd)
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Fetch a CSRF token from the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := NewAPI(cfg.ServerURL)
		if err != nil {
			return err
		}
		token, err := api.Token()
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

package client

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fairwaylab/swinggate/internal/validate"
)

func init() {
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploaded clips",
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := NewAPI(cfg.ServerURL)
		if err != nil {
			return err
		}

		clips, err := api.List()
		if err != nil {
			return err
		}

		if len(clips) == 0 {
			fmt.Println("No clips uploaded.")
			return nil
		}
		for _, c := range clips {
			fmt.Printf("- [%s] %s (%s, %s) - %s\n",
				c.ID, c.FileName, c.MimeType, validate.FormatFileSize(c.FileSize),
				c.Timestamp.Format(time.RFC822))
		}
		return nil
	},
}

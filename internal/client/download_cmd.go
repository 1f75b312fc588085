package client

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fairwaylab/swinggate/internal/sanitize"
)

var downloadOut string

func init() {
	downloadCmd.Flags().StringVarP(&downloadOut, "out", "o", "", "Output path (defaults to the stored file name)")
	rootCmd.AddCommand(downloadCmd)
}

var downloadCmd = &cobra.Command{
	Use:   "download <id>",
	Short: "Download a clip by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api, err := NewAPI(cfg.ServerURL)
		if err != nil {
			return err
		}

		resp, err := api.Download(args[0])
		if err != nil {
			return err
		}

		out := downloadOut
		if out == "" {
			// Server-side names are already sanitized; sanitize again
			// anyway before touching the local filesystem.
			out = sanitize.Filename(resp.Metadata.FileName)
		}
		if out == "" {
			out = resp.Metadata.ID + ".bin"
		}
		if err := os.WriteFile(out, resp.Content, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", out, err)
		}

		fmt.Printf("Downloaded %s to %s\n", resp.Metadata.ID, out)
		return nil
	},
}

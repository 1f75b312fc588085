package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fairwaylab/swinggate/internal/apperrors"
	"github.com/fairwaylab/swinggate/internal/models"
	"github.com/fairwaylab/swinggate/internal/validate"
)

var uploadNotes string

func init() {
	uploadCmd.Flags().StringVar(&uploadNotes, "notes", "", "Notes to attach to the clip")
	rootCmd.AddCommand(uploadCmd)
}

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a swing clip",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		name := filepath.Base(path)

		mimeType := MimeTypeFor(name)
		if mimeType == "" {
			return fmt.Errorf("unsupported file extension %q", filepath.Ext(name))
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		// Run the metadata gate locally before sending anything, the way
		// the browser UI does before accepting a file into state.
		info := validate.FileInfo{Name: name, Size: int64(len(content)), MimeType: mimeType}
		if err := validate.QuickValidate(info); err != nil {
			var ae *apperrors.AppError
			if errors.As(err, &ae) {
				return errors.New(ae.UserMessage())
			}
			return err
		}

		api, err := NewAPI(cfg.ServerURL)
		if err != nil {
			return err
		}

		meta, err := api.Upload(models.UploadRequest{
			Metadata: models.UploadMetadata{
				FileName: name,
				FileSize: int64(len(content)),
				MimeType: mimeType,
				Notes:    uploadNotes,
			},
			Content: content,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Uploaded %s (%s) as %s\n", meta.FileName, validate.FormatFileSize(meta.FileSize), meta.ID)
		return nil
	},
}

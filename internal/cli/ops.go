package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fincontrol/attachd/internal/storage"
)

func newUploadCmd() *cobra.Command {
	var folder string
	var contentType string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a file and print its object URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := newStore(cfg)
			if err != nil {
				return err
			}

			path := args[0]
			payload, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}

			res, err := store.Upload(GetContext(), payload, contentType, folder, filepath.Base(path))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "url: %s\nkey: %s\n", res.URL, res.Key)
			return nil
		},
	}

	cmd.Flags().StringVarP(&folder, "folder", "f", storage.DefaultFolder, "Destination folder (key prefix)")
	cmd.Flags().StringVar(&contentType, "content-type", "", "Content type (default sniffed from the multipart header, else application/octet-stream)")

	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <url>",
		Short: "Delete the object behind a previously issued URL",
		Long: `Delete the object a prior upload returned. Deleting an object
that is already gone still succeeds.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := newStore(cfg)
			if err != nil {
				return err
			}

			if err := store.Delete(GetContext(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted")
			return nil
		},
	}
}

func newPresignCmd() *cobra.Command {
	var expires int

	cmd := &cobra.Command{
		Use:   "presign <key>",
		Short: "Print a time-limited download URL for an object key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := newStore(cfg)
			if err != nil {
				return err
			}

			if expires <= 0 {
				expires = cfg.PresignExpiry
			}
			signed, err := store.Presign(args[0], expires)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}

	cmd.Flags().IntVarP(&expires, "expires", "e", 0, "URL lifetime in seconds (default from config, 300)")

	return cmd
}

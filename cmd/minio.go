package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"asterplayer/storage"
)

var (
	minioPrefix string
	minioStats  bool
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "List offloaded audio in MinIO",
	Long:  `Connect to the audio vault bucket and list the stored audio objects.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.OffloadEnabled() {
			return fmt.Errorf("MINIO_ENDPOINT is not set")
		}
		fmt.Printf("MinIO: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		vault, err := storage.NewAudioVault(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		objects, stats, err := vault.List(cmd.Context(), minioPrefix)
		if err != nil {
			return err
		}

		if !minioStats {
			for _, obj := range objects {
				fmt.Printf("%s  %10s  %s  %s\n",
					obj.LastModified.Format(time.RFC3339),
					storage.FormatSize(obj.Size),
					obj.ContentType,
					obj.Key)
			}
		}
		fmt.Printf("\n%d objects, %s total", stats.TotalObjects, storage.FormatSize(stats.TotalSize))
		if stats.TotalObjects > 0 {
			fmt.Printf(", last modified %s", stats.LastModified.Format("2006-01-02 15:04:05"))
		}
		fmt.Println()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)
	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "only objects under this prefix (inside audio/)")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "print totals only")

	minioCmd.Example = `  # list all offloaded audio
  asterplayer minio

  # totals only
  asterplayer minio -s`
}

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"asterplayer/server"
)

var tracksJSON bool

var tracksCmd = &cobra.Command{
	Use:   "tracks",
	Short: "Print the current track list",
	Long:  `Read one snapshot of the track store and print it in display order.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := server.NewApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		tracks, err := app.Sync.Current(cmd.Context())
		if err != nil {
			return err
		}

		if tracksJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(tracks)
		}

		if len(tracks) == 0 {
			fmt.Println("no tracks")
			return nil
		}
		for _, t := range tracks {
			created := "-"
			if t.CreatedAt != 0 {
				created = time.UnixMilli(t.CreatedAt).Format("2006-01-02 15:04:05")
			}
			fmt.Printf("#%-3d %-20s %-14s %3ds  %s  %s\n",
				t.Ordinal, t.Title, t.Category, t.Duration, created, t.ID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tracksCmd)
	tracksCmd.Flags().BoolVar(&tracksJSON, "json", false, "print the list as JSON")
}

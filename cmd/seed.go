package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"asterplayer/core/gateway"
	"asterplayer/model"
	"asterplayer/server"
)

var seedCount int

// sampleUpload is the payload the embed API documents as its example.
var sampleUpload = gateway.Payload{
	Name:     "테스트 사용자",
	AudioURL: "https://example.com/test-audio.mp3",
	CharmTraits: []model.CharmTrait{
		{CharmName: "다정함", Stage: 8},
		{CharmName: "유머 감각", Stage: 6},
		{CharmName: "창의성", Stage: 7},
	},
	Duration: 45,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Upload the sample track",
	Long:  `Submit the documented sample payload through the write gateway.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := server.NewApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		for i := 0; i < seedCount; i++ {
			id, err := app.Gateway.Submit(cmd.Context(), sampleUpload)
			if err != nil {
				return err
			}
			fmt.Println(id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().IntVarP(&seedCount, "count", "n", 1, "number of copies to upload")
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"asterplayer/config"
	"asterplayer/logger"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "asterplayer",
	Short: "Aster player keeps the shared list of AI charm tracks.",
	Long: `Aster player stores charm tracks generated by the Aster alarm app,
republishes them as an ordered, classified list and accepts new tracks
from the embed API, the auto-add link, the cross-origin bridge and an
inbox directory.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded

		logger.InitLogger(logger.Config{
			Level:      logger.LogLevel(cfg.LogLevel),
			OutputPath: cfg.LogFile,
			MaxSize:    cfg.LogMaxSize,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAge,
			Compress:   cfg.LogCompress,
		})
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

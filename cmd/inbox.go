package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"asterplayer/logger"
	"asterplayer/server"
)

var inboxOnce bool

var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "Submit payload files dropped into the inbox directory",
	Long: `Watch INBOX_DIR for *.json upload payloads and submit each through the
write gateway. Files are moved to processed/ or failed/ afterwards.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := server.NewApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		watcher, err := app.NewInbox()
		if err != nil {
			return err
		}

		if inboxOnce {
			return watcher.Drain(ctx)
		}
		logger.Info("watching inbox", logger.String("dir", cfg.InboxDir))
		return watcher.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(inboxCmd)
	inboxCmd.Flags().BoolVar(&inboxOnce, "once", false, "process the files present now and exit")
}

package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"asterplayer/core/inbox"
	"asterplayer/logger"
	"asterplayer/server"
)

var serveInbox bool

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server"},
	Short:   "Start the player HTTP server",
	Long:    `Start the HTTP server: track API, live list, cross-origin bridge and web UI.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func runServe(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	var watcher *inbox.Watcher
	if serveInbox {
		if watcher, err = app.NewInbox(); err != nil {
			return err
		}
	}

	if err := server.Run(ctx, app, watcher); err != nil {
		logger.Error("server exited", logger.ErrorField(err))
		return err
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.PersistentFlags().BoolVar(&serveInbox, "inbox", false, "also watch INBOX_DIR for payload files while serving")
}

package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"doc-recognizer/internal/watch"
)

var flagWatchLanguages []string

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Watch a directory and process documents as they appear",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		languages := flagWatchLanguages
		if len(languages) == 0 {
			languages = application.settings.Languages
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		watcher := watch.NewWatcher(args[0], application.orchestrator, languages, application.logger)
		cmd.Printf("watching %s, press Ctrl-C to stop\n", args[0])
		err := watcher.Run(ctx)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		application.orchestrator.Wait()
		return err
	},
}

func init() {
	watchCmd.Flags().StringSliceVarP(&flagWatchLanguages, "lang", "l", nil, "recognition languages (defaults to configured languages)")
	rootCmd.AddCommand(watchCmd)
}

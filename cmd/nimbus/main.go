package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/five82/nimbus/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "nimbus: %v\n", err)
		return 1
	}
	return 0
}

func rootCommand() *cobra.Command {
	var opts app.Options

	root := &cobra.Command{
		Use:           "nimbus",
		Short:         "Terminal weather dashboard backed by OpenWeatherMap",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "config file path (default ~/.config/nimbus/config.toml)")
	flags.StringVar(&opts.PrefsPath, "prefs", "", "preferences file path (default ~/.config/nimbus/prefs.toml)")
	flags.StringVar(&opts.Units, "units", "", "metric or imperial (overrides env, prefs and config)")
	flags.DurationVar(&opts.Refresh, "refresh", 0, "stale refresh interval, e.g. 2m (default from config)")
	flags.BoolVar(&opts.Debug, "debug", false, "log at debug level")

	root.AddCommand(currentCommand(&opts), favoritesCommand(&opts))
	return root
}

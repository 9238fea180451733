package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"songsmith/internal/config"
	"songsmith/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "songsmith",
	Short:         "Generate songs on AI music services from the command line",
	Long:          "Signs in to an AI music service with a real browser, submits prompts, collects the shareable links and downloads the results.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Process-wide state built by the root pre-run hook.
var (
	cfg *config.Config
	run *logging.Run
	log zerolog.Logger
)

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if run != nil {
		run.Close()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable detailed debug logging")
	rootCmd.PersistentFlags().String("site", "", "Site profile to use (overrides config)")
	rootCmd.PersistentFlags().Bool("headless", false, "Run the browser without a window (overrides config)")
	rootCmd.PersistentPreRunE = setup
}

func setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	flags := rootCmd.PersistentFlags()
	path, _ := flags.GetString("config")
	c, err := config.LoadConfig(path)
	if err != nil {
		return err
	}
	if flags.Changed("site") {
		c.Site, _ = flags.GetString("site")
	}
	if flags.Changed("headless") {
		c.Headless, _ = flags.GetBool("headless")
	}
	if debug, _ := flags.GetBool("debug"); debug {
		c.DebugMode = true
	}

	r, err := logging.Setup(c.LogsDir, c.DebugMode)
	if err != nil {
		return err
	}
	cfg, run, log = c, r, r.Logger
	log.Debug().Str("config", path).Str("site", cfg.Site).Str("command", cmd.Name()).Msg("starting")
	return nil
}

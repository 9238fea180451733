package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"songsmith/internal/studio"
)

var listDownloadsCmd = &cobra.Command{
	Use:   "list-downloads",
	Short: "List downloaded songs",
	Args:  cobra.NoArgs,
	RunE:  runListDownloads,
}

func init() {
	rootCmd.AddCommand(listDownloadsCmd)
}

func runListDownloads(cmd *cobra.Command, args []string) error {
	names, err := studio.MediaFiles(cfg.DownloadsDir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(names) == 0 {
		fmt.Fprintf(out, "No downloads in %s\n", cfg.DownloadsDir)
		return nil
	}
	fmt.Fprintf(out, "Downloads in %s:\n", cfg.DownloadsDir)
	for _, name := range names {
		fmt.Fprintf(out, "- %s\n", name)
	}
	fmt.Fprintf(out, "Total files: %d\n", len(names))
	return nil
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"songsmith/internal/analyze"
	"songsmith/internal/bot"
	"songsmith/internal/browser"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Record the sign-in surface of the site",
	Long:  "Open the site, record candidate sign-in, email and continue elements before and after clicking sign in, and write the report to the analysis directory. With --report, only print locator suggestions from an existing report.",
	Args:  cobra.NoArgs,
	RunE:  runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().String("report", "", "Suggest locators from an existing report instead of opening a browser")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if path, _ := cmd.Flags().GetString("report"); path != "" {
		r, err := analyze.LoadReport(path)
		if err != nil {
			return err
		}
		printSuggestions(cmd, analyze.Suggest(r))
		return nil
	}

	site, err := loadSite()
	if err != nil {
		return err
	}
	session, err := browser.Launch(cmd.Context(), bot.SessionOptions(cfg, true, log))
	if err != nil {
		return err
	}
	defer session.Close()

	r, err := analyze.New(newEngine(), site, cfg, log).Run(cmd.Context(), session)
	if err != nil {
		return err
	}
	path, err := r.Save(cfg.AnalysisDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Analysis written to %s\n", path)
	printSuggestions(cmd, r.Suggestions)
	return nil
}

func printSuggestions(cmd *cobra.Command, suggestions []string) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Found %d potential sign in locators:\n", len(suggestions))
	for _, s := range suggestions {
		fmt.Fprintf(out, "- %s\n", s)
	}
}

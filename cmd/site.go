package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"songsmith/internal/config"
)

var exportSiteCmd = &cobra.Command{
	Use:   "export-site",
	Short: "Write the current site profile to the sites directory for editing",
	Long:  "Write the active site profile, built-in or overridden, to sites/<name>.yaml. Edits to that file take effect on the next run.",
	Args:  cobra.NoArgs,
	RunE:  runExportSite,
}

func init() {
	rootCmd.AddCommand(exportSiteCmd)
	exportSiteCmd.Flags().Bool("force", false, "Overwrite an existing file")
}

func runExportSite(cmd *cobra.Command, args []string) error {
	site, err := loadSite()
	if err != nil {
		return err
	}

	path := filepath.Join(cfg.SitesDir, site.Name+".yaml")
	force, _ := cmd.Flags().GetBool("force")
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := os.MkdirAll(cfg.SitesDir, 0755); err != nil {
		return err
	}
	if err := site.Save(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Site %s written to %s (built-in sites: %v)\n", site.Name, path, config.SiteNames())
	return nil
}

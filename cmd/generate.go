package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"songsmith/internal/auth"
	"songsmith/internal/bot"
	"songsmith/internal/browser"
	"songsmith/internal/config"
	"songsmith/internal/mail"
	"songsmith/internal/prompt"
	"songsmith/internal/studio"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate songs from a prompt, a template or the prompt bank",
	Long:  "Sign in, create one song per variation, then download every result. With no --prompt a template (or the prompt bank) supplies a fresh prompt per variation.",
	Args:  cobra.NoArgs,
	RunE:  runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringP("prompt", "p", "", "Literal prompt for every variation")
	generateCmd.Flags().IntP("variations", "v", 1, "Number of songs to generate")
	generateCmd.Flags().StringP("template", "t", "crypto_meme", "Template to draw prompts from")
	generateCmd.Flags().Bool("bank", false, "Build prompts from the prompt bank file")
	generateCmd.Flags().Bool("upload", false, "Upload each downloaded file to cloud storage")
}

func promptSource(cmd *cobra.Command) (prompt.Source, error) {
	text, _ := cmd.Flags().GetString("prompt")
	useBank, _ := cmd.Flags().GetBool("bank")
	name, _ := cmd.Flags().GetString("template")

	switch {
	case text != "":
		return prompt.Literal(text), nil
	case useBank:
		return prompt.LoadBank(cfg.PromptBankFile)
	}
	m, err := newTemplateManager()
	if err != nil {
		return nil, err
	}
	return prompt.NewTemplateSource(m, name)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	variations, _ := cmd.Flags().GetInt("variations")
	upload, _ := cmd.Flags().GetBool("upload")

	creds, err := config.CredentialsFromEnv()
	if err != nil {
		return err
	}
	site, err := loadSite()
	if err != nil {
		return err
	}
	src, err := promptSource(cmd)
	if err != nil {
		return err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	var reader mail.Reader
	if site.LoginMethod == config.LoginMagicLink {
		if reader, err = newMailReader(ctx); err != nil {
			return err
		}
	}

	engine := newEngine()
	machine, err := auth.NewMachine(auth.Deps{
		Config:           cfg,
		Site:             site,
		Credentials:      creds,
		Factory:          browser.Launch,
		Options:          bot.SessionOptions(cfg, true, log),
		Engine:           engine,
		Mail:             reader,
		Logger:           log,
		ScreenshotPrefix: run.ID,
	})
	if err != nil {
		return err
	}

	flow, err := studio.New(engine, site, cfg, log)
	if err != nil {
		return err
	}
	flow.Prefix = run.ID

	deps := bot.Deps{
		Config:  cfg,
		Site:    site,
		Auth:    machine,
		Flow:    flow,
		Engine:  engine,
		Factory: browser.Launch,
		Logger:  log,
	}
	if upload || cfg.Storage.UploadAfterDownload {
		store, err := newStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()
		deps.Uploader = store
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Generating %d song(s) on %s\n", variations, site.Name)

	tracks, err := bot.New(deps).Run(ctx, src, variations)
	for i, t := range tracks {
		fmt.Fprintf(out, "%d. %s\n", i+1, t.Reference)
		if t.File != "" {
			fmt.Fprintf(out, "   file: %s\n", t.File)
		}
		if t.PublicURL != "" {
			fmt.Fprintf(out, "   url:  %s\n", t.PublicURL)
		}
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Done. Check the %s folder.\n", cfg.DownloadsDir)
	return nil
}

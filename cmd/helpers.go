package cmd

import (
	"context"
	"os"
	"strings"

	"songsmith/internal/automation"
	"songsmith/internal/config"
	"songsmith/internal/mail"
	"songsmith/internal/prompt"
	"songsmith/internal/storage"
)

func loadSite() (*config.Site, error) {
	return config.LoadSite(cfg.SitesDir, cfg.Site)
}

func newEngine() *automation.Engine {
	return automation.New(log, cfg.Click)
}

// gmailFiles returns the OAuth client and token paths, environment first.
func gmailFiles() (credentials, token string) {
	credentials = cfg.Email.CredentialsFile
	if v := os.Getenv("SONGSMITH_GMAIL_CREDENTIALS"); v != "" {
		credentials = v
	}
	token = cfg.Email.TokenFile
	if v := os.Getenv("SONGSMITH_GMAIL_TOKEN"); v != "" {
		token = v
	}
	return credentials, token
}

func newMailReader(ctx context.Context) (mail.Reader, error) {
	credentials, token := gmailFiles()
	source, err := mail.NewGmailSource(ctx, credentials, token)
	if err != nil {
		return nil, err
	}

	clock := mail.NewSkewClock(log)
	if err := clock.Sync(ctx); err != nil {
		log.Warn().Err(err).Msg("using local clock for email freshness")
	} else {
		log.Debug().Dur("offset", clock.Offset()).Msg("clock skew measured")
	}
	return mail.NewInboxReader(source, clock, cfg.Email.RequestsPerSec, log), nil
}

// cloudCredentials reads GOOGLE_CLOUD_CREDENTIALS, which holds either the
// service-account JSON itself or a path to it.
func cloudCredentials() ([]byte, error) {
	v := strings.TrimSpace(os.Getenv("GOOGLE_CLOUD_CREDENTIALS"))
	if v == "" || strings.HasPrefix(v, "{") {
		return []byte(v), nil
	}
	return os.ReadFile(v)
}

func newStore(ctx context.Context) (*storage.Store, error) {
	creds, err := cloudCredentials()
	if err != nil {
		return nil, err
	}
	return storage.New(ctx, creds, cfg.Storage.Bucket, log)
}

func newTemplateManager() (*prompt.Manager, error) {
	return prompt.NewManager(cfg.TemplatesDir, log)
}

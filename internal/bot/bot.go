// Package bot runs a whole generation session: sign in with a stealth
// browser, create each prompt, then download every result from a plain
// browser and optionally publish the files.
package bot

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"songsmith/internal/automation"
	"songsmith/internal/browser"
	"songsmith/internal/config"
	"songsmith/internal/prompt"
	"songsmith/internal/studio"
)

// Authenticator yields a signed-in session the caller must close.
type Authenticator interface {
	Login(ctx context.Context) (browser.Session, error)
}

// Uploader publishes a local file and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, localPath, dest string) (string, error)
}

// Track is one generated song.
type Track struct {
	Reference string
	File      string
	PublicURL string
}

// Deps wires the pipeline stages together.
type Deps struct {
	Config  *config.Config
	Site    *config.Site
	Auth    Authenticator
	Flow    *studio.Flow
	Engine  *automation.Engine
	Factory browser.Factory
	// Uploader is optional; nil skips publishing.
	Uploader Uploader
	Logger   zerolog.Logger
}

// Bot runs login, creation and download for a batch of songs.
type Bot struct {
	cfg      *config.Config
	site     *config.Site
	auth     Authenticator
	flow     *studio.Flow
	engine   *automation.Engine
	factory  browser.Factory
	uploader Uploader
	log      zerolog.Logger
}

// New builds a Bot from d.
func New(d Deps) *Bot {
	return &Bot{
		cfg:      d.Config,
		site:     d.Site,
		auth:     d.Auth,
		flow:     d.Flow,
		engine:   d.Engine,
		factory:  d.Factory,
		uploader: d.Uploader,
		log:      d.Logger,
	}
}

// SessionOptions derives browser options from cfg. Login sessions are
// stealthy when configured; download sessions never are.
func SessionOptions(cfg *config.Config, stealth bool, log zerolog.Logger) browser.Options {
	downloads, err := filepath.Abs(cfg.DownloadsDir)
	if err != nil {
		downloads = cfg.DownloadsDir
	}
	return browser.Options{
		Headless:        cfg.Headless,
		Stealth:         stealth && cfg.Stealth,
		ProfileDir:      cfg.BrowserProfilePath,
		DownloadDir:     downloads,
		ViewportWidth:   cfg.ViewportWidth,
		ViewportHeight:  cfg.ViewportHeight,
		PageLoadTimeout: cfg.PageLoadTimeout,
		Logger:          log,
	}
}

// Run creates count songs from src. Creation stops at the first failure and
// whatever was created before it is still downloaded.
func (b *Bot) Run(ctx context.Context, src prompt.Source, count int) ([]Track, error) {
	if count < 1 {
		return nil, fmt.Errorf("variation count must be at least 1, got %d", count)
	}

	refs, createErr := b.create(ctx, src, count)
	if len(refs) == 0 {
		return nil, createErr
	}

	tracks, err := b.download(ctx, refs)
	if createErr != nil {
		return tracks, createErr
	}
	return tracks, err
}

func (b *Bot) create(ctx context.Context, src prompt.Source, count int) ([]string, error) {
	session, err := b.auth.Login(ctx)
	if err != nil {
		return nil, err
	}
	// The stealth session shares the browser profile with the download
	// session, so it is closed before that one starts.
	defer b.closeSession(session, "creation")

	page := session.Page()
	if b.site.CreateURL != "" {
		if err := page.Navigate(ctx, b.site.CreateURL); err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", b.site.CreateURL, err)
		}
		b.engine.WaitReady(ctx, page, b.cfg.PageLoadTimeout)
	}

	var refs []string
	for i := 1; i <= count; i++ {
		b.log.Info().Int("variation", i).Int("count", count).Msg("creating song")
		ref, err := b.flow.Create(ctx, page, src)
		if err != nil {
			return refs, fmt.Errorf("variation %d: %w", i, err)
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (b *Bot) download(ctx context.Context, refs []string) ([]Track, error) {
	tracks := make([]Track, len(refs))
	for i, ref := range refs {
		tracks[i].Reference = ref
	}

	session, err := b.factory(ctx, SessionOptions(b.cfg, false, b.log))
	if err != nil {
		return tracks, fmt.Errorf("failed to start download browser: %w", err)
	}
	defer b.closeSession(session, "download")

	for i, ref := range refs {
		path, err := b.flow.Download(ctx, session, ref)
		if err != nil {
			return tracks, fmt.Errorf("download %s: %w", ref, err)
		}
		tracks[i].File = path

		if b.uploader == nil {
			continue
		}
		url, err := b.uploader.Upload(ctx, path, filepath.Base(path))
		if err != nil {
			return tracks, fmt.Errorf("upload %s: %w", path, err)
		}
		tracks[i].PublicURL = url
		b.log.Info().Str("url", url).Msg("uploaded")
	}
	return tracks, nil
}

func (b *Bot) closeSession(s browser.Session, name string) {
	if err := s.Close(); err != nil {
		b.log.Warn().Err(err).Str("session", name).Msg("error while closing browser, ignoring")
	}
}

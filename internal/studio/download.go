package studio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"songsmith/internal/automation"
	"songsmith/internal/browser"
)

// Extensions the browser uses for downloads still in flight.
var partialExts = map[string]bool{
	".crdownload": true,
	".tmp":        true,
	".part":       true,
}

// MediaExts are the file types listed as finished downloads.
var MediaExts = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".mp4":  true,
	".m4a":  true,
	".flac": true,
}

// Download opens ref in session, walks the download dialog and waits for a
// new file to land in the session's download directory. It returns the path
// of the newest file.
func (f *Flow) Download(ctx context.Context, session browser.Session, ref string) (string, error) {
	dir := session.DownloadDir()
	before, err := CountFiles(dir)
	if err != nil {
		return "", err
	}

	page := session.Page()
	if err := page.Navigate(ctx, ref); err != nil {
		return "", fmt.Errorf("failed to open %s: %w", ref, err)
	}
	f.engine.WaitReady(ctx, page, f.cfg.PageLoadTimeout)

	steps := []struct {
		name     string
		locators []string
		timeout  time.Duration
	}{
		{"download media button", f.site.DownloadMedia, f.cfg.ElementTimeout},
		{"generate button", f.site.Generate, f.cfg.ElementTimeout},
		{"confirm download button", f.site.ConfirmDownload, f.cfg.Download.ConfirmTimeout},
	}
	for _, step := range steps {
		if !f.engine.Click(ctx, page, step.locators, step.name, step.timeout) {
			return "", f.fail(page, "download_failure", &automation.LocatorError{Name: step.name})
		}
	}

	f.log.Info().Int("count", before).Str("dir", dir).Msg("waiting for download")
	err = automation.PollRounds(ctx, f.cfg.Download.PollInterval, f.cfg.Download.PollRounds, func() bool {
		n, err := CountFiles(dir)
		return err == nil && n > before
	})
	if errors.Is(err, automation.ErrTimeout) {
		return "", fmt.Errorf("%w: no new file in %s after %d checks", ErrDownloadTimeout, dir, f.cfg.Download.PollRounds)
	}
	if err != nil {
		return "", err
	}

	path, err := NewestFile(dir)
	if err != nil {
		return "", err
	}
	f.log.Info().Str("path", path).Msg("download complete")
	return path, nil
}

// CountFiles counts finished regular files in dir. A missing dir has none.
func CountFiles(dir string) (int, error) {
	files, err := finishedFiles(dir)
	return len(files), err
}

// NewestFile returns the most recently modified finished file in dir.
func NewestFile(dir string) (string, error) {
	files, err := finishedFiles(dir)
	if err != nil {
		return "", err
	}
	var newest os.FileInfo
	for _, fi := range files {
		if newest == nil || fi.ModTime().After(newest.ModTime()) {
			newest = fi
		}
	}
	if newest == nil {
		return "", fmt.Errorf("no files in %s", dir)
	}
	return filepath.Join(dir, newest.Name()), nil
}

// MediaFiles lists finished media files in dir by name.
func MediaFiles(dir string) ([]string, error) {
	files, err := finishedFiles(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, fi := range files {
		if MediaExts[strings.ToLower(filepath.Ext(fi.Name()))] {
			names = append(names, fi.Name())
		}
	}
	return names, nil
}

func finishedFiles(dir string) ([]os.FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var files []os.FileInfo
	for _, e := range entries {
		if !e.Type().IsRegular() || partialExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, fi)
	}
	return files, nil
}

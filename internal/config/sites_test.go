package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestBuiltinSitesValidate(t *testing.T) {
	for _, name := range SiteNames() {
		t.Run(name, func(t *testing.T) {
			site, err := LoadSite(t.TempDir(), name)
			if err != nil {
				t.Fatalf("LoadSite(%q) error: %v", name, err)
			}
			if site.Name != name {
				t.Errorf("Expected Name %q, got %q", name, site.Name)
			}
			if site.ShareURLPattern == "" {
				t.Error("Expected ShareURLPattern to be set")
			}
		})
	}
}

func TestLoadSiteOverlay(t *testing.T) {
	dir := t.TempDir()
	content := "base_url: https://staging.suno.com\nauthenticated_paths: [\"/workspace\"]\n"
	if err := os.WriteFile(filepath.Join(dir, "suno.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	site, err := LoadSite(dir, "suno")
	if err != nil {
		t.Fatalf("LoadSite error: %v", err)
	}
	if site.BaseURL != "https://staging.suno.com" {
		t.Errorf("Expected overlaid BaseURL, got %s", site.BaseURL)
	}
	if len(site.AuthenticatedPaths) != 1 || site.AuthenticatedPaths[0] != "/workspace" {
		t.Errorf("Expected AuthenticatedPaths [/workspace], got %v", site.AuthenticatedPaths)
	}
	if site.LoginMethod != LoginOAuth {
		t.Errorf("Expected built-in LoginMethod to survive overlay, got %s", site.LoginMethod)
	}
}

func TestLoadSiteUnknown(t *testing.T) {
	_, err := LoadSite(t.TempDir(), "nope")
	if !errors.Is(err, ErrUnknownSite) {
		t.Errorf("LoadSite(nope) error = %v, want ErrUnknownSite", err)
	}
}

func TestLoadSiteCustom(t *testing.T) {
	dir := t.TempDir()
	site := &Site{
		BaseURL:            "https://service.example",
		LoginMethod:        LoginPassword,
		SignIn:             []string{"#signin"},
		EmailInput:         []string{"#email"},
		PasswordInput:      []string{"#password"},
		AuthenticatedPaths: []string{"/home"},
	}
	if err := site.Save(filepath.Join(dir, "example.yaml")); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadSite(dir, "example")
	if err != nil {
		t.Fatalf("LoadSite error: %v", err)
	}
	if loaded.Name != "example" {
		t.Errorf("Expected Name to default to file name, got %q", loaded.Name)
	}
}

func TestSiteValidate(t *testing.T) {
	tests := []struct {
		name string
		site Site
	}{
		{"no base url", Site{LoginMethod: LoginPassword}},
		{"magic link without subject", Site{
			BaseURL: "https://x", LoginMethod: LoginMagicLink,
			SignIn: []string{"a"}, EmailInput: []string{"b"}, AuthenticatedPaths: []string{"/home"},
		}},
		{"oauth without domains", Site{
			BaseURL: "https://x", LoginMethod: LoginOAuth, OAuthButton: []string{"c"},
			SignIn: []string{"a"}, EmailInput: []string{"b"}, AuthenticatedPaths: []string{"/home"},
		}},
		{"unknown method", Site{
			BaseURL: "https://x", LoginMethod: "sms",
			SignIn: []string{"a"}, EmailInput: []string{"b"}, AuthenticatedPaths: []string{"/home"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.site.Validate(); err == nil {
				t.Error("Expected validation error, got nil")
			}
		})
	}
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Login methods a site can use after the email is submitted.
const (
	LoginPassword  = "password"
	LoginMagicLink = "magic_link"
	LoginOAuth     = "oauth"
)

var ErrUnknownSite = errors.New("unknown site")

// Site parameterizes the login and creation flows for one service.
// Locator lists are ordered by preference.
type Site struct {
	Name        string `yaml:"name"`
	BaseURL     string `yaml:"base_url"`
	LoginMethod string `yaml:"login_method"`

	SignIn         []string `yaml:"sign_in"`
	EmailInput     []string `yaml:"email_input"`
	Continue       []string `yaml:"continue"`
	PasswordInput  []string `yaml:"password_input"`
	PasswordSubmit []string `yaml:"password_submit"`

	OAuthButton        []string `yaml:"oauth_button"`
	OAuthDomains       []string `yaml:"oauth_domains"`
	OAuthEmailInput    []string `yaml:"oauth_email_input"`
	OAuthPasswordInput []string `yaml:"oauth_password_input"`

	MagicLinkSubject string `yaml:"magic_link_subject"`

	AuthenticatedPaths   []string `yaml:"authenticated_paths"`
	AuthenticatedMarkers []string `yaml:"authenticated_markers"`

	// CreateURL is opened after sign-in; empty stays on the landing page.
	CreateURL       string   `yaml:"create_url"`
	PromptInput     string   `yaml:"prompt_input"`
	Create          []string `yaml:"create"`
	Reaction        string   `yaml:"reaction"`
	Options         []string `yaml:"options"`
	Share           []string `yaml:"share"`
	ShareURLPattern string   `yaml:"share_url_pattern"`

	DownloadMedia   []string `yaml:"download_media"`
	Generate        []string `yaml:"generate"`
	ConfirmDownload []string `yaml:"confirm_download"`
}

var builtinSites = map[string]Site{
	"suno": {
		Name:        "suno",
		BaseURL:     "https://suno.com",
		LoginMethod: LoginOAuth,
		SignIn: []string{
			"//button[text()='Sign in' and contains(@class, 'bottom')]",
			"//button[contains(@class, 'bg-primary') and contains(text(), 'Sign')]",
			"//button[contains(@class, 'text-primary-foreground') and contains(text(), 'Sign')]",
			"//a[contains(text(), 'Sign')]",
		},
		EmailInput: []string{
			"input[type='email']",
			"input[name*='email']",
			"input[placeholder*='email']",
		},
		Continue: []string{
			"//button[contains(text(), 'Continue')]",
			"button[type='submit']",
		},
		PasswordInput:  []string{"input[type='password']"},
		PasswordSubmit: []string{"button[type='submit']"},
		OAuthButton: []string{
			"(//*[contains(@class, 'auth-button')])[3]",
			"button >> text=(?i)google",
		},
		OAuthDomains:       []string{"accounts.google.com", "google.com/signin", "google.com/o/oauth2"},
		OAuthEmailInput:    []string{"input[name='identifier']", "input[type='email']", "#identifierId"},
		OAuthPasswordInput: []string{"input[name='Passwd']", "input[name='password']", "input[type='password']"},
		AuthenticatedPaths: []string{"/home", "/create", "/studio", "/dashboard"},
		AuthenticatedMarkers: []string{
			"button[aria-label*='Profile']",
			"//button[contains(text(), 'Log out') or contains(text(), 'Sign out')]",
		},
		CreateURL:       "https://suno.com/create",
		PromptInput:     "textarea",
		Create:          []string{"button[aria-label='Create']", "//button[.//span[text()='Create']]", "button >> text=^Create$"},
		Reaction:        "button[aria-label*='Like']",
		Options:         []string{"button[aria-label*='More']", "button[aria-label*='options']"},
		Share:           []string{"//*[@role='menuitem' and contains(., 'Share')]", "//button[contains(., 'Share')]"},
		ShareURLPattern: `https://suno\.com/song/[A-Za-z0-9-]+`,
		DownloadMedia:   []string{"//button[contains(., 'Download')]"},
		Generate:        []string{"//button[contains(., 'Generate')]"},
		ConfirmDownload: []string{"//a[contains(., 'Download')]", "//button[contains(., 'Download') and not(@disabled)]"},
	},
	"udio": {
		Name:        "udio",
		BaseURL:     "https://www.udio.com",
		LoginMethod: LoginMagicLink,
		SignIn: []string{
			"//button[contains(text(), 'Sign in')]",
			"//a[contains(text(), 'Sign in')]",
		},
		EmailInput: []string{
			"input[type='email']",
			"input[name='email']",
			"input[placeholder*='mail']",
		},
		Continue: []string{
			"//button[contains(text(), 'Continue')]",
			"//button[contains(text(), 'Send')]",
			"button[type='submit']",
		},
		PasswordInput:      []string{"input[type='password']"},
		PasswordSubmit:     []string{"button[type='submit']"},
		OAuthButton:        []string{"//button[contains(., 'Google')]"},
		OAuthDomains:       []string{"accounts.google.com"},
		OAuthEmailInput:    []string{"input[name='identifier']", "input[type='email']"},
		OAuthPasswordInput: []string{"input[name='Passwd']", "input[type='password']"},
		MagicLinkSubject:   "Sign in to Udio",
		AuthenticatedPaths: []string{"/home", "/create", "/my-creations", "/library"},
		AuthenticatedMarkers: []string{
			"img[alt*='avatar']",
			"//button[contains(text(), 'Sign out')]",
		},
		CreateURL:       "https://www.udio.com/create",
		PromptInput:     "textarea[placeholder*='Describe']",
		Create:          []string{"//button[contains(., 'Create')]"},
		Reaction:        "button[aria-label*='like']",
		Options:         []string{"button[aria-label*='More']"},
		Share:           []string{"//*[@role='menuitem' and contains(., 'Share')]"},
		ShareURLPattern: `https://www\.udio\.com/songs/[A-Za-z0-9]+`,
		DownloadMedia:   []string{"//button[contains(., 'Download')]"},
		Generate:        []string{"//button[contains(., 'Generate')]"},
		ConfirmDownload: []string{"//a[contains(., 'Download')]"},
	},
}

// SiteNames lists the built-in profiles.
func SiteNames() []string {
	names := make([]string, 0, len(builtinSites))
	for name := range builtinSites {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadSite returns the profile for name. A sites/<name>.yaml file overlays
// the built-in profile of the same name or defines a new one.
func LoadSite(dir, name string) (*Site, error) {
	site, builtin := builtinSites[name]

	path := filepath.Join(dir, name+".yaml")
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &site); err != nil {
			return nil, fmt.Errorf("failed to parse site file %s: %w", path, err)
		}
	case os.IsNotExist(err) && builtin:
	case os.IsNotExist(err):
		return nil, fmt.Errorf("%w: %q (built-in: %s)", ErrUnknownSite, name, strings.Join(SiteNames(), ", "))
	default:
		return nil, fmt.Errorf("failed to read site file %s: %w", path, err)
	}

	if site.Name == "" {
		site.Name = name
	}
	if err := site.Validate(); err != nil {
		return nil, fmt.Errorf("site %s: %w", name, err)
	}
	return &site, nil
}

func (s *Site) Validate() error {
	if s.BaseURL == "" {
		return errors.New("base_url must be set")
	}
	if len(s.SignIn) == 0 || len(s.EmailInput) == 0 {
		return errors.New("sign_in and email_input locators are required")
	}
	switch s.LoginMethod {
	case LoginPassword:
		if len(s.PasswordInput) == 0 {
			return errors.New("password login needs password_input locators")
		}
	case LoginMagicLink:
		if s.MagicLinkSubject == "" {
			return errors.New("magic_link login needs magic_link_subject")
		}
	case LoginOAuth:
		if len(s.OAuthButton) == 0 || len(s.OAuthDomains) == 0 {
			return errors.New("oauth login needs oauth_button and oauth_domains")
		}
	default:
		return fmt.Errorf("unknown login_method %q", s.LoginMethod)
	}
	if len(s.AuthenticatedPaths) == 0 && len(s.AuthenticatedMarkers) == 0 {
		return errors.New("at least one authenticated path or marker is required")
	}
	return nil
}

// Save writes the profile as yaml, e.g. to seed a sites/ override.
func (s *Site) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

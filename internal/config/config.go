package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Reference policies applied when a share dialog yields more than one URL.
const (
	ReferenceFirst  = "first"
	ReferenceStrict = "strict"
)

var ErrMissingCredentials = errors.New("account email not found in environment (set GOOGLE_EMAIL)")

type Config struct {
	Site string `yaml:"site"`

	BrowserProfilePath string `yaml:"browser_profile_path"`
	DownloadsDir       string `yaml:"downloads_dir"`
	LogsDir            string `yaml:"logs_dir"`
	TemplatesDir       string `yaml:"templates_dir"`
	SitesDir           string `yaml:"sites_dir"`
	AnalysisDir        string `yaml:"analysis_dir"`
	PromptBankFile     string `yaml:"prompt_bank_file"`

	Headless       bool `yaml:"headless"`
	Stealth        bool `yaml:"stealth"`
	ViewportWidth  int  `yaml:"viewport_width"`
	ViewportHeight int  `yaml:"viewport_height"`

	PageLoadTimeout time.Duration `yaml:"page_load_timeout"`
	ElementTimeout  time.Duration `yaml:"element_timeout"`

	Click    ClickConfig    `yaml:"click"`
	Login    LoginConfig    `yaml:"login"`
	Email    EmailConfig    `yaml:"email"`
	OAuth    OAuthConfig    `yaml:"oauth"`
	Creation CreationConfig `yaml:"creation"`
	Download DownloadConfig `yaml:"download"`
	Storage  StorageConfig  `yaml:"storage"`

	DebugMode bool `yaml:"debug_mode"`
}

type ClickConfig struct {
	Settle        time.Duration `yaml:"settle"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	ReadyPoll     time.Duration `yaml:"ready_poll"`
	ReadySettle   time.Duration `yaml:"ready_settle"`
}

type LoginConfig struct {
	MaxRetries        int           `yaml:"max_retries"`
	RetryDelay        time.Duration `yaml:"retry_delay"`
	VerifyTimeout     time.Duration `yaml:"verify_timeout"`
	VerifyInterval    time.Duration `yaml:"verify_interval"`
	PasswordFieldWait time.Duration `yaml:"password_field_wait"`
	StepPause         time.Duration `yaml:"step_pause"`
}

type EmailConfig struct {
	Freshness       time.Duration `yaml:"freshness"`
	Retries         int           `yaml:"retries"`
	RetryDelay      time.Duration `yaml:"retry_delay"`
	CredentialsFile string        `yaml:"credentials_file"`
	TokenFile       string        `yaml:"token_file"`
	RequestsPerSec  float64       `yaml:"requests_per_sec"`
}

type OAuthConfig struct {
	WindowRetries     int           `yaml:"window_retries"`
	WindowWait        time.Duration `yaml:"window_wait"`
	CompletionTimeout time.Duration `yaml:"completion_timeout"`
}

type CreationConfig struct {
	PromptInputWait time.Duration `yaml:"prompt_input_wait"`
	SubmitRetries   int           `yaml:"submit_retries"`
	Timeout         time.Duration `yaml:"timeout"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	ShareRetries    int           `yaml:"share_retries"`
	ReferencePolicy string        `yaml:"reference_policy"`
}

type DownloadConfig struct {
	ConfirmTimeout time.Duration `yaml:"confirm_timeout"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	PollRounds     int           `yaml:"poll_rounds"`
}

type StorageConfig struct {
	Bucket              string `yaml:"bucket"`
	UploadAfterDownload bool   `yaml:"upload_after_download"`
}

func DefaultConfig() *Config {
	userDataDir := GetUserDataDir()

	return &Config{
		Site:               "suno",
		BrowserProfilePath: filepath.Join(userDataDir, "browser-profile"),
		DownloadsDir:       "downloads",
		LogsDir:            "logs",
		TemplatesDir:       "templates",
		SitesDir:           "sites",
		AnalysisDir:        "analysis",
		PromptBankFile:     "prompt_bank.txt",
		Headless:           false,
		Stealth:            true,
		ViewportWidth:      1920,
		ViewportHeight:     1080,
		PageLoadTimeout:    90 * time.Second,
		ElementTimeout:     45 * time.Second,
		Click: ClickConfig{
			Settle:        2 * time.Second,
			RetryInterval: time.Second,
			ReadyPoll:     500 * time.Millisecond,
			ReadySettle:   time.Second,
		},
		Login: LoginConfig{
			MaxRetries:        3,
			RetryDelay:        5 * time.Second,
			VerifyTimeout:     45 * time.Second,
			VerifyInterval:    2 * time.Second,
			PasswordFieldWait: 10 * time.Second,
			StepPause:         3 * time.Second,
		},
		Email: EmailConfig{
			Freshness:       10 * time.Minute,
			Retries:         5,
			RetryDelay:      10 * time.Second,
			CredentialsFile: "credentials.json",
			TokenFile:       "token.json",
			RequestsPerSec:  2,
		},
		OAuth: OAuthConfig{
			WindowRetries:     3,
			WindowWait:        10 * time.Second,
			CompletionTimeout: 60 * time.Second,
		},
		Creation: CreationConfig{
			PromptInputWait: 10 * time.Second,
			SubmitRetries:   3,
			Timeout:         15 * time.Minute,
			PollInterval:    10 * time.Second,
			ShareRetries:    3,
			ReferencePolicy: ReferenceFirst,
		},
		Download: DownloadConfig{
			ConfirmTimeout: 120 * time.Second,
			PollInterval:   2 * time.Second,
			PollRounds:     60,
		},
		Storage: StorageConfig{
			Bucket: "suno-music-bot",
		},
		DebugMode: false,
	}
}

// LoadConfig reads path, writing the defaults there first if it does not exist.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := config.Save(path); err != nil {
			return nil, err
		}
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	if config.BrowserProfilePath != "" {
		if err := os.MkdirAll(config.BrowserProfilePath, 0755); err != nil {
			return nil, err
		}
	}

	return config, nil
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate rejects values that would make a polling loop spin or never run.
func (c *Config) Validate() error {
	var problems []string

	if c.Site == "" {
		problems = append(problems, "site must be set")
	}
	if c.DownloadsDir == "" {
		problems = append(problems, "downloads_dir must be set")
	}
	if c.ViewportWidth <= 0 || c.ViewportHeight <= 0 {
		problems = append(problems, "viewport dimensions must be positive")
	}
	if c.PageLoadTimeout <= 0 || c.ElementTimeout <= 0 {
		problems = append(problems, "page_load_timeout and element_timeout must be positive")
	}
	if c.Click.RetryInterval <= 0 || c.Click.ReadyPoll <= 0 {
		problems = append(problems, "click.retry_interval and click.ready_poll must be positive")
	}
	if c.Login.MaxRetries < 1 {
		problems = append(problems, "login.max_retries must be at least 1")
	}
	if c.Login.VerifyInterval <= 0 {
		problems = append(problems, "login.verify_interval must be positive")
	}
	if c.Email.Retries < 1 || c.Email.Freshness <= 0 {
		problems = append(problems, "email.retries must be at least 1 and email.freshness positive")
	}
	if c.OAuth.WindowRetries < 1 {
		problems = append(problems, "oauth.window_retries must be at least 1")
	}
	if c.Creation.SubmitRetries < 1 || c.Creation.ShareRetries < 1 {
		problems = append(problems, "creation.submit_retries and creation.share_retries must be at least 1")
	}
	if c.Creation.PollInterval <= 0 || c.Download.PollInterval <= 0 {
		problems = append(problems, "poll intervals must be positive")
	}
	if c.Download.PollRounds < 1 {
		problems = append(problems, "download.poll_rounds must be at least 1")
	}
	switch c.Creation.ReferencePolicy {
	case ReferenceFirst, ReferenceStrict:
	default:
		problems = append(problems, fmt.Sprintf("creation.reference_policy %q must be %q or %q",
			c.Creation.ReferencePolicy, ReferenceFirst, ReferenceStrict))
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// Credentials holds the account identity used for the first factor.
type Credentials struct {
	Email    string
	Password string
}

func (c Credentials) HasPassword() bool {
	return c.Password != ""
}

// CredentialsFromEnv reads GOOGLE_EMAIL and GOOGLE_PASSWORD. The email is required.
func CredentialsFromEnv() (Credentials, error) {
	creds := Credentials{
		Email:    strings.TrimSpace(os.Getenv("GOOGLE_EMAIL")),
		Password: strings.TrimSpace(os.Getenv("GOOGLE_PASSWORD")),
	}
	if creds.Email == "" {
		return Credentials{}, ErrMissingCredentials
	}
	return creds, nil
}

// GetUserDataDir returns the per-user application directory.
func GetUserDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./songsmith-data"
	}
	return filepath.Join(home, ".songsmith")
}

// EnsureDirs creates the working directories the pipeline writes into.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.DownloadsDir, c.LogsDir, GetUserDataDir()} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

package internal

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/theaibuilders/ai-builders-tutorial/internal/metadata"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Content source kinds.
const (
	SourceLocal  = "local"
	SourceGitHub = "github"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Content  ContentConfig     `yaml:"content"`
	Metadata MetadataConfig    `yaml:"metadata"`
	Render   RenderConfig      `yaml:"render"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Content.Validate(); err != nil {
		return err
	}
	if err := c.Metadata.Validate(c.Content); err != nil {
		return err
	}
	if err := c.Render.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// ContentConfig selects where tutorials are read from.
//
// Source is "local" (default), reading Path from disk and watching it for
// changes, or "github", reading a repository through the REST API.
type ContentConfig struct {
	Source string       `yaml:"source"`
	Path   string       `yaml:"path"`
	Watch  bool         `yaml:"watch"`
	GitHub GitHubConfig `yaml:"github"`
}

// Validate validates the content configuration.
func (c *ContentConfig) Validate() error {
	if c.Source == "" {
		c.Source = SourceLocal
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Source, validation.In(SourceLocal, SourceGitHub)),
		validation.Field(&c.Path, validation.When(c.Source == SourceLocal, validation.Required)),
	); err != nil {
		return err
	}
	if c.Source == SourceGitHub {
		return c.GitHub.Validate()
	}
	return nil
}

// GitHubConfig locates the tutorial tree inside a GitHub repository.
type GitHubConfig struct {
	BaseURL string `yaml:"base_url"`
	Owner   string `yaml:"owner"`
	Repo    string `yaml:"repo"`
	Ref     string `yaml:"ref"`
	Root    string `yaml:"root"`
	Token   string `yaml:"token"`
}

// Validate validates the GitHub configuration.
func (c *GitHubConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Owner, validation.Required),
		validation.Field(&c.Repo, validation.Required),
	)
}

// MetadataConfig configures the manual metadata override file.
//
// Dir defaults to the content path for local sources; a GitHub source needs
// an explicit local Dir since the repository is read-only.
type MetadataConfig struct {
	Dir             string `yaml:"dir"`
	File            string `yaml:"file"`
	DefaultAuthor   string `yaml:"default_author"`
	DefaultAuthorID string `yaml:"default_author_id"`
}

// Validate validates the metadata configuration against the content source.
func (c *MetadataConfig) Validate(content ContentConfig) error {
	if c.Dir == "" && content.Source == SourceLocal {
		c.Dir = content.Path
	}
	if c.File == "" {
		c.File = metadata.DefaultFileName
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required.Error("is required for a github content source")),
	)
}

// RenderConfig configures HTML rendering.
type RenderConfig struct {
	Style           string `yaml:"style"`
	Workers         int    `yaml:"workers"`
	DefaultLanguage string `yaml:"default_language"`
}

var (
	errUnknownStyle    = errors.New("unknown chroma style")
	errUnknownLanguage = errors.New("no lexer for language")
)

// Validate validates the render configuration.
func (c *RenderConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Style, validation.By(func(v any) error {
			name, _ := v.(string)
			if name == "" {
				return nil
			}
			if _, ok := styles.Registry[name]; !ok {
				return errUnknownStyle
			}
			return nil
		})),
		validation.Field(&c.DefaultLanguage, validation.By(func(v any) error {
			name, _ := v.(string)
			if name != "" && lexers.Get(name) == nil {
				return errUnknownLanguage
			}
			return nil
		})),
		validation.Field(&c.Workers, validation.Min(0), validation.Max(256)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration for metadata writes.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Content: ContentConfig{
			Source: SourceLocal,
			Path:   "./tutorials",
			Watch:  true,
		},
		Metadata: MetadataConfig{
			File:          metadata.DefaultFileName,
			DefaultAuthor: metadata.DefaultAuthor,
		},
		Render: RenderConfig{
			Style:           "github",
			DefaultLanguage: "python",
		},
		SQLite: SQLiteConfig{
			Path: "./tutorials.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}

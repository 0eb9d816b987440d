package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/avatars/internal/catalog"
)

// DefaultPagesURL is where the library is published.
const DefaultPagesURL = "https://qqrm.github.io/avatars-mcp"

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Library LibraryConfig     `yaml:"library"`
	Pages   PagesConfig       `yaml:"pages"`
	Server  ServerConfig      `yaml:"server"`
	Auth    AuthConfig        `yaml:"auth"`
	Mirror  MirrorConfig      `yaml:"mirror"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Library.Validate(); err != nil {
		return fmt.Errorf("library: %w", err)
	}
	if err := c.Pages.Validate(); err != nil {
		return fmt.Errorf("pages: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Mirror.Validate(); err != nil {
		return fmt.Errorf("mirror: %w", err)
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
	// Watch rebuilds the catalog on changes and streams the outcome on /events.
	Watch bool `yaml:"watch"`
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

// LibraryConfig locates the persona directory and the base instructions.
type LibraryConfig struct {
	Dir              string `yaml:"dir"`
	BaseInstructions string `yaml:"base_instructions"`
}

// CatalogPath is where the generated catalog lives.
func (c *LibraryConfig) CatalogPath() string {
	return filepath.Join(c.Dir, catalog.FileName)
}

// Validate validates the library configuration.
func (c *LibraryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.BaseInstructions, validation.Required),
	)
}

// PagesConfig holds the public base URL catalog uris are built from.
// An empty BaseURL produces relative uris.
type PagesConfig struct {
	BaseURL string `yaml:"base_url"`
}

// Validate validates the pages configuration.
func (c *PagesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, is.URL),
	)
}

// ServerConfig describes the resource servers.
type ServerConfig struct {
	Name            string `yaml:"name"`
	Version         string `yaml:"version"`
	CatalogURI      string `yaml:"catalog_uri"`
	ReadConcurrency int    `yaml:"read_concurrency"`
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.Version, validation.Required),
		validation.Field(&c.CatalogURI, validation.Required),
		validation.Field(&c.ReadConcurrency, validation.Required, validation.Min(1), validation.Max(64)),
	)
}

// MirrorConfig holds the remote library the sync command downloads.
type MirrorConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Validate validates the mirror configuration.
func (c *MirrorConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
		validation.Field(&c.Timeout, validation.Required, validation.Min(time.Second)),
	)
}

// AuthConfig guards the HTTP content host.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): every request is served.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
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

// BearerToken returns the token the HTTP host requires, empty when
// authentication is disabled.
func (c *AuthConfig) BearerToken() string {
	if c.Mode != AuthModeToken {
		return ""
	}
	return c.Token
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
		Library: LibraryConfig{
			Dir:              "avatars",
			BaseInstructions: "AGENTS.md",
		},
		Pages: PagesConfig{
			BaseURL: DefaultPagesURL,
		},
		Server: ServerConfig{
			Name:            "Avatars MCP",
			Version:         "0.1",
			CatalogURI:      "avatars.json",
			ReadConcurrency: 4,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Mirror: MirrorConfig{
			BaseURL: DefaultPagesURL,
			Timeout: 30 * time.Second,
		},
	}
}

package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
)

// Environment variables that override secrets from config.toml.
const (
	EnvTelegramToken = "SONGVOTE_TELEGRAM_TOKEN"
	EnvSpotifySecret = "SONGVOTE_SPOTIFY_CLIENT_SECRET"
	EnvYouTubeSecret = "SONGVOTE_YOUTUBE_CLIENT_SECRET"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Telegram    TelegramConfig    `toml:"telegram"`
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Bot         BotConfig         `toml:"bot"`
	Server      ServerConfig      `toml:"server"`
	LogLevel    string            `toml:"log_level"`
}

// TelegramConfig contains the chat transport settings.
type TelegramConfig struct {
	Token              string `toml:"token"`
	AllowedChatID      int64  `toml:"allowed_chat_id"`
	APIURL             string `toml:"api_url"`
	PollTimeoutSeconds int    `toml:"poll_timeout_seconds"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	YouTube YouTubeConfig `toml:"youtube"`
}

// SpotifyConfig contains Spotify API credentials and the target playlist.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	RefreshToken string `toml:"refresh_token"`
	PlaylistID   string `toml:"playlist_id"`
}

// Map returns the credentials in the shape expected by the service constructors.
func (c SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     c.ClientID,
		"client_secret": c.ClientSecret,
		"redirect_uri":  c.RedirectURI,
		"refresh_token": c.RefreshToken,
	}
}

// Update stores the refresh token from a completed OAuth flow.
func (c *SpotifyConfig) Update(token *oauth2.Token) error {
	if token == nil || token.RefreshToken == "" {
		return fmt.Errorf("%w: token has no refresh token", ErrMissingCredentials)
	}
	c.RefreshToken = token.RefreshToken
	return nil
}

// YouTubeConfig contains YouTube Data API OAuth credentials and the target playlist.
type YouTubeConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	RefreshToken string `toml:"refresh_token"`
	PlaylistID   string `toml:"playlist_id"`
}

// Map returns the credentials in the shape expected by the service constructors.
func (c YouTubeConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     c.ClientID,
		"client_secret": c.ClientSecret,
		"redirect_uri":  c.RedirectURI,
		"refresh_token": c.RefreshToken,
	}
}

// Update stores the refresh token from a completed OAuth flow.
func (c *YouTubeConfig) Update(token *oauth2.Token) error {
	if token == nil || token.RefreshToken == "" {
		return fmt.Errorf("%w: token has no refresh token", ErrMissingCredentials)
	}
	c.RefreshToken = token.RefreshToken
	return nil
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// BotConfig tunes the nomination pipeline.
type BotConfig struct {
	SearchLimit           int     `toml:"search_limit"`
	CacheTTLSeconds       int     `toml:"cache_ttl_seconds"`
	RequestTimeoutSeconds int     `toml:"request_timeout_seconds"`
	RequestsPerSecond     float64 `toml:"requests_per_second"`
	Workers               int     `toml:"workers"`
}

// CacheTTL is the lifetime of a pending search. Defaults to five minutes.
func (b BotConfig) CacheTTL() time.Duration {
	if b.CacheTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(b.CacheTTLSeconds) * time.Second
}

// RequestTimeout bounds every outbound call. Defaults to ten seconds.
func (b BotConfig) RequestTimeout() time.Duration {
	if b.RequestTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(b.RequestTimeoutSeconds) * time.Second
}

// ServerConfig contains the local HTTP server settings used for OAuth callbacks.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns host:port for [http.Server].
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Validate checks the settings required to run the bot.
func (c *Config) Validate() error {
	var missing []string
	if c.Telegram.Token == "" {
		missing = append(missing, "telegram.token")
	}
	if c.Telegram.AllowedChatID == 0 {
		missing = append(missing, "telegram.allowed_chat_id")
	}
	if c.Credentials.YouTube.PlaylistID == "" {
		missing = append(missing, "credentials.youtube.playlist_id")
	}
	if c.Credentials.Spotify.PlaylistID == "" {
		missing = append(missing, "credentials.spotify.playlist_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidConfig, strings.Join(missing, ", "))
	}
	return nil
}

// ApplyEnv overrides secrets with any non-empty SONGVOTE_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	for key, dst := range map[string]*string{
		EnvTelegramToken: &c.Telegram.Token,
		EnvSpotifySecret: &c.Credentials.Spotify.ClientSecret,
		EnvYouTubeSecret: &c.Credentials.YouTube.ClientSecret,
	} {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
}

// LoadDotEnv loads path into the process environment without overriding variables already set.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values absent from the file keep their embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig encodes config as TOML and writes it to path.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

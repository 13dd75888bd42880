// Package config loads the server configuration with Viper.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/gabrielmiguelok/kudos/pkg/core"
	"github.com/gabrielmiguelok/kudos/pkg/logging"
	"github.com/gabrielmiguelok/kudos/pkg/protocol"
	"github.com/gabrielmiguelok/kudos/pkg/security"
)

// DefaultFile is read from the working directory when no file is given.
const DefaultFile = "kudos.yml"

// EnvPrefix prefixes every environment override, e.g. KUDOS_SERVER_ADDR.
const EnvPrefix = "KUDOS"

// NATSEmbedded as the NATS URL runs an in-process server.
const NATSEmbedded = "embedded"

// Config is the full configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Timeouts TimeoutsConfig `mapstructure:"timeouts" yaml:"timeouts"`
	Wizard   WizardConfig   `mapstructure:"wizard" yaml:"wizard"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Submit   SubmitConfig   `mapstructure:"submit" yaml:"submit"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr            string   `mapstructure:"addr" yaml:"addr"`
	AllowedOrigins  []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	InsecureDevMode bool     `mapstructure:"insecure_dev_mode" yaml:"insecure_dev_mode"`

	// Codec is the wire codec the page asks the client to use.
	Codec string `mapstructure:"codec" yaml:"codec"`

	MaxSessions int     `mapstructure:"max_sessions" yaml:"max_sessions"`
	MaxPerIP    int     `mapstructure:"max_per_ip" yaml:"max_per_ip"`
	EventRate   float64 `mapstructure:"event_rate" yaml:"event_rate"`
	EventBurst  int     `mapstructure:"event_burst" yaml:"event_burst"`
}

// TimeoutsConfig bounds the live view lifecycle.
type TimeoutsConfig struct {
	Mount          time.Duration `mapstructure:"mount" yaml:"mount"`
	Event          time.Duration `mapstructure:"event" yaml:"event"`
	WebSocketRead  time.Duration `mapstructure:"websocket_read" yaml:"websocket_read"`
	WebSocketWrite time.Duration `mapstructure:"websocket_write" yaml:"websocket_write"`
	WebSocketPing  time.Duration `mapstructure:"websocket_ping" yaml:"websocket_ping"`
	SessionIdle    time.Duration `mapstructure:"session_idle" yaml:"session_idle"`
	Shutdown       time.Duration `mapstructure:"shutdown" yaml:"shutdown"`
}

// Core converts to the live view timeouts.
func (t TimeoutsConfig) Core() core.TimeoutConfig {
	return core.TimeoutConfig{
		ComponentMount:   t.Mount,
		ComponentEvent:   t.Event,
		WebSocketRead:    t.WebSocketRead,
		WebSocketWrite:   t.WebSocketWrite,
		WebSocketPing:    t.WebSocketPing,
		SessionIdle:      t.SessionIdle,
		GracefulShutdown: t.Shutdown,
	}
}

// WizardConfig configures the wizard itself.
type WizardConfig struct {
	Title           string        `mapstructure:"title" yaml:"title"`
	CompletionDelay time.Duration `mapstructure:"completion_delay" yaml:"completion_delay"`
	ConfettiCount   int           `mapstructure:"confetti_count" yaml:"confetti_count"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`

	// File receives the log instead of stderr. The terminal wizard always
	// needs one, since it owns the screen.
	File string `mapstructure:"file" yaml:"file"`
}

// SubmitConfig selects where completed wizards go. Every enabled target
// receives each submission.
type SubmitConfig struct {
	Log     bool          `mapstructure:"log" yaml:"log"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Webhook WebhookConfig `mapstructure:"webhook" yaml:"webhook"`
	NATS    NATSConfig    `mapstructure:"nats" yaml:"nats"`
}

// WebhookConfig configures the HTTP webhook. An empty URL disables it.
type WebhookConfig struct {
	URL          string            `mapstructure:"url" yaml:"url"`
	Headers      map[string]string `mapstructure:"headers" yaml:"headers,omitempty"`
	MaxRetries   int               `mapstructure:"max_retries" yaml:"max_retries"`
	InitialDelay time.Duration     `mapstructure:"initial_delay" yaml:"initial_delay"`
	MaxDelay     time.Duration     `mapstructure:"max_delay" yaml:"max_delay"`
}

// NATSConfig configures the NATS publisher. An empty URL disables it;
// "embedded" runs an in-process server.
type NATSConfig struct {
	URL     string `mapstructure:"url" yaml:"url"`
	Subject string `mapstructure:"subject" yaml:"subject"`
	Codec   string `mapstructure:"codec" yaml:"codec"`
}

func setDefaults(v *viper.Viper) {
	t := core.DefaultTimeoutConfig()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.insecure_dev_mode", false)
	v.SetDefault("server.codec", "json")
	v.SetDefault("server.max_sessions", 1000)
	v.SetDefault("server.max_per_ip", 20)
	v.SetDefault("server.event_rate", 20.0)
	v.SetDefault("server.event_burst", 40)

	v.SetDefault("timeouts.mount", t.ComponentMount)
	v.SetDefault("timeouts.event", t.ComponentEvent)
	v.SetDefault("timeouts.websocket_read", t.WebSocketRead)
	v.SetDefault("timeouts.websocket_write", t.WebSocketWrite)
	v.SetDefault("timeouts.websocket_ping", t.WebSocketPing)
	v.SetDefault("timeouts.session_idle", t.SessionIdle)
	v.SetDefault("timeouts.shutdown", t.GracefulShutdown)

	v.SetDefault("wizard.title", "Share Your Experience")
	v.SetDefault("wizard.completion_delay", 2*time.Second)
	v.SetDefault("wizard.confetti_count", 50)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")

	v.SetDefault("submit.log", true)
	v.SetDefault("submit.timeout", 30*time.Second)
	v.SetDefault("submit.webhook.url", "")
	v.SetDefault("submit.webhook.max_retries", 3)
	v.SetDefault("submit.webhook.initial_delay", 200*time.Millisecond)
	v.SetDefault("submit.webhook.max_delay", 5*time.Second)
	v.SetDefault("submit.nats.url", "")
	v.SetDefault("submit.nats.subject", "kudos.submissions")
	v.SetDefault("submit.nats.codec", "json")
}

// Default returns the built-in configuration.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config: decoding defaults: %v", err))
	}
	return &cfg
}

// Load builds the configuration. Later sources win: defaults, the YAML
// file, KUDOS_* environment variables, then the changed flags in flags,
// keyed by configuration key (e.g. "server.addr"). An empty path reads
// kudos.yml when it exists; a given path must exist.
func Load(path string, flags map[string]*pflag.Flag) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" && fileExists(DefaultFile) {
		path = DefaultFile
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	for key, flag := range flags {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("binding flag %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// Configuration errors.
var (
	ErrInvalidAddr     = configError("server.addr must be host:port")
	ErrInvalidLimit    = configError("session limits and event rate must not be negative")
	ErrInvalidDelay    = configError("wizard.completion_delay must be positive")
	ErrInvalidConfetti = configError("wizard.confetti_count must not be negative")
	ErrInvalidWebhook  = configError("submit.webhook.url must be an absolute http(s) URL")
	ErrInvalidRetry    = configError("submit.webhook retry settings must not be negative")
	ErrInvalidSubject  = configError("submit.nats.subject must be a non-empty subject without wildcards")
	ErrInvalidTimeout  = configError("submit.timeout must be positive")
)

type configError string

func (e configError) Error() string { return string(e) }

// Validate reports every problem with the configuration.
func (c *Config) Validate() error {
	var errs []error

	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidAddr, c.Server.Addr))
	}
	if _, err := protocol.Lookup(c.Server.Codec); err != nil {
		errs = append(errs, fmt.Errorf("server.codec: %w", err))
	}
	if c.Server.MaxSessions < 0 || c.Server.MaxPerIP < 0 || c.Server.EventRate < 0 || c.Server.EventBurst < 0 {
		errs = append(errs, ErrInvalidLimit)
	}
	if err := c.Timeouts.Core().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("timeouts: %w", err))
	}

	if c.Wizard.CompletionDelay <= 0 {
		errs = append(errs, ErrInvalidDelay)
	}
	if c.Wizard.ConfettiCount < 0 {
		errs = append(errs, ErrInvalidConfetti)
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}

	if c.Submit.Timeout <= 0 {
		errs = append(errs, ErrInvalidTimeout)
	}
	if u := c.Submit.Webhook.URL; u != "" && !security.IsValidURL(u) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidWebhook, u))
	}
	w := c.Submit.Webhook
	if w.MaxRetries < 0 || w.InitialDelay < 0 || w.MaxDelay < 0 {
		errs = append(errs, ErrInvalidRetry)
	}
	if c.Submit.NATS.URL != "" {
		if s := c.Submit.NATS.Subject; s == "" || strings.ContainsAny(s, "*> \t") {
			errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidSubject, s))
		}
		if _, err := protocol.Lookup(c.Submit.NATS.Codec); err != nil {
			errs = append(errs, fmt.Errorf("submit.nats.codec: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// WriteFile writes the configuration to path as YAML.
func (c *Config) WriteFile(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

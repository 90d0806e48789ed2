package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mcdev12/playtime/go/internal/play/join"
	"github.com/mcdev12/playtime/go/internal/play/transport"
	"gopkg.in/yaml.v3"
)

// Config is the full client configuration. Values come from the defaults,
// then the optional YAML file, then environment variables.
type Config struct {
	Server   ServerConfig `yaml:"server"`
	Wallet   WalletConfig `yaml:"wallet"`
	Join     JoinConfig   `yaml:"join"`
	Status   StatusConfig `yaml:"status"`
	Audit    AuditConfig  `yaml:"audit"`
	LogLevel string       `yaml:"log_level"`
}

type ServerConfig struct {
	URL           string        `yaml:"url"`
	Codec         string        `yaml:"codec"`
	MaxReconnects int           `yaml:"max_reconnects"`
	ReconnectWait time.Duration `yaml:"reconnect_wait"`
}

type WalletConfig struct {
	SignerURL   string        `yaml:"signer_url"`
	Address     string        `yaml:"address"`
	SignTimeout time.Duration `yaml:"sign_timeout"`
}

type JoinConfig struct {
	Tag    string `yaml:"tag"`
	Domain string `yaml:"domain"`
}

// StatusConfig enables the local status server when Addr is set. Origins
// lists the pages allowed to call it from a browser.
type StatusConfig struct {
	Addr    string   `yaml:"addr"`
	Origins []string `yaml:"origins"`
}

// AuditConfig enables the NATS audit publisher when NATSURL is set.
type AuditConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
	Stream  string `yaml:"stream"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	socket := transport.DefaultConfig()
	return Config{
		Server: ServerConfig{
			URL:           socket.URL,
			Codec:         socket.Codec,
			MaxReconnects: socket.MaxReconnects,
			ReconnectWait: socket.ReconnectWait,
		},
		Wallet: WalletConfig{
			SignerURL: "http://localhost:6732",
		},
		Join: JoinConfig{
			Tag:    join.DefaultTag,
			Domain: join.DefaultDomain,
		},
		Status: StatusConfig{
			Origins: []string{"https://" + join.DefaultDomain},
		},
		Audit: AuditConfig{
			Subject: "playtime.joins",
		},
		LogLevel: "info",
	}
}

// Load builds the configuration. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.URL = getEnv("PLAYTIME_SERVER_URL", c.Server.URL)
	c.Server.Codec = getEnv("PLAYTIME_SOCKET_CODEC", c.Server.Codec)
	c.Server.MaxReconnects = getEnvAsInt("PLAYTIME_MAX_RECONNECTS", c.Server.MaxReconnects)
	c.Wallet.SignerURL = getEnv("PLAYTIME_SIGNER_URL", c.Wallet.SignerURL)
	c.Wallet.Address = getEnv("PLAYTIME_WALLET_ADDRESS", c.Wallet.Address)
	c.Wallet.SignTimeout = getEnvAsDuration("PLAYTIME_SIGN_TIMEOUT", c.Wallet.SignTimeout)
	c.Join.Domain = getEnv("PLAYTIME_DAPP_DOMAIN", c.Join.Domain)
	c.Status.Addr = getEnv("PLAYTIME_STATUS_ADDR", c.Status.Addr)
	c.Status.Origins = getEnvAsList("PLAYTIME_STATUS_ORIGINS", c.Status.Origins)
	c.Audit.NATSURL = getEnv("NATS_URL", c.Audit.NATSURL)
	c.Audit.Subject = getEnv("PLAYTIME_AUDIT_SUBJECT", c.Audit.Subject)
	c.Audit.Stream = getEnv("PLAYTIME_AUDIT_STREAM", c.Audit.Stream)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.URL == "" {
		errs = append(errs, errors.New("server url is required"))
	}
	if _, err := transport.NewCodec(c.Server.Codec); err != nil {
		errs = append(errs, err)
	}
	if c.Wallet.SignerURL == "" {
		errs = append(errs, errors.New("signer url is required"))
	}
	if c.Wallet.SignTimeout < 0 {
		errs = append(errs, errors.New("sign timeout must not be negative"))
	}
	if c.Join.Domain == "" {
		errs = append(errs, errors.New("dapp domain is required"))
	}
	if c.Status.Addr != "" && len(c.Status.Origins) == 0 {
		errs = append(errs, errors.New("status origins are required when the status server is enabled"))
	}
	if c.Audit.NATSURL != "" && c.Audit.Subject == "" {
		errs = append(errs, errors.New("audit subject is required when NATS is enabled"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var list []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

// Package config provides configuration file parsing.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fgeck/gowake/internal/models"
	"github.com/fgeck/gowake/internal/services/probe"
	"github.com/fgeck/gowake/internal/services/wol"
	"github.com/spf13/viper"
)

// Parser handles configuration file parsing.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a new configuration parser.
func NewParser() *Parser {
	v := viper.New()
	v.SetConfigType("yaml")
	return &Parser{v: v}
}

// LoadFile loads configuration from a file path.
func (p *Parser) LoadFile(path string) (*models.Config, error) {
	p.v.SetConfigFile(path)

	if err := p.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return p.parse()
}

// LoadReader loads configuration from a reader (useful for testing).
func (p *Parser) LoadReader(content string) (*models.Config, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return p.parse()
}

type rawWait struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout"`
	StabilizeWait time.Duration `mapstructure:"stabilize_wait"`
	Ports         []int         `mapstructure:"ports"`
}

type rawSSH struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Username      string `mapstructure:"username"`
	KeyPath       string `mapstructure:"key_path"`
	ShutdownDelay int    `mapstructure:"shutdown_delay"`
	OS            string `mapstructure:"os"`
}

type rawHost struct {
	Name        string   `mapstructure:"name"`
	MAC         string   `mapstructure:"mac"`
	Host        string   `mapstructure:"host"`
	CIDR        string   `mapstructure:"cidr"`
	Port        string   `mapstructure:"port"`
	Comment     string   `mapstructure:"comment"`
	Wait        *rawWait `mapstructure:"wait"`
	SSHShutdown *rawSSH  `mapstructure:"ssh_shutdown"`
}

//nolint:gocognit,gocyclo // parsing config requires checking many fields
func (p *Parser) parse() (*models.Config, error) {
	cfg := &models.Config{}

	// Parse defaults.
	cfg.Defaults = models.Defaults{
		Port:         p.v.GetString("defaults.port"),
		ProbePorts:   p.v.GetIntSlice("defaults.probe_ports"),
		ProbeTimeout: p.v.GetDuration("defaults.probe_timeout"),
	}

	if len(cfg.Defaults.ProbePorts) == 0 {
		cfg.Defaults.ProbePorts = probe.DefaultPorts
	}
	if cfg.Defaults.ProbeTimeout == 0 {
		cfg.Defaults.ProbeTimeout = probe.DefaultTimeout
	}
	if cfg.Defaults.Port != "" {
		if _, err := wol.ParsePort(cfg.Defaults.Port); err != nil {
			return nil, fmt.Errorf("defaults.port: %w", err)
		}
	}

	// Parse hosts.
	var hosts []rawHost
	if err := p.v.UnmarshalKey("hosts", &hosts); err != nil {
		return nil, fmt.Errorf("parsing hosts: %w", err)
	}

	seen := make(map[string]bool, len(hosts))
	for i, h := range hosts {
		if h.Name == "" {
			return nil, fmt.Errorf("hosts[%d].name is required", i)
		}
		if seen[h.Name] {
			return nil, fmt.Errorf("hosts[%d].name %q is duplicated", i, h.Name)
		}
		seen[h.Name] = true

		if h.MAC == "" {
			return nil, fmt.Errorf("hosts[%d].mac is required", i)
		}
		if _, err := wol.NormalizeMAC(h.MAC); err != nil {
			return nil, fmt.Errorf("hosts[%d].mac: %w", i, err)
		}
		if h.Host == "" {
			return nil, fmt.Errorf("hosts[%d].host is required", i)
		}
		if _, _, err := wol.ParseCIDR(h.CIDR); err != nil {
			return nil, fmt.Errorf("hosts[%d].cidr: %w", i, err)
		}

		host := models.HostConfig{
			Name:       h.Name,
			MACAddress: h.MAC,
			Host:       h.Host,
			CIDR:       h.CIDR,
			Port:       h.Port,
			Comment:    h.Comment,
		}

		// Set default port.
		if host.Port == "" {
			host.Port = cfg.Defaults.Port
		}
		if _, err := wol.ParsePort(host.Port); err != nil {
			return nil, fmt.Errorf("hosts[%d].port: %w", i, err)
		}

		if h.Wait != nil {
			host.Wait = &models.WaitConfig{
				Ports:         h.Wait.Ports,
				Timeout:       h.Wait.Timeout,
				PollInterval:  h.Wait.PollInterval,
				ProbeTimeout:  h.Wait.ProbeTimeout,
				StabilizeWait: h.Wait.StabilizeWait,
			}

			// Set defaults.
			if len(host.Wait.Ports) == 0 {
				host.Wait.Ports = cfg.Defaults.ProbePorts
			}
			if host.Wait.Timeout == 0 {
				host.Wait.Timeout = 5 * time.Minute
			}
			if host.Wait.PollInterval == 0 {
				host.Wait.PollInterval = 10 * time.Second
			}
			if host.Wait.ProbeTimeout == 0 {
				host.Wait.ProbeTimeout = cfg.Defaults.ProbeTimeout
			}
		}

		if h.SSHShutdown != nil { //nolint:nestif // config parsing with defaults
			host.SSHShutdown = &models.SSHShutdownConfig{
				Host:          h.SSHShutdown.Host,
				Port:          h.SSHShutdown.Port,
				Username:      h.SSHShutdown.Username,
				KeyPath:       expandHome(p.expandEnv(h.SSHShutdown.KeyPath)),
				ShutdownDelay: h.SSHShutdown.ShutdownDelay,
				OS:            h.SSHShutdown.OS,
			}

			if host.SSHShutdown.Host == "" {
				host.SSHShutdown.Host = host.Host
			}
			if host.SSHShutdown.Port == 0 {
				host.SSHShutdown.Port = 22
			}
			if host.SSHShutdown.Username == "" {
				host.SSHShutdown.Username = "root"
			}
			if host.SSHShutdown.KeyPath == "" {
				return nil, fmt.Errorf("hosts[%d].ssh_shutdown.key_path is required when ssh_shutdown is configured", i)
			}
			if host.SSHShutdown.ShutdownDelay == 0 {
				host.SSHShutdown.ShutdownDelay = 1
			}
			// Validate and default OS
			if host.SSHShutdown.OS == "" {
				host.SSHShutdown.OS = "linux"
			}
			validOS := map[string]bool{"linux": true, "windows": true}
			if !validOS[host.SSHShutdown.OS] {
				return nil, fmt.Errorf("hosts[%d].ssh_shutdown.os must be one of: linux, windows", i)
			}
		}

		cfg.Hosts = append(cfg.Hosts, host)
	}

	// Parse optional Telegram config.
	if p.v.IsSet("telegram") {
		cfg.Telegram = &models.TelegramConfig{
			BotToken: p.expandEnv(p.v.GetString("telegram.bot_token")),
			ChatID:   p.expandEnv(p.v.GetString("telegram.chat_id")),
		}

		if cfg.Telegram.BotToken == "" {
			return nil, fmt.Errorf("telegram.bot_token is required when telegram is configured")
		}
		if cfg.Telegram.ChatID == "" {
			return nil, fmt.Errorf("telegram.chat_id is required when telegram is configured")
		}
	}

	// Parse server settings.
	cfg.Server = models.ServerConfig{
		Listen: p.v.GetString("server.listen"),
		Token:  p.expandEnv(p.v.GetString("server.token")),
	}
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}

	return cfg, nil
}

// expandEnv expands environment variables in the format ${VAR} or $VAR.
func (p *Parser) expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}

// Validate performs validation on the loaded configuration.
func Validate(cfg *models.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if len(cfg.Hosts) == 0 {
		return fmt.Errorf("at least one entry in hosts is required")
	}

	for _, h := range cfg.Hosts {
		if _, err := wol.NormalizeMAC(h.MACAddress); err != nil {
			return fmt.Errorf("host %q: %w", h.Name, err)
		}
	}

	return nil
}

// Empty returns a configuration with defaults applied and no hosts, used
// when gowake runs without a config file.
func Empty() *models.Config {
	cfg, err := NewParser().LoadReader("{}")
	if err != nil {
		return &models.Config{}
	}
	return cfg
}

// Package models contains the data structures used throughout gowake.
package models

import "time"

// Config holds the complete gowake configuration.
type Config struct {
	Defaults Defaults
	Hosts    []HostConfig
	Telegram *TelegramConfig // nil if not configured
	Server   ServerConfig
}

// Defaults are applied to hosts and ad-hoc requests that leave a value unset.
type Defaults struct {
	Port         string
	ProbePorts   []int
	ProbeTimeout time.Duration
}

// HostConfig describes a wakeable machine.
type HostConfig struct {
	Name        string
	MACAddress  string
	Host        string // hostname or IPv4 literal
	CIDR        string // empty for a unicast send
	Port        string // empty for the default port
	Comment     string
	Wait        *WaitConfig        // nil if not configured
	SSHShutdown *SSHShutdownConfig // nil if not configured
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Listen string
	Token  string // optional bearer token for /api routes
}

// Host returns the configured host with the given name.
func (c *Config) Host(name string) (*HostConfig, bool) {
	for i := range c.Hosts {
		if c.Hosts[i].Name == name {
			return &c.Hosts[i], true
		}
	}
	return nil, false
}

// WakeRequest builds the Wake-on-LAN request for this host.
func (h HostConfig) WakeRequest() WakeRequest {
	return WakeRequest{
		MACAddress: h.MACAddress,
		Host:       h.Host,
		CIDR:       h.CIDR,
		Port:       h.Port,
		Wait:       h.Wait,
	}
}

// HostNames returns the names of all configured hosts in config order.
func (c *Config) HostNames() []string {
	names := make([]string, 0, len(c.Hosts))
	for _, h := range c.Hosts {
		names = append(names, h.Name)
	}
	return names
}

package main

import (
	"fmt"
	"os"

	"github.com/fgeck/gowake/internal/services/wol"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file without sending any packets.`,
	RunE:  validateConfig,
}

func validateConfig(cmd *cobra.Command, args []string) error {
	if configFile == "" {
		log.Error().Msg("config file is required")
		return cmd.Help()
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		log.Error().Str("file", configFile).Msg("config file not found")
		return fmt.Errorf("config file not found: %s", configFile)
	}

	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Configuration is valid!")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Defaults:")
	fmt.Fprintf(out, "  Port: %s\n", cfg.Defaults.Port)
	fmt.Fprintf(out, "  Probe ports: %v\n", cfg.Defaults.ProbePorts)
	fmt.Fprintf(out, "  Probe timeout: %s\n", cfg.Defaults.ProbeTimeout)

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Hosts (%d):\n", len(cfg.Hosts))
	for _, h := range cfg.Hosts {
		mac, _ := wol.NormalizeMAC(h.MACAddress)
		target := h.Host
		if h.CIDR != "" {
			target += "/" + h.CIDR
		}
		port := h.Port
		if port == "" {
			port = cfg.Defaults.Port
		}
		fmt.Fprintf(out, "  %s: %s -> %s port %s\n", h.Name, mac, target, port)
		if h.Comment != "" {
			fmt.Fprintf(out, "    Comment: %s\n", h.Comment)
		}
		if h.Wait != nil {
			fmt.Fprintf(out, "    Wait: up to %s on ports %v\n", h.Wait.Timeout, h.Wait.Ports)
		}
		if h.SSHShutdown != nil {
			fmt.Fprintf(out, "    SSH shutdown: %s@%s:%d (%s, delay %d minute(s))\n",
				h.SSHShutdown.Username, h.SSHShutdown.Host, h.SSHShutdown.Port,
				h.SSHShutdown.OS, h.SSHShutdown.ShutdownDelay)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Optional Features:")
	fmt.Fprintf(out, "  Telegram: %v\n", cfg.Telegram != nil)
	fmt.Fprintf(out, "  API listen: %s\n", cfg.Server.Listen)
	fmt.Fprintf(out, "  API auth: %v\n", cfg.Server.Token != "")

	if cfg.Telegram != nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Telegram Configuration:")
		fmt.Fprintf(out, "  Chat ID: %s\n", cfg.Telegram.ChatID)
		fmt.Fprintln(out, "  Bot Token: (configured)")
	}

	return nil
}

package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fgeck/gowake/internal/models"
	"github.com/fgeck/gowake/internal/services/probe"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	statusHost    string
	statusPorts   []int
	statusTimeout time.Duration
)

var statusCmd = &cobra.Command{
	Use:   "status [name...]",
	Short: "Check whether hosts are up",
	Long: `Probe configured hosts (all of them when no name is given) or an ad-hoc
--host by opening TCP connections to common service ports.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusHost, "host", "", "hostname or IPv4 address to probe")
	statusCmd.Flags().IntSliceVar(&statusPorts, "ports", nil, "TCP ports to probe (default from config, else 3389,22,80,443)")
	statusCmd.Flags().DurationVar(&statusTimeout, "timeout", 0, "per-connection timeout (default from config, else 3s)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig(statusHost == "")
	if err != nil {
		return err
	}

	type target struct{ name, host string }
	var targets []target

	switch {
	case statusHost != "":
		targets = append(targets, target{name: "-", host: statusHost})
	case len(args) > 0:
		for _, name := range args {
			h, ok := cfg.Host(name)
			if !ok {
				return fmt.Errorf("unknown host: %q", name)
			}
			targets = append(targets, target{name: h.Name, host: h.Host})
		}
	default:
		for _, h := range cfg.Hosts {
			targets = append(targets, target{name: h.Name, host: h.Host})
		}
	}

	ports := statusPorts
	if len(ports) == 0 {
		ports = cfg.Defaults.ProbePorts
	}
	if len(ports) == 0 {
		ports = probe.DefaultPorts
	}

	timeout := statusTimeout
	if timeout <= 0 {
		timeout = cfg.Defaults.ProbeTimeout
	}
	if timeout <= 0 {
		timeout = probe.DefaultTimeout
	}

	prober := probe.New(log.Logger)
	results := make([]*models.ProbeResult, len(targets))
	for i, t := range targets {
		results[i] = prober.Probe(ctx, t.host, ports, timeout)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tHOST\tSTATE\tOPEN PORTS")
	for i, t := range targets {
		state := "down"
		if results[i].IsUp {
			state = "up"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.name, t.host, state, formatPorts(results[i].OpenPorts))
	}
	return w.Flush()
}

func formatPorts(ports []int) string {
	if len(ports) == 0 {
		return "-"
	}
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = fmt.Sprint(p)
	}
	return strings.Join(parts, ",")
}

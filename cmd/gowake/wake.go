package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fgeck/gowake/internal/models"
	"github.com/fgeck/gowake/internal/services/runner"
	"github.com/fgeck/gowake/internal/services/wol"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	wakeAll     bool
	wakeMAC     string
	wakeHost    string
	wakeCIDR    string
	wakePort    string
	wakeWait    bool
	wakeTimeout time.Duration
	wakeTrace   bool
)

var wakeCmd = &cobra.Command{
	Use:   "wake [name...]",
	Short: "Send Wake-on-LAN magic packets",
	Long: `Wake configured hosts by name (or every host with --all), or an ad-hoc
target given with --mac and --host.

With --cidr the packet goes to the subnet broadcast address of host/cidr,
otherwise to host itself. The default port is 9.`,
	Example: `  gowake wake --mac AA:BB:CC:DD:EE:FF --host 192.168.1.10 --cidr 24
  gowake -c hosts.yaml wake nas desktop --wait
  gowake -c hosts.yaml wake --all`,
	RunE: runWake,
}

func init() {
	wakeCmd.Flags().BoolVar(&wakeAll, "all", false, "wake every configured host")
	wakeCmd.Flags().StringVar(&wakeMAC, "mac", "", "MAC address of an ad-hoc target")
	wakeCmd.Flags().StringVar(&wakeHost, "host", "", "hostname or IPv4 address of an ad-hoc target")
	wakeCmd.Flags().StringVar(&wakeCIDR, "cidr", "", "prefix length selecting the subnet broadcast address")
	wakeCmd.Flags().StringVar(&wakePort, "port", "", "UDP port (default 9)")
	wakeCmd.Flags().BoolVar(&wakeWait, "wait", false, "wait until the target answers on a probe port")
	wakeCmd.Flags().DurationVar(&wakeTimeout, "timeout", 5*time.Minute, "maximum time to wait with --wait")
	wakeCmd.Flags().BoolVar(&wakeTrace, "trace", false, "print the diagnostic trail of each request")

	wakeCmd.MarkFlagsMutuallyExclusive("all", "mac")
	wakeCmd.MarkFlagsRequiredTogether("mac", "host")
}

func runWake(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	if wakeMAC != "" {
		if len(args) > 0 {
			return fmt.Errorf("host names cannot be combined with --mac")
		}
		return wakeAdHoc(ctx, cmd)
	}

	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	names := args
	if wakeAll {
		names = cfg.HostNames()
	}
	if len(names) == 0 {
		return fmt.Errorf("no hosts given: name hosts, use --all, or pass --mac and --host")
	}

	if wakeWait {
		for i := range cfg.Hosts {
			if cfg.Hosts[i].Wait == nil {
				cfg.Hosts[i].Wait = waitConfig(cfg)
			}
		}
	}

	runnerSvc := runner.New(log.Logger).WithTrace(wakeTrace)
	if err := runnerSvc.Wake(ctx, *cfg, names); err != nil {
		log.Error().Err(err).Msg("wake failed")
		return err
	}

	log.Info().Strs("hosts", names).Msg("wake completed successfully")
	return nil
}

func wakeAdHoc(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}

	port := wakePort
	if port == "" {
		port = cfg.Defaults.Port
	}

	req := models.WakeRequest{
		MACAddress: wakeMAC,
		Host:       wakeHost,
		CIDR:       wakeCIDR,
		Port:       port,
		Trace:      wakeTrace,
	}
	if wakeWait {
		req.Wait = waitConfig(cfg)
	}

	result, err := wol.New(log.Logger).Wake(ctx, req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, entry := range result.Trace {
		fmt.Fprintf(out, "%-10s %s\n", entry.Stage, entry.Detail)
	}

	if result.Error != nil {
		log.Error().Err(result.Error).Str("kind", wol.Kind(result.Error)).Msg("wake failed")
		return result.Error
	}

	fmt.Fprintf(out, "Magic packet for %s sent to %s via %s\n", result.MACAddress, result.Destination, result.Transport)
	if req.Wait != nil {
		if !result.TargetReady {
			fmt.Fprintf(os.Stderr, "Target did not answer within %s\n", req.Wait.Timeout)
			return fmt.Errorf("target did not become ready after WOL")
		}
		fmt.Fprintf(out, "Target is up after %s\n", result.WaitDuration.Round(time.Second))
	}

	return nil
}

func waitConfig(cfg *models.Config) *models.WaitConfig {
	return &models.WaitConfig{
		Ports:        cfg.Defaults.ProbePorts,
		Timeout:      wakeTimeout,
		ProbeTimeout: cfg.Defaults.ProbeTimeout,
	}
}

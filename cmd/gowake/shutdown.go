package main

import (
	"fmt"

	"github.com/fgeck/gowake/internal/services/runner"
	"github.com/fgeck/gowake/internal/services/ssh"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var shutdownTest bool

var shutdownCmd = &cobra.Command{
	Use:   "shutdown <name>",
	Short: "Power off a configured host over SSH",
	Long: `Run the shutdown command on a host that has ssh_shutdown configured.
With --test only the SSH connection is checked.`,
	Args: cobra.ExactArgs(1),
	RunE: runShutdown,
}

func init() {
	shutdownCmd.Flags().BoolVar(&shutdownTest, "test", false, "only test the SSH connection")
}

func runShutdown(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	name := args[0]

	if shutdownTest {
		host, ok := cfg.Host(name)
		if !ok {
			return fmt.Errorf("%w: %q", runner.ErrUnknownHost, name)
		}
		if host.SSHShutdown == nil {
			return fmt.Errorf("host %q has no ssh_shutdown configured", name)
		}

		result, err := ssh.New(log.Logger).TestConnection(ctx, *host.SSHShutdown)
		if err != nil {
			return err
		}
		if result.Error != nil {
			log.Error().Err(result.Error).Str("host", name).Msg("SSH connection test failed")
			return result.Error
		}

		fmt.Fprintf(cmd.OutOrStdout(), "SSH connection to %s works\n", name)
		return nil
	}

	if err := runner.New(log.Logger).Shutdown(ctx, *cfg, name); err != nil {
		log.Error().Err(err).Str("host", name).Msg("shutdown failed")
		return err
	}

	log.Info().Str("host", name).Msg("shutdown command sent")
	return nil
}

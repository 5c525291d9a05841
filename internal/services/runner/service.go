// Package runner wakes and shuts down configured hosts and reports the outcome.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fgeck/gowake/internal/models"
	"github.com/fgeck/gowake/internal/services/ssh"
	"github.com/fgeck/gowake/internal/services/telegram"
	"github.com/fgeck/gowake/internal/services/wol"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// ErrUnknownHost is returned for a host name missing from the configuration.
var ErrUnknownHost = errors.New("unknown host")

// Service defines the interface for the power-management runner.
type Service interface {
	Wake(ctx context.Context, cfg models.Config, names []string) error
	Shutdown(ctx context.Context, cfg models.Config, name string) error
}

// Impl implements the runner Service interface.
type Impl struct {
	wolSvc      wol.Service
	sshSvc      ssh.Service
	telegramSvc telegram.Service
	logger      zerolog.Logger
	trace       bool
}

// New creates a new runner service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		wolSvc:      wol.New(logger),
		sshSvc:      ssh.New(logger),
		telegramSvc: telegram.New(logger),
		logger:      logger,
	}
}

// NewWithServices creates a new runner service with custom services (for testing).
func NewWithServices(
	logger zerolog.Logger,
	wolSvc wol.Service,
	sshSvc ssh.Service,
	telegramSvc telegram.Service,
) *Impl {
	return &Impl{
		wolSvc:      wolSvc,
		sshSvc:      sshSvc,
		telegramSvc: telegramSvc,
		logger:      logger,
	}
}

// WithTrace makes every wake request record and log its diagnostic trail.
func (s *Impl) WithTrace(trace bool) *Impl {
	s.trace = trace
	return s
}

// Wake wakes the named hosts concurrently. Every host is attempted; the
// returned error aggregates the failures.
func (s *Impl) Wake(ctx context.Context, cfg models.Config, names []string) error {
	if len(names) == 0 {
		return errors.New("no hosts to wake")
	}

	hosts := make([]models.HostConfig, 0, len(names))
	for _, name := range names {
		host, ok := cfg.Host(name)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownHost, name)
		}
		hosts = append(hosts, *host)
	}

	errs := make([]error, len(hosts))

	var g errgroup.Group
	for i, host := range hosts {
		g.Go(func() error {
			errs[i] = s.wakeHost(ctx, cfg, host)
			return nil
		})
	}
	_ = g.Wait()

	return multierr.Combine(errs...)
}

func (s *Impl) wakeHost(ctx context.Context, cfg models.Config, host models.HostConfig) error {
	startTime := time.Now()

	s.logger.Info().
		Str("host", host.Name).
		Str("mac", host.MACAddress).
		Str("target", host.Host).
		Msg("waking host")

	req := host.WakeRequest()
	req.Trace = s.trace

	result, err := s.wolSvc.Wake(ctx, req)
	if err == nil {
		for _, entry := range result.Trace {
			s.logger.Info().Str("host", host.Name).Str("stage", entry.Stage).Msg(entry.Detail)
		}
		err = result.Error
	}
	if err == nil && host.Wait != nil && !result.TargetReady {
		err = errors.New("target did not become ready after WOL")
	}

	if err != nil {
		err = fmt.Errorf("%s: %w", host.Name, err)
		s.logger.Error().Err(err).Str("host", host.Name).Msg("wake failed")
	} else {
		s.logger.Info().
			Str("host", host.Name).
			Str("destination", result.Destination).
			Str("transport", result.Transport).
			Bool("target_ready", result.TargetReady).
			Dur("wait_duration", result.WaitDuration).
			Msg("wake completed")
	}

	if cfg.Telegram != nil {
		msg := models.TelegramMessage{
			Action:     models.ActionWake,
			Success:    err == nil,
			Host:       host.Name,
			StartTime:  startTime,
			Duration:   time.Since(startTime),
			MACAddress: host.MACAddress,
		}
		if result != nil {
			if result.MACAddress != "" {
				msg.MACAddress = result.MACAddress
			}
			msg.Destination = result.Destination
			msg.Transport = result.Transport
			msg.TargetReady = result.TargetReady
		}
		if err != nil {
			msg.ErrorMessage = err.Error()
		}
		s.sendNotification(ctx, *cfg.Telegram, msg)
	}

	return err
}

// Shutdown powers off the named host over SSH.
func (s *Impl) Shutdown(ctx context.Context, cfg models.Config, name string) error {
	host, ok := cfg.Host(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownHost, name)
	}
	if host.SSHShutdown == nil {
		return fmt.Errorf("host %q has no ssh_shutdown configured", name)
	}

	startTime := time.Now()
	sshCfg := *host.SSHShutdown

	s.logger.Info().
		Str("host", name).
		Str("address", sshCfg.Host).
		Int("delay", sshCfg.ShutdownDelay).
		Msg("initiating remote shutdown")

	var runErr error
	result, err := s.sshSvc.Shutdown(ctx, sshCfg)
	switch {
	case err != nil:
		runErr = fmt.Errorf("SSH shutdown failed: %w", err)
	case result.Error != nil:
		runErr = fmt.Errorf("SSH shutdown failed: %w", result.Error)
	default:
		s.logger.Info().
			Str("host", name).
			Str("output", result.Output).
			Msg("SSH shutdown command sent")
	}

	if cfg.Telegram != nil {
		msg := models.TelegramMessage{
			Action:    models.ActionShutdown,
			Success:   runErr == nil,
			Host:      name,
			StartTime: startTime,
			Duration:  time.Since(startTime),
		}
		if result != nil {
			msg.Output = result.Output
		}
		if runErr != nil {
			msg.ErrorMessage = runErr.Error()
		}
		s.sendNotification(ctx, *cfg.Telegram, msg)
	}

	return runErr
}

func (s *Impl) sendNotification(ctx context.Context, cfg models.TelegramConfig, msg models.TelegramMessage) {
	result, err := s.telegramSvc.SendNotification(ctx, cfg, msg)
	if err == nil {
		err = result.Error
	}
	if err != nil {
		s.logger.Error().Err(err).Str("host", msg.Host).Msg("failed to send Telegram notification")
	}
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"

	"firestige.xyz/ethermirror/internal/capture"
	"firestige.xyz/ethermirror/internal/config"
	"firestige.xyz/ethermirror/internal/decoder"
	"firestige.xyz/ethermirror/internal/iface"
	"firestige.xyz/ethermirror/internal/log"
	"firestige.xyz/ethermirror/internal/metrics"
	"firestige.xyz/ethermirror/internal/mirror"
)

// deps are the host-facing pieces of a run, swapped out in tests.
type deps struct {
	resolve func(iface.NetInterface) (net.Interface, error)
	open    func(net.Interface, *capture.Options) (capture.Channel, error)
	logOpts []log.Option
}

func systemDeps() deps {
	return deps{
		resolve: iface.ResolveSystem,
		open:    capture.Open,
	}
}

func captureOptions(cfg config.CaptureConfig) *capture.Options {
	opts := capture.DefaultOptions()
	opts.CaptureType = capture.CaptureType(cfg.Backend)
	opts.SnapLen = cfg.SnapLen
	opts.Promiscuous = cfg.Promiscuous
	opts.BufferSizeMB = cfg.BufferSizeMB
	opts.SocketType = cfg.Socket
	opts.InboundOnly = cfg.InboundOnly
	return opts
}

// runMirror wires config, logger, interface, channel and loop, then blocks
// in the loop until ctx is cancelled. Startup failures after the logger
// exists are logged before being returned.
func runMirror(ctx context.Context, path string, d deps) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	logger, err := log.New(cfg.Log, d.logOpts...)
	if err != nil {
		return err
	}
	defer logger.Close()

	err = serve(ctx, cfg, logger, d)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Error("ethermirror failed")
		return err
	}
	return nil
}

func serve(ctx context.Context, cfg *config.Config, logger log.Logger, d deps) error {
	sel, err := iface.Parse(cfg.Interface)
	if err != nil {
		return err
	}

	ifi, err := d.resolve(sel)
	if err != nil {
		return fmt.Errorf("resolve interface %s: %w", cfg.Interface, err)
	}
	logger.WithFields(log.Fields{
		"interface": ifi.Name,
		"index":     ifi.Index,
		"mac":       ifi.HardwareAddr.String(),
		"backend":   cfg.Capture.Backend,
	}).Info("Opening datalink channel")

	ch, err := d.open(ifi, captureOptions(cfg.Capture))
	if err != nil {
		return err
	}
	defer ch.Close()

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path, logger)
		if err := srv.Start(ctx); err != nil {
			return err
		}
		defer srv.Stop(context.Background())
	}

	loop := mirror.New(ch, decoder.New(), logger, mirror.WithInterfaceName(ifi.Name))
	return loop.Run(ctx)
}

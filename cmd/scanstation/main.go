// Command scanstation runs a check-in desk: it watches a directory of camera
// frames, decodes ticket QR codes and checks attendees in on the server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/PiyushSaini04/optimus-event-flow-sub000/internal/station"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		flags      station.FileConfig
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:           "scanstation",
		Short:         "Check attendees in by scanning ticket QR codes",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

			cfg, err := station.LoadFileConfig(configPath)
			if err != nil {
				return err
			}
			applyFlags(cmd, &cfg, flags)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			err = run(cmd.Context(), cfg)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "scanstation:", err)
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVarP(&configPath, "config", "c", "scanstation.yaml", "station config file")
	f.StringVar(&flags.Server, "server", "", "check-in server URL")
	f.StringVarP(&flags.EventID, "event", "e", "", "event id this desk checks in for")
	f.StringVar(&flags.GrantToken, "grant-token", "", "access link token")
	f.StringVar(&flags.AuthToken, "auth-token", "", "owner auth token")
	f.StringVar(&flags.FramesDir, "frames", "", "directory the camera writes frames to")
	f.DurationVar(&flags.Cooldown, "cooldown", 0, "minimum time between two dispatches")
	f.DurationVar(&flags.PollInterval, "poll", 0, "frame directory poll interval")
	f.DurationVar(&flags.RequestTimeout, "timeout", 0, "check-in request timeout")
	f.BoolVar(&flags.RemoveProcessed, "remove-processed", false, "delete frames after reading them")
	f.BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	return cmd
}

// applyFlags copies every flag the operator actually set over the file
// config.
func applyFlags(cmd *cobra.Command, cfg *station.FileConfig, flags station.FileConfig) {
	set := cmd.Flags().Changed
	if set("server") {
		cfg.Server = flags.Server
	}
	if set("event") {
		cfg.EventID = flags.EventID
	}
	if set("grant-token") {
		cfg.GrantToken = flags.GrantToken
	}
	if set("auth-token") {
		cfg.AuthToken = flags.AuthToken
	}
	if set("frames") {
		cfg.FramesDir = flags.FramesDir
	}
	if set("cooldown") {
		cfg.Cooldown = flags.Cooldown
	}
	if set("poll") {
		cfg.PollInterval = flags.PollInterval
	}
	if set("timeout") {
		cfg.RequestTimeout = flags.RequestTimeout
	}
	if set("remove-processed") {
		cfg.RemoveProcessed = flags.RemoveProcessed
	}
}

func run(parent context.Context, cfg station.FileConfig) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := station.NewHTTPClient(station.ClientConfig{
		ServerURL:  cfg.Server,
		GrantToken: cfg.GrantToken,
		AuthToken:  cfg.AuthToken,
		Timeout:    cfg.RequestTimeout,
	})
	if err != nil {
		return err
	}

	controller := station.NewController(
		station.Config{
			EventID:         cfg.EventID,
			Cooldown:        cfg.Cooldown,
			DispatchTimeout: cfg.RequestTimeout + 2*time.Second,
		},
		station.NewDirectorySource(cfg.FramesDir, cfg.PollInterval, cfg.RemoveProcessed),
		station.QRDecoder,
		client,
		station.NewColorReporter(os.Stdout),
	)

	err = controller.Run(ctx)
	if errors.Is(err, station.ErrCameraUnavailable) || errors.Is(err, station.ErrDecoderUnavailable) {
		return err
	}
	if err != nil {
		return fmt.Errorf("scan loop: %w", err)
	}

	slog.Info("Scan station stopped", "event_id", cfg.EventID)
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/schoetbi/chatterdog/internal/audio"
	"github.com/schoetbi/chatterdog/internal/config"
	"github.com/schoetbi/chatterdog/internal/device"
	"github.com/schoetbi/chatterdog/internal/echo"
	"github.com/schoetbi/chatterdog/internal/metrics"
	"github.com/schoetbi/chatterdog/internal/server"
	"github.com/schoetbi/chatterdog/internal/vad"
)

const (
	serviceName    = "chatterdog"
	serviceVersion = "1.0.0"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "chatterdog [flags] <capture-device> <playback-device>",
		Short: "Replay every noise faster and higher",
		Long: `chatterdog listens on the capture device, records each burst of sound until
it goes quiet and plays it back time-compressed on the playback device.

Devices are "default", "wav:<path>", a PortAudio device index or an exact
PortAudio device name.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		Version:       serviceVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			logger := initLogger(cfg.Logging)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := run(ctx, cfg, args[0], args[1], logger); err != nil {
				logger.Error("Fatal error", slog.String("error", err.Error()))
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file (built-in defaults when empty)")

	return cmd
}

// run opens the devices, wires the loop and blocks until a fatal error or
// cancellation
func run(ctx context.Context, cfg *config.Config, captureID, playbackID string, logger *slog.Logger) (err error) {
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("capture_device", captureID),
		slog.String("playback_device", playbackID),
	)

	logger.Info("Configuration loaded",
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Int("buffer_capacity", cfg.Audio.BufferCapacity),
		slog.Int("chunk_length", cfg.Audio.ChunkLength),
		slog.Duration("chunk_duration", cfg.Audio.ChunkDuration()),
		slog.Int("threshold", cfg.Detector.Threshold),
		slog.Int("min_active_count", cfg.Detector.MinActiveCount),
		slog.Float64("ratio", cfg.Compressor.Ratio),
		slog.String("log_level", cfg.Logging.Level),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	appMetrics := metrics.NewMetrics(registry)

	format := device.Format{SampleRate: cfg.Audio.SampleRate, Channels: cfg.Audio.Channels}
	defer device.Terminate()

	capture, err := device.OpenCapture(captureID, format, cfg.Audio.ChunkLength, logger)
	if err != nil {
		return fmt.Errorf("failed to open capture device %q: %w", captureID, err)
	}
	defer func() {
		if cerr := capture.Close(); cerr != nil {
			logger.Warn("Failed to close capture device", slog.String("error", cerr.Error()))
		}
	}()

	playback, err := device.OpenPlayback(playbackID, format, logger)
	if err != nil {
		return fmt.Errorf("failed to open playback device %q: %w", playbackID, err)
	}
	defer func() {
		// WAV sinks write their file here
		if cerr := playback.Close(); cerr != nil {
			logger.Error("Failed to close playback device", slog.String("error", cerr.Error()))
			err = errors.Join(err, cerr)
		}
	}()

	engine, detector, err := buildEngine(cfg, capture, playback, logger, appMetrics)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return engine.Run(gctx)
	})

	if cfg.HTTP.Enabled {
		httpServer := server.NewHTTPServer(cfg, logger, engine, detector, appMetrics, registry)
		g.Go(func() error {
			return httpServer.Run(gctx)
		})
	}

	logger.Info("Service started, waiting for noise...")

	if err := g.Wait(); err != nil {
		return err
	}

	stats := engine.GetStats()
	logger.Info("Service stopped",
		slog.Uint64("cycles", stats.Cycles),
		slog.Uint64("played_cycles", stats.PlayedCycles),
		slog.Uint64("failed_playbacks", stats.FailedPlaybacks),
	)

	return nil
}

// buildEngine assembles the buffer, detector, capturer, compressor and player
func buildEngine(cfg *config.Config, source audio.Source, sink audio.Sink,
	logger *slog.Logger, m *metrics.Metrics) (*echo.Engine, *vad.Detector, error) {

	buffer, err := audio.NewBuffer(cfg.Audio.BufferCapacity)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to allocate buffer: %w", err)
	}

	detector, err := vad.NewDetector(int16(cfg.Detector.Threshold), cfg.Detector.MinActiveCount)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create detector: %w", err)
	}

	capturer, err := audio.NewCapturer(source, detector, cfg.Audio.ChunkLength, logger, m)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create capturer: %w", err)
	}

	compressor, err := audio.NewCompressor(cfg.Compressor.Ratio)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create compressor: %w", err)
	}

	player, err := echo.NewPlayer(sink, cfg.Playback.Retries, logger, m)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create player: %w", err)
	}

	engine, err := echo.NewEngine(buffer, capturer, compressor, player, logger, m)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create engine: %w", err)
	}

	return engine, detector, nil
}

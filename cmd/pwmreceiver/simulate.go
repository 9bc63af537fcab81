package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jpalmerr/pwmreceiver"
	"github.com/jpalmerr/pwmreceiver/config"
	"github.com/jpalmerr/pwmreceiver/edge/sim"
	"github.com/jpalmerr/pwmreceiver/internal/monitor"
	"github.com/jpalmerr/pwmreceiver/internal/server"
	"github.com/spf13/cobra"
)

// simulateCmd runs the receiver against simulated pulse trains.
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the receiver against simulated pulse trains",
	Long: `Run the receiver against simulated pulse trains.

The command will:
  - Load configuration from the specified YAML file
  - Attach every configured channel to a receiver on a simulated controller
  - Play each channel's simulate pulse train in real time
  - Poll at the configured interval and log every delivered reading at debug
  - Print receiver statistics on exit

It runs until interrupted (Ctrl+C), SIGTERM, or --duration elapses.
With --port, the latest readings are served at /api/readings and streamed
at /api/sse.

Example:
  pwmreceiver simulate -c config.yaml --duration 10s
  pwmreceiver simulate -c config.yaml --port 8080 --log-level debug`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	simulateCmd.Flags().Duration("duration", 0, "stop after this long (0 runs until interrupted)")
	simulateCmd.Flags().Int("port", 0, "serve readings over HTTP on this port (0 disables)")
	_ = simulateCmd.MarkFlagRequired("config")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	level, _ := cmd.Flags().GetString("log-level")
	logger, err := newLogger(level)
	if err != nil {
		return err
	}

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	duration, _ := cmd.Flags().GetDuration("duration")
	if duration < 0 {
		return fmt.Errorf("duration cannot be negative, got %s", duration)
	}
	port, _ := cmd.Flags().GetInt("port")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	stats, err := simulate(ctx, cfg, port, logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Receiver stats:\n")
	fmt.Fprintf(out, "  Polls:     %d (%d idle, %d drained, %d overlapped)\n",
		stats.Polls, stats.Idle, stats.Drains, stats.Overlapped)
	fmt.Fprintf(out, "  Readings:  %d (%d delivered, %d filtered, %d failed)\n",
		stats.Readings(), stats.Delivered, stats.Filtered, stats.Failed)
	return nil
}

// simulate runs a receiver on a simulated controller until ctx is cancelled
// and returns its final stats.
func simulate(ctx context.Context, cfg *config.Config, port int, logger *slog.Logger) (pwmreceiver.Stats, error) {
	bindings := config.Build(cfg)
	names := make(map[int]string, len(bindings))
	for _, b := range bindings {
		names[b.Channel] = b.Name
	}

	mon := monitor.NewMemoryMonitor()
	ctrl := sim.NewController()

	opts := append(config.ReceiverOptions(cfg),
		pwmreceiver.WithController(ctrl),
		pwmreceiver.WithLogger(logger),
		pwmreceiver.WithResultHook(func(res pwmreceiver.Result) {
			mon.Update(toReading(res, names[res.Channel]))
		}),
	)
	rcv, err := pwmreceiver.New(opts...)
	if err != nil {
		return pwmreceiver.Stats{}, fmt.Errorf("failed to create receiver: %w", err)
	}

	for _, b := range bindings {
		name := b.Name
		onChange := func(value uint64) {
			logger.Debug("reading delivered", "channel", name, "value", value)
		}
		if err := rcv.Attach(b.Channel, onChange, b.Options...); err != nil {
			return pwmreceiver.Stats{}, fmt.Errorf("failed to attach %s: %w", name, err)
		}
	}

	if port > 0 {
		srv := server.NewServer(mon, port, logger)
		if err := srv.Start(ctx); err != nil {
			return pwmreceiver.Stats{}, err
		}
	}

	trains := config.Trains(cfg)
	logger.Info("simulation started", "channels", len(bindings), "trains", len(trains))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sim.NewGenerator(ctrl, trains...).Run(ctx)
	}()

	if err := rcv.Run(ctx, cfg.PollInterval.Duration()); err != nil {
		return pwmreceiver.Stats{}, err
	}
	wg.Wait()

	for _, b := range bindings {
		if err := rcv.Detach(b.Channel); err != nil {
			logger.Warn("detach failed", "channel", b.Name, "error", err)
		}
	}

	logger.Info("simulation complete")
	return rcv.Stats(), nil
}

// toReading converts a pipeline result for the readings API.
func toReading(res pwmreceiver.Result, name string) monitor.Reading {
	r := monitor.Reading{
		Channel: res.Channel,
		Name:    name,
		Raw:     res.Raw,
		Outcome: res.Outcome.String(),
		At:      time.Now(),
	}
	if res.Outcome == pwmreceiver.OutcomeDelivered {
		r.Value = res.Value
	}
	if res.Err != nil {
		msg := res.Err.Error()
		r.Error = &msg
	}
	return r
}

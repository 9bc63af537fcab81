package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/pwmreceiver"
	"github.com/jpalmerr/pwmreceiver/edge/sim"
)

const (
	throttle = 2
	aux      = 5
)

func main() {
	// simulated interrupt controller; on a board use edge/machinepin instead
	ctrl := sim.NewController()

	rcv, err := pwmreceiver.New(
		pwmreceiver.WithController(ctrl),
		pwmreceiver.WithResultHook(func(res pwmreceiver.Result) {
			if res.Outcome == pwmreceiver.OutcomeFiltered {
				slog.Info("reading rejected", "channel", res.Channel, "width_us", res.Raw)
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create receiver", "error", err)
		os.Exit(1)
	}

	// stick travel scaled to 0..1000, glitches outside 900..2100us dropped
	err = rcv.Attach(throttle, func(v uint64) {
		fmt.Printf("throttle: %d\n", v)
	},
		pwmreceiver.WithFilter(pwmreceiver.Between(900, 2100)),
		pwmreceiver.WithTransform(pwmreceiver.MapRange(988, 2012, 0, 1000)),
	)
	if err != nil {
		slog.Error("failed to attach throttle", "error", err)
		os.Exit(1)
	}

	// raw width in microseconds
	if err := rcv.Attach(aux, func(v uint64) { fmt.Printf("aux: %dus\n", v) }); err != nil {
		slog.Error("failed to attach aux", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gen := sim.NewGenerator(ctrl,
		sim.Train{
			Channel: throttle,
			Period:  20 * time.Millisecond,
			Widths:  []time.Duration{1000 * time.Microsecond, 1500 * time.Microsecond, 2000 * time.Microsecond, 2500 * time.Microsecond},
		},
		sim.Train{
			Channel: aux,
			Period:  20 * time.Millisecond,
			Widths:  []time.Duration{1200 * time.Microsecond},
		},
	)
	go gen.Run(ctx)

	fmt.Println("Receiving simulated PWM, Ctrl+C to stop")

	// the main loop: poll every 50ms
	if err := rcv.Run(ctx, 50*time.Millisecond); err != nil {
		slog.Error("receiver stopped", "error", err)
		os.Exit(1)
	}

	s := rcv.Stats()
	fmt.Printf("delivered %d, filtered %d over %d polls\n", s.Delivered, s.Filtered, s.Polls)
}

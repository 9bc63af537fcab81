package sim

import (
	"context"
	"sync"
	"time"

	"github.com/jpalmerr/pwmreceiver/edge"
)

// Train is a repeating pulse train on one channel. Each period starts with a
// high pulse whose width cycles through Widths.
type Train struct {
	Channel int
	Period  time.Duration
	Widths  []time.Duration
}

// Generator plays pulse trains against a [Controller] in real time, one
// goroutine per train. Use it with [edge.SystemClock].
type Generator struct {
	ctrl   *Controller
	trains []Train
}

// NewGenerator creates a generator driving ctrl.
func NewGenerator(ctrl *Controller, trains ...Train) *Generator {
	return &Generator{ctrl: ctrl, trains: trains}
}

// Run plays every train until ctx is cancelled, then drives all lines Low
// and returns.
func (g *Generator) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, tr := range g.trains {
		if tr.Period <= 0 || len(tr.Widths) == 0 {
			continue
		}
		wg.Add(1)
		go func(tr Train) {
			defer wg.Done()
			g.play(ctx, tr)
		}(tr)
	}
	wg.Wait()
}

func (g *Generator) play(ctx context.Context, tr Train) {
	ticker := time.NewTicker(tr.Period)
	defer ticker.Stop()
	defer g.ctrl.Set(tr.Channel, edge.Low)

	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		width := tr.Widths[i%len(tr.Widths)]
		g.ctrl.Set(tr.Channel, edge.High)

		timer := time.NewTimer(width)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		g.ctrl.Set(tr.Channel, edge.Low)
	}
}

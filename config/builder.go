package config

import (
	"time"

	"github.com/jpalmerr/pwmreceiver"
	"github.com/jpalmerr/pwmreceiver/edge/sim"
)

// Binding is a configured channel ready to attach.
type Binding struct {
	Channel int
	Name    string
	Options []pwmreceiver.AttachOption
}

// ReceiverOptions converts the receiver-level settings into SDK options.
func ReceiverOptions(cfg *Config) []pwmreceiver.Option {
	return []pwmreceiver.Option{
		pwmreceiver.WithCapacity(cfg.Capacity),
	}
}

// Build converts parsed configuration into attach bindings, one per channel,
// in file order.
//
//	for _, b := range bindings {
//	    err := rcv.Attach(b.Channel, onChange, b.Options...)
//	}
func Build(cfg *Config) []Binding {
	bindings := make([]Binding, 0, len(cfg.Channels))
	for _, cc := range cfg.Channels {
		var opts []pwmreceiver.AttachOption

		if f := buildFilter(cc.Filter); f != nil {
			opts = append(opts, pwmreceiver.WithFilter(f))
		}
		if t := buildTransform(cc.Transform); t != nil {
			opts = append(opts, pwmreceiver.WithTransform(t))
		}

		bindings = append(bindings, Binding{
			Channel: cc.Channel,
			Name:    cc.label(),
			Options: opts,
		})
	}
	return bindings
}

// Trains returns the simulated pulse trains of every channel that has a
// simulate block.
func Trains(cfg *Config) []sim.Train {
	var trains []sim.Train
	for _, cc := range cfg.Channels {
		if cc.Simulate == nil {
			continue
		}
		widths := make([]time.Duration, len(cc.Simulate.Widths))
		for i, w := range cc.Simulate.Widths {
			widths[i] = w.Duration()
		}
		trains = append(trains, sim.Train{
			Channel: cc.Channel,
			Period:  cc.Simulate.Period.Duration(),
			Widths:  widths,
		})
	}
	return trains
}

// buildFilter converts FilterConfig to a Filter.
// Returns nil for empty configs (SDK uses AcceptAll).
func buildFilter(fc FilterConfig) pwmreceiver.Filter {
	switch fc.Type {
	case "any":
		return pwmreceiver.AcceptAll
	case "none":
		return pwmreceiver.RejectAll
	case "below":
		return pwmreceiver.Below(fc.Max)
	case "above":
		return pwmreceiver.Above(fc.Min)
	case "between":
		return pwmreceiver.Between(fc.Min, fc.Max)
	default:
		return nil
	}
}

// buildTransform converts TransformConfig to a Transform.
// Returns nil for empty configs (SDK uses Identity).
func buildTransform(tc TransformConfig) pwmreceiver.Transform {
	switch tc.Type {
	case "identity":
		return pwmreceiver.Identity
	case "div":
		return pwmreceiver.DivideBy(tc.By)
	case "offset":
		return pwmreceiver.Offset(tc.Delta)
	case "clamp":
		return pwmreceiver.Clamp(tc.Min, tc.Max)
	case "map":
		return pwmreceiver.MapRange(tc.From[0], tc.From[1], tc.To[0], tc.To[1])
	default:
		return nil
	}
}

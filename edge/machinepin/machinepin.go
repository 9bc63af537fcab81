//go:build tinygo

// Package machinepin implements [edge.Controller] on TinyGo's machine
// package: channels map to pins, edges arrive through pin-change interrupts,
// and the critical section masks interrupts globally.
package machinepin

import (
	"errors"
	"fmt"
	"machine"
	"runtime/interrupt"

	"github.com/jpalmerr/pwmreceiver/edge"
)

// ErrNoPin is returned when a channel has no pin mapped to it.
var ErrNoPin = errors.New("machinepin: no pin mapped to channel")

// Controller routes pin-change interrupts to receiver channels.
type Controller struct {
	pins []machine.Pin
	mode machine.PinMode
}

// New creates a controller where channel i is pins[i]. Pins are configured
// as inputs with the given mode (machine.PinInput, machine.PinInputPulldown).
func New(mode machine.PinMode, pins ...machine.Pin) *Controller {
	return &Controller{pins: pins, mode: mode}
}

// Disable masks all interrupts.
func (c *Controller) Disable() edge.State {
	return edge.State(interrupt.Disable())
}

// Restore unmasks interrupts to the state saved by Disable.
func (c *Controller) Restore(s edge.State) {
	interrupt.Restore(interrupt.State(s))
}

// Register configures the channel's pin as an input and enables a
// both-edges interrupt that calls h with the new level.
func (c *Controller) Register(ch int, h edge.Handler) error {
	pin, err := c.pin(ch)
	if err != nil {
		return err
	}
	pin.Configure(machine.PinConfig{Mode: c.mode})
	if err := pin.SetInterrupt(machine.PinToggle, func(p machine.Pin) {
		h(ch, edge.Level(p.Get()))
	}); err != nil {
		return fmt.Errorf("machinepin: channel %d: %w", ch, err)
	}
	return nil
}

// Unregister disables the channel's pin interrupt.
func (c *Controller) Unregister(ch int) error {
	pin, err := c.pin(ch)
	if err != nil {
		return err
	}
	if err := pin.SetInterrupt(0, nil); err != nil {
		return fmt.Errorf("machinepin: channel %d: %w", ch, err)
	}
	return nil
}

func (c *Controller) pin(ch int) (machine.Pin, error) {
	if ch < 0 || ch >= len(c.pins) || c.pins[ch] == machine.NoPin {
		return machine.NoPin, fmt.Errorf("%w %d", ErrNoPin, ch)
	}
	return c.pins[ch], nil
}

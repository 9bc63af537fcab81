package monitor

import "time"

// Reading is the latest pipeline result for one channel.
type Reading struct {
	// Channel is the channel index.
	Channel int `json:"channel"`

	// Name is the channel's configured display name, if any.
	Name string `json:"name,omitempty"`

	// Raw is the captured pulse width in microseconds.
	Raw uint64 `json:"raw_us"`

	// Value is the transformed value; zero unless Outcome is "delivered".
	Value uint64 `json:"value"`

	// Outcome is "delivered", "filtered" or "failed".
	Outcome string `json:"outcome"`

	// Error carries the stage error message when Outcome is "failed".
	Error *string `json:"error"`

	// At is when the reading was dispatched.
	At time.Time `json:"at"`
}

// Monitor stores the latest reading per channel and publishes updates.
//
// Monitor implementations must be safe for concurrent access.
type Monitor interface {
	// Update stores a reading, replacing the previous one for its channel,
	// and notifies all subscribers.
	Update(r Reading)

	// GetAll returns the latest reading of every channel seen so far,
	// ordered by channel.
	GetAll() []Reading

	// Subscribe returns a channel that receives every update.
	// Caller must call Unsubscribe when done.
	Subscribe() <-chan Reading

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Reading)
}

package pwmreceiver

// Below returns a [Filter] that accepts readings strictly less than max.
//
// Example:
//
//	// drop anything that is not a plausible servo pulse
//	f := pwmreceiver.Below(1_000_000)
func Below(max uint64) Filter {
	return func(value uint64) bool {
		return value < max
	}
}

// Above returns a [Filter] that accepts readings strictly greater than min.
func Above(min uint64) Filter {
	return func(value uint64) bool {
		return value > min
	}
}

// Between returns a [Filter] that accepts readings in the closed range
// [min, max].
//
// Example:
//
//	// standard RC receiver output, with some margin
//	f := pwmreceiver.Between(900, 2100)
func Between(min, max uint64) Filter {
	return func(value uint64) bool {
		return value >= min && value <= max
	}
}

// AllOf returns a [Filter] that accepts a reading only if every filter
// accepts it. Filters are evaluated in order and evaluation stops at the
// first rejection. With no filters, every reading is accepted.
func AllOf(filters ...Filter) Filter {
	return func(value uint64) bool {
		for _, f := range filters {
			if !f(value) {
				return false
			}
		}
		return true
	}
}

// AnyOf returns a [Filter] that accepts a reading if at least one filter
// accepts it. With no filters, every reading is rejected.
func AnyOf(filters ...Filter) Filter {
	return func(value uint64) bool {
		for _, f := range filters {
			if f(value) {
				return true
			}
		}
		return false
	}
}

// Not returns a [Filter] that inverts f.
func Not(f Filter) Filter {
	return func(value uint64) bool {
		return !f(value)
	}
}

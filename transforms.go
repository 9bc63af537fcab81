package pwmreceiver

// DivideBy returns a [Transform] that divides by n, truncating. It panics
// if n is zero.
//
// Example:
//
//	// microseconds to milliseconds
//	t := pwmreceiver.DivideBy(1000)
func DivideBy(n uint64) Transform {
	if n == 0 {
		panic("pwmreceiver: DivideBy zero")
	}
	return func(value uint64) uint64 {
		return value / n
	}
}

// Offset returns a [Transform] that adds d to the value, saturating at zero
// when d is negative.
func Offset(d int64) Transform {
	return func(value uint64) uint64 {
		if d >= 0 {
			return value + uint64(d)
		}
		sub := uint64(-d)
		if sub > value {
			return 0
		}
		return value - sub
	}
}

// Clamp returns a [Transform] that limits the value to [min, max].
func Clamp(min, max uint64) Transform {
	return func(value uint64) uint64 {
		if value < min {
			return min
		}
		if value > max {
			return max
		}
		return value
	}
}

// MapRange returns a [Transform] that linearly maps [fromMin, fromMax] onto
// [toMin, toMax]. Input outside the source range is clamped first. toMin may
// be greater than toMax to invert the direction. It panics if fromMin is not
// less than fromMax.
//
// Example:
//
//	// RC stick travel to a 0..1000 throttle
//	t := pwmreceiver.MapRange(988, 2012, 0, 1000)
func MapRange(fromMin, fromMax, toMin, toMax uint64) Transform {
	if fromMin >= fromMax {
		panic("pwmreceiver: MapRange source range is empty")
	}
	fromSpan := fromMax - fromMin
	inverted := toMin > toMax
	toSpan := toMax - toMin
	if inverted {
		toSpan = toMin - toMax
	}

	return func(value uint64) uint64 {
		if value < fromMin {
			value = fromMin
		}
		if value > fromMax {
			value = fromMax
		}
		offset := (value - fromMin) * toSpan / fromSpan
		if inverted {
			return toMin - offset
		}
		return toMin + offset
	}
}

// Chain returns a [Transform] that applies transforms in order, feeding each
// output into the next. With no transforms it behaves like [Identity].
//
// Example:
//
//	t := pwmreceiver.Chain(
//	    pwmreceiver.Clamp(1000, 2000),
//	    pwmreceiver.Offset(-1000),
//	)
func Chain(transforms ...Transform) Transform {
	return func(value uint64) uint64 {
		for _, t := range transforms {
			value = t(value)
		}
		return value
	}
}

package fwlogs

// TimestampExtender turns the firmware's wrapping 32-bit timer into a
// monotonically extending 64-bit value. It carries ordered state: feed it
// records in the order the firmware produced them, and use one extender per
// stream. It is not safe for concurrent use.
//
// Skipping more than one full wrap between two calls cannot be detected.
type TimestampExtender struct {
	last32 uint32
	last64 uint64
	prev64 uint64
	primed bool
}

// Extend folds raw32 into the 64-bit counter and returns the new value.
func (t *TimestampExtender) Extend(raw32 uint32) uint64 {
	next := t.last64
	if raw32 < t.last32 {
		next += 1 << 32
	}
	next = next&^0xFFFFFFFF | uint64(raw32)

	if t.primed {
		t.prev64 = t.last64
	} else {
		t.prev64 = next
		t.primed = true
	}
	t.last32 = raw32
	t.last64 = next
	return next
}

// Delta returns the distance between the two most recent Extend results.
// It is 0 after the first Extend of a session.
func (t *TimestampExtender) Delta() uint64 {
	return t.last64 - t.prev64
}

// Last returns the most recent 64-bit timestamp.
func (t *TimestampExtender) Last() uint64 {
	return t.last64
}

// Zero starts a new session.
func (t *TimestampExtender) Zero() {
	*t = TimestampExtender{}
}

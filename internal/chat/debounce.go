package chat

// Debouncer tracks the settled value of a rapidly changing input.
// Callers schedule a timer for each generation returned by Change and
// call Settle when it fires; only the newest generation settles.
type Debouncer struct {
	pending string
	gen     int
	settled string
}

// Change records a new value and returns its generation
func (d *Debouncer) Change(value string) int {
	if value == d.pending && d.gen > 0 {
		return d.gen
	}
	d.pending = value
	d.gen++
	return d.gen
}

// Settle promotes the pending value if gen is still the newest.
// It reports whether the settled value changed.
func (d *Debouncer) Settle(gen int) bool {
	if gen != d.gen || d.settled == d.pending {
		return false
	}
	d.settled = d.pending
	return true
}

// Reset clears both pending and settled values
func (d *Debouncer) Reset() {
	d.pending = ""
	d.settled = ""
	d.gen++
}

// Value returns the last settled value
func (d *Debouncer) Value() string {
	return d.settled
}
